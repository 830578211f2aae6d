package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoundedPushPopOrder(t *testing.T) {
	q := NewBounded[int](3)
	require.True(t, q.TryPush(1))
	require.True(t, q.TryPush(2))
	require.True(t, q.TryPush(3))
	require.False(t, q.TryPush(4))
	require.Equal(t, 3, q.Len())
	require.Equal(t, 3, q.Cap())

	v, ok := q.TryPop()
	require.True(t, ok)
	require.Equal(t, 1, v)
}

func TestBoundedZeroCapacity(t *testing.T) {
	q := NewBounded[string](0)
	require.False(t, q.TryPush("x"))
	_, ok := q.TryPop()
	require.False(t, ok)
}

func TestBoundedConcurrentOwnershipTransfer(t *testing.T) {
	const n = 64
	q := NewBounded[int](n)
	for i := 0; i < n; i++ {
		require.True(t, q.TryPush(i))
	}

	seen := make(chan int, n)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				v, ok := q.TryPop()
				if !ok {
					return
				}
				seen <- v
			}
		}()
	}
	wg.Wait()
	close(seen)

	got := make(map[int]int)
	for v := range seen {
		got[v]++
	}
	require.Len(t, got, n)
	for v, count := range got {
		require.Equalf(t, 1, count, "element %d observed more than once", v)
	}
}
