package pool

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/coachpo/objectpool/config"
	"github.com/coachpo/objectpool/core/metrics"
)

func TestManagerRegisterAndLookup(t *testing.T) {
	m := NewManager()
	p := NewFixed([]int{1, 2}, config.New[int]())

	id, err := m.Register("buffers", p)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	view, err := m.Lookup("buffers")
	require.NoError(t, err)
	require.Equal(t, 2, view.AvailableCount())

	got, err := m.InstanceID("buffers")
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestManagerRejectsDuplicateNames(t *testing.T) {
	m := NewManager()
	p := NewFixed([]int{1}, config.New[int]())

	_, err := m.Register("dup", p)
	require.NoError(t, err)
	_, err = m.Register("dup", p)
	require.Error(t, err)
}

func TestManagerLookupUnknown(t *testing.T) {
	m := NewManager()
	_, err := m.Lookup("ghost")
	require.ErrorIs(t, err, ErrPoolNotRegistered)
	_, err = m.InstanceID("ghost")
	require.ErrorIs(t, err, ErrPoolNotRegistered)
}

func TestManagerNamesSorted(t *testing.T) {
	m := NewManager()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := m.Register(name, NewFixed([]int{1}, config.New[int]()))
		require.NoError(t, err)
	}
	require.Equal(t, []string{"alpha", "mid", "zeta"}, m.Names())
}

func TestManagerRenderPrometheusOrdersByName(t *testing.T) {
	m := NewManager()
	_, err := m.Register("b_pool", NewFixed([]int{1}, config.New[int]()))
	require.NoError(t, err)
	_, err = m.Register("a_pool", NewFixed([]int{1}, config.New[int]()),
		metrics.Label{Key: "service", Value: "api"})
	require.NoError(t, err)

	out := m.RenderPrometheus()
	aIdx := strings.Index(out, `objectpool_objects_active{pool="a_pool",service="api"}`)
	bIdx := strings.Index(out, `objectpool_objects_active{pool="b_pool"}`)
	require.GreaterOrEqual(t, aIdx, 0)
	require.Greater(t, bIdx, aIdx)
}

func TestManagerHealthSummary(t *testing.T) {
	m := NewManager()
	_, err := m.Register("healthy", NewFixed([]int{1, 2}, config.New[int]()))
	require.NoError(t, err)

	summary := m.HealthSummary()
	require.Len(t, summary, 1)
	require.True(t, summary["healthy"].Healthy())
}

func TestManagerShutdownWaitsForDrain(t *testing.T) {
	m := NewManager()
	p := NewFixed([]int{1}, config.New[int]())
	_, err := m.Register("drain", p)
	require.NoError(t, err)

	lease, err := p.Get()
	require.NoError(t, err)

	go func() {
		time.Sleep(30 * time.Millisecond)
		lease.Release()
	}()

	require.NoError(t, m.Shutdown(context.Background()))
	require.Zero(t, m.ActiveTotal())
}

func TestManagerShutdownTimesOutWithLeaseHeld(t *testing.T) {
	m := NewManager()
	p := NewFixed([]int{1}, config.New[int]())
	_, err := m.Register("stuck", p)
	require.NoError(t, err)

	lease, err := p.Get()
	require.NoError(t, err)
	defer lease.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = m.Shutdown(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "1 pooled objects unreturned")
}

func TestManagerRefusesRegistrationAfterShutdown(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Shutdown(context.Background()))

	_, err := m.Register("late", NewFixed([]int{1}, config.New[int]()))
	require.ErrorIs(t, err, ErrManagerClosed)
}
