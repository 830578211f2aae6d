package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func TestStartsClosedAndAllows(t *testing.T) {
	b := New(3, time.Minute)
	require.Equal(t, Closed, b.State())
	require.True(t, b.Allow())
}

func TestOpensAfterThresholdFailures(t *testing.T) {
	b := New(3, time.Minute)
	b.RecordFailure()
	b.RecordFailure()
	require.Equal(t, Closed, b.State())
	b.RecordFailure()
	require.Equal(t, Open, b.State())
	require.False(t, b.Allow())
}

func TestLazyHalfOpenAfterResetTimeout(t *testing.T) {
	clock := newFakeClock()
	b := New(1, time.Minute).WithClock(clock.Now)
	b.RecordFailure()
	require.False(t, b.Allow())

	clock.Advance(61 * time.Second)
	require.True(t, b.Allow(), "first probe after reset timeout is admitted")
	require.Equal(t, HalfOpen, b.State())
}

func TestHalfOpenClosesAfterThreeSuccesses(t *testing.T) {
	clock := newFakeClock()
	b := New(1, time.Minute).WithClock(clock.Now)
	b.RecordFailure()
	clock.Advance(2 * time.Minute)
	require.True(t, b.Allow())

	b.RecordSuccess()
	b.RecordSuccess()
	require.Equal(t, HalfOpen, b.State())
	b.RecordSuccess()
	require.Equal(t, Closed, b.State())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	clock := newFakeClock()
	b := New(1, time.Minute).WithClock(clock.Now)
	b.RecordFailure()
	clock.Advance(2 * time.Minute)
	require.True(t, b.Allow())
	require.Equal(t, HalfOpen, b.State())

	b.RecordFailure()
	require.Equal(t, Open, b.State())
	require.False(t, b.Allow())
}

func TestResetClosesAndClearsCounters(t *testing.T) {
	b := New(2, time.Minute)
	b.RecordFailure()
	b.RecordFailure()
	require.Equal(t, Open, b.State())

	b.Reset()
	require.Equal(t, Closed, b.State())

	// A single failure after reset must not trip a threshold of two.
	b.RecordFailure()
	require.Equal(t, Closed, b.State())
}

func TestStateString(t *testing.T) {
	require.Equal(t, "closed", Closed.String())
	require.Equal(t, "open", Open.String())
	require.Equal(t, "half_open", HalfOpen.String())
}
