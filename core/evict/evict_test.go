package evict

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

func TestDisabledPolicyStoresNothing(t *testing.T) {
	tracker := NewTracker(Policy{})
	tracker.Track(1)
	require.False(t, tracker.IsExpired(1))
	require.Empty(t, tracker.ExpiredIDs())
}

func TestTTLExpiry(t *testing.T) {
	clock := newFakeClock()
	tracker := NewTracker(Policy{TTL: 100 * time.Millisecond}).WithClock(clock.Now)

	tracker.Track(7)
	require.False(t, tracker.IsExpired(7))

	clock.Advance(150 * time.Millisecond)
	require.True(t, tracker.IsExpired(7))
	require.Equal(t, []uint64{7}, tracker.ExpiredIDs())
}

func TestIdleExpiryResetByTouch(t *testing.T) {
	clock := newFakeClock()
	tracker := NewTracker(Policy{Idle: time.Second}).WithClock(clock.Now)

	tracker.Track(3)
	clock.Advance(900 * time.Millisecond)
	tracker.Touch(3)
	clock.Advance(900 * time.Millisecond)
	require.False(t, tracker.IsExpired(3))

	clock.Advance(200 * time.Millisecond)
	require.True(t, tracker.IsExpired(3))
}

func TestCombinedPolicyExpiresOnEither(t *testing.T) {
	clock := newFakeClock()
	tracker := NewTracker(Policy{TTL: time.Hour, Idle: time.Minute}).WithClock(clock.Now)

	tracker.Track(1)
	clock.Advance(2 * time.Minute)
	require.True(t, tracker.IsExpired(1), "idle limb should fire first")

	tracker.Track(2)
	for i := 0; i < 70; i++ {
		clock.Advance(59 * time.Second)
		tracker.Touch(2)
	}
	require.True(t, tracker.IsExpired(2), "ttl limb should fire despite touches")
}

func TestUntrackedIDNeverExpired(t *testing.T) {
	tracker := NewTracker(Policy{TTL: time.Nanosecond})
	require.False(t, tracker.IsExpired(99))
}

func TestRemoveDropsMetadata(t *testing.T) {
	clock := newFakeClock()
	tracker := NewTracker(Policy{TTL: time.Millisecond}).WithClock(clock.Now)
	tracker.Track(5)
	tracker.Remove(5)
	clock.Advance(time.Hour)
	require.False(t, tracker.IsExpired(5))
}
