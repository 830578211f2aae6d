// Package evict implements lazy expiry tracking for pooled objects.
package evict

import (
	"sync"
	"time"
)

// Policy describes when a pooled object expires. A zero Policy never expires
// anything and stores no metadata. Setting both durations combines them:
// an object expires when either predicate holds.
type Policy struct {
	// TTL expires objects measured from their creation instant.
	TTL time.Duration
	// Idle expires objects measured from their last use.
	Idle time.Duration
}

// Enabled reports whether the policy can ever expire an object.
func (p Policy) Enabled() bool {
	return p.TTL > 0 || p.Idle > 0
}

type objectMetadata struct {
	createdAt time.Time
	lastUsed  time.Time
}

func (m objectMetadata) expired(p Policy, now time.Time) bool {
	if p.TTL > 0 && now.Sub(m.createdAt) > p.TTL {
		return true
	}
	if p.Idle > 0 && now.Sub(m.lastUsed) > p.Idle {
		return true
	}
	return false
}

// Tracker records per-object lifecycle stamps and answers expiry queries.
// All expiry checks happen when an object is popped for checkout; there is
// no background sweeper.
type Tracker struct {
	mu       sync.Mutex
	metadata map[uint64]objectMetadata
	policy   Policy
	clock    func() time.Time
}

// NewTracker constructs a tracker for the given policy.
func NewTracker(policy Policy) *Tracker {
	return &Tracker{
		mu:       sync.Mutex{},
		metadata: make(map[uint64]objectMetadata),
		policy:   policy,
		clock:    time.Now,
	}
}

// WithClock overrides the internal clock, primarily for testing.
func (t *Tracker) WithClock(clock func() time.Time) *Tracker {
	t.mu.Lock()
	defer t.mu.Unlock()
	if clock == nil {
		t.clock = time.Now
	} else {
		t.clock = clock
	}
	return t
}

// Track inserts metadata for id with creation and last-use stamped now.
// It is a no-op when the policy cannot expire anything.
func (t *Tracker) Track(id uint64) {
	if !t.policy.Enabled() {
		return
	}
	t.mu.Lock()
	now := t.clock()
	t.metadata[id] = objectMetadata{createdAt: now, lastUsed: now}
	t.mu.Unlock()
}

// Touch refreshes the last-use stamp for id.
func (t *Tracker) Touch(id uint64) {
	if !t.policy.Enabled() {
		return
	}
	t.mu.Lock()
	if meta, ok := t.metadata[id]; ok {
		meta.lastUsed = t.clock()
		t.metadata[id] = meta
	}
	t.mu.Unlock()
}

// IsExpired reports whether id has expired under the policy. Untracked ids
// never report expired, so missing metadata cannot block checkout progress.
func (t *Tracker) IsExpired(id uint64) bool {
	if !t.policy.Enabled() {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	meta, ok := t.metadata[id]
	if !ok {
		return false
	}
	return meta.expired(t.policy, t.clock())
}

// Remove drops the metadata for id.
func (t *Tracker) Remove(id uint64) {
	t.mu.Lock()
	delete(t.metadata, id)
	t.mu.Unlock()
}

// ExpiredIDs returns every tracked id that has expired under the policy.
func (t *Tracker) ExpiredIDs() []uint64 {
	if !t.policy.Enabled() {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock()
	var out []uint64
	for id, meta := range t.metadata {
		if meta.expired(t.policy, now) {
			out = append(out, id)
		}
	}
	return out
}
