// Package breaker implements the failure-counting admission gate guarding
// pool checkout.
package breaker

import (
	"sync"
	"sync/atomic"
	"time"
)

// State enumerates the admission gate positions.
type State int32

const (
	// Closed admits every request; the gate is in normal operation.
	Closed State = iota
	// Open denies every request until the reset timeout elapses.
	Open
	// HalfOpen admits probes while recovery is being confirmed.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// halfOpenSuccessTarget is the number of consecutive successes in HalfOpen
// required before the gate closes again.
const halfOpenSuccessTarget = 3

// Breaker is a three-state admission gate. Counters are lock-free; the state
// word and the last-failure stamp share one short-critical-section lock.
// The Open to HalfOpen transition happens lazily inside Allow when the reset
// timeout has elapsed since the last recorded failure.
type Breaker struct {
	mu          sync.Mutex
	state       State
	lastFailure time.Time
	failures    atomic.Uint64
	successes   atomic.Uint64
	threshold   uint64
	reset       time.Duration
	clock       func() time.Time
}

// New constructs a closed breaker that opens after threshold consecutive
// failures and re-probes after reset has elapsed.
func New(threshold int, reset time.Duration) *Breaker {
	if threshold < 1 {
		threshold = 1
	}
	b := new(Breaker)
	b.state = Closed
	b.threshold = uint64(threshold)
	b.reset = reset
	b.clock = time.Now
	return b
}

// WithClock overrides the internal clock, primarily for testing.
func (b *Breaker) WithClock(clock func() time.Time) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if clock == nil {
		b.clock = time.Now
	} else {
		b.clock = clock
	}
	return b
}

// State returns the current gate position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a request may proceed. When the gate is Open and the
// reset timeout has elapsed since the last failure, the gate moves to
// HalfOpen and the probing caller is admitted.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Closed, HalfOpen:
		return true
	case Open:
		if !b.lastFailure.IsZero() && b.clock().Sub(b.lastFailure) > b.reset {
			b.state = HalfOpen
			b.successes.Store(0)
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess notes a successful operation. A success while Closed clears
// the failure count, so only consecutive failures open the gate. Enough
// consecutive successes while HalfOpen close the gate.
func (b *Breaker) RecordSuccess() {
	count := b.successes.Add(1)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Closed {
		b.failures.Store(0)
	}
	if b.state == HalfOpen && count >= halfOpenSuccessTarget {
		b.toClosedLocked()
	}
}

// RecordFailure notes a failed operation and stamps the failure instant.
// Reaching the threshold while Closed opens the gate; any failure while
// HalfOpen re-opens it immediately.
func (b *Breaker) RecordFailure() {
	count := b.failures.Add(1)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastFailure = b.clock()
	switch b.state {
	case Closed:
		if count >= b.threshold {
			b.state = Open
		}
	case HalfOpen:
		b.state = Open
	case Open:
	}
}

// Reset forces the gate closed and clears both counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.toClosedLocked()
}

func (b *Breaker) toClosedLocked() {
	b.state = Closed
	b.failures.Store(0)
	b.successes.Store(0)
}
