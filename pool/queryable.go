package pool

import (
	"context"

	"github.com/coachpo/objectpool/config"
	"github.com/coachpo/objectpool/core/breaker"
	"github.com/coachpo/objectpool/core/health"
	"github.com/coachpo/objectpool/core/metrics"
	"github.com/coachpo/objectpool/errs"
)

// Queryable selects leases by caller-supplied predicate. Checkout drains the
// available container, hands the first match to the caller, and refills the
// rest, trading O(n) checkout cost for a generic predicate interface with no
// secondary indexes.
type Queryable[T any] struct {
	inner *Fixed[T]
}

// NewQueryable constructs a queryable pool seeded with the given objects.
func NewQueryable[T any](objects []T, cfg config.Pool[T]) *Queryable[T] {
	return &Queryable[T]{inner: NewFixed(objects, cfg)}
}

// Get checks out the first available object satisfying match. "First" is
// the drain order of the available container, which callers must not assume
// is insertion order. Other callers observing the pool mid-drain may see a
// transiently reduced available count; every drained entry is owned by this
// caller until refilled or leased, so no entry is lost.
func (p *Queryable[T]) Get(match func(*T) bool) (*Lease[T], error) {
	if err := p.inner.admit(); err != nil {
		return nil, err
	}

	var kept []entry[T]
	var found *entry[T]
	for {
		ent, ok := p.inner.available.TryPop()
		if !ok {
			break
		}
		if p.inner.eviction.IsExpired(ent.id) {
			p.inner.eviction.Remove(ent.id)
			continue
		}
		if found == nil && match(&ent.value) {
			claimed := ent
			found = &claimed
			continue
		}
		kept = append(kept, ent)
	}

	for _, ent := range kept {
		p.inner.available.TryPush(ent)
	}

	if found == nil {
		if p.inner.breaker != nil {
			p.inner.breaker.RecordFailure()
		}
		return nil, errs.New(errs.CodeNoMatchFound)
	}

	p.inner.claim(found.id)
	return p.inner.lease(*found), nil
}

// TryGet is Get with the error collapsed to a boolean.
func (p *Queryable[T]) TryGet(match func(*T) bool) (*Lease[T], bool) {
	lease, err := p.Get(match)
	if err != nil {
		return nil, false
	}
	return lease, true
}

// GetContext repeatedly attempts a predicate checkout until one succeeds,
// the configured operation timeout elapses, or ctx is cancelled.
func (p *Queryable[T]) GetContext(ctx context.Context, match func(*T) bool) (*Lease[T], error) {
	return waitCheckout(ctx, p.inner.cfg.Settings.OperationTimeout, func() (*Lease[T], bool) {
		return p.TryGet(match)
	})
}

// AvailableCount returns the number of objects ready for checkout.
func (p *Queryable[T]) AvailableCount() int { return p.inner.AvailableCount() }

// ActiveCount returns the number of objects currently leased.
func (p *Queryable[T]) ActiveCount() int { return p.inner.ActiveCount() }

// Capacity returns the fixed upper bound on available plus active objects.
func (p *Queryable[T]) Capacity() int { return p.inner.Capacity() }

// Metrics returns a point-in-time metrics snapshot.
func (p *Queryable[T]) Metrics() metrics.Snapshot { return p.inner.Metrics() }

// Health returns a point-in-time health reading.
func (p *Queryable[T]) Health() health.Status { return p.inner.Health() }

// RenderPrometheus writes the current metrics in Prometheus text exposition
// format under the given pool name and labels.
func (p *Queryable[T]) RenderPrometheus(poolName string, labels []metrics.Label) string {
	return p.inner.RenderPrometheus(poolName, labels)
}

// CircuitBreaker exposes the admission gate, or nil when disabled.
func (p *Queryable[T]) CircuitBreaker() *breaker.Breaker { return p.inner.CircuitBreaker() }
