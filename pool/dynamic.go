package pool

import (
	"context"

	concpool "github.com/sourcegraph/conc/pool"

	"github.com/coachpo/objectpool/config"
	"github.com/coachpo/objectpool/core/breaker"
	"github.com/coachpo/objectpool/core/health"
	"github.com/coachpo/objectpool/core/metrics"
	"github.com/coachpo/objectpool/errs"
)

// Dynamic manufactures objects on demand through a factory, growing lazily
// up to capacity. Manufactured identities come from a monotone counter that
// starts above every seeded identity, so no identity repeats.
type Dynamic[T any] struct {
	inner   *Fixed[T]
	factory func() T
}

// NewDynamic constructs an empty dynamic pool around factory. When the
// configuration carries a warmup size, that many objects (at most capacity)
// are pre-manufactured before the pool is handed back.
func NewDynamic[T any](factory func() T, cfg config.Pool[T]) *Dynamic[T] {
	return NewDynamicWithInitial(factory, nil, cfg)
}

// NewDynamicWithInitial seeds the pool with existing objects and keeps the
// factory for lazy growth past the seed.
func NewDynamicWithInitial[T any](factory func() T, initial []T, cfg config.Pool[T]) *Dynamic[T] {
	p := &Dynamic[T]{inner: NewFixed(initial, cfg), factory: factory}
	if n := cfg.Settings.WarmupSize; n > 0 {
		p.warmup(n)
	}
	return p
}

// Get checks out an object, manufacturing a fresh one when the standard
// checkout finds the pool empty and the active count is still under
// capacity. Circuit-breaker and max-active denials are returned unchanged.
func (p *Dynamic[T]) Get() (*Lease[T], error) {
	lease, err := p.inner.Get()
	if err == nil {
		return lease, nil
	}
	if !errs.IsCode(err, errs.CodePoolEmpty) {
		return nil, err
	}
	if p.inner.ActiveCount() >= p.inner.capacity {
		return nil, errs.New(errs.CodePoolFull)
	}

	value := p.factory()
	id := p.inner.nextID.Add(1) - 1
	p.inner.eviction.Track(id)
	p.inner.markActive(id)
	p.inner.metrics.IncRetrieved()
	p.inner.health.IncRetrieved()
	return p.inner.lease(entry[T]{value: value, id: id}), nil
}

// TryGet is Get with the error collapsed to a boolean.
func (p *Dynamic[T]) TryGet() (*Lease[T], bool) {
	lease, err := p.Get()
	if err != nil {
		return nil, false
	}
	return lease, true
}

// GetContext repeatedly attempts checkout until one succeeds, the configured
// operation timeout elapses, or ctx is cancelled.
func (p *Dynamic[T]) GetContext(ctx context.Context) (*Lease[T], error) {
	return waitCheckout(ctx, p.inner.cfg.Settings.OperationTimeout, p.TryGet)
}

// Warmup pre-manufactures up to min(count, capacity) objects and parks them
// in the available container. It stops early when the container fills.
func (p *Dynamic[T]) Warmup(count int) error {
	p.warmup(count)
	return nil
}

// WarmupContext offloads warmup to a worker and waits for it, surfacing
// cancellation of ctx as the cancelled error code. Objects pushed before the
// cancellation remain in the pool.
func (p *Dynamic[T]) WarmupContext(ctx context.Context, count int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	runner := concpool.New().WithContext(ctx)
	runner.Go(func(ctx context.Context) error {
		limit := count
		if p.inner.capacity < limit {
			limit = p.inner.capacity
		}
		for i := 0; i < limit; i++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if !p.manufactureOne() {
				return nil
			}
		}
		return nil
	})
	if err := runner.Wait(); err != nil {
		return errs.New(errs.CodeCancelled, errs.WithCause(err))
	}
	return nil
}

func (p *Dynamic[T]) warmup(count int) {
	limit := count
	if p.inner.capacity < limit {
		limit = p.inner.capacity
	}
	for i := 0; i < limit; i++ {
		if !p.manufactureOne() {
			return
		}
	}
}

// manufactureOne builds, tracks, and parks one object. It reports false when
// the available container refused the push.
func (p *Dynamic[T]) manufactureOne() bool {
	value := p.factory()
	id := p.inner.nextID.Add(1) - 1
	p.inner.eviction.Track(id)
	if !p.inner.available.TryPush(entry[T]{value: value, id: id}) {
		p.inner.eviction.Remove(id)
		return false
	}
	return true
}

// AvailableCount returns the number of objects ready for checkout.
func (p *Dynamic[T]) AvailableCount() int { return p.inner.AvailableCount() }

// ActiveCount returns the number of objects currently leased.
func (p *Dynamic[T]) ActiveCount() int { return p.inner.ActiveCount() }

// Capacity returns the upper bound on available plus active objects.
func (p *Dynamic[T]) Capacity() int { return p.inner.Capacity() }

// Metrics returns a point-in-time metrics snapshot.
func (p *Dynamic[T]) Metrics() metrics.Snapshot { return p.inner.Metrics() }

// Health returns a point-in-time health reading.
func (p *Dynamic[T]) Health() health.Status { return p.inner.Health() }

// RenderPrometheus writes the current metrics in Prometheus text exposition
// format under the given pool name and labels.
func (p *Dynamic[T]) RenderPrometheus(poolName string, labels []metrics.Label) string {
	return p.inner.RenderPrometheus(poolName, labels)
}

// CircuitBreaker exposes the admission gate, or nil when disabled.
func (p *Dynamic[T]) CircuitBreaker() *breaker.Breaker { return p.inner.CircuitBreaker() }
