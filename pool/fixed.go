// Package pool implements the concurrent lease lifecycle engine: fixed,
// queryable, and dynamic pools sharing one checkout/return protocol.
package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/coachpo/objectpool/config"
	"github.com/coachpo/objectpool/core/breaker"
	"github.com/coachpo/objectpool/core/evict"
	"github.com/coachpo/objectpool/core/health"
	"github.com/coachpo/objectpool/core/metrics"
	"github.com/coachpo/objectpool/errs"
	"github.com/coachpo/objectpool/internal/observability"
	"github.com/coachpo/objectpool/lib/queue"
)

// checkoutPollInterval bounds how long a context checkout sleeps between
// attempts. Timeout(d) therefore fires no later than d plus one interval.
const checkoutPollInterval = 10 * time.Millisecond

// warnInterval spaces the throttled warnings emitted from return paths.
const warnInterval = time.Minute

type entry[T any] struct {
	value T
	id    uint64
}

// Instrumented is the non-generic view every pool shape exposes for
// registries and metric exporters.
type Instrumented interface {
	AvailableCount() int
	ActiveCount() int
	Capacity() int
	Metrics() metrics.Snapshot
	Health() health.Status
}

// Fixed is a thread-safe pool over a bounded set of objects established at
// construction. Checked-out values travel inside a Lease and re-enter the
// pool when the lease is released.
type Fixed[T any] struct {
	available   *queue.Bounded[entry[T]]
	active      sync.Map // map[uint64]struct{}
	activeCount atomic.Int64
	cfg         config.Pool[T]
	metrics     *metrics.Tracker
	health      *health.Tracker
	eviction    *evict.Tracker
	breaker     *breaker.Breaker
	nextID      atomic.Uint64
	capacity    int
	warn        *observability.Throttle
}

// NewFixed constructs a pool seeded with the given objects. Capacity is the
// larger of the seed count and the configured max pool size; identities
// 0..len(objects)-1 are assigned in order.
func NewFixed[T any](objects []T, cfg config.Pool[T]) *Fixed[T] {
	capacity := len(objects)
	if cfg.Settings.MaxPoolSize > capacity {
		capacity = cfg.Settings.MaxPoolSize
	}

	p := new(Fixed[T])
	p.available = queue.NewBounded[entry[T]](capacity)
	p.cfg = cfg
	p.metrics = metrics.NewTracker()
	p.health = health.NewTracker()
	p.eviction = evict.NewTracker(evict.Policy{
		TTL:  cfg.Settings.TimeToLive,
		Idle: cfg.Settings.IdleTimeout,
	})
	p.capacity = capacity
	p.warn = observability.NewThrottle(warnInterval)

	if cb := cfg.Settings.CircuitBreaker; cb.Enabled {
		p.breaker = breaker.New(cb.Threshold, cb.ResetTimeout)
	}

	for i, obj := range objects {
		id := uint64(i)
		p.eviction.Track(id)
		p.available.TryPush(entry[T]{value: obj, id: id})
	}
	p.nextID.Store(uint64(capacity))

	return p
}

// Get checks out one object. Admission runs first: an open circuit breaker
// or a reached max-active cap fails without touching the available
// container. Expired entries encountered during the pop loop are discarded.
func (p *Fixed[T]) Get() (*Lease[T], error) {
	if err := p.admit(); err != nil {
		return nil, err
	}
	return p.popLease()
}

// TryGet is Get with the error collapsed to a boolean.
func (p *Fixed[T]) TryGet() (*Lease[T], bool) {
	lease, err := p.Get()
	if err != nil {
		return nil, false
	}
	return lease, true
}

// GetContext repeatedly attempts checkout until one succeeds, the configured
// operation timeout elapses, or ctx is cancelled. No entry is claimed when
// the wait ends in failure.
func (p *Fixed[T]) GetContext(ctx context.Context) (*Lease[T], error) {
	return waitCheckout(ctx, p.cfg.Settings.OperationTimeout, p.TryGet)
}

// AvailableCount returns the number of objects ready for checkout.
func (p *Fixed[T]) AvailableCount() int {
	return p.available.Len()
}

// ActiveCount returns the number of objects currently leased.
func (p *Fixed[T]) ActiveCount() int {
	return int(p.activeCount.Load())
}

// Capacity returns the fixed upper bound on available plus active objects.
func (p *Fixed[T]) Capacity() int {
	return p.capacity
}

// Metrics returns a point-in-time metrics snapshot.
func (p *Fixed[T]) Metrics() metrics.Snapshot {
	return p.metrics.Snapshot(p.ActiveCount(), p.AvailableCount(), p.capacity)
}

// Health returns a point-in-time health reading.
func (p *Fixed[T]) Health() health.Status {
	return health.NewStatus(p.AvailableCount(), p.ActiveCount(), p.capacity)
}

// RenderPrometheus writes the current metrics in Prometheus text exposition
// format under the given pool name and labels.
func (p *Fixed[T]) RenderPrometheus(poolName string, labels []metrics.Label) string {
	return metrics.RenderPrometheus(p.Metrics(), poolName, labels)
}

// CircuitBreaker exposes the admission gate, or nil when disabled.
func (p *Fixed[T]) CircuitBreaker() *breaker.Breaker {
	return p.breaker
}

func (p *Fixed[T]) admit() error {
	if p.breaker != nil && !p.breaker.Allow() {
		return errs.New(errs.CodeCircuitBreakerOpen)
	}
	if max := p.cfg.Settings.MaxActiveObjects; max != nil && p.ActiveCount() >= *max {
		return errs.New(errs.CodeMaxActiveObjects)
	}
	return nil
}

func (p *Fixed[T]) popLease() (*Lease[T], error) {
	for {
		ent, ok := p.available.TryPop()
		if !ok {
			p.metrics.IncEmpty()
			p.health.IncEmpty()
			if p.breaker != nil {
				p.breaker.RecordFailure()
			}
			return nil, errs.New(errs.CodePoolEmpty)
		}
		if p.eviction.IsExpired(ent.id) {
			p.eviction.Remove(ent.id)
			continue
		}
		p.claim(ent.id)
		return p.lease(ent), nil
	}
}

// claim marks id active and records the successful checkout.
func (p *Fixed[T]) claim(id uint64) {
	p.markActive(id)
	p.eviction.Touch(id)
	p.metrics.IncRetrieved()
	p.health.IncRetrieved()
	if p.breaker != nil {
		p.breaker.RecordSuccess()
	}
}

func (p *Fixed[T]) lease(ent entry[T]) *Lease[T] {
	return newLease(ent.value, ent.id, p.returnObject, p.discardActive)
}

// returnObject is the lease return path. Validation failures permanently
// discard the value; everything else re-enters the available container.
func (p *Fixed[T]) returnObject(value T, id uint64) {
	if p.cfg.ValidateOnReturn && p.cfg.Validator != nil && !p.cfg.Validator(&value) {
		p.metrics.IncValidationFailure()
		p.health.IncValidationFailure()
		p.clearActive(id)
		p.eviction.Remove(id)
		if p.warn.Allow() {
			observability.Log().Error("pool: validator rejected returned object; discarding",
				observability.Field{Key: "object_id", Value: id})
		}
		return
	}

	p.eviction.Touch(id)
	p.clearActive(id)
	if !p.available.TryPush(entry[T]{value: value, id: id}) {
		// Cannot happen while available+active stays within capacity; the
		// value is dropped rather than blocking the return path.
		if p.warn.Allow() {
			observability.Log().Error("pool: available container full on return; dropping object",
				observability.Field{Key: "object_id", Value: id})
		}
	}
	p.metrics.IncReturned()
	p.health.IncReturned()
}

// discardActive clears the bookkeeping for a value extracted via Take.
func (p *Fixed[T]) discardActive(id uint64) {
	p.clearActive(id)
	p.eviction.Remove(id)
}

func (p *Fixed[T]) markActive(id uint64) {
	p.active.Store(id, struct{}{})
	p.activeCount.Add(1)
}

func (p *Fixed[T]) clearActive(id uint64) {
	if _, loaded := p.active.LoadAndDelete(id); loaded {
		p.activeCount.Add(-1)
	}
}

// waitCheckout drives try until it succeeds or the deadline passes, sleeping
// a capped backoff between attempts, in the manner of a reconnect loop.
func waitCheckout[T any](ctx context.Context, timeout time.Duration, try func() (*Lease[T], bool)) (*Lease[T], error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		timeout = config.DefaultOperationTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	backoffCfg := backoff.NewExponentialBackOff()
	backoffCfg.InitialInterval = time.Millisecond
	backoffCfg.MaxInterval = checkoutPollInterval

	for {
		if lease, ok := try(); ok {
			return lease, nil
		}
		sleep := backoffCfg.NextBackOff()
		if sleep == backoff.Stop || sleep > checkoutPollInterval {
			sleep = checkoutPollInterval
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, errs.New(errs.CodeTimeout, errs.WithTimeout(timeout), errs.WithCause(ctx.Err()))
			}
			return nil, errs.New(errs.CodeCancelled, errs.WithCause(ctx.Err()))
		case <-time.After(sleep):
		}
	}
}
