package pool

import (
	"sync"

	"github.com/coachpo/objectpool/errs"
)

// returnFunc deposits a leased value back into its originating pool. It is
// the sole path by which an entry re-enters the available container.
type returnFunc[T any] func(value T, id uint64)

// discardFunc clears the pool-side bookkeeping for an extracted value.
type discardFunc func(id uint64)

// Lease is scoped ownership of one pooled value. The holder accesses the
// value through Value, returns it with Release, or detaches it permanently
// with Take. Release is idempotent and safe to defer: Go runs deferred calls
// during panic unwinding, so a `defer lease.Release()` guarantees the
// exactly-once return even when the owner panics.
type Lease[T any] struct {
	mu       sync.Mutex
	value    T
	id       uint64
	spent    bool
	returnFn returnFunc[T]
	discard  discardFunc
}

func newLease[T any](value T, id uint64, ret returnFunc[T], discard discardFunc) *Lease[T] {
	l := new(Lease[T])
	l.value = value
	l.id = id
	l.returnFn = ret
	l.discard = discard
	return l
}

// ID returns the pool identity of the leased value.
func (l *Lease[T]) ID() uint64 {
	return l.id
}

// Value returns a pointer to the leased value for reading or mutation. The
// pointer is valid until Release or Take. Accessing a spent lease fails with
// the value_already_taken code.
func (l *Lease[T]) Value() (*T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.spent {
		return nil, errs.New(errs.CodeValueTaken)
	}
	return &l.value, nil
}

// Take consumes the lease and detaches the inner value, permanently removing
// it from the pool. The pool's active mark for the identity is cleared here
// because the return path will never run.
func (l *Lease[T]) Take() (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.spent {
		var zero T
		return zero, errs.New(errs.CodeValueTaken)
	}
	l.spent = true
	if l.discard != nil {
		l.discard(l.id)
	}
	return l.value, nil
}

// Release returns the value to the pool. The first call fires the return
// path exactly once; later calls, and calls after Take, are no-ops.
func (l *Lease[T]) Release() {
	l.mu.Lock()
	if l.spent {
		l.mu.Unlock()
		return
	}
	l.spent = true
	value := l.value
	ret := l.returnFn
	l.mu.Unlock()

	if ret != nil {
		ret(value, l.id)
	}
}
