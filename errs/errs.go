// Package errs provides structured error types for the object pool library.
package errs

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Code identifies a pool failure category. The set is closed: callers can
// switch over these values exhaustively.
type Code string

const (
	// CodePoolEmpty indicates the pool had no available objects.
	CodePoolEmpty Code = "pool_empty"
	// CodePoolFull indicates a dynamic pool cannot grow past its capacity.
	CodePoolFull Code = "pool_full"
	// CodeTimeout indicates a context-bound checkout exceeded its deadline.
	CodeTimeout Code = "timeout"
	// CodeNoMatchFound indicates no available object satisfied the query predicate.
	CodeNoMatchFound Code = "no_match_found"
	// CodeValidationFailed is reserved for surfacing validator rejections to
	// callers. No checkout path raises it today; it exists for API stability.
	CodeValidationFailed Code = "validation_failed"
	// CodeCircuitBreakerOpen indicates admission was denied by the circuit breaker.
	CodeCircuitBreakerOpen Code = "circuit_breaker_open"
	// CodeMaxActiveObjects indicates the simultaneous-lease cap was hit.
	CodeMaxActiveObjects Code = "max_active_objects_reached"
	// CodeCancelled indicates an offloaded operation was aborted before completion.
	CodeCancelled Code = "cancelled"
	// CodeValueTaken indicates access through a lease whose value was extracted.
	CodeValueTaken Code = "value_already_taken"
)

// E captures structured error information produced across the pool stack.
type E struct {
	Pool    string
	Code    Code
	Timeout time.Duration
	Message string

	cause error
}

// Option configures an error envelope.
type Option func(*E)

// New constructs an error envelope for the given failure code.
func New(code Code, opts ...Option) *E {
	e := &E{
		Pool:    "",
		Code:    code,
		Timeout: 0,
		Message: "",
		cause:   nil,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithPool records the name of the pool that produced the error.
func WithPool(name string) Option {
	trimmed := strings.TrimSpace(name)
	return func(e *E) {
		e.Pool = trimmed
	}
}

// WithMessage attaches a human-readable message to the error.
func WithMessage(message string) Option {
	trimmed := strings.TrimSpace(message)
	return func(e *E) {
		e.Message = trimmed
	}
}

// WithTimeout records the deadline that elapsed before the failure.
func WithTimeout(d time.Duration) Option {
	return func(e *E) {
		e.Timeout = d
	}
}

// WithCause sets the underlying cause error.
func WithCause(err error) Option {
	return func(e *E) {
		e.cause = err
	}
}

func (e *E) Error() string {
	if e == nil {
		return "<nil>"
	}
	var parts []string

	code := strings.TrimSpace(string(e.Code))
	if code == "" {
		code = "unknown"
	}
	parts = append(parts, "code="+code)

	if e.Pool != "" {
		parts = append(parts, "pool="+strconv.Quote(e.Pool))
	}
	if e.Timeout > 0 {
		parts = append(parts, "timeout="+e.Timeout.String())
	}
	if e.Message != "" {
		parts = append(parts, "message="+strconv.Quote(e.Message))
	}
	if e.cause != nil {
		parts = append(parts, "cause="+strconv.Quote(e.cause.Error()))
	}

	return strings.Join(parts, " ")
}

func (e *E) Unwrap() error { return e.cause }

// Is reports whether target carries the same failure code, letting callers
// match with errors.Is against a bare New(code) sentinel.
func (e *E) Is(target error) bool {
	var t *E
	if !errors.As(target, &t) {
		return false
	}
	return e != nil && e.Code == t.Code
}

// CodeOf extracts the failure code from err, or the empty code when err was
// not produced by this package.
func CodeOf(err error) Code {
	var e *E
	if errors.As(err, &e) && e != nil {
		return e.Code
	}
	return Code("")
}

// IsCode reports whether err carries the given failure code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
