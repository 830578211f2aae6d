package observability

import (
	"time"

	"golang.org/x/time/rate"
)

// Throttle gates repetitive warning logs so hot return paths cannot flood
// the logger. One event per interval passes; the rest are dropped.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle constructs a throttle admitting one event per interval.
func NewThrottle(interval time.Duration) *Throttle {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Allow reports whether the caller may emit now.
func (t *Throttle) Allow() bool {
	return t.limiter.Allow()
}
