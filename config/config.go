// Package config centralises pool policy configuration.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultMaxPoolSize bounds the available container when the caller does
	// not size the pool explicitly.
	DefaultMaxPoolSize = 100
	// DefaultOperationTimeout bounds context-based checkouts when no timeout
	// is configured.
	DefaultOperationTimeout = 30 * time.Second
	// DefaultBreakerThreshold is the consecutive-failure count that opens the
	// circuit breaker when it is enabled without an explicit threshold.
	DefaultBreakerThreshold = 5
	// DefaultBreakerResetTimeout is how long an open breaker waits before
	// admitting a probe.
	DefaultBreakerResetTimeout = 60 * time.Second
)

// BreakerSettings configures the checkout admission gate. The threshold and
// reset timeout are carried even while Enabled is false so enabling the
// breaker later needs no re-tuning.
type BreakerSettings struct {
	Enabled      bool
	Threshold    int
	ResetTimeout time.Duration
}

// Settings contains the scalar pool policy bundle. TimeToLive and IdleTimeout
// left at zero disable expiry; a zero OperationTimeout falls back to
// DefaultOperationTimeout. MaxActiveObjects nil means unlimited.
type Settings struct {
	MaxPoolSize      int
	MaxActiveObjects *int
	OperationTimeout time.Duration
	TimeToLive       time.Duration
	IdleTimeout      time.Duration
	WarmupSize       int
	CircuitBreaker   BreakerSettings
}

// Default returns the default pool policy bundle.
func Default() Settings {
	return Settings{
		MaxPoolSize:      DefaultMaxPoolSize,
		MaxActiveObjects: nil,
		OperationTimeout: DefaultOperationTimeout,
		TimeToLive:       0,
		IdleTimeout:      0,
		WarmupSize:       0,
		CircuitBreaker: BreakerSettings{
			Enabled:      false,
			Threshold:    DefaultBreakerThreshold,
			ResetTimeout: DefaultBreakerResetTimeout,
		},
	}
}

// FromEnv loads settings from environment variables, overriding defaults.
func FromEnv() Settings {
	s := Default()
	if v := strings.TrimSpace(os.Getenv("OBJECTPOOL_MAX_POOL_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			s.MaxPoolSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("OBJECTPOOL_MAX_ACTIVE_OBJECTS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			s.MaxActiveObjects = &n
		}
	}
	if v := strings.TrimSpace(os.Getenv("OBJECTPOOL_OPERATION_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			s.OperationTimeout = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("OBJECTPOOL_TIME_TO_LIVE")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			s.TimeToLive = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("OBJECTPOOL_IDLE_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			s.IdleTimeout = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("OBJECTPOOL_WARMUP_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			s.WarmupSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("OBJECTPOOL_CIRCUIT_BREAKER_ENABLED")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			s.CircuitBreaker.Enabled = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("OBJECTPOOL_CIRCUIT_BREAKER_THRESHOLD")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.CircuitBreaker.Threshold = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("OBJECTPOOL_CIRCUIT_BREAKER_RESET_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			s.CircuitBreaker.ResetTimeout = d
		}
	}
	return s
}

// Pool is the full policy bundle for a pool of T: the scalar settings plus
// the optional return-side validator. Builder methods return a modified
// copy; a Pool handed to a pool constructor is never mutated afterwards.
type Pool[T any] struct {
	Settings         Settings
	ValidateOnReturn bool
	Validator        func(*T) bool
}

// New returns a policy bundle carrying the default settings.
func New[T any]() Pool[T] {
	return Pool[T]{Settings: Default(), ValidateOnReturn: false, Validator: nil}
}

// FromSettings wraps pre-loaded scalar settings into a typed bundle.
func FromSettings[T any](s Settings) Pool[T] {
	return Pool[T]{Settings: s, ValidateOnReturn: false, Validator: nil}
}

// WithMaxPoolSize bounds the available container.
func (p Pool[T]) WithMaxPoolSize(size int) Pool[T] {
	p.Settings.MaxPoolSize = size
	return p
}

// WithMaxActiveObjects caps simultaneous leases. A zero cap fails every
// checkout.
func (p Pool[T]) WithMaxActiveObjects(count int) Pool[T] {
	p.Settings.MaxActiveObjects = &count
	return p
}

// WithValidation installs a return-side validator; returns that fail it
// permanently discard the object.
func (p Pool[T]) WithValidation(fn func(*T) bool) Pool[T] {
	p.ValidateOnReturn = fn != nil
	p.Validator = fn
	return p
}

// WithTimeout bounds context-based checkout waits.
func (p Pool[T]) WithTimeout(d time.Duration) Pool[T] {
	p.Settings.OperationTimeout = d
	return p
}

// WithTTL expires objects a fixed duration after creation.
func (p Pool[T]) WithTTL(d time.Duration) Pool[T] {
	p.Settings.TimeToLive = d
	return p
}

// WithIdleTimeout expires objects left unused for the duration.
func (p Pool[T]) WithIdleTimeout(d time.Duration) Pool[T] {
	p.Settings.IdleTimeout = d
	return p
}

// WithWarmup asks dynamic pools to pre-manufacture up to size objects.
func (p Pool[T]) WithWarmup(size int) Pool[T] {
	p.Settings.WarmupSize = size
	return p
}

// WithCircuitBreaker enables the admission gate with the given threshold and
// reset timeout.
func (p Pool[T]) WithCircuitBreaker(threshold int, reset time.Duration) Pool[T] {
	p.Settings.CircuitBreaker = BreakerSettings{
		Enabled:      true,
		Threshold:    threshold,
		ResetTimeout: reset,
	}
	return p
}
