// Package health derives advisory health views over pool occupancy.
package health

import (
	"fmt"
	"sync/atomic"

	json "github.com/goccy/go-json"
)

// highUtilizationThreshold marks the occupancy ratio above which the pool is
// reported unhealthy.
const highUtilizationThreshold = 0.9

// Status is a point-in-time health reading for one pool.
type Status struct {
	IsHealthy        bool     `json:"is_healthy"`
	WarningCount     int      `json:"warning_count"`
	Utilization      float64  `json:"utilization"`
	AvailableObjects int      `json:"available_objects"`
	ActiveObjects    int      `json:"active_objects"`
	TotalCapacity    int      `json:"total_capacity"`
	Warnings         []string `json:"warnings"`
}

// NewStatus derives a status from the instantaneous gauges. Utilization past
// 0.9 marks the pool unhealthy; an empty pool with nonzero capacity is an
// advisory warning only.
func NewStatus(available, active, capacity int) Status {
	utilization := 0.0
	if capacity > 0 {
		utilization = float64(active) / float64(capacity)
	}

	var warnings []string
	healthy := true

	if utilization > highUtilizationThreshold {
		warnings = append(warnings, fmt.Sprintf("High utilization: %.1f%%", utilization*100))
		healthy = false
	}
	if available == 0 && capacity > 0 {
		warnings = append(warnings, "Pool is empty")
	}

	return Status{
		IsHealthy:        healthy,
		WarningCount:     len(warnings),
		Utilization:      utilization,
		AvailableObjects: available,
		ActiveObjects:    active,
		TotalCapacity:    capacity,
		Warnings:         warnings,
	}
}

// Healthy reports whether the pool passed every health check.
func (s Status) Healthy() bool {
	return s.IsHealthy
}

// JSON renders the status for transport or dashboards.
func (s Status) JSON() ([]byte, error) {
	return json.Marshal(s)
}

// Tracker mirrors the pool's lifetime counters alongside a mutable healthy
// flag. It backs health reporting independently of the metrics tracker so
// the two views can evolve separately.
type Tracker struct {
	totalRetrieved     atomic.Uint64
	totalReturned      atomic.Uint64
	poolEmptyCount     atomic.Uint64
	validationFailures atomic.Uint64
	healthy            atomic.Bool
}

// NewTracker constructs a tracker reporting healthy.
func NewTracker() *Tracker {
	t := new(Tracker)
	t.healthy.Store(true)
	return t
}

// IncRetrieved counts one successful checkout.
func (t *Tracker) IncRetrieved() { t.totalRetrieved.Add(1) }

// IncReturned counts one completed return.
func (t *Tracker) IncReturned() { t.totalReturned.Add(1) }

// IncEmpty counts one empty-on-checkout event.
func (t *Tracker) IncEmpty() { t.poolEmptyCount.Add(1) }

// IncValidationFailure counts one validator rejection on return.
func (t *Tracker) IncValidationFailure() { t.validationFailures.Add(1) }

// SetHealthy records an externally observed health verdict.
func (t *Tracker) SetHealthy(healthy bool) { t.healthy.Store(healthy) }

// Healthy returns the last recorded health verdict.
func (t *Tracker) Healthy() bool { return t.healthy.Load() }

// Retrieved returns the lifetime checkout count.
func (t *Tracker) Retrieved() uint64 { return t.totalRetrieved.Load() }

// Returned returns the lifetime return count.
func (t *Tracker) Returned() uint64 { return t.totalReturned.Load() }

// EmptyEvents returns the lifetime empty-on-checkout count.
func (t *Tracker) EmptyEvents() uint64 { return t.poolEmptyCount.Load() }
