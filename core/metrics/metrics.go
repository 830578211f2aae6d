// Package metrics collects pool counters and renders snapshot views.
package metrics

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	json "github.com/goccy/go-json"
)

// Tracker accumulates the lifetime counters of one pool. All increments are
// lock-free; the hot checkout and return paths never block on metrics.
type Tracker struct {
	totalRetrieved     atomic.Uint64
	totalReturned      atomic.Uint64
	poolEmptyEvents    atomic.Uint64
	validationFailures atomic.Uint64
}

// NewTracker constructs a zeroed tracker.
func NewTracker() *Tracker {
	return new(Tracker)
}

// IncRetrieved counts one successful checkout.
func (t *Tracker) IncRetrieved() { t.totalRetrieved.Add(1) }

// IncReturned counts one completed return.
func (t *Tracker) IncReturned() { t.totalReturned.Add(1) }

// IncEmpty counts one empty-on-checkout event.
func (t *Tracker) IncEmpty() { t.poolEmptyEvents.Add(1) }

// IncValidationFailure counts one validator rejection on return.
func (t *Tracker) IncValidationFailure() { t.validationFailures.Add(1) }

// Snapshot combines the counters with the instantaneous gauges supplied by
// the pool. Each value is read atomically but the set is collectively
// approximate: retrieved and returned may come from different instants.
func (t *Tracker) Snapshot(active, available, capacity int) Snapshot {
	utilization := 0.0
	if capacity > 0 {
		utilization = float64(active) / float64(capacity)
	}
	return Snapshot{
		TotalRetrieved:     t.totalRetrieved.Load(),
		TotalReturned:      t.totalReturned.Load(),
		ActiveObjects:      active,
		AvailableObjects:   available,
		PoolEmptyEvents:    t.poolEmptyEvents.Load(),
		ValidationFailures: t.validationFailures.Load(),
		Utilization:        utilization,
		MaxCapacity:        capacity,
	}
}

// Snapshot is a point-in-time view of one pool's metrics.
type Snapshot struct {
	TotalRetrieved     uint64  `json:"total_retrieved"`
	TotalReturned      uint64  `json:"total_returned"`
	ActiveObjects      int     `json:"active_objects"`
	AvailableObjects   int     `json:"available_objects"`
	PoolEmptyEvents    uint64  `json:"pool_empty_events"`
	ValidationFailures uint64  `json:"validation_failures"`
	Utilization        float64 `json:"utilization"`
	MaxCapacity        int     `json:"max_capacity"`
}

// AsMap renders the snapshot as string key/value pairs.
func (s Snapshot) AsMap() map[string]string {
	return map[string]string{
		"total_retrieved":     strconv.FormatUint(s.TotalRetrieved, 10),
		"total_returned":      strconv.FormatUint(s.TotalReturned, 10),
		"active_objects":      strconv.Itoa(s.ActiveObjects),
		"available_objects":   strconv.Itoa(s.AvailableObjects),
		"pool_empty_events":   strconv.FormatUint(s.PoolEmptyEvents, 10),
		"validation_failures": strconv.FormatUint(s.ValidationFailures, 10),
		"utilization":         fmt.Sprintf("%.2f", s.Utilization),
		"max_capacity":        strconv.Itoa(s.MaxCapacity),
	}
}

// JSON renders the snapshot for transport or dashboards.
func (s Snapshot) JSON() ([]byte, error) {
	return json.Marshal(s)
}

// Label is one caller-supplied exposition label. Labels are emitted in slice
// order after the leading pool label.
type Label struct {
	Key   string
	Value string
}

// RenderPrometheus writes the snapshot in Prometheus text exposition format.
// The output is byte-stable for a given snapshot, pool name, and label
// sequence so downstream scrape pipelines can depend on it.
func RenderPrometheus(s Snapshot, poolName string, labels []Label) string {
	var out strings.Builder
	rendered := renderLabels(poolName, labels)

	writeGauge(&out, "objectpool_objects_active", "Current active objects", rendered, strconv.Itoa(s.ActiveObjects))
	writeGauge(&out, "objectpool_objects_available", "Current available objects", rendered, strconv.Itoa(s.AvailableObjects))
	writeGauge(&out, "objectpool_utilization", "Pool utilization ratio", rendered, fmt.Sprintf("%.2f", s.Utilization))

	writeCounter(&out, "objectpool_objects_retrieved_total", "Total objects retrieved", rendered, strconv.FormatUint(s.TotalRetrieved, 10))
	writeCounter(&out, "objectpool_objects_returned_total", "Total objects returned", rendered, strconv.FormatUint(s.TotalReturned, 10))
	writeCounter(&out, "objectpool_events_empty_total", "Pool empty events", rendered, strconv.FormatUint(s.PoolEmptyEvents, 10))
	writeCounter(&out, "objectpool_validation_failures_total", "Validation failures", rendered, strconv.FormatUint(s.ValidationFailures, 10))

	return out.String()
}

func writeGauge(out *strings.Builder, name, help, labels, value string) {
	writeSample(out, name, help, "gauge", labels, value)
}

func writeCounter(out *strings.Builder, name, help, labels, value string) {
	writeSample(out, name, help, "counter", labels, value)
}

func writeSample(out *strings.Builder, name, help, kind, labels, value string) {
	out.WriteString("# HELP " + name + " " + help + "\n")
	out.WriteString("# TYPE " + name + " " + kind + "\n")
	out.WriteString(name + "{" + labels + "} " + value + "\n")
}

func renderLabels(poolName string, labels []Label) string {
	parts := make([]string, 0, len(labels)+1)
	parts = append(parts, `pool="`+poolName+`"`)
	for _, l := range labels {
		parts = append(parts, l.Key+`="`+l.Value+`"`)
	}
	return strings.Join(parts, ",")
}
