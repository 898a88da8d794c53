package telemetry

import "sync/atomic"

// AtomicString is a concurrency-safe string cell, used for the Clock's
// published FSM state name.
type AtomicString struct {
	v atomic.Value
}

// Store sets the string.
func (s *AtomicString) Store(v string) { s.v.Store(v) }

// Load returns the current string, or "" if never stored.
func (s *AtomicString) Load() string {
	v, _ := s.v.Load().(string)
	return v
}

// Registry is the facade a Clock publishes metrics through. Int counters
// back evcount/ticks/queue-length; Floats is reserved for user actions that
// want to publish their own numeric telemetry; State holds the FSM's
// current state name as reported by query(:metrics).
type Registry struct {
	Ints   *MetricMap[atomic.Int64]
	Floats *MetricMap[AtomicFloat]
	State  AtomicString
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		Ints:   NewMetricMap(func() *atomic.Int64 { return new(atomic.Int64) }),
		Floats: NewMetricMap(func() *AtomicFloat { return new(AtomicFloat) }),
	}
}

// Well-known int metric keys published by every Clock.
const (
	MetricEvCount   = "evcount"   // events executed in the current or most recent run
	MetricQueueLen  = "queue_len" // live (non-deleted) events currently scheduled
	MetricBatchSize = "batch"     // size of the most recently dispatched batch
	MetricSteps     = "steps"     // number of step/run dispatch passes performed
)

// Snapshot is a point-in-time, copy-safe view of a Registry for query(:metrics).
type Snapshot struct {
	Ints   map[string]int64
	Floats map[string]float64
	State  string
}

// Snapshot copies every published metric into a plain value the caller can
// hold onto safely after the registry keeps changing underneath it.
func (r *Registry) Snapshot() Snapshot {
	s := Snapshot{
		Ints:   make(map[string]int64, r.Ints.Count()),
		Floats: make(map[string]float64, r.Floats.Count()),
		State:  r.State.Load(),
	}
	r.Ints.Range(func(key string, v *atomic.Int64) { s.Ints[key] = v.Load() })
	r.Floats.Range(func(key string, v *AtomicFloat) { s.Floats[key] = v.Get() })
	return s
}
