// Package metrics provides lock-free counters and log-bucketed latency
// histograms for the hot path (spec.md §2), grounded on the atomic-cursor
// style of internal/event's ring buffer rather than a channel/mutex-backed
// collector: every increment and sample must be safe to call from any
// event-ring handler goroutine without contending a lock.
package metrics

import "sync/atomic"

// Counter is a lock-free counter. Inc only moves it up; Add accepts any
// delta, including a negative one.
type Counter struct {
	value atomic.Int64
}

// Inc increments the counter by 1.
func (c *Counter) Inc() { c.value.Add(1) }

// Add increments the counter by delta (delta may be negative).
func (c *Counter) Add(delta int64) { c.value.Add(delta) }

// Value returns the current counter value.
func (c *Counter) Value() int64 { return c.value.Load() }

// Gauge is a lock-free value that can move in either direction.
type Gauge struct {
	value atomic.Int64
}

// Set stores v.
func (g *Gauge) Set(v int64) { g.value.Store(v) }

// Value returns the current gauge value.
func (g *Gauge) Value() int64 { return g.value.Load() }
