// Package telemetry provides timing instrumentation for database operations.
//
// Operations are measured with a Timer and the finished measurement is handed
// to a Recorder. Recorders are plain sinks: they never influence control flow.
package telemetry

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Event is a single finished measurement.
type Event struct {
	Name     string         `json:"name"`
	Start    time.Time      `json:"start"`
	Duration time.Duration  `json:"duration"`
	Success  bool           `json:"success"`
	Data     map[string]any `json:"data,omitempty"`
}

// Recorder receives finished events.
type Recorder interface {
	Record(event Event)
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(event Event)

// Record calls f(event).
func (f RecorderFunc) Record(event Event) { f(event) }

// Nop discards every event.
var Nop Recorder = RecorderFunc(func(Event) {})

// Multi fans an event out to several recorders.
func Multi(recorders ...Recorder) Recorder {
	return RecorderFunc(func(e Event) {
		for _, r := range recorders {
			if r != nil {
				r.Record(e)
			}
		}
	})
}

// SlogRecorder writes every event as a debug record.
type SlogRecorder struct {
	Logger *slog.Logger
}

// Record implements Recorder.
func (r SlogRecorder) Record(e Event) {
	if r.Logger == nil {
		return
	}
	status := "ok"
	if !e.Success {
		status = "fail"
	}
	args := []any{"timer", e.Name, "status", status, "duration", e.Duration}
	for k, v := range e.Data {
		args = append(args, k, v)
	}
	r.Logger.Debug("timer stopped", args...)
}

// Stats summarizes the events a Collector has seen.
type Stats struct {
	Recorded int64
	Failed   int64
	Dropped  int64
	Total    time.Duration
}

// Collector buffers events in memory until they are flushed.
type Collector struct {
	mu        sync.Mutex
	events    []Event
	maxEvents int
	stats     Stats
}

// NewCollector creates a collector holding at most maxEvents unflushed events.
// Older events are dropped once the buffer is full. maxEvents <= 0 means 1024.
func NewCollector(maxEvents int) *Collector {
	if maxEvents <= 0 {
		maxEvents = 1024
	}
	return &Collector{
		events:    make([]Event, 0, min(maxEvents, 64)),
		maxEvents: maxEvents,
	}
}

// Record implements Recorder.
func (c *Collector) Record(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.events) >= c.maxEvents {
		c.events = c.events[1:]
		c.stats.Dropped++
	}
	c.events = append(c.events, e)

	c.stats.Recorded++
	c.stats.Total += e.Duration
	if !e.Success {
		c.stats.Failed++
	}
}

// Events returns a copy of the buffered events.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Named returns the buffered events with the given name.
func (c *Collector) Named(name string) []Event {
	var out []Event
	for _, e := range c.Events() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// Stats returns collector statistics.
func (c *Collector) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Flush writes the buffered events to w as JSON lines and empties the buffer.
func (c *Collector) Flush(w io.Writer) error {
	c.mu.Lock()
	events := make([]Event, len(c.events))
	copy(events, c.events)
	c.events = c.events[:0]
	c.mu.Unlock()

	enc := json.NewEncoder(w)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("failed to encode event %s: %w", e.Name, err)
		}
	}
	return nil
}
