package telemetry

import (
	"maps"
	"time"
)

// Timer measures one operation. A nil Recorder is treated as Nop.
//
//	t := telemetry.NewTimer(rec, "mysql:query").AddData(map[string]any{"sql": q}).Start()
//	defer t.StopWithFail() // no-op once stopped
type Timer struct {
	name     string
	recorder Recorder
	data     map[string]any
	start    time.Time
	stopped  bool
	now      func() time.Time
}

// NewTimer creates a timer that reports to rec under name.
func NewTimer(rec Recorder, name string) *Timer {
	if rec == nil {
		rec = Nop
	}
	return &Timer{name: name, recorder: rec, data: map[string]any{}, now: time.Now}
}

// AddData attaches key/value data to the event.
func (t *Timer) AddData(data map[string]any) *Timer {
	maps.Copy(t.data, data)
	return t
}

// Start starts the clock.
func (t *Timer) Start() *Timer {
	t.start = t.now()
	return t
}

// StopWithSuccess records a successful event.
func (t *Timer) StopWithSuccess() {
	t.stop(true)
}

// StopWithFail records a failed event.
func (t *Timer) StopWithFail() {
	t.stop(false)
}

// Stopped reports whether the event has already been recorded.
func (t *Timer) Stopped() bool {
	return t.stopped
}

func (t *Timer) stop(success bool) {
	if t.stopped {
		return
	}
	t.stopped = true
	if t.start.IsZero() {
		t.start = t.now()
	}
	t.recorder.Record(Event{
		Name:     t.name,
		Start:    t.start,
		Duration: t.now().Sub(t.start),
		Success:  success,
		Data:     t.data,
	})
}
