package telemetry

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer_RecordsOnce(t *testing.T) {
	c := NewCollector(0)

	timer := NewTimer(c, "mysql:query").AddData(map[string]any{"sql": "SELECT 1"}).Start()
	timer.StopWithSuccess()
	timer.StopWithFail()

	events := c.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "mysql:query", events[0].Name)
	assert.True(t, events[0].Success)
	assert.Equal(t, "SELECT 1", events[0].Data["sql"])
	assert.True(t, timer.Stopped())
}

func TestTimer_Duration(t *testing.T) {
	c := NewCollector(0)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0

	timer := NewTimer(c, "mysql:connect")
	timer.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls-1) * 250 * time.Millisecond)
	}
	timer.Start().StopWithFail()

	events := c.Events()
	require.Len(t, events, 1)
	assert.False(t, events[0].Success)
	assert.Equal(t, 250*time.Millisecond, events[0].Duration)
	assert.Equal(t, int64(1), c.Stats().Failed)
}

func TestTimer_NilRecorder(t *testing.T) {
	assert.NotPanics(t, func() {
		NewTimer(nil, "x").Start().StopWithSuccess()
	})
}

func TestCollector_DropsOldest(t *testing.T) {
	c := NewCollector(2)
	for _, name := range []string{"a", "b", "c"} {
		c.Record(Event{Name: name, Success: true})
	}

	events := c.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "b", events[0].Name)
	assert.Equal(t, "c", events[1].Name)
	assert.Equal(t, int64(1), c.Stats().Dropped)
	assert.Equal(t, int64(3), c.Stats().Recorded)
	assert.Len(t, c.Named("c"), 1)
}

func TestCollector_Flush(t *testing.T) {
	c := NewCollector(10)
	c.Record(Event{Name: "mysql:query", Success: true, Data: map[string]any{"type": "raw"}})
	c.Record(Event{Name: "mysql:query", Success: false})

	var buf bytes.Buffer
	require.NoError(t, c.Flush(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first Event
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "raw", first.Data["type"])
	assert.Empty(t, c.Events())
}

func TestMulti(t *testing.T) {
	a, b := NewCollector(0), NewCollector(0)
	Multi(a, nil, b).Record(Event{Name: "x"})

	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)
}
