package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/interactions", "POST", 200, 3*time.Millisecond)
	m.RecordRequest("/interactions", "POST", 200, 2*time.Millisecond)
	m.RecordError("/interactions", "POST", "INTERNAL_ERROR")
	m.RecordInteraction("create", "ok")
	m.RecordEvent("ticket_created")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["/interactions|POST|200"])
	assert.Equal(t, int64(5), snap.RequestDurationMS["/interactions|POST"])
	assert.Equal(t, int64(1), snap.Errors["/interactions|POST|INTERNAL_ERROR"])
	assert.Equal(t, int64(1), snap.Interactions["create|ok"])
	assert.Equal(t, []string{"ticket_created"}, Keys(snap.Events))

	snap.Events["ticket_created"] = 99
	assert.Equal(t, int64(1), m.Snapshot().Events["ticket_created"])
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, 0)
	m.RecordInteraction("x", "ok")
	assert.Empty(t, m.Snapshot().Requests)
}
