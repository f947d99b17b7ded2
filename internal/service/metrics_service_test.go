package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsServiceRealtimeCounters(t *testing.T) {
	m := NewMetricsService()
	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.EventDispatched("task_assigned", 2)
	m.EventDispatched("task_assigned", 0)
	m.DeliveryFailed()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/tasks", http.StatusOK, 20*time.Millisecond)

	snapshot := m.Snapshot()
	assert.Equal(t, int64(1), snapshot.LiveConnections)
	assert.Equal(t, uint64(2), snapshot.NotificationsDelivered)
	assert.Equal(t, uint64(1), snapshot.DeliveryFailures)
	assert.Equal(t, uint64(1), snapshot.RequestsTotal)
	assert.InDelta(t, 20, snapshot.AverageRequestDurationMs, 0.5)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, "ws_connections_active 1")
	assert.Contains(t, body, `notifications_dispatched_total{type="task_assigned"} 2`)
	assert.Contains(t, body, "notifications_delivery_failures_total 1")
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.ConnectionOpened()
	m.EventDropped()
	m.RecordCacheOperation(true, time.Millisecond)
	assert.Zero(t, m.Snapshot().LiveConnections)
}
