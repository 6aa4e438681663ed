package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paaavkata/trend-trader/services/price-collector/internal/collector"
	"github.com/paaavkata/trend-trader/shared/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDB struct{ err error }

func (f fakeDB) HealthCheck(context.Context) error { return f.err }

type fakeCollector struct {
	last     collector.CycleStats
	lastGood time.Time
}

func (f fakeCollector) LastCycle() (collector.CycleStats, time.Time) { return f.last, f.lastGood }

func check(t *testing.T, h *HealthChecker) (int, HealthStatus) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Handler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	return rec.Code, status
}

func TestHealthChecker(t *testing.T) {
	tests := []struct {
		name      string
		db        error
		collector fakeCollector
		uptime    time.Duration
		code      int
		services  map[string]string
	}{
		{
			name:     "pending first run",
			code:     http.StatusOK,
			services: map[string]string{"database": "healthy", "collector": "pending"},
		},
		{
			name:      "fresh with failures",
			collector: fakeCollector{last: collector.CycleStats{Targets: 3, Failed: 1}, lastGood: time.Now()},
			code:      http.StatusOK,
			services:  map[string]string{"database": "healthy", "collector": "healthy", "collector_failures": "1/3"},
		},
		{
			name:      "stale",
			collector: fakeCollector{lastGood: time.Now().Add(-time.Hour)},
			code:      http.StatusServiceUnavailable,
		},
		{
			name:      "never succeeded within the window",
			collector: fakeCollector{last: collector.CycleStats{Targets: 3, Failed: 3}},
			uptime:    time.Hour,
			code:      http.StatusServiceUnavailable,
		},
		{
			name:      "failing but still inside the window",
			collector: fakeCollector{last: collector.CycleStats{Targets: 3, Failed: 3}},
			uptime:    5 * time.Minute,
			code:      http.StatusOK,
			services:  map[string]string{"database": "healthy", "collector": "pending", "collector_failures": "3/3"},
		},
		{
			name: "database down",
			db:   errors.New("refused"),
			code: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthChecker(fakeDB{err: tt.db}, tt.collector, 10*time.Minute, utils.NewTestLogger())
			h.started = time.Now().Add(-tt.uptime)
			code, status := check(t, h)
			assert.Equal(t, tt.code, code)
			if tt.services != nil {
				assert.Equal(t, tt.services, status.Services)
			}
		})
	}
}
