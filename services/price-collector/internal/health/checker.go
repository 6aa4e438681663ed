package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/paaavkata/trend-trader/services/price-collector/internal/collector"
	"github.com/sirupsen/logrus"
)

type Pinger interface {
	HealthCheck(ctx context.Context) error
}

type CycleReporter interface {
	LastCycle() (collector.CycleStats, time.Time)
}

type HealthChecker struct {
	db         Pinger
	collector  CycleReporter
	staleAfter time.Duration
	started    time.Time
	now        func() time.Time
	logger     *logrus.Logger
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// NewHealthChecker reports unhealthy when the database is unreachable or no
// collection has succeeded for staleAfter, counting from the checker's
// creation until the first success. A zero staleAfter disables the freshness
// check.
func NewHealthChecker(db Pinger, c CycleReporter, staleAfter time.Duration, logger *logrus.Logger) *HealthChecker {
	return &HealthChecker{
		db:         db,
		collector:  c,
		staleAfter: staleAfter,
		started:    time.Now(),
		now:        time.Now,
		logger:     logger,
	}
}

func (h *HealthChecker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := h.CheckHealth(ctx)

		w.Header().Set("Content-Type", "application/json")
		if status.Status == "healthy" {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		json.NewEncoder(w).Encode(status)
	}
}

func (h *HealthChecker) CheckHealth(ctx context.Context) HealthStatus {
	services := make(map[string]string)
	overallStatus := "healthy"

	if err := h.db.HealthCheck(ctx); err != nil {
		services["database"] = "unhealthy: " + err.Error()
		overallStatus = "unhealthy"
		h.logger.WithError(err).Error("Database health check failed")
	} else {
		services["database"] = "healthy"
	}

	if h.collector != nil {
		last, lastGood := h.collector.LastCycle()
		now := h.now()
		switch {
		case lastGood.IsZero() && h.staleAfter > 0 && now.Sub(h.started) > h.staleAfter:
			services["collector"] = "no successful run since " + h.started.UTC().Format(time.RFC3339)
			overallStatus = "unhealthy"
		case lastGood.IsZero():
			services["collector"] = "pending"
		case h.staleAfter > 0 && now.Sub(lastGood) > h.staleAfter:
			services["collector"] = "stale since " + lastGood.UTC().Format(time.RFC3339)
			overallStatus = "unhealthy"
		default:
			services["collector"] = "healthy"
		}
		if last.Failed > 0 {
			services["collector_failures"] = fmt.Sprintf("%d/%d", last.Failed, last.Targets)
		}
	}

	return HealthStatus{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Services:  services,
	}
}

func (h *HealthChecker) StartServer(port string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health", h.Handler())
	mux.HandleFunc("/ready", h.Handler())

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		h.logger.WithField("port", port).Info("Starting health check server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.WithError(err).Error("Health check server failed")
		}
	}()

	return server
}
