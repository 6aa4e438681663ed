package health

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/position"
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/trader"
	"github.com/sirupsen/logrus"
)

const (
	defaultTradesLimit = 50
	maxTradesLimit     = 1000
)

// Pinger is a dependency whose reachability decides readiness.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// Engine is what the status API exposes.
type Engine interface {
	Snapshot() []trader.BotStatus
	Trades(n int) ([]position.Trade, error)
	Pause(bot string) error
	Resume(bot string) error
}

type HealthChecker struct {
	db      Pinger
	engine  Engine
	hub     *Hub
	logger  *logrus.Logger
	started time.Time
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    string            `json:"uptime,omitempty"`
	Services  map[string]string `json:"services,omitempty"`
}

// NewHealthChecker builds the status server. db and hub may be nil.
func NewHealthChecker(db Pinger, engine Engine, hub *Hub, logger *logrus.Logger) *HealthChecker {
	return &HealthChecker{
		db:      db,
		engine:  engine,
		hub:     hub,
		logger:  logger,
		started: time.Now(),
	}
}

func (h *HealthChecker) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.live).Methods(http.MethodGet)
	r.HandleFunc("/health", h.live).Methods(http.MethodGet)
	r.HandleFunc("/ready", h.ready).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/bots", h.bots).Methods(http.MethodGet)
	api.HandleFunc("/bots/{name}/pause", h.pause).Methods(http.MethodPost)
	api.HandleFunc("/bots/{name}/resume", h.resume).Methods(http.MethodPost)
	api.HandleFunc("/trades", h.trades).Methods(http.MethodGet)

	if h.hub != nil {
		r.Handle("/ws", h.hub)
	}
	return r
}

func (h *HealthChecker) live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	})
}

func (h *HealthChecker) ready(w http.ResponseWriter, r *http.Request) {
	status := h.CheckHealth(r.Context())

	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// CheckHealth pings the database when one is configured.
func (h *HealthChecker) CheckHealth(ctx context.Context) HealthStatus {
	services := make(map[string]string)
	overallStatus := "healthy"

	if h.db != nil {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := h.db.HealthCheck(ctx); err != nil {
			services["database"] = "unhealthy: " + err.Error()
			overallStatus = "unhealthy"
			h.logger.WithError(err).Error("Database health check failed")
		} else {
			services["database"] = "healthy"
		}
	}
	if h.hub != nil {
		services["websocket_clients"] = strconv.Itoa(h.hub.Clients())
	}

	return HealthStatus{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Services:  services,
	}
}

func (h *HealthChecker) bots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *HealthChecker) pause(w http.ResponseWriter, r *http.Request) {
	h.control(w, mux.Vars(r)["name"], h.engine.Pause)
}

func (h *HealthChecker) resume(w http.ResponseWriter, r *http.Request) {
	h.control(w, mux.Vars(r)["name"], h.engine.Resume)
}

func (h *HealthChecker) control(w http.ResponseWriter, name string, action func(string) error) {
	if err := action(name); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"bot": name, "status": "ok"})
}

func (h *HealthChecker) trades(w http.ResponseWriter, r *http.Request) {
	limit := defaultTradesLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxTradesLimit)
	}

	trades, err := h.engine.Trades(limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to read trades")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read trades"})
		return
	}
	if trades == nil {
		trades = []position.Trade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// StartServer serves the router on port in the background.
func (h *HealthChecker) StartServer(port string) *http.Server {
	server := &http.Server{
		Addr:        ":" + port,
		Handler:     h.Router(),
		ReadTimeout: 5 * time.Second,
	}

	go func() {
		h.logger.WithField("port", port).Info("Starting status server for trading-engine")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.WithError(err).Error("Status server failed for trading-engine")
		}
	}()

	return server
}
