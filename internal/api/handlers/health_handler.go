package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/isdelr/airmove-be/internal/bridge"
	"github.com/isdelr/airmove-be/internal/monitoring"
)

// BridgeStatus reports the robot connection state.
type BridgeStatus interface {
	Status() bridge.Status
}

// HostStats reports the latest host sample.
type HostStats interface {
	Latest() monitoring.HostStats
}

// Pinger checks a backing store.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// CachePinger checks the rate-limit store.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service health.
type HealthHandler struct {
	db     Pinger
	cache  CachePinger
	bridge BridgeStatus
	stats  HostStats
}

// NewHealthHandler creates a new HealthHandler. cache may be nil when Redis
// is not configured.
func NewHealthHandler(db Pinger, cache CachePinger, bridge BridgeStatus, stats HostStats) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, bridge: bridge, stats: stats}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string               `json:"status"`
	Database string               `json:"database"`
	Redis    string               `json:"redis"`
	MQTT     bridge.Status        `json:"mqtt"`
	Host     monitoring.HostStats `json:"host"`
}

// Health returns 200 with status "ok", or "degraded" when the robot bridge
// or Redis is configured but down. A database failure returns 503.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:   "ok",
		Database: "ok",
		Redis:    "disabled",
		MQTT:     h.bridge.Status(),
		Host:     h.stats.Latest(),
	}
	if resp.MQTT.Enabled && !resp.MQTT.Connected {
		resp.Status = "degraded"
	}

	if h.cache != nil {
		resp.Redis = "ok"
		if err := h.cache.Ping(ctx); err != nil {
			resp.Redis = err.Error()
			resp.Status = "degraded"
		}
	}

	status := http.StatusOK
	if err := h.db.PingContext(ctx); err != nil {
		resp.Status = "unavailable"
		resp.Database = err.Error()
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
