package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/daap14/contractd/internal/api/middleware"
	"github.com/daap14/contractd/internal/api/response"
)

// pingTimeout bounds the store check so a hung database cannot stall /health.
const pingTimeout = 2 * time.Second

// StorePinger reports whether the backing store is reachable.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles the GET /health endpoint.
type HealthHandler struct {
	pinger  StorePinger
	store   string
	version string
}

// NewHealthHandler creates a new HealthHandler. A nil pinger means the store
// lives in process and is always reachable.
func NewHealthHandler(pinger StorePinger, store, version string) *HealthHandler {
	return &HealthHandler{
		pinger:  pinger,
		store:   store,
		version: version,
	}
}

type storeStatus struct {
	Kind      string `json:"kind"`
	Connected bool   `json:"connected"`
}

type healthData struct {
	Status  string      `json:"status"`
	Version string      `json:"version"`
	Store   storeStatus `json:"store"`
}

// ServeHTTP handles the health check request. It always answers 200 so a
// degraded store is visible in the body rather than as a failed probe.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	connected := true
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			slog.Warn("store ping failed", "error", err, "store", h.store)
			connected = false
		}
	}

	status := "healthy"
	if !connected {
		status = "degraded"
	}

	response.Success(w, http.StatusOK, healthData{
		Status:  status,
		Version: h.version,
		Store:   storeStatus{Kind: h.store, Connected: connected},
	}, requestID)
}
