package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger checks connectivity of a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports whether an optional collaborator is usable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// SystemHandler serves liveness and build information. A failing Store
// makes the service unavailable; a failing Narrator only degrades it.
type SystemHandler struct {
	Store    Pinger
	Narrator HealthChecker
}

type healthResponse struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Store    string `json:"store,omitempty"`
	Narrator string `json:"narrator,omitempty"`
}

const healthTimeout = 2 * time.Second

func (h *SystemHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Service: "ats-reports"}
	code := http.StatusOK

	if h.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		err := h.Store.Ping(ctx)
		cancel()
		if err != nil {
			logger.Warn("health: store ping failed", slog.Any("err", err))
			resp.Status, resp.Store = "degraded", "unavailable"
			code = http.StatusServiceUnavailable
		} else {
			resp.Store = "ok"
		}
	}

	if h.Narrator != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		err := h.Narrator.Health(ctx)
		cancel()
		if err != nil {
			logger.Warn("health: narrator check failed", slog.Any("err", err))
			resp.Status, resp.Narrator = "degraded", "unavailable"
		} else {
			resp.Narrator = "ok"
		}
	}

	writeJSON(w, resp, code)
}

func (h *SystemHandler) VersionHandler(version, buildTime string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"version": version, "buildTime": buildTime}, http.StatusOK)
	}
}
