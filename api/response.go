package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/garnizeh/ats/pkg/repository"
)

// envelope is the body of every /api response.
type envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Cached    *bool  `json:"cached,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", slog.Any("err", err))
	}
}

func stamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func ok(w http.ResponseWriter, message string, data any) {
	writeJSON(w, envelope{Success: true, Message: message, Data: data}, http.StatusOK)
}

// errorResponder maps failures onto the error envelope. Outside production
// the 500 body carries the error text.
type errorResponder struct {
	production bool
}

// handleError logs err once and answers with the status its class maps to:
// store unavailable or timed out is 503, constraint violation is 400, the
// rest is 500 with message.
func (e errorResponder) handleError(w http.ResponseWriter, r *http.Request, err error, operation, message string) {
	logger.Error("request failed",
		slog.String("operation", operation),
		slog.String("request_id", RequestID(r.Context())),
		slog.Any("err", err),
	)

	switch {
	case errors.Is(err, repository.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, envelope{
			Message:   "Database connection temporarily unavailable",
			Error:     "Please try again in a few moments",
			Timestamp: stamp(),
		}, http.StatusServiceUnavailable)
	case errors.Is(err, repository.ErrConstraint):
		writeJSON(w, envelope{
			Message: "Data validation error",
			Error:   "Duplicate entry found",
		}, http.StatusBadRequest)
	default:
		detail := err.Error()
		if e.production {
			detail = "Internal server error"
		}
		writeJSON(w, envelope{
			Message:   message,
			Error:     detail,
			Timestamp: stamp(),
		}, http.StatusInternalServerError)
	}
}
