package api

import (
	"encoding/json"
	"net/http"

	"github.com/garnizeh/ats/internal/report"
	"github.com/garnizeh/ats/internal/service"
)

type ReportsHandler struct {
	reports *service.Reports
	errorResponder
}

func NewReportsHandler(reports *service.Reports, production bool) *ReportsHandler {
	return &ReportsHandler{reports: reports, errorResponder: errorResponder{production: production}}
}

// Reports serves the comprehensive report, from cache while fresh.
func (h *ReportsHandler) Reports(w http.ResponseWriter, r *http.Request) {
	e, cached, err := h.reports.Report(r.Context())
	if err != nil {
		h.handleError(w, r, err, "getAllProjectReports", "Failed to complete getAllProjectReports")
		return
	}

	message := "All project reports generated successfully"
	if cached {
		message = "Project reports retrieved from cache"
	}
	writeJSON(w, envelope{
		Success:   true,
		Message:   message,
		Data:      json.RawMessage(e.Payload),
		Cached:    &cached,
		Timestamp: stamp(),
	}, http.StatusOK)
}

func (h *ReportsHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.reports.Analytics(r.Context())
	if err != nil {
		h.handleError(w, r, err, "getAnalytics", "Failed to fetch analytics data")
		return
	}
	ok(w, "Analytics data retrieved successfully", a)
}

func (h *ReportsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.reports.Dashboard(r.Context())
	if err != nil {
		h.handleError(w, r, err, "getDashboard", "Failed to fetch dashboard data")
		return
	}
	ok(w, "Dashboard data retrieved successfully", d)
}

func (h *ReportsHandler) QuickStats(w http.ResponseWriter, r *http.Request) {
	q, err := h.reports.QuickStats(r.Context())
	if err != nil {
		h.handleError(w, r, err, "getQuickStats", "Failed to fetch quick stats")
		return
	}
	ok(w, "Quick stats retrieved successfully", q)
}

// Schema serves the JSON schema the report document conforms to.
func (h *ReportsHandler) Schema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(report.Schema())
}
