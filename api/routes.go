package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/ats/internal/config"
	"github.com/garnizeh/ats/internal/observability"
	"github.com/garnizeh/ats/internal/service"
)

// Deps are the collaborators the router serves.
type Deps struct {
	Config    *config.Config
	Reports   *service.Reports
	Store     Pinger
	// Narrator is set when report narration is enabled.
	Narrator  HealthChecker
	Metrics   *observability.Metrics
	Version   string
	BuildTime string
}

func SetupRoutes(d Deps) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)
	r.Use(TracingMiddleware)
	if d.Metrics != nil {
		r.Use(MetricsMiddleware(d.Metrics))
	}

	systemHandler := &SystemHandler{Store: d.Store, Narrator: d.Narrator}
	reportsHandler := NewReportsHandler(d.Reports, d.Config.IsProduction())

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(d.Version, d.BuildTime)).Methods(http.MethodGet)
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods(http.MethodGet)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)
	}

	apiRoutes := r.PathPrefix("/api").Subrouter()
	if d.Config.Auth.Enabled {
		apiRoutes.Use(JWTAuthMiddlewareWithSecret(d.Config.Auth.JWTSecret))
	}

	apiRoutes.HandleFunc("/analytics", reportsHandler.Analytics).Methods(http.MethodGet)
	apiRoutes.HandleFunc("/dashboard", reportsHandler.Dashboard).Methods(http.MethodGet)
	apiRoutes.HandleFunc("/dashboard/quick-stats", reportsHandler.QuickStats).Methods(http.MethodGet)
	apiRoutes.HandleFunc("/reports", reportsHandler.Reports).Methods(http.MethodGet)
	apiRoutes.HandleFunc("/reports/schema", reportsHandler.Schema).Methods(http.MethodGet)

	return r
}
