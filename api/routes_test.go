package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garnizeh/ats/api"
	"github.com/garnizeh/ats/internal/cache"
	"github.com/garnizeh/ats/internal/config"
	"github.com/garnizeh/ats/internal/models"
	"github.com/garnizeh/ats/internal/observability"
	"github.com/garnizeh/ats/internal/report"
	"github.com/garnizeh/ats/internal/repository/sqlstore/sqlstoretest"
	"github.com/garnizeh/ats/internal/service"
	"github.com/garnizeh/ats/pkg/repository"
	"github.com/garnizeh/ats/pkg/repository/mock"
)

type response struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Cached    *bool           `json:"cached"`
	Error     string          `json:"error"`
	Timestamp string          `json:"timestamp"`
}

type server struct {
	router  http.Handler
	store   *mock.Store
	metrics *observability.Metrics
	fixture *sqlstoretest.Fixture
}

func newServer(t *testing.T, cfg *config.Config) *server {
	t.Helper()
	f := sqlstoretest.Open(t)
	store := mock.New(f.Store)
	metrics := observability.NewMetrics()
	reports := service.NewReports(
		report.New(store),
		cache.New(cache.NewMemoryBackend(), cache.WithRequests(metrics.CacheRequests)),
		service.WithObserver(metrics),
	)
	router := api.SetupRoutes(api.Deps{
		Config:    cfg,
		Reports:   reports,
		Store:     store,
		Metrics:   metrics,
		Version:   "1.0.0",
		BuildTime: "2026-01-01T00:00:00Z",
	})
	return &server{router: router, store: store, metrics: metrics, fixture: f}
}

func devConfig() *config.Config { return &config.Config{Env: "development"} }

func (s *server) get(t *testing.T, path string) (int, response) {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var body response
	if w.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	}
	return w.Code, body
}

func TestReports_CacheFlag(t *testing.T) {
	s := newServer(t, devConfig())
	s.fixture.Job(models.JobPost{Title: "Go Engineer", Status: models.JobActive})

	code, first := s.get(t, "/api/reports")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, first.Success)
	assert.Equal(t, "All project reports generated successfully", first.Message)
	require.NotNil(t, first.Cached)
	assert.False(t, *first.Cached)
	_, err := time.Parse(time.RFC3339, first.Timestamp)
	require.NoError(t, err)

	var r report.Report
	require.NoError(t, json.Unmarshal(first.Data, &r))
	assert.Equal(t, int64(1), r.Summary.Jobs.Total)
	require.NoError(t, report.ValidateDocument(context.Background(), first.Data))

	calls := s.store.TotalCalls()
	code, second := s.get(t, "/api/reports")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Project reports retrieved from cache", second.Message)
	require.NotNil(t, second.Cached)
	assert.True(t, *second.Cached)
	assert.JSONEq(t, string(first.Data), string(second.Data))
	assert.Equal(t, calls, s.store.TotalCalls())
}

func TestReports_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name       string
		cfg        *config.Config
		err        error
		wantStatus int
		wantMsg    string
		wantError  string
	}{
		{
			name:       "store unavailable",
			cfg:        devConfig(),
			err:        fmt.Errorf("dial: %w", repository.ErrUnavailable),
			wantStatus: http.StatusServiceUnavailable,
			wantMsg:    "Database connection temporarily unavailable",
			wantError:  "Please try again in a few moments",
		},
		{
			name:       "timeout",
			cfg:        devConfig(),
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusServiceUnavailable,
			wantMsg:    "Database connection temporarily unavailable",
			wantError:  "Please try again in a few moments",
		},
		{
			name:       "constraint",
			cfg:        devConfig(),
			err:        repository.ErrConstraint,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Data validation error",
			wantError:  "Duplicate entry found",
		},
		{
			name:       "other in development",
			cfg:        devConfig(),
			err:        errors.New("disk I/O error"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Failed to complete getAllProjectReports",
			wantError:  "disk I/O error",
		},
		{
			name:       "other in production",
			cfg:        &config.Config{Env: "production"},
			err:        errors.New("disk I/O error"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Failed to complete getAllProjectReports",
			wantError:  "Internal server error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newServer(t, tt.cfg)
			s.store.Fail("*", tt.err)

			code, body := s.get(t, "/api/reports")
			assert.Equal(t, tt.wantStatus, code)
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantMsg, body.Message)
			assert.Contains(t, body.Error, tt.wantError)
			assert.Nil(t, body.Cached)

			// a failure is not cached
			s.store.Fail("*", nil)
			code, body = s.get(t, "/api/reports")
			assert.Equal(t, http.StatusOK, code)
			require.NotNil(t, body.Cached)
			assert.False(t, *body.Cached)
		})
	}
}

func TestDocuments(t *testing.T) {
	s := newServer(t, devConfig())
	for path, msg := range map[string]string{
		"/api/analytics":             "Analytics data retrieved successfully",
		"/api/dashboard":             "Dashboard data retrieved successfully",
		"/api/dashboard/quick-stats": "Quick stats retrieved successfully",
	} {
		code, body := s.get(t, path)
		assert.Equal(t, http.StatusOK, code, path)
		assert.True(t, body.Success, path)
		assert.Equal(t, msg, body.Message)
		assert.NotEmpty(t, body.Data, path)
	}

	s.store.Fail("Count", repository.ErrUnavailable)
	code, body := s.get(t, "/api/dashboard/quick-stats")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.False(t, body.Success)
}

func TestSchemaAndMetrics(t *testing.T) {
	s := newServer(t, devConfig())

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/reports/schema", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, string(report.Schema()), w.Body.String())

	s.get(t, "/api/reports")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `ats_http_requests_total{code="200",method="GET",route="/api/reports"} 1`)
	assert.Contains(t, w.Body.String(), `ats_report_cache_requests_total{result="miss"} 1`)
}

func TestAuthProtectsAPI(t *testing.T) {
	cfg := devConfig()
	cfg.Auth = config.AuthConfig{Enabled: true, JWTSecret: "s3cr3t"}
	s := newServer(t, cfg)

	code, _ := s.get(t, "/api/dashboard")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.get(t, "/health")
	assert.Equal(t, http.StatusOK, code)
}
