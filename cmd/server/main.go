package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/garnizeh/ats/api"
	"github.com/garnizeh/ats/internal/cache"
	"github.com/garnizeh/ats/internal/config"
	"github.com/garnizeh/ats/internal/jobs"
	"github.com/garnizeh/ats/internal/notify"
	"github.com/garnizeh/ats/internal/observability"
	"github.com/garnizeh/ats/internal/report"
	"github.com/garnizeh/ats/internal/repository/sqlstore"
	"github.com/garnizeh/ats/internal/scheduler"
	"github.com/garnizeh/ats/internal/service"
	"github.com/garnizeh/ats/pkg/ollama"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(*configPath, logger); err != nil {
		logger.Error("server exited with error", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	api.SetLogger(logger)
	cache.SetLogger(logger)
	notify.SetLogger(logger)
	report.SetLogger(logger)
	scheduler.SetLogger(logger)
	service.SetLogger(logger)
	ollama.SetLogger(logger)

	logger.Info("starting ats reports server", slog.String("version", version), slog.String("build_time", buildTime))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		Insecure:       !cfg.IsProduction(),
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Env,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown", slog.Any("err", err))
		}
	}()

	store, closeStore, err := sqlstore.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error("error closing database", slog.Any("err", err))
		}
	}()

	metrics := observability.NewMetrics()

	var backend cache.Backend = cache.NewMemoryBackend()
	if cfg.Cache.Backend == "redis" {
		rb, err := cache.NewRedisBackend(ctx, cfg.Cache.RedisURL)
		if err != nil {
			return err
		}
		defer rb.Close()
		backend = rb
	}
	reportCache := cache.New(backend, cache.WithRequests(metrics.CacheRequests))

	var sender notify.Sender = notify.LogSender{}
	if cfg.Notify.TelegramToken != "" {
		ts, err := notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID, "", nil)
		if err != nil {
			return err
		}
		sender = ts
	}
	notifier := notify.New(store,
		notify.WithMaxAttempts(cfg.Notify.MaxAttempts),
		notify.WithCounter(metrics.NotificationsOut),
	)
	pool := jobs.NewWorkerPool(store, notify.Handlers(sender), logger, jobs.Options{
		Workers:  cfg.Notify.Workers,
		OnResult: metrics.ObserveJob,
	})

	aggOpts := []report.Option{
		report.WithLocation(cfg.Reports.Location()),
		report.WithTimeout(cfg.Reports.QueryTimeout),
		report.WithSchemaValidation(cfg.Reports.ValidateSchema),
	}
	var narratorHealth api.HealthChecker
	if cfg.Ollama.Enabled {
		client, err := ollama.NewDefaultClient(cfg.Ollama)
		if err != nil {
			return err
		}
		defer client.Close()
		narrator := ollama.NewNarrator(client, cfg.Ollama.Model)
		aggOpts = append(aggOpts, report.WithNarrator(narrator))
		narratorHealth = narrator
	}
	reports := service.NewReports(report.New(store, aggOpts...), reportCache,
		service.WithNotifier(notifier),
		service.WithObserver(metrics),
	)

	sched := scheduler.New(reports, scheduler.Specs{
		Refresh: cfg.Scheduler.RefreshSpec,
		Digest:  cfg.Scheduler.DigestSpec,
	}, scheduler.WithRuns(metrics.SchedulerRuns), scheduler.WithLocation(cfg.Reports.Location()))

	pool.Start(ctx)
	defer pool.Stop()
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	handler := api.SetupRoutes(api.Deps{
		Config:    cfg,
		Reports:   reports,
		Store:     store,
		Narrator:  narratorHealth,
		Metrics:   metrics,
		Version:   version,
		BuildTime: buildTime,
	})

	// Report generation may take up to the query timeout.
	writeTimeout := cfg.APITimeout
	if cfg.Reports.QueryTimeout+5*time.Second > writeTimeout {
		writeTimeout = cfg.Reports.QueryTimeout + 5*time.Second
	}
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server exited")
	return nil
}
