package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pitabwire/flowdeck/internal/catalog"
	"github.com/pitabwire/flowdeck/internal/license"
	"github.com/pitabwire/flowdeck/internal/nodetypes"
	"github.com/pitabwire/flowdeck/internal/observability"
	"github.com/pitabwire/flowdeck/internal/openapi"
	"github.com/pitabwire/flowdeck/internal/transport"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}
}

func runServe(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	observability.Version = version
	observability.Commit = commit

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting flowdeck",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.Int("port", cfg.Server.Port),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracingShutdown, err := observability.InitTracing(ctx, cfg.Observability.Tracing, "flowdeck", version)
	if err != nil {
		return fmt.Errorf("tracing initialization failed: %w", err)
	}

	var metrics *observability.Metrics
	if cfg.Observability.Metrics.Enabled {
		metrics = observability.InitMetrics(prometheus.DefaultRegisterer)
	}

	registry, err := loadNodeTypes(cfg.Catalog.Directories, logger, metrics)
	if err != nil {
		return err
	}

	if cfg.Catalog.Watch.Enabled {
		watchOpts := []nodetypes.WatcherOption{nodetypes.WithDebounce(cfg.Catalog.Watch.Debounce)}
		if metrics != nil {
			watchOpts = append(watchOpts, nodetypes.WithReloadObserver(metrics))
		}
		watcher, err := nodetypes.NewWatcher(cfg.Catalog.Directories, registry, logger, watchOpts...)
		if err != nil {
			return fmt.Errorf("node type watcher: %w", err)
		}
		go watcher.Run(ctx)
		logger.Info("watching node type directories", zap.Strings("directories", cfg.Catalog.Directories))
	}

	apiIndex := openapi.NewIndex()
	if err := apiIndex.LoadEmbedded(ctx); err != nil {
		return fmt.Errorf("API description: %w", err)
	}

	provider, closeProvider, err := buildLicenseProvider(ctx, cfg.License, logger)
	if err != nil {
		return err
	}
	if closeProvider != nil {
		defer closeProvider()
	}

	counter, closeCounter, err := buildTriggerCounter(ctx, cfg.Triggers, logger)
	if err != nil {
		return err
	}
	if closeCounter != nil {
		defer closeCounter()
	}

	var reporterOpts []license.ReporterOption
	var serviceOpts []catalog.ServiceOption
	serviceOpts = append(serviceOpts, catalog.WithCache(cfg.Catalog.Cache.TTL, cfg.Catalog.Cache.MaxEntries))
	if metrics != nil {
		reporterOpts = append(reporterOpts, license.WithObserver(metrics))
		serviceOpts = append(serviceOpts, catalog.WithObserver(metrics))
	}
	reporter := license.NewReporter(counter, provider, reporterOpts...)
	catalogSvc := catalog.NewService(registry, catalogOptions(cfg.Catalog), serviceOpts...)

	readiness := observability.ReadinessChecks{
		NodeTypesLoaded:      registry.Loaded,
		APIDescriptionLoaded: apiIndex.Loaded,
	}
	if hc, ok := counter.(observability.HealthChecker); ok {
		readiness.TriggerStore = hc
	}
	if hc, ok := provider.(observability.HealthChecker); ok {
		readiness.LicenseProvider = hc
	}

	router := transport.NewRouter(transport.Dependencies{
		Config:       cfg,
		Logger:       logger,
		Authenticate: transport.SessionAuthenticator(cfg.Auth, logger),
		Usage:        reporter,
		NodeTypes:    registry,
		Catalog:      catalogSvc,
		APIIndex:     apiIndex,
		Readiness:    readiness,
		Metrics:      metrics,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	logger.Info("shutting down HTTP server", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := tracingShutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}

	logger.Info("flowdeck stopped")
	return nil
}
