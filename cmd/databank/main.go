package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	redis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/openstats/databank/pkg/api"
	"github.com/openstats/databank/pkg/config"
	"github.com/openstats/databank/pkg/observability"
	"github.com/openstats/databank/pkg/storage"
	"github.com/openstats/databank/pkg/storage/postgres"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithField("version", version).Info("starting databank")

	ctx := context.Background()

	var providers *observability.OTelProviders
	if cfg.Observability.OTelEnabled {
		providers, err = observability.InitOTel(ctx, observability.OTelConfig{
			Enabled:        true,
			Endpoint:       cfg.Observability.OTelEndpoint,
			ServiceName:    cfg.Observability.OTelServiceName,
			ServiceVersion: version,
			Insecure:       cfg.Observability.OTelInsecure,
		}, logger)
		if err != nil {
			logger.WithError(err).Error("failed to initialize tracing")
			os.Exit(1)
		}
	}

	store, db, redisClient, err := openStore(cfg.Storage)
	if err != nil {
		logger.WithError(err).Error("failed to initialize storage")
		os.Exit(1)
	}
	logger.WithField("storage_type", cfg.Storage.Type).Info("storage initialized")

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	server := api.NewServer(store, db, api.Options{
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		Metrics:            metrics,
		Logger:             logger,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthChecker := observability.NewHealthChecker(db, redisClient, version)
	healthChecker.RegisterCheck("storage", store.HealthCheck)

	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", healthChecker.Liveness)
	healthMux.HandleFunc("/readyz", healthChecker.Readiness)
	observability.RegisterMetricsEndpoint(healthMux, registry)
	healthServer := &http.Server{
		Addr:        cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler:     healthMux,
		ReadTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("health server failed")
		}
	}()

	stopStats := make(chan struct{})
	if metrics != nil && db != nil {
		go pollDBStats(metrics, db, stopStats)
	}

	go func() {
		logger.WithField("addr", httpServer.Addr).Info("api server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("api server failed")
			os.Exit(1)
		}
	}()

	sm := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		close(stopStats)
		return healthServer.Shutdown(ctx)
	})
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		return store.Close()
	})
	if providers != nil {
		sm.RegisterShutdownFunc(func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, providers, logger)
		})
	}

	if err := sm.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("shutdown finished with errors")
		os.Exit(1)
	}
	logger.Info("databank stopped")
}

// openStore builds the configured storage backend. The database handle and
// Redis client are returned separately for the analytics sink and the health
// checker; both are nil for the filesystem backend.
func openStore(cfg storage.Config) (storage.Store, *sql.DB, *redis.Client, error) {
	switch cfg.Type {
	case "filesystem":
		fs, err := storage.NewFileSystemStore(cfg.FilesystemRoot)
		if err != nil {
			return nil, nil, nil, err
		}
		return fs, nil, nil, nil
	case "postgres":
		pg, err := postgres.NewPostgresStore(cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		var redisClient *redis.Client
		if rc := pg.GetRedis(); rc != nil {
			redisClient = rc.GetClient()
		}
		return pg, pg.GetDB(), redisClient, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

func pollDBStats(metrics *observability.Metrics, db *sql.DB, stop <-chan struct{}) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.UpdateDBStats(db)
		case <-stop:
			return
		}
	}
}
