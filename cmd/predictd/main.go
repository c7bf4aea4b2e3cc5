package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"google.golang.org/api/option"

	"predictd/internal/audit"
	"predictd/internal/cache"
	"predictd/internal/config"
	"predictd/internal/engine"
	"predictd/internal/health"
	"predictd/internal/httpapi"
	"predictd/internal/loader"
	"predictd/internal/metrics"
	"predictd/internal/persist"
	"predictd/internal/runtime"
	"predictd/internal/service"
	"predictd/internal/store"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	var (
		configPath string
		addr       string
		logLevel   string
	)
	root := &cobra.Command{
		Use:           "predictd",
		Short:         "Model cache and serving daemon for predictive maintenance",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			// Flags win over the file and environment layers.
			if addr != "" {
				cfg.Addr = addr
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			return run(cfg)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "Path to a yaml/json/toml config file")
	root.Flags().StringVar(&addr, "addr", "", "HTTP listen address, e.g. :8080 (overrides config)")
	root.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug|info|warn|error (overrides config)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "predictd:", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	log := newLogger(cfg.LogLevel)

	db, err := persist.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	artifacts, closeArtifacts, err := newArtifactStore(context.Background(), cfg.Storage)
	if err != nil {
		return fmt.Errorf("artifact store: %w", err)
	}
	defer closeArtifacts()

	collector := metrics.NewCollector()
	prometheus.MustRegister(collector)

	auditSink := audit.NewStoreSink(db, log)
	defer auditSink.Close()

	ld := loader.New(loader.Config{
		Store:           artifacts,
		DB:              db,
		Runtime:         runtime.NewLinearRuntime(),
		ConfigTTL:       cfg.Predict.ConfigTTL(),
		ConfigCacheSize: cfg.Predict.ConfigCacheSize,
		Audit:           auditSink,
		Metrics:         collector,
		Log:             log,
	})

	modelCache := cache.New(cache.Config{
		MaxEntries:              cfg.Cache.MaxEntries,
		MaxMemoryBytes:          cfg.Cache.MaxMemoryBytes(),
		CleanupThresholdPercent: cfg.Cache.CleanupThresholdPercent,
		CleanupTargetPercent:    cfg.Cache.CleanupTargetPercent,
		HardLimitPercent:        cfg.Cache.HardLimitPercent,
		MonitorInterval:         cfg.Cache.MonitorInterval(),
		PreloadInterval:         cfg.Cache.PreloadInterval(),
		Loader:                  ld,
		ActiveOrgs: func(ctx context.Context) ([]string, error) {
			since := time.Now().Add(-cfg.Cache.ActiveWindow())
			return db.RecentlyActiveOrgs(ctx, since, cfg.Cache.MaxEntries)
		},
		Metrics: collector,
		Log:     log,
	})
	modelCache.Start()
	defer modelCache.Close()
	defer modelCache.Stop()

	eng := engine.New(engine.Config{
		Cache:   modelCache,
		Loader:  ld,
		DB:      db,
		Timeout: cfg.Predict.Timeout(),
		Metrics: collector,
		Log:     log,
	})
	defer eng.Close()

	monitor := health.New(health.Config{
		Cache:    modelCache,
		Interval: cfg.Health.Interval(),
		Audit:    auditSink,
		Log:      log,
	})
	monitor.Start()
	defer monitor.Stop()

	svc := service.New(service.Config{
		Cache:          modelCache,
		Loader:         ld,
		Engine:         eng,
		Health:         monitor,
		DB:             db,
		ActiveWindow:   cfg.Cache.ActiveWindow(),
		ActiveOrgLimit: cfg.Cache.MaxEntries,
		Audit:          auditSink,
		Log:            log,
	})

	// Cancel in-flight handler work when shutdown begins.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetLogger(log)
	httpapi.SetBaseContext(baseCtx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("version", version).Msg("predictd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown incomplete")
	}
	cancelBase()
	return nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

// newArtifactStore builds the configured backend, wrapping it in a sealed
// store when a key file is configured.
func newArtifactStore(ctx context.Context, cfg config.StorageConfig) (store.Store, func() error, error) {
	var (
		inner     store.Store
		closeFunc = func() error { return nil }
	)
	switch cfg.Backend {
	case "gcs":
		gcs, err := store.NewGCSStore(ctx, cfg.Bucket, option.WithUserAgent("predictd/"+version))
		if err != nil {
			return nil, nil, err
		}
		inner, closeFunc = gcs, gcs.Close
	default:
		fs, err := store.NewFSStore(cfg.ModelsDir)
		if err != nil {
			return nil, nil, err
		}
		inner = fs
	}
	if cfg.KeyFile == "" {
		return inner, closeFunc, nil
	}
	key, err := store.LoadKey(cfg.KeyFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load cipher key: %w", err)
	}
	sealed, err := store.NewSealedStore(inner, key)
	if err != nil {
		return nil, nil, err
	}
	return sealed, closeFunc, nil
}
