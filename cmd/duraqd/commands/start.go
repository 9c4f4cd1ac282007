package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/duraqio/duraq/internal/adminapi"
	"github.com/duraqio/duraq/internal/archive"
	"github.com/duraqio/duraq/internal/audit"
	"github.com/duraqio/duraq/internal/config"
	"github.com/duraqio/duraq/internal/logger"
	"github.com/duraqio/duraq/internal/metrics"
	prommetrics "github.com/duraqio/duraq/internal/metrics/prometheus"
	"github.com/duraqio/duraq/internal/queue"
	"github.com/duraqio/duraq/internal/server"
	"github.com/duraqio/duraq/internal/session"
	"github.com/duraqio/duraq/internal/storage"
	"github.com/duraqio/duraq/internal/telemetry"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the duraqd broker",
	Long: `Start the duraqd broker with the specified configuration.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/duraq/config.yaml.`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "duraqd",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "duraqd",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	logger.Info("duraqd starting", "version", Version, "commit", Commit)
	logger.Info("configuration loaded", "source", getConfigSource(GetConfigFile()))

	var sessionMetrics session.Metrics = session.NullMetrics{}
	var storageMetrics storage.Metrics = storage.NullMetrics{}
	var metricsServer *metrics.Server
	if cfg.Server.Metrics.Enabled {
		metrics.InitRegistry()
		sessionMetrics = prommetrics.NewSessionMetrics()
		storageMetrics = prommetrics.NewStorageMetrics()
		metricsServer = metrics.NewServer(cfg.Server.Metrics.Port)
		logger.Info("metrics enabled", "port", cfg.Server.Metrics.Port)
	} else {
		logger.Info("metrics collection disabled")
	}

	journalPath := filepath.Join(cfg.Storage.Path, "journal")
	journal, err := storage.Open(journalPath, storage.Config{
		Mode:    fsyncModeFromString(cfg.Storage.FsyncMode),
		Period:  cfg.Storage.GroupedFsyncInterval,
		Metrics: storageMetrics,
	})
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer journal.Close()

	collection := queue.NewMemoryCollection(journal)

	if cfg.Archive.Enabled {
		archiver, err := archive.NewFromConfig(ctx, cfg.Archive)
		if err != nil {
			return fmt.Errorf("failed to initialize archive store: %w", err)
		}
		collection.SetArchiver(archiver)
		logger.Info("archival enabled", "bucket", cfg.Archive.Bucket)
	}

	var auditSink session.AuditSink = session.NullAuditSink{}
	if cfg.Audit.Enabled {
		auditStore, err := audit.Open(cfg.Audit)
		if err != nil {
			return fmt.Errorf("failed to initialize audit log: %w", err)
		}
		defer auditStore.Close()
		auditSink = audit.NewLogger(auditStore)
		logger.Info("session audit log enabled", "driver", cfg.Audit.Driver)
	}

	registry := session.NewRegistry()
	status := session.NewServerStatus()
	if !cfg.Availability.Writable || !cfg.Availability.Readable {
		if !cfg.Availability.Writable {
			status.Set(session.StateReadOnly)
		}
		if !cfg.Availability.Readable {
			status.Set(session.StateQuiescent)
		}
	}

	var apiServer *adminapi.Server
	if cfg.Server.AdminAPI.Enabled {
		handler := session.NewHandler(registry.Create("admin-api"), session.Config{
			Collection:   collection,
			Gate:         session.NewAvailabilityGate(0, nil, status),
			Registry:     registry,
			Metrics:      sessionMetrics,
			AuditSink:    auditSink,
			MaxOpenReads: cfg.Session.MaxOpenReads,
		})
		// The admin API's bound session never goes through a connection
		// lifecycle; release its slot immediately so it doesn't inflate
		// the live-session count the availability policy evaluates.
		registry.Release()
		apiServer, err = adminapi.NewServer(cfg.Server.AdminAPI, handler)
		if err != nil {
			return fmt.Errorf("failed to create admin API server: %w", err)
		}
		logger.Info("admin API enabled", "port", cfg.Server.AdminAPI.Port)
	} else {
		logger.Info("admin API disabled")
	}

	srvCfg := server.Config{
		ListenAddr:      cfg.Server.ListenAddr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		ShutdownDelay:   cfg.Server.ShutdownDelay,
		Collection:      collection,
		Registry:        registry,
		Status:          status,
		Metrics:         sessionMetrics,
		AuditSink:       auditSink,
		MaxOpenReads:    cfg.Session.MaxOpenReads,
	}
	if metricsServer != nil {
		srvCfg.MetricsServer = metricsServer
	}
	if apiServer != nil {
		srvCfg.APIServer = apiServer
	}
	srv := server.New(srvCfg)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("duraqd is running. Press Ctrl+C to stop.", "listen_addr", cfg.Server.ListenAddr)

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, initiating graceful shutdown")
		cancel()
		if err := <-serverDone; err != nil {
			logger.Error("server shutdown error", "error", err)
			return err
		}
		logger.Info("duraqd stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
		logger.Info("duraqd stopped")
	}

	return nil
}

func fsyncModeFromString(mode string) storage.Mode {
	switch mode {
	case "sync":
		return storage.ModeSync
	case "never":
		return storage.ModeNever
	default:
		return storage.ModeGrouped
	}
}
