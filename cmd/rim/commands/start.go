package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rimdb/rim/internal/casruntime"
	"github.com/rimdb/rim/internal/logger"
	"github.com/rimdb/rim/internal/telemetry"
	"github.com/rimdb/rim/pkg/catalogmirror/heapstore/pgxstore"
	"github.com/rimdb/rim/pkg/catalogmirror/heapstore/sqlstore"
	"github.com/rimdb/rim/pkg/config"
	"github.com/rimdb/rim/pkg/metrics"

	// Import prometheus metrics to register init() functions.
	_ "github.com/rimdb/rim/pkg/metrics/prometheus"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the rim CAS process",
	Long: `Start one rim Client Access Server process: it listens on the
configured broker handoff socket, completes the connect handshake for
each client the broker hands off, and serves that connection's request
dispatch loop until the client disconnects or the process is asked to
shut down.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/rim/config.yaml.`,
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

	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "rim",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingCfg := telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "rim",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	}
	profilingShutdown, err := telemetry.InitProfiling(profilingCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		metricsServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: metrics.Handler(),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "error", err)
			}
		}()
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("Metrics collection disabled")
	}

	heapStore, err := config.NewHeapStore(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open heap store: %w", err)
	}

	replVal, err := config.NewReplicationValidator(cfg.Replication)
	if err != nil {
		return fmt.Errorf("failed to build replication validator: %w", err)
	}

	engine := sqlstore.NewEngine(heapStore)
	if cfg.Database.Driver == "postgres" {
		statsReader, err := pgxstore.Open(ctx, cfg.Database.DSN, int32(cfg.Database.MaxOpenConns))
		if err != nil {
			logger.Error("failed to open statistics reader, query plans will omit pg_class estimates", "error", err)
		} else {
			engine.SetStatsReader(statsReader)
			defer statsReader.Close()
		}
	}
	srv := casruntime.New(cfg, heapStore, heapStore, engine, replVal)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Run(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("rim CAS is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()
		if metricsServer != nil {
			_ = metricsServer.Close()
		}
		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if metricsServer != nil {
			_ = metricsServer.Close()
		}
		if err != nil {
			logger.Error("Server error", "error", err)
			return err
		}
		logger.Info("Server stopped")
	}

	return nil
}
