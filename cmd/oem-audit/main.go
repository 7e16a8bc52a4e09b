package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"oem-seo-api/internal/audit"
	"oem-seo-api/internal/config"
	"oem-seo-api/internal/database"
	"oem-seo-api/internal/metrics"
	"oem-seo-api/internal/oemref"
	"oem-seo-api/internal/repository"
)

func main() {
	cfg := config.Load()
	defaults := audit.DefaultConfig()

	var (
		// Database flags
		dbHost     = flag.String("db-host", cfg.Database.Host, "Database host")
		dbPort     = flag.Int("db-port", cfg.Database.Port, "Database port")
		dbName     = flag.String("db-name", cfg.Database.Name, "Database name")
		dbUser     = flag.String("db-user", cfg.Database.User, "Database user")
		dbPassword = flag.String("db-password", cfg.Database.Password, "Database password")
		dbSSLMode  = flag.String("db-sslmode", cfg.Database.SSLMode, "Database SSL mode")

		// Discovery flags
		minCount    = flag.Int("min-prefix-count", cfg.OEM.MinPrefixCount, "Minimum occurrences for a dominant prefix")
		minRatio    = flag.Float64("min-prefix-ratio", cfg.OEM.MinPrefixRatio, "Minimum share of refs for a dominant prefix")
		maxPrefixes = flag.Int("max-prefixes", cfg.OEM.MaxPrefixes, "Maximum dominant prefixes per combination")

		// Audit flags
		workers         = flag.Int("workers", defaults.Workers, "Number of concurrent workers")
		checkpointEvery = flag.Int("checkpoint-every", defaults.CheckpointEvery, "Save checkpoint every N combinations")
		checkpointFile  = flag.String("checkpoint-file", defaults.CheckpointFile, "Checkpoint file path")
		dryRun          = flag.Bool("dry-run", false, "Log audits instead of storing them")
		monitorPort     = flag.Int("monitor-port", defaults.MonitorPort, "HTTP monitoring server port")
		noMonitor       = flag.Bool("no-monitor", false, "Disable HTTP monitoring")
		logLevel        = flag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	)

	flag.Parse()

	if *dbPassword == "" {
		fmt.Fprintln(os.Stderr, "Error: database password is required (use -db-password or DB_PASSWORD env)")
		os.Exit(1)
	}

	logger := setupLogger(*logLevel)

	logger.Info("starting oem prefix audit",
		"db_host", *dbHost,
		"db_name", *dbName,
		"workers", *workers,
		"dry_run", *dryRun,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received signal, shutting down gracefully", "signal", sig)
		cancel()
	}()

	dbConfig := cfg.Database
	dbConfig.Host = *dbHost
	dbConfig.Port = *dbPort
	dbConfig.Name = *dbName
	dbConfig.User = *dbUser
	dbConfig.Password = *dbPassword
	dbConfig.SSLMode = *dbSSLMode

	dbPool, err := database.NewPostgresPool(ctx, dbConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	logger.Info("connected to database")

	if err := database.RunMigrations(ctx, dbPool); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations completed")

	reg := prometheus.NewRegistry()
	pipeline := oemref.NewPipeline(
		nil,
		oemref.Config{
			MinPrefixCount: *minCount,
			MinPrefixRatio: *minRatio,
			MaxPrefixes:    *maxPrefixes,
			CacheTTL:       cfg.OEM.CacheTTL,
		},
		oemref.WithLogger(logger),
		oemref.WithObserver(metrics.NewRecorder(reg)),
	)

	refRepo := repository.NewOemRefRepo(dbPool)
	auditRepo := repository.NewAuditRepo(dbPool)

	auditConfig := audit.Config{
		Workers:         *workers,
		CheckpointEvery: *checkpointEvery,
		CheckpointFile:  *checkpointFile,
		DryRun:          *dryRun,
	}
	if !*noMonitor {
		auditConfig.MonitorPort = *monitorPort
	}

	auditService := audit.NewService(auditConfig, refRepo, refRepo, auditRepo, pipeline, logger)
	auditService.SetMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	if err := auditService.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("audit cancelled, checkpoint kept for resume")
			os.Exit(0)
		}
		logger.Error("audit failed", "error", err)
		os.Exit(1)
	}

	if !*dryRun {
		applied, total, err := auditRepo.CountFilterApplied(context.Background())
		if err != nil {
			logger.Warn("failed to summarize audits", "error", err)
		} else {
			logger.Info("stored audits", "filter_applied", applied, "total", total)
		}
	}

	logger.Info("audit completed successfully")
}

// setupLogger creates a JSON logger with the specified level
func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
}
