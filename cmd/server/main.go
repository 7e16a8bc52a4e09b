package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"oem-seo-api/internal/config"
	"oem-seo-api/internal/database"
	"oem-seo-api/internal/handler"
	"oem-seo-api/internal/metrics"
	"oem-seo-api/internal/oemref"
	"oem-seo-api/internal/repository"
	"oem-seo-api/internal/service"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	slog.Info("starting oem-seo-api")

	slog.Info("connecting to database", "host", cfg.Database.Host, "database", cfg.Database.Name)
	ctx, cancelConnect := context.WithTimeout(context.Background(), 15*time.Second)
	db, err := database.NewPostgresPool(ctx, cfg.Database)
	cancelConnect()
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connection established")

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewRecorder(reg)

	// Prefix engine
	engine := cfg.OEM.Engine()
	pipeline := oemref.NewPipeline(
		oemref.NewPrefixCache(engine.CacheTTL),
		engine,
		oemref.WithLogger(logger),
		oemref.WithObserver(recorder),
	)

	slog.Info("oem prefix engine configured",
		"min_prefix_count", pipeline.Config().MinPrefixCount,
		"min_prefix_ratio", pipeline.Config().MinPrefixRatio,
		"max_prefixes", pipeline.Config().MaxPrefixes,
		"cache_ttl", pipeline.Config().CacheTTL.String(),
	)

	oemSvc := service.NewOemService(repository.NewOemRefRepo(db), pipeline)

	r := handler.NewRouter(handler.Routes{
		Health:  handler.NewHealthHandler(db),
		OemRefs: handler.NewOemRefHandler(oemSvc, logger),
		Admin:   handler.NewAdminHandler(oemSvc, logger),
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		slog.Info("server started", "port", cfg.APIPort)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("error shutting down server", "error", err)
	}

	slog.Info("server stopped")
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
