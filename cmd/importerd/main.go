package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"audit-log-importer/pkg/config"
	"audit-log-importer/pkg/controller"
	"audit-log-importer/pkg/importer"
	"audit-log-importer/pkg/store"

	"github.com/lmittmann/tint"
)

func main() {
	configPath := flag.String("config", "importer.yaml", "Path to YAML config file")
	listen := flag.String("listen", "", "Listen address (overrides config)")
	dbPath := flag.String("db", "", "Path to SQLite database (overrides config)")
	flag.Parse()

	logLevel := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}

	st, err := store.NewStore(cfg.Store.Path)
	if err != nil {
		slog.Error("failed to open store", "path", cfg.Store.Path, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	supervisor := importer.NewSupervisor()
	ctrl := controller.NewController(st, supervisor, importer.Options{
		BatchRows:  cfg.Import.BatchRows,
		BatchBytes: cfg.Import.BatchBytes,
	})

	server := &http.Server{
		Addr:    cfg.Server.Listen,
		Handler: ctrl.SetupRouter(),
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		slog.Info("server starting", "address", "http://"+cfg.Server.Listen, "db", cfg.Store.Path)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		slog.Error("server error, shutting down", "error", err)
		supervisor.CancelActive()
		os.Exit(1)
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)

		// Canceling the active session lets a running import roll back
		// before the process exits.
		supervisor.CancelActive()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
			os.Exit(1)
		}
		slog.Info("server shutdown complete")
	}
}
