package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	browseradapter "github.com/ericfisherdev/timepanel/internal/adapter/driven/browser"
	probeadapter "github.com/ericfisherdev/timepanel/internal/adapter/driven/probe"
	redmineadapter "github.com/ericfisherdev/timepanel/internal/adapter/driven/redmine"
	sqliteadapter "github.com/ericfisherdev/timepanel/internal/adapter/driven/sqlite"
	uploadadapter "github.com/ericfisherdev/timepanel/internal/adapter/driven/upload"
	httphandler "github.com/ericfisherdev/timepanel/internal/adapter/driving/http"
	"github.com/ericfisherdev/timepanel/internal/application"
	"github.com/ericfisherdev/timepanel/internal/config"
	"github.com/ericfisherdev/timepanel/internal/domain/model"
	"github.com/ericfisherdev/timepanel/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (all env vars are optional with defaults).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"poll_interval", cfg.PollInterval,
		"integrations_path", cfg.IntegrationsPath,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire driven adapters.
	store := sqliteadapter.NewActivityRepo(db)
	probe := probeadapter.New()
	resolver := browseradapter.NewResolver(cfg.ExtraBrowsers)

	// 6. Seed a commented starter integrations file on first run.
	if _, err := os.Stat(cfg.IntegrationsPath); os.IsNotExist(err) {
		if writeErr := config.WriteSampleIntegrations(cfg.IntegrationsPath); writeErr != nil {
			slog.Warn("could not write sample integrations file", "error", writeErr)
		} else {
			slog.Info("sample integrations file written", "path", cfg.IntegrationsPath)
		}
	}

	// 7. Build the integration registry and load the config. An unreadable
	// config file degrades to an empty registry rather than aborting; a later
	// reload over HTTP picks up the corrected file.
	registry := application.NewIntegrationRegistry(cfg.IntegrationsPath, buildIntegration)
	if err := registry.Reload(); err != nil {
		slog.Warn("integrations config unreadable, starting without integrations",
			"path", cfg.IntegrationsPath,
			"error", err,
		)
	}

	// 8. Create application services.
	tracker := application.NewTrackerService(probe, resolver, store, cfg.PollInterval, cfg.ResolveTimeout)
	summarySvc := application.NewSummaryService(store)
	syncSvc := application.NewSyncService(registry, store)
	uploadSvc := application.NewUploadService(registry, summarySvc, uploadadapter.NewClient())

	// 9. Start the polling loop and the auto-upload loop.
	trackerDone := make(chan struct{})
	go func() {
		tracker.Start(ctx)
		close(trackerDone)
	}()
	go uploadSvc.Run(ctx)

	// 10. Create HTTP handler and register API routes.
	apiHandler := httphandler.NewHandler(tracker, summarySvc, registry, syncSvc, uploadSvc, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("timepanel started",
		"listen_addr", cfg.ListenAddr,
		"poll_interval", cfg.PollInterval,
	)

	// 11. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 12. Graceful shutdown with 10s timeout for HTTP server drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	// 13. Wait for the tracker to flush its open session and drain the
	// persist queue. This must complete before the deferred db.Close so the
	// last in-progress interval reaches the store.
	<-trackerDone

	slog.Info("shutdown complete")
	return nil
}

// buildIntegration maps a config entry to its concrete implementation by
// type. Unknown types are an error so the registry logs and skips them.
func buildIntegration(entry config.IntegrationEntry, rules model.RuleSet) (driven.Integration, error) {
	switch entry.Type {
	case "redmine":
		return redmineadapter.New(entry.Name, entry.Enabled, entry.URL, entry.APIKey, entry.DefaultActivityID, rules)
	default:
		return nil, fmt.Errorf("unknown integration type %q", entry.Type)
	}
}
