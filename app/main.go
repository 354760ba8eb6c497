package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/breachwatch/breach-comb/app/adapter"
	"github.com/breachwatch/breach-comb/app/api"
	"github.com/breachwatch/breach-comb/app/cfg"
	"github.com/breachwatch/breach-comb/app/database"
	"github.com/breachwatch/breach-comb/app/events"
	"github.com/breachwatch/breach-comb/app/metrics"
	"github.com/breachwatch/breach-comb/app/portal"
	"github.com/breachwatch/breach-comb/app/store"
	"github.com/breachwatch/breach-comb/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Breach Comb", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.StateDBPath)
	if err != nil {
		slog.Error("Failed to open state database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	migrationVersion, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("State database ready", "path", appCfg.StateDBPath,
		"migration_version", migrationVersion, "dirty", dirty)

	portals, err := portal.Load(appCfg.PortalsFile)
	if err != nil {
		slog.Error("Failed to load portal registry", "file", appCfg.PortalsFile, "error", err)
		os.Exit(1)
	}
	slog.Info("Portal registry loaded", "file", appCfg.PortalsFile, "portals", portals.Count())

	httpClient := &http.Client{
		Timeout: time.Duration(appCfg.HTTPTimeout) * time.Second,
	}

	m := metrics.New()

	storeOpts := []store.Option{store.WithMetrics(m)}
	if appCfg.EnrichURL != "" {
		storeOpts = append(storeOpts, store.WithEnrichment(appCfg.EnrichURL))
	}
	if appCfg.NatsURL != "" {
		publisher, err := events.NewPublisher(appCfg.NatsURL, appCfg.NatsSubject)
		if err != nil {
			slog.Error("Failed to connect event publisher", "url", appCfg.NatsURL, "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		storeOpts = append(storeOpts, store.WithPublisher(publisher))
		slog.Info("Event publishing enabled", "subject", appCfg.NatsSubject)
	}

	storeClient, err := store.NewClient(httpClient, appCfg.StoreURL, appCfg.StoreKey,
		appCfg.StoreTable, appCfg.SeenCacheSize, storeOpts...)
	if err != nil {
		slog.Error("Failed to create store client", "error", err)
		os.Exit(1)
	}

	adapters := adapter.NewRegistry(httpClient, adapter.Options{
		UserAgent:    appCfg.UserAgent,
		ApifyToken:   appCfg.ApifyToken,
		ExtractURL:   appCfg.ExtractURL,
		ExtractKey:   appCfg.ExtractKey,
		PollInterval: time.Duration(appCfg.PollInterval) * time.Second,
		PollDeadline: time.Duration(appCfg.PollDeadline) * time.Second,
	})

	scheduler := tasks.NewScheduler(portals, database.NewRepository(db), adapters, storeClient, m)

	if appCfg.Once {
		slog.Info("Running single ingestion pass")
		if err := scheduler.RunPass(context.Background()); err != nil {
			slog.Error("Ingestion pass failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Ingestion pass complete")
		return
	}

	slog.Info("Starting background scheduler",
		"workers", appCfg.WorkerCount, "interval", appCfg.SchedulerInterval)
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(portals, database.NewRepository(db), scheduler, appCfg.Version)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("HTTP server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
