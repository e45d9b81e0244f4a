package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lysyi3m/stream-comb/app/aggregator"
	"github.com/lysyi3m/stream-comb/app/api"
	"github.com/lysyi3m/stream-comb/app/cache"
	"github.com/lysyi3m/stream-comb/app/cfg"
	"github.com/lysyi3m/stream-comb/app/database"
	"github.com/lysyi3m/stream-comb/app/metadata"
	"github.com/lysyi3m/stream-comb/app/metrics"
	"github.com/lysyi3m/stream-comb/app/providers"
	"github.com/lysyi3m/stream-comb/app/schedule"
	"github.com/lysyi3m/stream-comb/app/tasks"
)

func main() {
	appConfig, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appConfig == nil {
		// Help was shown
		return
	}

	logCloser := setupLogging(appConfig.Debug, appConfig.LogFile)
	defer logCloser.Close()

	slog.Info("Starting Stream Comb server", "version", appConfig.Version)

	db, err := database.Open(appConfig.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appConfig.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("Database ready", "path", appConfig.DBPath)

	store, err := openCacheStore(appConfig, db)
	if err != nil {
		slog.Error("Failed to initialize cache", "backend", appConfig.CacheBackend, "error", err)
		os.Exit(1)
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	slog.Info("Schedule cache ready", "backend", appConfig.CacheBackend, "ttl", appConfig.CacheTTL)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.MustRegister(registry)

	configCache := providers.NewConfigCache(appConfig.ProvidersDir, providers.DefaultConfigs())
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load provider configurations", "dir", appConfig.ProvidersDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Provider configurations loaded", "count", configCache.GetConfigCount())

	httpClient := &http.Client{Timeout: appConfig.RequestTimeout}
	fetcher := providers.NewHTTPFetcher(httpClient, appConfig.UserAgent, appConfig.FetchProxies, appConfig.RequestTimeout)

	providerRegistry := providers.NewRegistry(providers.Deps{
		Fetcher:           fetcher,
		Matcher:           schedule.NewDefaultTeamMatcher(appConfig.LogoBasePath),
		Filterer:          schedule.NewFilterer(time.Now),
		Configs:           configCache,
		LookupConcurrency: appConfig.LanguageLookupConcurrency,
	})

	orchestrator := aggregator.New(aggregator.Options{
		Registry: providerRegistry,
		Gate:     cache.NewGate(store, appConfig.CacheTTL, time.Now),
		Settings: database.NewStateRepository(db),
		Classifier: schedule.NewClassifier(schedule.StatusConfig{
			StartingSoonWindow: appConfig.StartingSoonWindow,
			AssumedDuration:    appConfig.AssumedDuration,
		}),
		DefaultProvider: appConfig.DefaultProvider,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := orchestrator.Restore(ctx); err != nil {
		slog.Warn("Failed to restore stored selection, using defaults", "error", err)
	}
	cancel()

	slog.Info("Starting background scheduler", "workers", appConfig.WorkerCount, "interval_seconds", appConfig.SchedulerInterval)
	scheduler := tasks.NewScheduler(orchestrator, configCache,
		time.Duration(appConfig.SchedulerInterval)*time.Second, appConfig.WorkerCount)
	scheduler.Start()
	defer scheduler.Stop()

	mediaClient := metadata.NewClient(httpClient, appConfig.TMDBBaseURL, appConfig.TMDBAPIKey, appConfig.UserAgent)
	if appConfig.TMDBAPIKey == "" {
		slog.Warn("TMDB_API_KEY not set, media lookups will be unavailable")
	}

	apiHandler := api.NewHandler(orchestrator, providerRegistry, configCache,
		database.NewWatchProgressRepository(db), mediaClient, scheduler, appConfig.Version)
	server := api.NewServer(apiHandler, appConfig.APIAccessKey,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	httpServer := &http.Server{
		Addr:         ":" + appConfig.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appConfig.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("Stream Comb server started", "provider", orchestrator.Provider())

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig)
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	slog.Info("Stream Comb server shutdown complete")
}

func openCacheStore(appConfig *cfg.Cfg, db *database.DB) (cache.Store, error) {
	switch appConfig.CacheBackend {
	case "memory":
		return cache.NewMemoryStore(), nil
	case "redis":
		return cache.NewRedisStore(appConfig.RedisURL, appConfig.CachePrefix, appConfig.RequestTimeout)
	default:
		return database.NewCacheRepository(db), nil
	}
}
