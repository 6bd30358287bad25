package main

import (
	"context"
	"os"
	"time"

	"finspect/internal/cache"
	"finspect/internal/categories/rest"
	"finspect/internal/cli"
	"finspect/internal/config"
	"finspect/internal/core"
	apphttp "finspect/internal/http"
	"finspect/internal/log"
	"finspect/internal/middleware/ratelimit"
	"finspect/internal/services"
)

func main() {
	cfg := cli.MustLoadConfig((*config.Config).Validate)
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	lru := cache.NewLRUCache[[]core.Category](cfg.CacheMaxEntries, cfg.CacheTTL)
	caches := cache.NewManager(logger.WithComponent(log.ComponentCache).Slog())
	caches.Register(lru)
	caches.StartCleanup(cfg.CacheCleanupInterval)

	client, err := rest.New(rest.Options{
		BaseURL:         cfg.APIBaseURL,
		PathPrefix:      cfg.APIPathPrefix,
		AdminPathPrefix: cfg.APIAdminPathPrefix,
		Timeout:         cfg.APITimeout,
		Logger:          logger.WithComponent(log.ComponentREST).Slog(),
	}, lru)
	if err != nil {
		logger.Error("Failed to build category API client", log.FieldError, err)
		os.Exit(1)
	}

	svc := services.NewCategoryService(client,
		services.WithIndent(cfg.OptionIndent),
		// a mutation makes up to three API calls
		services.WithCallTimeout(3*cfg.APITimeout),
		services.WithLogger(logger.WithComponent(log.ComponentCategories).Slog()),
	)

	refresher := services.NewRefresher(svc, services.RefresherConfig{
		Interval: cfg.CacheTTL,
		Timeout:  cfg.APITimeout,
	}, logger.WithComponent(log.ComponentCategories).Slog())

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Logger: logger.WithComponent(log.ComponentHTTP),
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
		MetricsEnabled: cfg.MetricsEnabled,
		RequestTimeout: cfg.APITimeout,
	})

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown failed", log.FieldError, err)
		}
		if err := refresher.Stop(ctx); err != nil {
			logger.Warn("Refresher did not stop in time", log.FieldError, err)
		}
		caches.Stop()
		_ = svc.Close()
	})

	// The refresher performs the first load; a failure here only delays readiness.
	if err := refresher.Start(ctx); err != nil {
		logger.Error("Failed to start category refresher", log.FieldError, err)
		os.Exit(1)
	}

	go func() {
		logger.Info("Starting server",
			"addr", srv.Addr,
			"api", cfg.APIBaseURL,
			"cache_ttl", cfg.CacheTTL,
			"metrics", cfg.MetricsEnabled,
		)
		if err := srv.ListenAndServe(); err != nil {
			logger.Error("Server failed", log.FieldError, err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
}
