package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finspect/internal/backend"
	"finspect/internal/cli"
	"finspect/internal/config"
	"finspect/internal/log"
	"finspect/internal/stubapi"
)

func main() {
	cfg := cli.MustLoadConfig((*config.Config).ValidateStub)
	logger := cli.SetupLogger(cfg, log.ComponentStub)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	result, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Slog()).
		CreateBackend(startCtx, backendCfg)
	cancel()
	if err != nil {
		logger.Error("Failed to create backend", log.FieldError, err, "backend", backendCfg.Type)
		os.Exit(1)
	}
	logger.Info("Category store ready", "backend", backendCfg.Type, "seeded", result.Seeded)

	if cfg.StubAdminToken == "" {
		logger.Warn("STUB_ADMIN_TOKEN is empty, admin routes accept any bearer token")
	}

	svc := stubapi.NewService(result.Store, logger.Slog())
	srv := stubapi.NewServer(":"+cfg.StubPort, svc, stubapi.RouterOptions{
		PublicPrefix:   cfg.APIPathPrefix,
		AdminPrefix:    cfg.APIAdminPathPrefix,
		AdminToken:     cfg.StubAdminToken,
		AllowedOrigins: cfg.CORSOrigins,
		Logger:         logger.WithComponent(log.ComponentHTTP).Slog(),
	})

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown failed", log.FieldError, err)
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err)
			}
		}
	})

	go func() {
		logger.Info("Starting reference category API", "port", cfg.StubPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", log.FieldError, err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
}

