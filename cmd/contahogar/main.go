package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"contahogar/internal/backend"
	"contahogar/internal/cache"
	"contahogar/internal/cli"
	"contahogar/internal/config"
	"contahogar/internal/core"
	apphttp "contahogar/internal/http"
	applog "contahogar/internal/log"
	"contahogar/internal/session"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentApp, (*config.Config).Validate)

	roster := core.DefaultRoster()
	if err := roster.Validate(); err != nil {
		logger.Error("Invalid roster", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err, applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := result.Close(); err != nil {
			logger.Warn("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	sessions := session.NewStore(roster, cfg.MaxSessions, cfg.SessionTTL)
	caches := cache.NewManager()
	caches.Register("sessions", sessions.Cache())
	caches.StartCleanup(10 * time.Minute)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Dependencies{
		Sessions:  sessions,
		Connector: result.Connector,
		Ready:     result.Ready,
		Caches:    caches,
		Backend:   cfg.DataBackend,
	}, apphttp.WithLogger(logger.WithComponent(applog.ComponentHTTP)))
	srv.MaxHeaderBytes = 1 << 16

	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldOperation, applog.OpShutdown, applog.FieldError, err)
		}
	}()

	logger.Info("Starting contahogar server",
		applog.FieldOperation, applog.OpStartup,
		"port", cfg.Port,
		applog.FieldBackend, cfg.DataBackend,
		"participants", len(roster))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error",
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeInternal,
			"port", cfg.Port)
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully")
}
