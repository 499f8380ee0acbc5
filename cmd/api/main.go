package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/tawandam/policy-assistant/internal/adapters/http"
	"github.com/tawandam/policy-assistant/internal/bootstrap"
	"github.com/tawandam/policy-assistant/internal/config"
	"github.com/tawandam/policy-assistant/internal/observability/logging"
	"github.com/tawandam/policy-assistant/internal/observability/metrics"
)

const service = "api"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(service, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverMetrics := metrics.NewHTTPServerMetrics(service)

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		ServerMetrics: serverMetrics,
		Logger:        logger,
	})
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	limiter := httpadapter.NewRateLimiter(service, cfg.APIRateLimitRPS, cfg.APIRateLimitBurst, serverMetrics)
	router := httpadapter.NewRouter(service, app.ChatUC, app.IngestUC, app.Repo, serverMetrics, limiter, logger)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api listening", "port", cfg.APIPort, "persona", cfg.Persona, "vector_backend", cfg.VectorBackend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown failed", "error", err)
	}
}
