package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tawandam/policy-assistant/internal/bootstrap"
	"github.com/tawandam/policy-assistant/internal/config"
	"github.com/tawandam/policy-assistant/internal/observability/logging"
	"github.com/tawandam/policy-assistant/internal/observability/metrics"
)

const service = "worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(service, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger})
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(service)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeDocumentUploaded(ctx, func(handlerCtx context.Context, documentID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		if doc, lookupErr := app.Repo.GetByID(processCtx, documentID); lookupErr == nil {
			workerMetrics.ObserveQueueLag(service, time.Since(doc.CreatedAt))
		}

		workerMetrics.StartDocument()
		start := time.Now()
		processErr := app.ProcessUC.ProcessByID(processCtx, documentID)
		workerMetrics.FinishDocument(service, time.Since(start), processErr)

		if processErr != nil {
			logger.Error("document processing failed", "document_id", documentID, "error", processErr)
			return processErr
		}

		if doc, lookupErr := app.Repo.GetByID(processCtx, documentID); lookupErr == nil {
			workerMetrics.ObserveChunksIndexed(service, doc.ChunkCount)
			logger.Info("document processed", "document_id", documentID, "chunks", doc.ChunkCount)
		}
		return nil
	})
	if err != nil {
		logger.Error("worker subscribe failed", "error", err)
		os.Exit(1)
	}
}
