package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dfedorov/codequery/internal/bootstrap"
	"github.com/dfedorov/codequery/internal/config"
	"github.com/dfedorov/codequery/internal/core/ports"
	"github.com/dfedorov/codequery/internal/observability/logging"
	"github.com/dfedorov/codequery/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		logger.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("worker metrics server error: %v", err)
		}
	}()

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeAnswerEvaluated(ctx, func(handlerCtx context.Context, run ports.EvaluationRun) error {
		started := time.Now()
		workerMetrics.StartEvent()
		workerMetrics.ObserveQueueLag("worker", started.Sub(run.FinishedAt))

		saveCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Second)
		defer cancel()
		saveErr := app.EvalRepo.SaveRun(saveCtx, run)
		workerMetrics.FinishEvent("worker", time.Since(started), saveErr)
		if saveErr != nil {
			logger.Error("persist evaluation run failed", "run_id", run.ID, "error", saveErr)
		}
		return saveErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
