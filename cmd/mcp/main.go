package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/dfedorov/codequery/internal/adapters/mcp"
	"github.com/dfedorov/codequery/internal/bootstrap"
	"github.com/dfedorov/codequery/internal/config"
	"github.com/dfedorov/codequery/internal/observability/logging"
)

func main() {
	log.SetOutput(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	srv := mcpadapter.NewServer(app.Pipeline)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("mcp server listening on stdio")
		errCh <- srv.Serve(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("mcp server shutting down")
	case err := <-errCh:
		if err != nil {
			log.Fatalf("mcp server error: %v", err)
		}
	}
}
