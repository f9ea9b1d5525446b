package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"zkack/internal/config"
	httpinfra "zkack/internal/infra/http"
	"zkack/internal/logging"
)

type service interface {
	Run(ctx context.Context) error
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := httpinfra.NewServer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to init verifier", "error", err)
		os.Exit(1)
	}
	if err := serve(ctx, srv); err != nil {
		logger.Error("server exited", "error", err)
		stop()
		os.Exit(1)
	}
}

// serve runs srv until ctx ends and always closes it, so the ledger is
// released even when the listener fails.
func serve(ctx context.Context, srv service) error {
	runErr := srv.Run(ctx)
	closeErr := srv.Close()
	if closeErr != nil {
		closeErr = fmt.Errorf("close verifier: %w", closeErr)
	}
	return errors.Join(runErr, closeErr)
}
