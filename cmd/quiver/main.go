package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/quiverml/quiver/pkg/config"
	"github.com/quiverml/quiver/pkg/observability"
	"github.com/quiverml/quiver/pkg/server"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).WithError(err).Error("loading configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	srv, err := server.NewServer(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("building server")
		os.Exit(1)
	}
	if err := srv.Start(); err != nil {
		logger.WithError(err).Error("starting background workers")
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.ListenAddr(),
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sm := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		return srv.Stop()
	})

	go func() {
		logger.WithField("addr", httpServer.Addr).Info("starting quiver server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("HTTP server failed")
			os.Exit(1)
		}
	}()

	if err := sm.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("shutdown finished with errors")
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
