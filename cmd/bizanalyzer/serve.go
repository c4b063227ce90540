package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/bizanalyzer/internal/delivery/http/handler"
	"github.com/user/bizanalyzer/internal/delivery/http/router"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve run summaries, page results and metrics over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	env, err := setup()
	if err != nil {
		return err
	}
	log := env.logger
	defer func() { _ = log.Sync() }()

	store, err := openBackend(ctx, env.cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	h := handler.NewHandler(store.blobs, store.results, store.failures, store.checks, log)
	server := &http.Server{
		Addr:         ":" + env.cfg.ServerPort,
		Handler:      router.New(h, env.metrics, env.registry, log),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("port", env.cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
