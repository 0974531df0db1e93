package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"newsrelay/internal/core"
	"newsrelay/internal/server"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:        "serve",
		Usage:       "Run the relay",
		Description: `Connects to chat, starts polling every configured source and serves the operator HTTP API.`,
		Action: func(ctx *cli.Context) error {
			config, logger, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			sources, err := loadSources(config)
			if err != nil {
				logger.Error("Failed to load sources", "path", config.Features.Relay.SourcesPath, "error", err)
				return err
			}

			sigCtx, stop := signal.NotifyContext(ctx.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv, err := server.New(sigCtx, config, logger, sources)
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start(sigCtx)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					logger.Error("Server stopped", "error", err)
				}
				shutdown(srv, config, logger)
				return err
			case <-sigCtx.Done():
				logger.Info("Shutdown signal received")
			}

			shutdown(srv, config, logger)

			if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

// shutdownTimeout leaves room for the source in flight to finish its batch
func shutdownTimeout(config *core.Config) time.Duration {
	relay := config.Features.Relay
	return relay.FetchTimeout + time.Duration(relay.MaxEntriesPerPoll+1)*relay.DeliverTimeout + 5*time.Second
}

func shutdown(srv *server.Server, config *core.Config, logger *core.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(config))
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed", "error", err)
	}
}
