package main

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"newsrelay/internal/features/relay/models"
	"newsrelay/internal/features/relay/services"
)

func validateCmd() *cli.Command {
	return &cli.Command{
		Name:        "validate",
		Usage:       "Fetch every source once without dispatching",
		Description: `Fetches each configured feed and reports how many entries it has and how many carry a usable timestamp. Nothing is sent to chat.`,
		Action: func(ctx *cli.Context) error {
			config, logger, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			sources, err := loadSources(config)
			if err != nil {
				return err
			}

			fetcher := services.NewFetcherService(logger.ForComponent("fetcher"), &models.FetcherConfig{
				UserAgent: config.Features.Relay.UserAgent,
				Timeout:   config.Features.Relay.FetchTimeout,
			})

			if failed := validateSources(ctx.Context, ctx.App.Writer, fetcher, sources); failed > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d sources failed", failed, len(sources.Sources)), 2)
			}
			return nil
		},
	}
}

// validateSources writes one line per source and returns how many failed
func validateSources(ctx context.Context, w io.Writer, fetcher services.FeedFetcher, config *models.SourceConfig) int {
	failed := 0

	for _, src := range config.Sources {
		entries, err := fetcher.Fetch(ctx, src.URL)
		if err != nil {
			failed++
			fmt.Fprintf(w, "FAIL  %-30s %v\n", src.Name, err)
			continue
		}

		resolvable := 0
		for _, entry := range entries {
			if _, ok := services.ResolveTimestamp(entry); ok {
				resolvable++
			}
		}

		status := "OK"
		if _, ok := config.CategoryChannels.Lookup(src.Category); !ok {
			status = "WARN"
		}
		fmt.Fprintf(w, "%-4s  %-30s %d entries, %d with timestamps, category %q\n",
			status, src.Name, len(entries), resolvable, src.Category)
	}

	return failed
}
