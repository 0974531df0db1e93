package main

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"newsrelay/internal/features/relay/models"
)

func sourcesCmd() *cli.Command {
	return &cli.Command{
		Name:  "sources",
		Usage: "List configured sources by category",
		Action: func(ctx *cli.Context) error {
			config, _, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			sources, err := loadSources(config)
			if err != nil {
				return err
			}

			printSources(ctx.App.Writer, sources)
			return nil
		},
	}
}

func printSources(w io.Writer, config *models.SourceConfig) {
	for _, group := range models.GroupByCategory(config.Sources) {
		channel, ok := config.CategoryChannels.Lookup(group.Category)
		if !ok {
			channel = "(no channel)"
		}
		fmt.Fprintf(w, "%s -> %s\n", group.Category, channel)
		for _, name := range group.Sources {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}

	if unrouted := config.UnroutedCategories(); len(unrouted) > 0 {
		fmt.Fprintf(w, "\nunrouted categories: %v\n", unrouted)
	}
}
