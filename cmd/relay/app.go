package main

import (
	"github.com/urfave/cli/v2"

	"newsrelay/internal/core"
	"newsrelay/internal/features/relay/models"
)

func app() *cli.App {
	return &cli.App{
		Name:  "newsrelay",
		Usage: "Relay RSS and Atom feeds into chat channels",
		Description: `Polls a fixed list of news feeds on an interval and posts
		entries that are newer than the last one sent for each feed into the
		chat channel configured for the feed's category.

		Settings are read from the environment (and a .env file), e.g.:

		--config => RELAY_CONFIG=config/relay.yml
		DISCORD_TOKEN, RELAY_POLL_INTERVAL, RELAY_MAX_ENTRIES
		`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Sources and category routing file (.yml, .yaml or .toml)",
				EnvVars: []string{"RELAY_CONFIG"},
				Value:   "config/relay.yml",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				EnvVars: []string{"RELAY_LOG_LEVEL"},
				Value:   "info",
			},
		},
		Commands: []*cli.Command{
			serveCmd(),
			sourcesCmd(),
			validateCmd(),
			hashTokenCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

// loadConfig reads the environment config with flag overrides applied
func loadConfig(ctx *cli.Context) (*core.Config, *core.Logger, error) {
	config, err := core.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	config.Features.Relay.SourcesPath = ctx.String("config")
	config.LogLevel = ctx.String("log-level")

	level, err := core.ParseLevel(config.LogLevel)
	if err != nil {
		return nil, nil, core.NewConfigurationError("invalid log level", err)
	}

	logger := core.NewLogger()
	logger.SetLevel(level)

	return config, logger, nil
}

func loadSources(config *core.Config) (*models.SourceConfig, error) {
	return models.LoadSourceConfig(config.Features.Relay.SourcesPath)
}
