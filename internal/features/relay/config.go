package relay

import (
	"newsrelay/internal/core"
	"newsrelay/internal/features/relay/models"
)

// Config represents relay feature configuration
type Config struct {
	Enabled        bool
	HistoryEnabled bool
	SourcesPath    string
	Scheduler      *models.SchedulerConfig
	Fetcher        *models.FetcherConfig
}

// NewConfig creates relay config from core config
func NewConfig(coreConfig *core.Config) *Config {
	relay := coreConfig.Features.Relay

	return &Config{
		Enabled:        relay.Enabled,
		HistoryEnabled: coreConfig.Features.History.Enabled,
		SourcesPath:    relay.SourcesPath,
		Scheduler: &models.SchedulerConfig{
			PollInterval:      relay.PollInterval,
			MaxEntriesPerPoll: relay.MaxEntriesPerPoll,
			SourceDelay:       relay.SourceDelay,
			FetchTimeout:      relay.FetchTimeout,
			DeliverTimeout:    relay.DeliverTimeout,
		},
		Fetcher: &models.FetcherConfig{
			UserAgent: relay.UserAgent,
			Timeout:   relay.FetchTimeout,
		},
	}
}

// Validate validates the relay configuration
func (c *Config) Validate() error {
	if c.Scheduler == nil || c.Fetcher == nil {
		return core.NewConfigurationError("relay scheduler and fetcher settings are required", nil)
	}

	return core.RelayConfig{
		Enabled:           c.Enabled,
		SourcesPath:       c.SourcesPath,
		PollInterval:      c.Scheduler.PollInterval,
		MaxEntriesPerPoll: c.Scheduler.MaxEntriesPerPoll,
		SourceDelay:       c.Scheduler.SourceDelay,
		FetchTimeout:      c.Scheduler.FetchTimeout,
		DeliverTimeout:    c.Scheduler.DeliverTimeout,
		UserAgent:         c.Fetcher.UserAgent,
	}.Validate()
}
