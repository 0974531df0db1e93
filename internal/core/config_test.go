package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"RELAY_PORT", "RELAY_POLL_INTERVAL", "RELAY_MAX_ENTRIES", "RELAY_SOURCE_DELAY",
		"RELAY_LOG_LEVEL", "RELAY_CONFIG", "RELAY_HISTORY_ENABLED", "RELAY_SEND_RATE",
	} {
		t.Setenv(key, "")
	}

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 4000, config.Server.Port)
	assert.Equal(t, "config/relay.yml", config.Features.Relay.SourcesPath)
	assert.Equal(t, 30*time.Minute, config.Features.Relay.PollInterval)
	assert.Equal(t, 5, config.Features.Relay.MaxEntriesPerPoll)
	assert.Equal(t, time.Second, config.Features.Relay.SourceDelay)
	assert.True(t, config.Features.History.Enabled)
	assert.Equal(t, "!", config.Discord.CommandPrefix)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("RELAY_POLL_INTERVAL", "15m")
	t.Setenv("RELAY_SOURCE_DELAY", "3")
	t.Setenv("RELAY_MAX_ENTRIES", "10")
	t.Setenv("RELAY_HISTORY_ENABLED", "false")
	t.Setenv("RELAY_LOG_LEVEL", "debug")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, config.Features.Relay.PollInterval)
	assert.Equal(t, 3*time.Second, config.Features.Relay.SourceDelay)
	assert.Equal(t, 10, config.Features.Relay.MaxEntriesPerPoll)
	assert.False(t, config.Features.History.Enabled)
	assert.True(t, config.IsFeatureEnabled("relay"))
	assert.False(t, config.IsFeatureEnabled("history"))
	assert.False(t, config.IsFeatureEnabled("unknown"))
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := map[string]map[string]string{
		"interval below a minute": {"RELAY_POLL_INTERVAL": "30s"},
		"too many entries":        {"RELAY_MAX_ENTRIES": "500"},
		"bad log level":           {"RELAY_LOG_LEVEL": "verbose"},
		"bad port":                {"RELAY_PORT": "70000"},
	}

	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig()
			require.Error(t, err)
			assert.True(t, IsCode(err, ErrCodeConfiguration))
		})
	}
}

func TestRequireDiscord(t *testing.T) {
	config := &Config{}
	err := config.RequireDiscord()
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeConfiguration))

	config.Discord.Token = "token"
	assert.NoError(t, config.RequireDiscord())
}
