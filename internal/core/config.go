package core

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the process configuration for the relay
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Discord  DiscordConfig  `json:"discord"`
	Auth     AuthConfig     `json:"auth"`
	Features FeatureConfig  `json:"features"`
	LogLevel string         `json:"log_level"`
}

// ServerConfig contains operator HTTP server configuration
type ServerConfig struct {
	Port int    `json:"port"`
	Host string `json:"host"`
}

// DatabaseConfig contains database-related configuration
type DatabaseConfig struct {
	Path string `json:"path"`
}

// DiscordConfig contains chat platform configuration
type DiscordConfig struct {
	Token         string        `json:"-"`
	CommandPrefix string        `json:"command_prefix"`
	SendRate      float64       `json:"send_rate"`
	OpenTimeout   time.Duration `json:"open_timeout"`
}

// AuthConfig contains operator API authentication configuration
type AuthConfig struct {
	OperatorTokenHash string `json:"-"`
}

// FeatureConfig contains feature-specific configuration
type FeatureConfig struct {
	Relay    RelayConfig    `json:"relay"`
	Commands CommandsConfig `json:"commands"`
	History  HistoryConfig  `json:"history"`
}

// RelayConfig contains feed polling and dispatch configuration
type RelayConfig struct {
	Enabled           bool          `json:"enabled"`
	SourcesPath       string        `json:"sources_path"`
	PollInterval      time.Duration `json:"poll_interval"`
	MaxEntriesPerPoll int           `json:"max_entries_per_poll"`
	SourceDelay       time.Duration `json:"source_delay"`
	FetchTimeout      time.Duration `json:"fetch_timeout"`
	DeliverTimeout    time.Duration `json:"deliver_timeout"`
	UserAgent         string        `json:"user_agent"`
}

// CommandsConfig contains chat command configuration
type CommandsConfig struct {
	Enabled bool `json:"enabled"`
}

// HistoryConfig contains dispatch history configuration
type HistoryConfig struct {
	Enabled bool `json:"enabled"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("RELAY_PORT", 4000),
			Host: getEnvOrDefault("RELAY_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Path: getEnvOrDefault("RELAY_DB_PATH", "./relay.db"),
		},
		Discord: DiscordConfig{
			Token:         getEnvOrDefault("DISCORD_TOKEN", ""),
			CommandPrefix: getEnvOrDefault("RELAY_COMMAND_PREFIX", "!"),
			SendRate:      getEnvAsFloat("RELAY_SEND_RATE", 5),
			OpenTimeout:   getEnvAsDuration("RELAY_DISCORD_OPEN_TIMEOUT", 2*time.Minute),
		},
		Auth: AuthConfig{
			OperatorTokenHash: getEnvOrDefault("RELAY_OPERATOR_TOKEN_HASH", ""),
		},
		Features: FeatureConfig{
			Relay: RelayConfig{
				Enabled:           getEnvAsBool("RELAY_ENABLED", true),
				SourcesPath:       getEnvOrDefault("RELAY_CONFIG", "config/relay.yml"),
				PollInterval:      getEnvAsDuration("RELAY_POLL_INTERVAL", 30*time.Minute),
				MaxEntriesPerPoll: getEnvAsInt("RELAY_MAX_ENTRIES", 5),
				SourceDelay:       getEnvAsDuration("RELAY_SOURCE_DELAY", time.Second),
				FetchTimeout:      getEnvAsDuration("RELAY_FETCH_TIMEOUT", 30*time.Second),
				DeliverTimeout:    getEnvAsDuration("RELAY_DELIVER_TIMEOUT", 10*time.Second),
				UserAgent:         getEnvOrDefault("RELAY_USER_AGENT", "newsrelay/1.0 (+https://github.com/newsrelay)"),
			},
			Commands: CommandsConfig{
				Enabled: getEnvAsBool("RELAY_ENABLE_COMMANDS", true),
			},
			History: HistoryConfig{
				Enabled: getEnvAsBool("RELAY_HISTORY_ENABLED", true),
			},
		},
		LogLevel: getEnvOrDefault("RELAY_LOG_LEVEL", "info"),
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return NewConfigurationError(fmt.Sprintf("invalid server port: %d", c.Server.Port), nil)
	}

	if c.Features.History.Enabled && c.Database.Path == "" {
		return NewConfigurationError("database path is required when history is enabled", nil)
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		return NewConfigurationError("invalid log level", err)
	}

	if c.Discord.SendRate <= 0 {
		return NewConfigurationError("send rate must be positive", nil)
	}

	if c.Features.Relay.Enabled {
		if err := c.Features.Relay.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// RequireDiscord checks the settings needed to connect to the chat platform
func (c *Config) RequireDiscord() error {
	if c.Discord.Token == "" {
		return NewConfigurationError("DISCORD_TOKEN is required", nil)
	}
	return nil
}

// Validate validates the relay polling configuration
func (r RelayConfig) Validate() error {
	if r.SourcesPath == "" {
		return NewConfigurationError("sources config path is required", nil)
	}

	if r.PollInterval < time.Minute {
		return NewConfigurationError(fmt.Sprintf("poll interval must be at least 1m, got %s", r.PollInterval), nil)
	}

	if r.MaxEntriesPerPoll < 1 || r.MaxEntriesPerPoll > 50 {
		return NewConfigurationError("max entries per poll must be between 1 and 50", nil)
	}

	if r.SourceDelay < 0 {
		return NewConfigurationError("source delay must not be negative", nil)
	}

	if r.FetchTimeout <= 0 || r.DeliverTimeout <= 0 {
		return NewConfigurationError("fetch and deliver timeouts must be positive", nil)
	}

	return nil
}

// IsFeatureEnabled checks if a feature is enabled
func (c *Config) IsFeatureEnabled(featureName string) bool {
	switch strings.ToLower(featureName) {
	case "relay":
		return c.Features.Relay.Enabled
	case "commands":
		return c.Features.Commands.Enabled
	case "history":
		return c.Features.History.Enabled
	default:
		return false
	}
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("90s", "30m") or bare seconds ("1800")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
