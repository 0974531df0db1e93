package models

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"newsrelay/internal/core"
)

// Source is one configured feed. It is immutable after load and identified by URL.
type Source struct {
	Name     string `json:"name" yaml:"name" toml:"name"`
	URL      string `json:"url" yaml:"url" toml:"url"`
	Category string `json:"category" yaml:"category" toml:"category"`
}

// Key returns the dedup identity of the source
func (s Source) Key() string {
	return s.URL
}

// RouteTable maps a source category to a destination channel identifier
type RouteTable map[string]string

// Lookup returns the channel configured for category
func (t RouteTable) Lookup(category string) (string, bool) {
	channelID, ok := t[category]
	if !ok || channelID == "" {
		return "", false
	}
	return channelID, true
}

// Categories returns the routed categories in sorted order
func (t RouteTable) Categories() []string {
	keys := lo.Keys(t)
	sort.Strings(keys)
	return keys
}

// SourceConfig is the on-disk source list and category routing table
type SourceConfig struct {
	Sources          []Source   `json:"sources" yaml:"sources" toml:"sources"`
	CategoryChannels RouteTable `json:"category_channels" yaml:"category_channels" toml:"category_channels"`
}

// LoadSourceConfig reads a YAML or TOML source file, chosen by extension, and validates it
func LoadSourceConfig(path string) (*SourceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.NewConfigurationError("error reading sources file", err)
	}

	cfg, err := ParseSourceConfig(data, filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ParseSourceConfig decodes a source file body; ext selects the format
func ParseSourceConfig(data []byte, ext string) (*SourceConfig, error) {
	var cfg SourceConfig

	switch strings.ToLower(ext) {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, core.NewConfigurationError("error parsing sources file", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, core.NewConfigurationError("error parsing sources file", err)
		}
	default:
		return nil, core.NewConfigurationError(fmt.Sprintf("unsupported sources file format %q", ext), nil)
	}

	if cfg.CategoryChannels == nil {
		cfg.CategoryChannels = RouteTable{}
	}

	return &cfg, nil
}

// Validate checks the source list and routing table
func (c *SourceConfig) Validate() error {
	if len(c.Sources) == 0 {
		return core.NewConfigurationError("at least one source is required", nil)
	}

	var errs []error
	seen := make(map[string]string, len(c.Sources))

	for i, s := range c.Sources {
		label := s.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}

		if s.Name == "" {
			errs = append(errs, fmt.Errorf("source %s: name is required", label))
		}
		if s.Category == "" {
			errs = append(errs, fmt.Errorf("source %s: category is required", label))
		}
		if s.URL == "" {
			errs = append(errs, fmt.Errorf("source %s: url is required", label))
			continue
		}

		u, err := url.Parse(s.URL)
		if err != nil {
			errs = append(errs, fmt.Errorf("source %s: invalid url: %w", label, err))
			continue
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, fmt.Errorf("source %s: url scheme must be http or https, got %q", label, u.Scheme))
		}

		if other, dup := seen[s.URL]; dup {
			errs = append(errs, fmt.Errorf("source %s: url already used by source %s", label, other))
		}
		seen[s.URL] = label
	}

	for category, channelID := range c.CategoryChannels {
		if strings.TrimSpace(channelID) == "" {
			errs = append(errs, fmt.Errorf("category %q: channel id is empty", category))
		}
	}

	if len(errs) > 0 {
		return core.NewConfigurationError("invalid sources file", errors.Join(errs...))
	}

	return nil
}

// UnroutedCategories lists source categories that have no destination channel
func (c *SourceConfig) UnroutedCategories() []string {
	categories := lo.Uniq(lo.Map(c.Sources, func(s Source, _ int) string {
		return s.Category
	}))

	return lo.Filter(categories, func(category string, _ int) bool {
		_, ok := c.CategoryChannels.Lookup(category)
		return !ok
	})
}

// CategoryGroup is a category with the names of its sources
type CategoryGroup struct {
	Category string   `json:"category"`
	Sources  []string `json:"sources"`
}

// GroupByCategory groups source names by category, keeping first-seen category order
func GroupByCategory(sources []Source) []CategoryGroup {
	grouped := lo.GroupBy(sources, func(s Source) string {
		return s.Category
	})

	order := lo.Uniq(lo.Map(sources, func(s Source, _ int) string {
		return s.Category
	}))

	return lo.Map(order, func(category string, _ int) CategoryGroup {
		return CategoryGroup{
			Category: category,
			Sources: lo.Map(grouped[category], func(s Source, _ int) string {
				return s.Name
			}),
		}
	})
}
