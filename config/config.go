package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"folio/models"

	"github.com/BurntSushi/toml"
)

//go:embed default.toml
var defaultConfig []byte

// Duration wraps time.Duration so it can be written as "30m" in TOML
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// TomlHackerNews configures the feed loader
type TomlHackerNews struct {
	BaseURL        string   `toml:"base_url"`
	BatchSize      int      `toml:"batch_size"`
	PartialBatches bool     `toml:"partial_batches"`
	Timeout        Duration `toml:"timeout"`
}

// TomlContent configures the CodeProb content fetcher
type TomlContent struct {
	SourceURL     string   `toml:"source_url"`
	SiteURL       string   `toml:"site_url"`
	Authors       []string `toml:"authors"`
	CacheKey      string   `toml:"cache_key"`
	CacheDuration Duration `toml:"cache_duration"`
}

// TomlWebhooks holds the contact and verifier endpoints
type TomlWebhooks struct {
	Contact string            `toml:"contact"`
	Verify  map[string]string `toml:"verify"`
	Timeout Duration          `toml:"timeout"`
}

// TomlConfig represents the top-level configuration
type TomlConfig struct {
	HackerNews TomlHackerNews   `toml:"hackernews"`
	Content    TomlContent      `toml:"content"`
	Webhooks   TomlWebhooks     `toml:"webhooks"`
	Writings   []models.Writing `toml:"writings"`
}

// Default returns the embedded configuration
func Default() *TomlConfig {
	var config TomlConfig
	if err := toml.Unmarshal(defaultConfig, &config); err != nil {
		panic(fmt.Sprintf("embedded config is invalid: %v", err))
	}
	return &config
}

// LoadConfig reads the TOML file at path on top of the embedded defaults.
// An empty path returns the defaults unchanged.
func LoadConfig(path string) (*TomlConfig, error) {
	config := Default()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Writings from the file replace the defaults entirely
	defaults := config.Writings
	config.Writings = nil

	md, err := toml.Decode(string(data), config)
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if !md.IsDefined("writings") {
		config.Writings = defaults
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects settings the loader and fetchers cannot work with
func (c *TomlConfig) Validate() error {
	if c.HackerNews.BaseURL == "" {
		return fmt.Errorf("hackernews.base_url must be set")
	}
	if c.HackerNews.BatchSize < 1 {
		return fmt.Errorf("hackernews.batch_size must be positive, got %d", c.HackerNews.BatchSize)
	}
	if c.Content.CacheDuration.Duration <= 0 {
		return fmt.Errorf("content.cache_duration must be positive")
	}
	return nil
}
