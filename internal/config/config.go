// Package config loads and validates the runtime configuration from a
// JSON file, with environment-variable overrides and optional hot-reload
// of the API key set.
package config

import (
	"encoding/json"
	"fmt"
)

// Config is the top-level runtime configuration.
type Config struct {
	Provider    ProviderConfig    `json:"provider" mapstructure:"provider"`
	Transcripts TranscriptsConfig `json:"transcripts" mapstructure:"transcripts"`
	Catalog     CatalogConfig     `json:"catalog" mapstructure:"catalog"`
	Logging     LoggingConfig     `json:"logging" mapstructure:"logging"`
	Metrics     MetricsConfig     `json:"metrics" mapstructure:"metrics"`
	Janitor     JanitorConfig     `json:"janitor" mapstructure:"janitor"`

	// DataDir is the root for transcripts, the catalog and logs.
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// ProviderConfig selects the generative-AI backend and its credentials.
type ProviderConfig struct {
	Name        string   `json:"name" mapstructure:"name"` // gemini, anthropic, openai
	APIKeys     []string `json:"api_keys" mapstructure:"api_keys"`
	Model       string   `json:"model" mapstructure:"model"`
	MaxRetries  int      `json:"max_retries" mapstructure:"max_retries"`
	Temperature float64  `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int      `json:"max_tokens" mapstructure:"max_tokens"`
}

// TranscriptsConfig locates conversation transcript storage.
type TranscriptsConfig struct {
	Dir string `json:"dir" mapstructure:"dir"`
}

// CatalogConfig locates the saved-agent catalog.
type CatalogConfig struct {
	Dir      string `json:"dir" mapstructure:"dir"`
	Database string `json:"database" mapstructure:"database"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Listen  string `json:"listen" mapstructure:"listen"`
}

// JanitorConfig holds the cron specs for pool maintenance. Empty specs
// disable the corresponding job.
type JanitorConfig struct {
	SnapshotSpec string `json:"snapshot_spec" mapstructure:"snapshot_spec"`
	ResetSpec    string `json:"reset_spec" mapstructure:"reset_spec"`
}

// DefaultConfig returns a config with default values. API keys have no
// default; they come from the config file or FORGEO_PROVIDER_API_KEYS.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:        "gemini",
			Model:       "gemini-2.5-flash-preview-05-20",
			MaxRetries:  3,
			Temperature: 0.7,
			MaxTokens:   8192,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSize:   50,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9464",
		},
		Janitor: JanitorConfig{
			SnapshotSpec: "0 * * * *",
		},
	}
}

// String returns an indented JSON view of the config with keys masked.
func (c *Config) String() string {
	clone := *c
	clone.Provider.APIKeys = make([]string, len(c.Provider.APIKeys))
	for i, key := range c.Provider.APIKeys {
		masked := key
		if len(masked) > 8 {
			masked = masked[:8] + "..."
		}
		clone.Provider.APIKeys[i] = masked
	}
	data, _ := json.MarshalIndent(&clone, "", "  ")
	return string(data)
}

// Validate checks structural requirements. Key-format checks live in the
// Validator, which reports warnings rather than hard failures.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case "gemini", "anthropic", "openai":
	case "":
		return fmt.Errorf("provider name is required")
	default:
		return fmt.Errorf("invalid provider %q (must be: gemini, anthropic, openai)", c.Provider.Name)
	}

	if len(c.Provider.APIKeys) == 0 {
		return fmt.Errorf("no API keys configured: set provider.api_keys or FORGEO_PROVIDER_API_KEYS")
	}
	for i, key := range c.Provider.APIKeys {
		if key == "" {
			return fmt.Errorf("provider.api_keys[%d] is empty", i)
		}
	}

	if c.Provider.Model == "" {
		return fmt.Errorf("provider model is required")
	}
	if c.Provider.MaxRetries < 1 {
		return fmt.Errorf("provider.max_retries must be >= 1, got %d", c.Provider.MaxRetries)
	}

	return nil
}
