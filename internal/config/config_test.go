package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Provider.APIKeys = []string{"AIzaSyExampleKey0000000000000000000000"}
	return cfg
}

func TestValidate(t *testing.T) {
	t.Run("should accept a valid config", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("should require a provider name", func(t *testing.T) {
		cfg := validConfig()
		cfg.Provider.Name = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("should reject unknown providers", func(t *testing.T) {
		cfg := validConfig()
		cfg.Provider.Name = "cohere"
		assert.Error(t, cfg.Validate())
	})

	t.Run("should require at least one key", func(t *testing.T) {
		cfg := validConfig()
		cfg.Provider.APIKeys = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("should reject empty key entries", func(t *testing.T) {
		cfg := validConfig()
		cfg.Provider.APIKeys = []string{"good", ""}
		assert.Error(t, cfg.Validate())
	})

	t.Run("should require a model", func(t *testing.T) {
		cfg := validConfig()
		cfg.Provider.Model = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("should require a positive retry budget", func(t *testing.T) {
		cfg := validConfig()
		cfg.Provider.MaxRetries = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestString(t *testing.T) {
	t.Run("should mask key material", func(t *testing.T) {
		cfg := validConfig()

		rendered := cfg.String()
		assert.NotContains(t, rendered, cfg.Provider.APIKeys[0])
		assert.Contains(t, rendered, "AIzaSyEx...")
	})

	t.Run("should not mutate the original keys", func(t *testing.T) {
		cfg := validConfig()
		original := cfg.Provider.APIKeys[0]

		_ = cfg.String()
		assert.Equal(t, original, cfg.Provider.APIKeys[0])
		assert.False(t, strings.HasSuffix(cfg.Provider.APIKeys[0], "..."))
	})
}
