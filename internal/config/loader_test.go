package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("should return defaults when the file does not exist", func(t *testing.T) {
		loader := NewLoader(filepath.Join(t.TempDir(), "missing.json"))

		cfg, err := loader.Load()
		require.NoError(t, err)
		assert.Equal(t, "gemini", cfg.Provider.Name)
		assert.Equal(t, 3, cfg.Provider.MaxRetries)
		assert.Empty(t, cfg.Provider.APIKeys)
	})

	t.Run("should read values from the config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "forgeo.json")
		content := `{
			"provider": {
				"name": "anthropic",
				"api_keys": ["sk-ant-one", "sk-ant-two"],
				"model": "claude-sonnet-4",
				"max_retries": 5
			},
			"logging": {"level": "debug"}
		}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))

		cfg, err := NewLoader(path).Load()
		require.NoError(t, err)
		assert.Equal(t, "anthropic", cfg.Provider.Name)
		assert.Equal(t, []string{"sk-ant-one", "sk-ant-two"}, cfg.Provider.APIKeys)
		assert.Equal(t, 5, cfg.Provider.MaxRetries)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("should derive storage paths from the data dir", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "forgeo.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"data_dir": "/var/lib/forgeo"}`), 0600))

		cfg, err := NewLoader(path).Load()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("/var/lib/forgeo", "transcripts"), cfg.Transcripts.Dir)
		assert.Equal(t, filepath.Join("/var/lib/forgeo", "agents"), cfg.Catalog.Dir)
		assert.Equal(t, filepath.Join("/var/lib/forgeo", "catalog.db"), cfg.Catalog.Database)
		assert.Equal(t, filepath.Join("/var/lib/forgeo", "logs", "forgeo.log"), cfg.Logging.File)
	})

	t.Run("should take keys from the environment", func(t *testing.T) {
		t.Setenv("FORGEO_PROVIDER_API_KEYS", " key-one , key-two,key-three ")
		loader := NewLoader(filepath.Join(t.TempDir(), "missing.json"))

		cfg, err := loader.Load()
		require.NoError(t, err)
		assert.Equal(t, []string{"key-one", "key-two", "key-three"}, cfg.Provider.APIKeys)
	})

	t.Run("should let the environment override file keys", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "forgeo.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"provider": {"api_keys": ["from-file"]}}`), 0600))
		t.Setenv("FORGEO_PROVIDER_API_KEYS", "from-env")

		cfg, err := NewLoader(path).Load()
		require.NoError(t, err)
		assert.Equal(t, []string{"from-env"}, cfg.Provider.APIKeys)
	})

	t.Run("should fail on malformed JSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "forgeo.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

		_, err := NewLoader(path).Load()
		assert.Error(t, err)
	})
}

func TestSave(t *testing.T) {
	t.Run("should round-trip through disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sub", "forgeo.json")
		loader := NewLoader(path)

		cfg := DefaultConfig()
		cfg.Provider.APIKeys = []string{"k1"}
		cfg.Provider.Model = "custom-model"
		require.NoError(t, loader.Save(cfg))

		loaded, err := loader.Load()
		require.NoError(t, err)
		assert.Equal(t, "custom-model", loaded.Provider.Model)
		assert.Equal(t, []string{"k1"}, loaded.Provider.APIKeys)
	})
}

func TestGetConfigPath(t *testing.T) {
	t.Run("should prefer an explicit path", func(t *testing.T) {
		assert.Equal(t, "/tmp/x.json", NewLoader("/tmp/x.json").GetConfigPath())
	})

	t.Run("should default under the home directory", func(t *testing.T) {
		path := NewLoader("").GetConfigPath()
		assert.Contains(t, path, filepath.Join(".forgeo", "forgeo.json"))
	})
}
