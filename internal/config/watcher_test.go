package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, path, keys string) {
	t.Helper()

	content := `{"provider": {"name": "gemini", "api_keys": [` + keys + `], "model": "m", "max_retries": 3}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestWatcher(t *testing.T) {
	logger := zerolog.New(os.Stdout).Level(zerolog.ErrorLevel)

	t.Run("should reload after the file changes", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "forgeo.json")
		writeConfigFile(t, path, `"k1"`)

		reloaded := make(chan *Config, 1)
		watcher, err := NewWatcher(NewLoader(path), func(cfg *Config) error {
			select {
			case reloaded <- cfg:
			default:
			}
			return nil
		}, logger)
		require.NoError(t, err)
		require.NoError(t, watcher.Start())
		defer watcher.Stop()

		writeConfigFile(t, path, `"k1", "k2"`)

		select {
		case cfg := <-reloaded:
			assert.Equal(t, []string{"k1", "k2"}, cfg.Provider.APIKeys)
		case <-time.After(5 * time.Second):
			t.Fatal("config reload did not fire within timeout")
		}
	})

	t.Run("should keep the previous config when the new one is invalid", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "forgeo.json")
		writeConfigFile(t, path, `"k1"`)

		reloaded := make(chan struct{}, 1)
		watcher, err := NewWatcher(NewLoader(path), func(cfg *Config) error {
			select {
			case reloaded <- struct{}{}:
			default:
			}
			return nil
		}, logger)
		require.NoError(t, err)
		require.NoError(t, watcher.Start())
		defer watcher.Stop()

		// No keys at all: Validate fails, callback must not run.
		require.NoError(t, os.WriteFile(path, []byte(`{"provider": {"name": "gemini", "model": "m", "max_retries": 3}}`), 0600))

		select {
		case <-reloaded:
			t.Fatal("callback fired for an invalid config")
		case <-time.After(1 * time.Second):
		}
	})

	t.Run("should stop cleanly", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "forgeo.json")
		writeConfigFile(t, path, `"k1"`)

		watcher, err := NewWatcher(NewLoader(path), nil, logger)
		require.NoError(t, err)
		require.NoError(t, watcher.Start())

		assert.NoError(t, watcher.Stop())
	})
}
