package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("should write JSON lines to the log file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "test.log")

		log, err := New(Config{Level: "debug", File: path})
		require.NoError(t, err)

		zl := log.Zerolog()
		zl.Info().Str("component", "test").Msg("hello")
		require.NoError(t, log.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"component":"test"`)
		assert.Contains(t, string(data), "hello")
	})

	t.Run("should redact credentials when enabled", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.log")

		log, err := New(Config{Level: "info", File: path, Redaction: true})
		require.NoError(t, err)

		zl := log.Zerolog()
		zl.Info().Str("key", "AIzaSyD4x8FakeFakeFakeFakeFakeFakeFak").Msg("issued")
		require.NoError(t, log.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "AIzaSyD4x8Fake")
		assert.Contains(t, string(data), "[REDACTED]")
	})

	t.Run("should suppress levels below the configured one", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.log")

		log, err := New(Config{Level: "warn", File: path})
		require.NoError(t, err)

		zl := log.Zerolog()
		zl.Info().Msg("too quiet")
		zl.Warn().Msg("loud enough")
		require.NoError(t, log.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "too quiet")
		assert.Contains(t, string(data), "loud enough")
	})

	t.Run("should fall back to info on a bad level", func(t *testing.T) {
		log, err := New(Config{Level: "shout"})
		require.NoError(t, err)
		defer log.Close()

		assert.NotNil(t, log.Zerolog())
	})
}

func TestRotatingWriter(t *testing.T) {
	t.Run("should rotate when the size threshold is crossed", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "app.log")

		w, err := NewRotatingWriter(path, 1, 0, false)
		require.NoError(t, err)
		// Shrink the threshold so the test does not write a megabyte.
		w.maxSize = 128

		for i := 0; i < 10; i++ {
			_, err := w.Write([]byte("a fairly long log line to force rotation quickly\n"))
			require.NoError(t, err)
		}
		require.NoError(t, w.Close())

		matches, err := filepath.Glob(path + ".*")
		require.NoError(t, err)
		assert.NotEmpty(t, matches)

		_, err = os.Stat(path)
		assert.NoError(t, err)
	})

	t.Run("should append across reopen", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")

		w, err := NewRotatingWriter(path, 1, 0, false)
		require.NoError(t, err)
		_, err = w.Write([]byte("first\n"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		w, err = NewRotatingWriter(path, 1, 0, false)
		require.NoError(t, err)
		_, err = w.Write([]byte("second\n"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "first")
		assert.Contains(t, string(data), "second")
	})
}
