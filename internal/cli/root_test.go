package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	t.Run("should expose the expected subcommands", func(t *testing.T) {
		root := GetRootCmd()

		names := make(map[string]bool)
		for _, cmd := range root.Commands() {
			names[cmd.Name()] = true
		}

		assert.True(t, names["run"])
		assert.True(t, names["status"])
		assert.True(t, names["agents"])
	})

	t.Run("should report the version", func(t *testing.T) {
		assert.Equal(t, version, GetVersion())
		assert.NotEmpty(t, GetRootCmd().Version)
	})

	t.Run("should register global flags", func(t *testing.T) {
		root := GetRootCmd()

		assert.NotNil(t, root.PersistentFlags().Lookup("config"))
		assert.NotNil(t, root.PersistentFlags().Lookup("log-level"))
	})
}

func TestAgentsCommand(t *testing.T) {
	t.Run("should require arguments for save", func(t *testing.T) {
		err := agentsSaveCmd.Args(agentsSaveCmd, []string{"only-name"})
		require.Error(t, err)
	})

	t.Run("should accept name and conversation id", func(t *testing.T) {
		err := agentsSaveCmd.Args(agentsSaveCmd, []string{"tutor", "conv1"})
		assert.NoError(t, err)
	})
}
