package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeo/forgeoagent/pkg/transcript"
)

func setupCatalog(t *testing.T) (*Catalog, *transcript.Store) {
	t.Helper()

	logger := zerolog.New(os.Stdout).Level(zerolog.ErrorLevel)
	tmpDir := t.TempDir()

	store, err := transcript.NewStore(filepath.Join(tmpDir, "transcripts"), logger)
	require.NoError(t, err)

	cat, err := New(Config{
		Dir:         filepath.Join(tmpDir, "agents"),
		Database:    filepath.Join(tmpDir, "catalog.db"),
		Transcripts: store,
		Logger:      logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })

	return cat, store
}

func seedConversation(t *testing.T, store *transcript.Store, id string) {
	t.Helper()

	ctx := context.Background()
	require.NoError(t, store.AppendTurn(ctx, id, transcript.RoleUser, "teach me"))
	require.NoError(t, store.AppendTurn(ctx, id, transcript.RoleModel, "lesson one"))
}

func TestSave(t *testing.T) {
	ctx := context.Background()

	t.Run("should snapshot the transcript and index the agent", func(t *testing.T) {
		cat, store := setupCatalog(t)
		seedConversation(t, store, "conv1")

		info, err := cat.Save(ctx, SaveRequest{
			Name:           "tutor",
			ConversationID: "conv1",
			Model:          "gemini-2.5-flash-preview-05-20",
			Description:    "a patient tutor",
		})

		require.NoError(t, err)
		assert.Equal(t, 2, info.TurnCount)

		_, err = os.Stat(cat.TranscriptPath("tutor"))
		assert.NoError(t, err)
		_, err = os.Stat(filepath.Join(filepath.Dir(cat.TranscriptPath("tutor")), "metadata.json"))
		assert.NoError(t, err)
	})

	t.Run("should keep the snapshot isolated from later turns", func(t *testing.T) {
		cat, store := setupCatalog(t)
		seedConversation(t, store, "conv1")

		_, err := cat.Save(ctx, SaveRequest{Name: "tutor", ConversationID: "conv1", Model: "m"})
		require.NoError(t, err)

		require.NoError(t, store.AppendTurn(ctx, "conv1", transcript.RoleUser, "new turn"))

		turns, err := cat.LoadTurns(ctx, "tutor")
		require.NoError(t, err)
		assert.Len(t, turns, 2)
	})

	t.Run("should refuse to overwrite without the flag", func(t *testing.T) {
		cat, store := setupCatalog(t)
		seedConversation(t, store, "conv1")

		_, err := cat.Save(ctx, SaveRequest{Name: "tutor", ConversationID: "conv1", Model: "m"})
		require.NoError(t, err)

		_, err = cat.Save(ctx, SaveRequest{Name: "tutor", ConversationID: "conv1", Model: "m"})
		assert.ErrorIs(t, err, ErrExists)

		_, err = cat.Save(ctx, SaveRequest{Name: "tutor", ConversationID: "conv1", Model: "m", Overwrite: true})
		assert.NoError(t, err)
	})

	t.Run("should refuse to save an empty conversation", func(t *testing.T) {
		cat, _ := setupCatalog(t)

		_, err := cat.Save(ctx, SaveRequest{Name: "tutor", ConversationID: "empty", Model: "m"})
		assert.Error(t, err)
	})

	t.Run("should reject names with path separators", func(t *testing.T) {
		cat, _ := setupCatalog(t)

		_, err := cat.Save(ctx, SaveRequest{Name: "../evil", ConversationID: "conv1", Model: "m"})
		assert.Error(t, err)
	})
}

func TestListGetDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("should list saved agents", func(t *testing.T) {
		cat, store := setupCatalog(t)
		seedConversation(t, store, "conv1")
		seedConversation(t, store, "conv2")

		_, err := cat.Save(ctx, SaveRequest{Name: "alpha", ConversationID: "conv1", Model: "m"})
		require.NoError(t, err)
		_, err = cat.Save(ctx, SaveRequest{Name: "beta", ConversationID: "conv2", Model: "m"})
		require.NoError(t, err)

		agents, err := cat.List(ctx)
		require.NoError(t, err)
		assert.Len(t, agents, 2)
	})

	t.Run("should get one agent by name", func(t *testing.T) {
		cat, store := setupCatalog(t)
		seedConversation(t, store, "conv1")

		_, err := cat.Save(ctx, SaveRequest{Name: "alpha", ConversationID: "conv1", Model: "gemini-2.5-flash-preview-05-20"})
		require.NoError(t, err)

		info, err := cat.Get(ctx, "alpha")
		require.NoError(t, err)
		assert.Equal(t, "conv1", info.ConversationID)
		assert.Equal(t, "gemini-2.5-flash-preview-05-20", info.Model)
	})

	t.Run("should report a missing agent", func(t *testing.T) {
		cat, _ := setupCatalog(t)

		_, err := cat.Get(ctx, "ghost")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("should delete the index row and the directory", func(t *testing.T) {
		cat, store := setupCatalog(t)
		seedConversation(t, store, "conv1")

		_, err := cat.Save(ctx, SaveRequest{Name: "alpha", ConversationID: "conv1", Model: "m"})
		require.NoError(t, err)

		require.NoError(t, cat.Delete(ctx, "alpha"))

		_, err = cat.Get(ctx, "alpha")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = os.Stat(cat.TranscriptPath("alpha"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("should report deleting a missing agent", func(t *testing.T) {
		cat, _ := setupCatalog(t)

		assert.ErrorIs(t, cat.Delete(ctx, "ghost"), ErrNotFound)
	})
}
