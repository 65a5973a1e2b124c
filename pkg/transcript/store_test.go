package transcript

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir(), zerolog.New(os.Stdout).Level(zerolog.ErrorLevel))
	require.NoError(t, err)
	return store
}

func TestCreate(t *testing.T) {
	t.Run("should write a metadata header", func(t *testing.T) {
		store := newTestStore(t)

		require.NoError(t, store.Create("conv1", "gemini-2.5-flash-preview-05-20"))

		data, err := os.ReadFile(store.Path("conv1"))
		require.NoError(t, err)
		assert.Contains(t, string(data), `"type":"meta"`)
		assert.Contains(t, string(data), "gemini-2.5-flash-preview-05-20")
	})

	t.Run("should be a no-op for an existing conversation", func(t *testing.T) {
		store := newTestStore(t)

		require.NoError(t, store.Create("conv1", "m1"))
		require.NoError(t, store.AppendTurn(context.Background(), "conv1", RoleUser, "hello"))
		require.NoError(t, store.Create("conv1", "m2"))

		turns, err := store.LoadPriorTurns(context.Background(), "conv1")
		require.NoError(t, err)
		assert.Len(t, turns, 1)
	})

	t.Run("should reject ids that escape the store", func(t *testing.T) {
		store := newTestStore(t)

		assert.Error(t, store.Create("", "m"))
		assert.Error(t, store.Create("../evil", "m"))
		assert.Error(t, store.Create("a/b", "m"))
		assert.Error(t, store.Create("a\\b", "m"))
		assert.Error(t, store.Create("a\x00b", "m"))
	})
}

func TestAppendTurn(t *testing.T) {
	ctx := context.Background()

	t.Run("should round-trip turns in order", func(t *testing.T) {
		store := newTestStore(t)

		require.NoError(t, store.AppendTurn(ctx, "conv1", RoleUser, "first question"))
		require.NoError(t, store.AppendTurn(ctx, "conv1", RoleModel, "first answer"))
		require.NoError(t, store.AppendTurn(ctx, "conv1", RoleUser, "second question"))

		turns, err := store.LoadPriorTurns(ctx, "conv1")
		require.NoError(t, err)
		require.Len(t, turns, 3)
		assert.Equal(t, RoleUser, turns[0].Role)
		assert.Equal(t, "first question", turns[0].Text)
		assert.Equal(t, "first answer", turns[1].Text)
		assert.Equal(t, "second question", turns[2].Text)
		assert.False(t, turns[0].Timestamp.IsZero())
	})

	t.Run("should create the file with a header on first append", func(t *testing.T) {
		store := newTestStore(t)

		require.NoError(t, store.AppendTurn(ctx, "fresh", RoleUser, "hi"))

		data, err := os.ReadFile(store.Path("fresh"))
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], `"type":"meta"`)
		assert.Contains(t, lines[1], `"type":"turn"`)
	})

	t.Run("should reject invalid roles", func(t *testing.T) {
		store := newTestStore(t)

		err := store.AppendTurn(ctx, "conv1", "assistant", "hi")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "role")
	})

	t.Run("should reject empty text", func(t *testing.T) {
		store := newTestStore(t)

		assert.Error(t, store.AppendTurn(ctx, "conv1", RoleUser, ""))
	})

	t.Run("should serialize concurrent appends to one conversation", func(t *testing.T) {
		store := newTestStore(t)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, store.AppendTurn(ctx, "conv1", RoleUser, "message"))
			}()
		}
		wg.Wait()

		turns, err := store.LoadPriorTurns(ctx, "conv1")
		require.NoError(t, err)
		assert.Len(t, turns, 20)
	})
}

func TestLoadPriorTurns(t *testing.T) {
	ctx := context.Background()

	t.Run("should return empty for a missing conversation", func(t *testing.T) {
		store := newTestStore(t)

		turns, err := store.LoadPriorTurns(ctx, "nope")
		require.NoError(t, err)
		assert.Empty(t, turns)
	})

	t.Run("should skip corrupted lines", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.AppendTurn(ctx, "conv1", RoleUser, "good turn"))

		file, err := os.OpenFile(store.Path("conv1"), os.O_APPEND|os.O_WRONLY, 0600)
		require.NoError(t, err)
		_, err = file.WriteString("{not json at all\n")
		require.NoError(t, err)
		require.NoError(t, file.Close())

		require.NoError(t, store.AppendTurn(ctx, "conv1", RoleModel, "after corruption"))

		turns, err := store.LoadPriorTurns(ctx, "conv1")
		require.NoError(t, err)
		require.Len(t, turns, 2)
		assert.Equal(t, "good turn", turns[0].Text)
		assert.Equal(t, "after corruption", turns[1].Text)
	})
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("should list conversations", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.Create("a", ""))
		require.NoError(t, store.Create("b", ""))

		ids, err := store.List()
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "b"}, ids)
	})

	t.Run("should delete a conversation", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.AppendTurn(ctx, "gone", RoleUser, "hi"))

		require.NoError(t, store.Delete("gone"))

		_, err := os.Stat(store.Path("gone"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("should tolerate deleting a missing conversation", func(t *testing.T) {
		store := newTestStore(t)
		assert.NoError(t, store.Delete("never-existed"))
	})
}

func TestDecodeTurns(t *testing.T) {
	t.Run("should decode a transcript stream", func(t *testing.T) {
		input := strings.Join([]string{
			`{"type":"meta","metadata":{"conversation_id":"c1","start_time":"2026-08-23T10:00:00Z"}}`,
			`{"type":"turn","turn":{"role":"user","text":"hi","timestamp":"2026-08-23T10:00:01Z"}}`,
			`garbage line`,
			`{"type":"turn","turn":{"role":"model","text":"hello","timestamp":"2026-08-23T10:00:02Z"}}`,
		}, "\n")

		turns, err := DecodeTurns(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, turns, 2)
		assert.Equal(t, "hi", turns[0].Text)
		assert.Equal(t, RoleModel, turns[1].Role)
	})

	t.Run("should return no turns for an empty stream", func(t *testing.T) {
		turns, err := DecodeTurns(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, turns)
	})
}

func TestNewConversationID(t *testing.T) {
	t.Run("should embed the prefix and stay unique", func(t *testing.T) {
		a := NewConversationID("chat")
		b := NewConversationID("chat")

		assert.True(t, strings.HasPrefix(a, "chat_"))
		assert.NotEqual(t, a, b)
	})

	t.Run("should produce ids the store accepts", func(t *testing.T) {
		store := newTestStore(t)
		id := NewConversationID("")

		assert.NoError(t, store.Create(id, ""))
		assert.Equal(t, filepath.Join(store.Dir(), id+".jsonl"), store.Path(id))
	})
}
