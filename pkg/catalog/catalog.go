package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/forgeo/forgeoagent/pkg/transcript"
)

var (
	// ErrNotFound is returned when the named agent does not exist.
	ErrNotFound = errors.New("agent not found")

	// ErrExists is returned when saving over an existing agent without overwrite.
	ErrExists = errors.New("agent already exists")
)

// AgentInfo describes one saved agent.
type AgentInfo struct {
	Name           string    `json:"name"`
	ConversationID string    `json:"conversation_id"`
	Model          string    `json:"model"`
	Description    string    `json:"description,omitempty"`
	SavedAt        time.Time `json:"saved_at"`
	TurnCount      int       `json:"turn_count"`
}

// SaveRequest names the conversation to snapshot and how to file it.
type SaveRequest struct {
	Name           string
	ConversationID string
	Model          string
	Description    string
	Overwrite      bool
}

// Catalog persists named agent snapshots: a SQLite index plus one
// directory per agent holding the transcript copy and a metadata file.
type Catalog struct {
	db          *sql.DB
	dir         string
	transcripts *transcript.Store
	logger      zerolog.Logger
}

// Config holds catalog dependencies.
type Config struct {
	Dir         string
	Database    string
	Transcripts *transcript.Store
	Logger      zerolog.Logger
}

// New opens (creating if needed) the catalog database and directory.
func New(cfg Config) (*Catalog, error) {
	if cfg.Dir == "" {
		return nil, errors.New("catalog directory is required")
	}
	if cfg.Database == "" {
		return nil, errors.New("catalog database path is required")
	}
	if cfg.Transcripts == nil {
		return nil, errors.New("transcript store is required")
	}

	if err := os.MkdirAll(cfg.Dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	c := &Catalog{
		db:          db,
		dir:         cfg.Dir,
		transcripts: cfg.Transcripts,
		logger:      cfg.Logger,
	}

	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}

	return c, nil
}

func (c *Catalog) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS agents (
			name TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			model TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			saved_at INTEGER NOT NULL,
			turn_count INTEGER NOT NULL
		);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Close closes the catalog database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Save snapshots a conversation under an agent name. The transcript file
// is copied, so later turns in the live conversation do not mutate the
// saved agent.
func (c *Catalog) Save(ctx context.Context, req SaveRequest) (*AgentInfo, error) {
	if err := validateAgentName(req.Name); err != nil {
		return nil, err
	}

	if !req.Overwrite {
		var exists int
		err := c.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM agents WHERE name = ?", req.Name).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("failed to check agent existence: %w", err)
		}
		if exists > 0 {
			return nil, fmt.Errorf("%w: %s", ErrExists, req.Name)
		}
	}

	turns, err := c.transcripts.LoadPriorTurns(ctx, req.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	if len(turns) == 0 {
		return nil, fmt.Errorf("conversation %s has no turns to save", req.ConversationID)
	}

	agentDir := filepath.Join(c.dir, req.Name)
	if err := os.MkdirAll(agentDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create agent directory: %w", err)
	}

	if err := copyFile(c.transcripts.Path(req.ConversationID), filepath.Join(agentDir, "main_agent.jsonl")); err != nil {
		return nil, fmt.Errorf("failed to snapshot transcript: %w", err)
	}

	info := &AgentInfo{
		Name:           req.Name,
		ConversationID: req.ConversationID,
		Model:          req.Model,
		Description:    req.Description,
		SavedAt:        time.Now().UTC(),
		TurnCount:      len(turns),
	}

	metaPath := filepath.Join(agentDir, "metadata.json")
	metaData, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode agent metadata: %w", err)
	}
	if err := os.WriteFile(metaPath, metaData, 0600); err != nil {
		return nil, fmt.Errorf("failed to write agent metadata: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO agents (name, conversation_id, model, description, saved_at, turn_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			conversation_id = excluded.conversation_id,
			model = excluded.model,
			description = excluded.description,
			saved_at = excluded.saved_at,
			turn_count = excluded.turn_count
	`, info.Name, info.ConversationID, info.Model, info.Description, info.SavedAt.Unix(), info.TurnCount)
	if err != nil {
		return nil, fmt.Errorf("failed to index agent: %w", err)
	}

	c.logger.Info().
		Str("agent", req.Name).
		Str("conversationId", req.ConversationID).
		Int("turns", info.TurnCount).
		Msg("Agent saved")

	return info, nil
}

// Get returns the catalog entry for one agent.
func (c *Catalog) Get(ctx context.Context, name string) (*AgentInfo, error) {
	if err := validateAgentName(name); err != nil {
		return nil, err
	}

	row := c.db.QueryRowContext(ctx, `
		SELECT name, conversation_id, model, description, saved_at, turn_count
		FROM agents WHERE name = ?
	`, name)

	info, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read agent: %w", err)
	}
	return info, nil
}

// List returns every saved agent, newest first.
func (c *Catalog) List(ctx context.Context) ([]AgentInfo, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT name, conversation_id, model, description, saved_at, turn_count
		FROM agents ORDER BY saved_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	var agents []AgentInfo
	for rows.Next() {
		info, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read agent row: %w", err)
		}
		agents = append(agents, *info)
	}
	return agents, rows.Err()
}

// TranscriptPath returns the saved agent's snapshot transcript path.
func (c *Catalog) TranscriptPath(name string) string {
	return filepath.Join(c.dir, name, "main_agent.jsonl")
}

// LoadTurns reads the saved agent's snapshot as conversation turns, for
// replay as prior context in a new conversation.
func (c *Catalog) LoadTurns(ctx context.Context, name string) ([]transcript.Turn, error) {
	info, err := c.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(c.TranscriptPath(info.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to open agent snapshot: %w", err)
	}
	defer file.Close()

	return transcript.DecodeTurns(file)
}

// Delete removes the agent from the index and deletes its directory.
func (c *Catalog) Delete(ctx context.Context, name string) error {
	if err := validateAgentName(name); err != nil {
		return err
	}

	result, err := c.db.ExecContext(ctx, "DELETE FROM agents WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	if err := os.RemoveAll(filepath.Join(c.dir, name)); err != nil {
		return fmt.Errorf("failed to remove agent directory: %w", err)
	}

	c.logger.Info().Str("agent", name).Msg("Agent deleted")
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAgent(row rowScanner) (*AgentInfo, error) {
	var info AgentInfo
	var savedAt int64
	if err := row.Scan(&info.Name, &info.ConversationID, &info.Model,
		&info.Description, &savedAt, &info.TurnCount); err != nil {
		return nil, err
	}
	info.SavedAt = time.Unix(savedAt, 0).UTC()
	return &info, nil
}

func validateAgentName(name string) error {
	if name == "" {
		return errors.New("agent name cannot be empty")
	}
	if strings.ContainsAny(name, "/\\\x00") || name == "." || name == ".." {
		return fmt.Errorf("invalid agent name: %s", name)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
