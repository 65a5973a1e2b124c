package transcript

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/forgeo/forgeoagent/internal/observability"
)

// Turn roles. Gemini's naming is used throughout: the assistant side of a
// conversation is "model".
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is a single conversation turn.
type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Metadata is the header line written when a conversation file is created.
type Metadata struct {
	ConversationID string    `json:"conversation_id"`
	Model          string    `json:"model,omitempty"`
	StartTime      time.Time `json:"start_time"`
}

// record is the on-disk line format. Type distinguishes the metadata
// header from turns so readers can skip what they don't understand.
type record struct {
	Type     string    `json:"type"` // "meta" or "turn"
	Metadata *Metadata `json:"metadata,omitempty"`
	Turn     *Turn     `json:"turn,omitempty"`
}

// Store manages conversation transcripts under a single directory.
type Store struct {
	dir        string
	logger     zerolog.Logger
	writeLocks map[string]*sync.Mutex
	locksMu    sync.Mutex
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string, logger zerolog.Logger) (*Store, error) {
	observability.EnsureRegistered()

	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(homeDir, ".forgeo", "transcripts")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create transcripts directory: %w", err)
	}

	logger.Info().Str("dir", dir).Msg("Transcript store initialized")

	return &Store{
		dir:        dir,
		logger:     logger,
		writeLocks: make(map[string]*sync.Mutex),
	}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// validateConversationID rejects ids that could escape the store directory.
func validateConversationID(conversationID string) error {
	if conversationID == "" {
		return fmt.Errorf("conversation id cannot be empty")
	}
	if strings.Contains(conversationID, "..") {
		return fmt.Errorf("conversation id cannot contain '..'")
	}
	if strings.ContainsAny(conversationID, "/\\") {
		return fmt.Errorf("conversation id cannot contain path separators")
	}
	if strings.Contains(conversationID, "\x00") {
		return fmt.Errorf("conversation id cannot contain null bytes")
	}
	return nil
}

// Path returns the transcript file path for a conversation.
func (s *Store) Path(conversationID string) string {
	return filepath.Join(s.dir, conversationID+".jsonl")
}

func (s *Store) getWriteLock(conversationID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	if lock, exists := s.writeLocks[conversationID]; exists {
		return lock
	}
	lock := &sync.Mutex{}
	s.writeLocks[conversationID] = lock
	return lock
}

// Create writes the metadata header for a new conversation. Creating an
// existing conversation is a no-op.
func (s *Store) Create(conversationID, model string) error {
	if err := validateConversationID(conversationID); err != nil {
		return err
	}

	lock := s.getWriteLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	return s.createLocked(conversationID, model)
}

func (s *Store) createLocked(conversationID, model string) error {
	path := s.Path(conversationID)
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create transcript file: %w", err)
	}
	defer file.Close()

	header := record{
		Type: "meta",
		Metadata: &Metadata{
			ConversationID: conversationID,
			Model:          model,
			StartTime:      time.Now(),
		},
	}
	data, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync transcript file: %w", err)
	}

	s.logger.Info().Str("conversationId", conversationID).Msg("Transcript created")
	return nil
}

// AppendTurn appends one turn to a conversation, creating the file (with
// its metadata header) if needed. The write is serialized per conversation
// and fsynced before returning.
func (s *Store) AppendTurn(ctx context.Context, conversationID, role, text string) error {
	if err := validateConversationID(conversationID); err != nil {
		return err
	}
	if role != RoleUser && role != RoleModel {
		return fmt.Errorf("invalid turn role: %s", role)
	}
	if text == "" {
		return fmt.Errorf("turn text cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	defer func() {
		observability.RecordTranscriptAppend(time.Since(start))
	}()

	lock := s.getWriteLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.createLocked(conversationID, ""); err != nil {
		return err
	}

	file, err := os.OpenFile(s.Path(conversationID), os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open transcript file: %w", err)
	}
	defer file.Close()

	entry := record{
		Type: "turn",
		Turn: &Turn{
			Role:      role,
			Text:      text,
			Timestamp: time.Now(),
		},
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}
	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write turn: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync transcript file: %w", err)
	}

	s.logger.Debug().
		Str("conversationId", conversationID).
		Str("role", role).
		Msg("Turn appended")

	return nil
}

// LoadPriorTurns returns all turns of a conversation in order. Corrupted
// lines are skipped with a warning rather than failing the whole load. A
// missing conversation yields an empty slice.
func (s *Store) LoadPriorTurns(ctx context.Context, conversationID string) ([]Turn, error) {
	if err := validateConversationID(conversationID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		observability.RecordTranscriptLoad(time.Since(start))
	}()

	path := s.Path(conversationID)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return []Turn{}, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript file: %w", err)
	}
	defer file.Close()

	var turns []Turn
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}

		var entry record
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			s.logger.Warn().
				Str("conversationId", conversationID).
				Int("line", lineNum).
				Err(err).
				Msg("Failed to parse transcript line, skipping")
			continue
		}

		if entry.Type != "turn" || entry.Turn == nil {
			continue
		}
		if entry.Turn.Role == "" || entry.Turn.Text == "" {
			s.logger.Warn().
				Str("conversationId", conversationID).
				Int("line", lineNum).
				Msg("Invalid turn, skipping")
			continue
		}

		turns = append(turns, *entry.Turn)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transcript file: %w", err)
	}

	return turns, nil
}

// List returns all conversation ids in the store.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read transcripts directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".jsonl"))
	}

	return ids, nil
}

// Delete removes a conversation's transcript file.
func (s *Store) Delete(conversationID string) error {
	if err := validateConversationID(conversationID); err != nil {
		return err
	}

	lock := s.getWriteLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	if err := os.Remove(s.Path(conversationID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete transcript file: %w", err)
	}

	s.locksMu.Lock()
	delete(s.writeLocks, conversationID)
	s.locksMu.Unlock()

	s.logger.Info().Str("conversationId", conversationID).Msg("Transcript deleted")
	return nil
}
