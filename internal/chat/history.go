// Package chat keeps the bounded conversation history that is replayed
// into each prompt, plus optional persistence of transcripts.
package chat

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"koda/internal/fileutil"

	"github.com/google/uuid"
)

// RoleUser and RoleAssistant are the two speaker roles recorded in
// history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultHistoryLimit is how many turns of history are kept for
// prompting when no explicit limit is configured.
const DefaultHistoryLimit = 10

// Turn is one utterance in the conversation.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// History accumulates turns and exposes a bounded tail for prompting.
// The full transcript is retained; only the prompt view is truncated.
type History struct {
	SessionID string    `json:"session_id"`
	StartTime time.Time `json:"start_time"`
	Turns     []Turn    `json:"turns"`

	limit int
}

// NewHistory creates an empty history with a fresh session ID.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{
		SessionID: uuid.NewString(),
		StartTime: time.Now(),
		limit:     limit,
	}
}

// Add appends a turn.
func (h *History) Add(role, content string) {
	h.Turns = append(h.Turns, Turn{Role: role, Content: content, Timestamp: time.Now()})
}

// Recent returns the last turns up to the configured limit, oldest
// first. The returned slice aliases the history and must not be
// mutated.
func (h *History) Recent() []Turn {
	limit := h.limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if len(h.Turns) <= limit {
		return h.Turns
	}
	return h.Turns[len(h.Turns)-limit:]
}

// Len reports the total number of recorded turns.
func (h *History) Len() int { return len(h.Turns) }

// Save writes the full transcript into dir as <session-id>.json.
func (h *History) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return err
	}

	return fileutil.WriteAtomic(filepath.Join(dir, h.SessionID+".json"), data, 0644)
}

// Load reads a transcript saved by Save. The prompt limit is not
// persisted and is taken from the argument.
func Load(dir, sessionID string, limit int) (*History, error) {
	data, err := os.ReadFile(filepath.Join(dir, sessionID+".json"))
	if err != nil {
		return nil, err
	}

	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	h.limit = limit
	return &h, nil
}

// List returns the session IDs with saved transcripts in dir.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var sessions []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		sessions = append(sessions, entry.Name()[:len(entry.Name())-5])
	}
	return sessions, nil
}
