// Package session implements the Session Store: a durable
// per-session mapping of current stage, context, and message history,
// safe under concurrent access from multiple requests on the same
// session (serialized by the orchestrator; the store additionally guards
// its own file I/O with a mutex).
package session

import (
	"time"

	"github.com/google/uuid"
)

// Message is one entry in a session's append-only history.
type Message struct {
	Role     string // "user" or "assistant"
	Content  string
	Images   []string // base64 or path references
	Metadata map[string]any
}

// Session is the root entity: id, current stage, context, and history.
// current_stage only ever advances (enforced by Advance via Before;
// Store.Save persists whatever stage the session holds).
type Session struct {
	ID           string
	CurrentStage Stage
	Context      Context
	History      []Message
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// New creates a fresh session, generating an ID if none is supplied.
func New(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now()
	return &Session{
		ID:           id,
		CurrentStage: StageChannelName,
		Context:      NewContext(),
		History:      nil,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// AppendMessage appends to history; history is append-only.
func (s *Session) AppendMessage(m Message) {
	s.History = append(s.History, m)
	s.UpdatedAt = time.Now()
}

// Advance moves current_stage forward to at least target, refusing to
// move backward; rewinds are an explicit Reset call on the context, not
// a stage regression.
func (s *Session) Advance(target Stage) {
	if Before(s.CurrentStage, target) || s.CurrentStage == target {
		s.CurrentStage = target
		s.UpdatedAt = time.Now()
	}
}

// Clone returns a deep-enough copy for store round-tripping: history and
// context are independent slices/maps from the original.
func (s *Session) Clone() *Session {
	out := &Session{
		ID:           s.ID,
		CurrentStage: s.CurrentStage,
		Context:      s.Context.Clone(),
		History:      make([]Message, len(s.History)),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	copy(out.History, s.History)
	return out
}
