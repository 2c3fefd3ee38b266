package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/kadirpekel/studioforge/errs"
)

// Store is the durable session_id -> Session mapping.
type Store interface {
	GetOrCreate(id string) (*Session, error)
	Save(s *Session) error
	Load(id string) (*Session, error)
	Delete(id string) error
}

// FileStore persists one JSON file per session under a directory. It is
// safe under concurrent access from multiple requests on the same
// session_id: the orchestrator serializes processing per session, but the
// store still guards its own file I/O with a mutex so a stray concurrent
// Save/Load from two goroutines cannot interleave writes.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore builds a Store backed by dir, creating it if necessary.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.New(errs.ResourceError, "session.store.init", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (fs *FileStore) path(id string) string {
	return filepath.Join(fs.dir, id+".json")
}

type wireSession struct {
	ID           string         `json:"id"`
	CurrentStage Stage          `json:"current_stage"`
	Context      map[string]any `json:"context"`
	History      []Message      `json:"history"`
	CreatedAtRFC string         `json:"created_at"`
	UpdatedAtRFC string         `json:"updated_at"`
}

// GetOrCreate loads an existing session or creates and persists a new one.
func (fs *FileStore) GetOrCreate(id string) (*Session, error) {
	s, err := fs.Load(id)
	if err == nil {
		return s, nil
	}
	s = New(id)
	if err := fs.Save(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Save performs a full replace of the session's persisted state.
func (fs *FileStore) Save(s *Session) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	w := wireSession{
		ID:           s.ID,
		CurrentStage: s.CurrentStage,
		Context:      map[string]any(s.Context),
		History:      s.History,
		CreatedAtRFC: s.CreatedAt.Format(rfc3339Milli),
		UpdatedAtRFC: s.UpdatedAt.Format(rfc3339Milli),
	}
	raw, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return errs.New(errs.InvariantViolation, "session.save", s.ID, err)
	}
	if err := os.WriteFile(fs.path(s.ID), raw, 0o644); err != nil {
		return errs.New(errs.ResourceError, "session.save", s.ID, err)
	}
	return nil
}

// Load reads a session back from disk.
func (fs *FileStore) Load(id string) (*Session, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	raw, err := os.ReadFile(fs.path(id))
	if err != nil {
		return nil, errs.New(errs.ResourceError, "session.load", id, err)
	}
	var w wireSession
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, errs.New(errs.InvariantViolation, "session.load", id, err)
	}
	s := &Session{
		ID:           w.ID,
		CurrentStage: w.CurrentStage,
		Context:      Context(w.Context),
		History:      w.History,
	}
	if s.Context == nil {
		s.Context = NewContext()
	}
	s.CreatedAt, _ = parseRFC3339Milli(w.CreatedAtRFC)
	s.UpdatedAt, _ = parseRFC3339Milli(w.UpdatedAtRFC)
	return s, nil
}

// Delete removes the session's persisted file. Caller is responsible for
// also removing derived asset directories and the progress bus entry.
func (fs *FileStore) Delete(id string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.Remove(fs.path(id)); err != nil && !os.IsNotExist(err) {
		return errs.New(errs.ResourceError, "session.delete", id, err)
	}
	return nil
}
