// Package store keeps the durable state of the rental service: managed
// groups, entitlements, rosters and admin principals.
//
// Readers take an immutable *State from View without locking. Writers go
// through Mutate, which serializes on a single lock, applies the change to
// a private copy, writes the whole snapshot to disk and then publishes the
// new generation. A failed disk write is logged and retried by the next
// mutation (or Flush); the in-memory state stays authoritative.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

// PersistError reports a snapshot that could not be written
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist snapshot %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Store is the single authoritative state holder of the process
type Store struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	current atomic.Pointer[State]
	dirty   bool
}

// Open loads the snapshot at path. A missing file starts an empty store; an
// unreadable or malformed file is logged and also starts empty. Individually
// malformed records are skipped.
func Open(path string, logger *slog.Logger) *Store {
	s := &Store{path: path, logger: logger}
	s.current.Store(s.load())
	return s
}

// NewMemory returns a store that never touches disk
func NewMemory(logger *slog.Logger) *Store {
	s := &Store{logger: logger}
	s.current.Store(newState())
	return s
}

func (s *Store) load() *State {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Info("no snapshot found, starting fresh", "path", s.path)
		} else {
			s.logger.Error("failed to read snapshot, starting empty", "path", s.path, "error", err)
		}
		return newState()
	}

	state, err := decodeSnapshot(data, s.logger)
	if err != nil {
		s.logger.Error("failed to decode snapshot, starting empty", "path", s.path, "error", err)
		return newState()
	}

	s.logger.Info("snapshot loaded",
		"path", s.path,
		"groups", len(state.groups),
		"entitlements", len(state.Entitlements()),
		"admins", len(state.admins),
	)
	return state
}

// Path returns the snapshot location, empty for memory stores
func (s *Store) Path() string {
	return s.path
}

// View returns the current immutable state
func (s *Store) View() *State {
	return s.current.Load()
}

// Mutate applies fn to a private copy of the state under the writer lock.
// fn reports whether it changed anything; an error or no change discards
// the copy. Persistence failures are logged, never returned.
func (s *Store) Mutate(fn func(tx *Tx) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := begin(s.current.Load())
	changed, err := fn(tx)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	if err := s.persist(tx.State); err != nil {
		s.dirty = true
		s.logger.Error("snapshot write failed, keeping in-memory state", "error", err)
	} else {
		s.dirty = false
	}
	s.current.Store(tx.State)
	return nil
}

// Flush rewrites the snapshot if the last write failed
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	if err := s.persist(s.current.Load()); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

func (s *Store) persist(state *State) error {
	if s.path == "" {
		return nil
	}
	data, err := encodeSnapshot(state)
	if err != nil {
		return &PersistError{Path: s.path, Err: err}
	}
	if err := writeFileAtomic(s.path, data, 0o600); err != nil {
		return &PersistError{Path: s.path, Err: err}
	}
	return nil
}
