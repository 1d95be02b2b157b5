package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
)

// Store maps session ids to sessions. Reads are concurrent; mutation is
// single-writer per session (the owning controller loop). Every update
// replaces the whole Session value, so readers never observe a torn update.
//
// When constructed with a directory, each session is additionally persisted
// as one JSON record, replaced atomically (temp file + rename), so progress
// polling survives a process restart.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]Session

	dir    string
	lock   *flock.Flock
	logger *logrus.Logger
}

// NewStore creates a store. dir may be empty for a purely in-memory store
// (used in tests); otherwise it is created on demand and holds one
// <id>.json record per session.
func NewStore(dir string, logger *logrus.Logger) *Store {
	s := &Store{
		sessions: make(map[string]Session),
		dir:      dir,
		logger:   logger,
	}
	if dir != "" {
		s.lock = flock.New(filepath.Join(dir, ".sessions.lock"))
	}
	return s
}

// Load restores previously persisted session records into memory.
func (s *Store) Load() error {
	if s.dir == "" {
		return nil
	}
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read session dir: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			s.logger.WithError(err).WithField("record", entry.Name()).Warn("Skipping unreadable session record")
			continue
		}
		var sess Session
		if err := json.Unmarshal(data, &sess); err != nil {
			s.logger.WithError(err).WithField("record", entry.Name()).Warn("Skipping corrupt session record")
			continue
		}
		if sess.ID == "" {
			continue
		}
		s.sessions[sess.ID] = sess
	}
	s.logger.WithField("count", len(s.sessions)).Debug("Loaded session records")
	return nil
}

// Put replaces the stored value for sess.ID and persists the record.
func (s *Store) Put(sess Session) error {
	sess.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	if s.dir == "" {
		return nil
	}
	return s.persist(sess)
}

// Get returns a deep copy of the session, or NotFoundError.
func (s *Store) Get(id string) (Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return Session{}, &NotFoundError{ID: id}
	}
	return sess.Clone(), nil
}

// List returns copies of all sessions, newest first.
func (s *Store) List() []Session {
	s.mu.RLock()
	out := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Delete removes the session and its durable record.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return &NotFoundError{ID: id}
	}
	if s.dir == "" {
		return nil
	}
	if err := os.Remove(s.recordPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session record: %w", err)
	}
	return nil
}

func (s *Store) recordPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// persist writes the record atomically: marshal, write a temp file, rename
// over the destination. A file lock serialises writers across processes.
func (s *Store) persist(sess Session) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock session dir: %w", err)
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.WithError(err).Warn("Failed to unlock session dir")
		}
	}()

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, sess.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp record: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write session record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close session record: %w", err)
	}
	if err := os.Rename(tmpName, s.recordPath(sess.ID)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace session record: %w", err)
	}
	return nil
}
