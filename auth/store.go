package auth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Store persists the session.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Every successful write increments Session.Version.
//   - ClearIf clears only when the stored version equals version and
//     reports whether it did.
type Store interface {
	Load(ctx context.Context) (Session, error)
	SelectProject(ctx context.Context, tenantID, projectID, apiKey string) error
	SetToken(ctx context.Context, token string) error
	ClearIf(ctx context.Context, version uint64) (bool, error)
}

// MemoryStore keeps the session in memory.
type MemoryStore struct {
	mu      sync.Mutex
	session Session
}

// NewMemoryStore creates a store holding initial.
func NewMemoryStore(initial Session) *MemoryStore {
	return &MemoryStore{session: initial}
}

// Load returns the current session.
func (s *MemoryStore) Load(_ context.Context) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session, nil
}

// SelectProject stores the selected project's API key.
func (s *MemoryStore) SelectProject(_ context.Context, tenantID, projectID, apiKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = applySelect(s.session, tenantID, projectID, apiKey)
	return nil
}

// SetToken stores the bearer token.
func (s *MemoryStore) SetToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Token = token
	s.session.Version++
	return nil
}

// ClearIf clears the session if it is still at version.
func (s *MemoryStore) ClearIf(_ context.Context, version uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Version != version {
		return false, nil
	}
	s.session = Session{Version: version + 1}
	return true, nil
}

// FileStore persists the session as YAML. It serializes writers within one
// process; the file is rewritten atomically via rename.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Load reads the session; a missing file is an empty session.
func (s *FileStore) Load(_ context.Context) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

// SelectProject stores the selected project's API key.
func (s *FileStore) SelectProject(_ context.Context, tenantID, projectID, apiKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.readLocked()
	if err != nil {
		return err
	}
	return s.writeLocked(applySelect(sess, tenantID, projectID, apiKey))
}

// SetToken stores the bearer token.
func (s *FileStore) SetToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.readLocked()
	if err != nil {
		return err
	}
	sess.Token = token
	sess.Version++
	return s.writeLocked(sess)
}

// ClearIf clears the session if it is still at version.
func (s *FileStore) ClearIf(_ context.Context, version uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.readLocked()
	if err != nil {
		return false, err
	}
	if sess.Version != version {
		return false, nil
	}
	return true, s.writeLocked(Session{Version: version + 1})
}

func (s *FileStore) readLocked() (Session, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("auth: read session: %w", err)
	}
	var sess Session
	if err := yaml.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("auth: parse session: %w", err)
	}
	return sess, nil
}

func (s *FileStore) writeLocked(sess Session) error {
	data, err := yaml.Marshal(sess)
	if err != nil {
		return fmt.Errorf("auth: encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("auth: create session dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("auth: write session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("auth: write session: %w", err)
	}
	return nil
}

func applySelect(sess Session, tenantID, projectID, apiKey string) Session {
	sess.TenantID = tenantID
	sess.ProjectID = projectID
	sess.APIKey = apiKey
	sess.Version++
	return sess
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*FileStore)(nil)
)
