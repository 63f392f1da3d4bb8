package config

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Source provides configuration values by key.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Lookup returns ok=false when the source has no value for key; an
//     error means the source itself is broken.
type Source interface {
	Name() string
	Lookup(ctx context.Context, key string) (value string, ok bool, err error)
}

// MapSource is a fixed set of values.
type MapSource struct {
	name   string
	values map[string]string
}

// NewMapSource copies values into a new fixed source.
func NewMapSource(name string, values map[string]string) *MapSource {
	cp := make(map[string]string, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return &MapSource{name: name, values: cp}
}

// Name returns the source name.
func (s *MapSource) Name() string { return s.name }

// Lookup returns the value for key; empty values count as absent.
func (s *MapSource) Lookup(_ context.Context, key string) (string, bool, error) {
	v, ok := s.values[key]
	return v, ok && v != "", nil
}

// RuntimeSource holds values injected while the process runs.
type RuntimeSource struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewRuntimeSource creates an empty runtime source.
func NewRuntimeSource() *RuntimeSource {
	return &RuntimeSource{values: make(map[string]string)}
}

// Name returns "runtime".
func (s *RuntimeSource) Name() string { return "runtime" }

// Set injects a value. An empty value removes the key.
func (s *RuntimeSource) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == "" {
		delete(s.values, key)
		return
	}
	s.values[key] = value
}

// Lookup returns the injected value for key.
func (s *RuntimeSource) Lookup(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

// FileSource reads a flat YAML mapping of keys to strings. The file is
// re-read whenever its size or modification time changes; a missing file
// provides no values.
type FileSource struct {
	path string

	mu      sync.Mutex
	modTime time.Time
	size    int64
	values  map[string]string
}

// NewFileSource creates a source backed by the YAML file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name returns "file:<path>".
func (s *FileSource) Name() string { return "file:" + s.path }

// Lookup returns the value for key from the current file contents.
func (s *FileSource) Lookup(_ context.Context, key string) (string, bool, error) {
	values, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok && v != "", nil
}

func (s *FileSource) load() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		s.values = nil
		s.modTime = time.Time{}
		s.size = 0
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: stat %s: %w", s.path, err)
	}
	if s.values != nil && info.ModTime().Equal(s.modTime) && info.Size() == s.size {
		return s.values, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", s.path, err)
	}
	values := make(map[string]string)
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", s.path, err)
	}

	s.values = values
	s.modTime = info.ModTime()
	s.size = info.Size()
	return values, nil
}

// EnvSource looks keys up as environment variables after applying a prefix
// and upper-casing, e.g. "api_base_url" -> "ABCLIENT_API_BASE_URL".
type EnvSource struct {
	prefix string
}

// NewEnvSource creates an environment source with the given prefix.
func NewEnvSource(prefix string) *EnvSource {
	return &EnvSource{prefix: prefix}
}

// Name returns "env".
func (s *EnvSource) Name() string { return "env" }

// Lookup reads the environment variable for key.
func (s *EnvSource) Lookup(_ context.Context, key string) (string, bool, error) {
	v, ok := os.LookupEnv(EnvName(s.prefix, key))
	return v, ok && v != "", nil
}

var (
	_ Source = (*MapSource)(nil)
	_ Source = (*RuntimeSource)(nil)
	_ Source = (*FileSource)(nil)
	_ Source = (*EnvSource)(nil)
)
