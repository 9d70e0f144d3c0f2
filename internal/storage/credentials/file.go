package credentials

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists credentials to a JSON file. The default backend: a
// single small file keyed by credential name, written with 0600 perms.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

// NewFileStore creates a store that persists to the given path. The
// directory is created automatically on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// read loads the credential map from disk. A missing or corrupt file is
// treated as empty, matching web-storage semantics.
func (s *FileStore) read() map[string]string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return map[string]string{}
	}
	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil || values == nil {
		return map[string]string{}
	}
	return values
}

func (s *FileStore) write(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

func (s *FileStore) Get(_ context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read()[name], nil
}

func (s *FileStore) Set(_ context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := s.read()
	values[name] = value
	return s.write(values)
}

func (s *FileStore) Clear(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := s.read()
	if _, ok := values[name]; !ok {
		return nil
	}
	delete(values, name)
	return s.write(values)
}

func (s *FileStore) Close() error {
	return nil
}
