package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore writes all values to a single JSON object on disk.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore builds a FileStore rooted at the provided path. The file is
// created on the first Set.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Get reads name from disk. A missing file resolves to ok=false.
func (s *FileStore) Get(_ context.Context, name string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", false, err
	}
	value, ok := values[name]
	return value, ok, nil
}

// Set persists name with restricted permissions. The previous file is
// replaced through a rename so a crash never leaves half-written JSON.
func (s *FileStore) Set(ctx context.Context, name, value string) error {
	return s.SetMany(ctx, map[string]string{name: value})
}

// SetMany merges values into the file with a single rename.
func (s *FileStore) SetMany(_ context.Context, updates map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	for name, value := range updates {
		values[name] = value
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("ensure token store directory: %w", err)
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write token store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace token store: %w", err)
	}
	return nil
}

// Path returns the JSON file backing the store.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read token store: %w", err)
	}

	values := map[string]string{}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode token store: %w", err)
	}
	return values, nil
}

var (
	_ CloseableStore = (*FileStore)(nil)
	_ Batcher        = (*FileStore)(nil)
)
