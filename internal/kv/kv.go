// Package kv provides the durable key-value storage used by the state
// stores. Backends are swappable behind the Store interface; only two keys
// exist in practice ("user" and "registeredEvents") so the contract stays
// deliberately small.
package kv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
)

// ErrKeyNotFound is returned when a key has never been written. Absence is
// a valid initial state for every key in this system.
var ErrKeyNotFound = errors.New("key not found")

// Store is the narrow persistence port. Values are opaque bytes; callers
// own the encoding.
type Store interface {
	// Get returns the value stored under key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set durably stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error
}

// FileStore keeps each key in its own file under a base directory. It is
// the default backend and the closest analog to origin-scoped browser
// storage: survives restarts, no expiry.
type FileStore struct {
	dir string
}

// NewFileStore creates the base directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Get reads the file for key.
func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return data, nil
}

// Set writes to a temp file then renames, so readers never observe a
// partial write.
func (s *FileStore) Set(_ context.Context, key string, value []byte) error {
	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path(key))
}

// Delete removes the file for key.
func (s *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
