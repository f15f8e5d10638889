// Package snapshot is the persisted key-value blob store used to warm the
// in-memory caches on startup. It is never authoritative; provider data
// always wins.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound indicates no blob is stored under the key.
var ErrNotFound = errors.New("snapshot: not found")

// Store persists JSON blobs by key.
type Store interface {
	Load(ctx context.Context, key string, v any) error
	Save(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, key string) error
}

// FileStore keeps each blob in its own JSON file under a directory.
type FileStore struct {
	Dir string
}

// Load unmarshals the blob stored under key into v.
func (s *FileStore) Load(ctx context.Context, key string, v any) error {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read snapshot %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode snapshot %s: %w", key, err)
	}
	return nil
}

// Save marshals v and writes it under key.
func (s *FileStore) Save(ctx context.Context, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot %s: %w", key, err)
	}
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	if err := os.WriteFile(p, data, 0600); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", key, err)
	}
	return nil
}

// Delete removes the blob stored under key, if any.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete snapshot %s: %w", key, err)
	}
	return nil
}

// path flattens the key into a single file name; keys use "/" as a logical
// separator.
func (s *FileStore) path(key string) string {
	return filepath.Join(s.Dir, strings.ReplaceAll(key, "/", "-")+".json")
}
