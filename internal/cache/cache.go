// Package cache persists HTTP responses on disk so repeated runs can
// revalidate the model feed instead of re-downloading it.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Entry is one cached HTTP response together with the validators
// needed for a conditional refetch.
type Entry struct {
	Body         []byte    `json:"body"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	Status       int       `json:"status"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// Store is a TTL-based response cache rooted at a directory. Keys are
// hashed, so any string (normally the request URL) works.
type Store struct {
	dir string
	ttl time.Duration
}

// Open prepares a cache directory for use.
func Open(dir string, ttl time.Duration) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return &Store{dir: dir, ttl: ttl}, nil
}

// Get returns the entry for key and whether it is still fresh. A stale
// entry comes back with fresh=false so the caller can reuse its ETag
// and Last-Modified validators for a conditional request.
func (s *Store) Get(key string) (*Entry, bool) {
	path := s.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		os.Remove(path)
		return nil, false
	}

	if time.Since(entry.FetchedAt) > s.ttl {
		return &entry, false
	}
	return &entry, true
}

// Set stores an entry under key, stamping it with the current time.
func (s *Store) Set(key string, entry *Entry) error {
	entry.FetchedAt = time.Now()
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// path fans entries out into 256 subdirectories to keep any single
// directory listing small.
func (s *Store) path(key string) string {
	h := sha256.Sum256([]byte(key))
	name := hex.EncodeToString(h[:])
	return filepath.Join(s.dir, name[:2], name[2:])
}
