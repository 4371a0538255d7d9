// Package fingerprint persists per-URL fetch fingerprints so unchanged pages
// can be skipped on later runs.
package fingerprint

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Fingerprint records the validators observed on the last fetch of a URL.
type Fingerprint struct {
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	Length       int    `json:"length"`
	SHA1         string `json:"sha1"`
	CheckedAt    string `json:"checked_at"`
}

// HashBody returns the content hash used in fingerprints.
func HashBody(body []byte) string {
	sum := sha1.Sum(body)
	return hex.EncodeToString(sum[:])
}

// Matches reports whether other describes unchanged content: the HTTP
// validators must agree when both sides carry them, and length and content
// hash must agree. Any mismatch forces reprocessing.
func (f Fingerprint) Matches(other Fingerprint) bool {
	if f.ETag != "" && other.ETag != "" && f.ETag != other.ETag {
		return false
	}
	if f.LastModified != "" && other.LastModified != "" && f.LastModified != other.LastModified {
		return false
	}
	return f.Length == other.Length && f.SHA1 == other.SHA1
}

// Store is the persisted URL → fingerprint map. It is loaded once at run
// start and flushed once at run end with an atomic whole-file rewrite, so a
// crash mid-run loses at most the current run's progress.
type Store struct {
	mu   sync.RWMutex
	path string
	data map[string]Fingerprint
}

// Load reads the store document from path. A missing file yields an empty
// store; a present-but-unreadable file is a fatal store error.
func Load(path string) (*Store, error) {
	s := &Store{path: path, data: make(map[string]Fingerprint)}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read fingerprint store %s: %w", path, err)
	}
	raw = stripBOM(raw)
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("decode fingerprint store %s: %w", path, err)
	}
	return s, nil
}

// Get returns the fingerprint recorded for url, if any.
func (s *Store) Get(url string) (Fingerprint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fp, ok := s.data[url]
	return fp, ok
}

// Put records the fingerprint for url.
func (s *Store) Put(url string, fp Fingerprint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[url] = fp
}

// Touch refreshes only checked_at for url, preserving the stored validators.
// Used when a conditional fetch reports unchanged content.
func (s *Store) Touch(url string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fp, ok := s.data[url]
	if !ok {
		return
	}
	fp.CheckedAt = now.Format(time.RFC3339)
	s.data[url] = fp
}

// Len returns the number of tracked URLs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Flush rewrites the whole document atomically (temp file + rename).
func (s *Store) Flush() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create fingerprint dir: %w", err)
	}
	payload, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fingerprint store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return fmt.Errorf("write fingerprint store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace fingerprint store: %w", err)
	}
	return nil
}

func stripBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}
