// Package store persists the event collection. The JSON document on disk is
// the system of record; the optional Postgres mirror serves downstream
// consumers.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/endou0310-byte/rindo/internal/event"
)

// Document is the on-disk shape of the event collection.
type Document struct {
	Updated string            `json:"updated"`
	Events  []event.Canonical `json:"events"`
}

// Load reads the event document and seeds a store from it. A missing file is
// a first run and yields an empty store; a corrupt file is an error, the
// caller must not clobber it.
func Load(path string) (*event.Store, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return event.NewStore(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read events %s: %w", path, err)
	}
	if len(raw) >= 3 && raw[0] == 0xEF && raw[1] == 0xBB && raw[2] == 0xBF {
		raw = raw[3:]
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode events %s: %w", path, err)
	}
	return event.Restore(doc.Updated, doc.Events), nil
}

// Save writes the whole document atomically: temp file in the target
// directory, then rename. A crash mid-run leaves the previous file intact.
func Save(path string, s *event.Store) error {
	doc := Document{Updated: s.Updated(), Events: s.Events()}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode events: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write events %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace events %s: %w", path, err)
	}
	return nil
}
