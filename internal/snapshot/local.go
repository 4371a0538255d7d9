package snapshot

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes snapshots under a base directory on the local filesystem.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates the base directory if needed.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("snapshot directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// PutObject writes the object to a file and returns a file:// URI.
func (s *LocalStore) PutObject(_ context.Context, objectPath string, _ string, data io.Reader) (string, error) {
	if strings.TrimSpace(objectPath) == "" {
		return "", fmt.Errorf("object path is required")
	}
	full := filepath.Join(s.baseDir, filepath.FromSlash(objectPath))

	// Reject names that escape the base directory.
	base := filepath.Clean(s.baseDir)
	if !strings.HasPrefix(filepath.Clean(full), base+string(filepath.Separator)) {
		return "", fmt.Errorf("object path escapes base directory")
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create object directory: %w", err)
	}
	body, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("read object data: %w", err)
	}
	if err := os.WriteFile(full, body, 0o644); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	return "file://" + full, nil
}
