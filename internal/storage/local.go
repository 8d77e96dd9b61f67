// Package storage persists uploaded document bytes on the local filesystem.
// In-flight uploads land in a staging directory and are promoted to a
// per-user permanent directory once the upload transaction commits.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// LocalStore writes document bytes under a single data directory
type LocalStore struct {
	stagingDir   string
	documentsDir string
}

// NewLocalStore creates the staging and documents directories under dataDir
func NewLocalStore(dataDir string) (*LocalStore, error) {
	s := &LocalStore{
		stagingDir:   filepath.Join(dataDir, "uploads"),
		documentsDir: filepath.Join(dataDir, "documents"),
	}

	for _, dir := range []string{s.stagingDir, s.documentsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}

	return s, nil
}

// Stage writes upload content to a fresh staging file and returns its path
func (s *LocalStore) Stage(content []byte) (string, error) {
	path := filepath.Join(s.stagingDir, uuid.New().String()+".txt")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write staging file: %w", err)
	}
	return path, nil
}

// Promote moves a staged file to the owner's permanent directory. The stored
// name is prefixed with a nanosecond timestamp so repeated uploads of the
// same filename never collide.
func (s *LocalStore) Promote(stagingPath string, userID int64, filename string) (string, error) {
	userDir := filepath.Join(s.documentsDir, strconv.FormatInt(userID, 10))
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create user directory: %w", err)
	}

	name := fmt.Sprintf("%d-%s", time.Now().UnixNano(), filepath.Base(filename))
	permanentPath := filepath.Join(userDir, name)

	if err := os.Rename(stagingPath, permanentPath); err != nil {
		return "", fmt.Errorf("failed to promote staged file: %w", err)
	}

	return permanentPath, nil
}

// Remove deletes a stored file. Used for compensation when a later upload
// step fails.
func (s *LocalStore) Remove(path string) error {
	return os.Remove(path)
}
