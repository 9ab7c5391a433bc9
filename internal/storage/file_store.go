package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/deusflow/dailydigest/internal/digest"
)

// FileStore writes the latest digest as a JSON document. Readers never see
// a partially written file.
type FileStore struct {
	filePath string
	mu       sync.Mutex
}

func NewFileStore(filePath string) *FileStore {
	return &FileStore{filePath: filePath}
}

func (fs *FileStore) Publish(ctx context.Context, d *digest.Digest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal digest: %w", err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir := filepath.Dir(fs.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".digest-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write digest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync digest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close digest: %w", err)
	}
	if err := os.Rename(tmp.Name(), fs.filePath); err != nil {
		return fmt.Errorf("failed to replace %s: %w", fs.filePath, err)
	}
	return nil
}

// Load reads back the last published digest.
func (fs *FileStore) Load() (*digest.Digest, error) {
	data, err := os.ReadFile(fs.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read digest file: %w", err)
	}
	var d digest.Digest
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal digest: %w", err)
	}
	return &d, nil
}
