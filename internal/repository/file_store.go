package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/iliyamo/match-session-planner/internal/model"
)

// FileStore keeps the snapshot in a single JSON document on disk.  The
// file is created with empty collections the first time it is opened.
// Writes go to a temporary file in the same directory that is renamed
// over the original, so readers never observe a half-written document.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a FileStore for path and makes sure the file
// exists.  Missing parent directories are created.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the location of the backing file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) init() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat data file: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir data dir: %w", err)
		}
	}
	return s.write(normalize(model.Snapshot{}))
}

// LoadAll reads and decodes the whole file.
func (s *FileStore) LoadAll(ctx context.Context) (model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return normalize(model.Snapshot{}), nil
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("read data file: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return normalize(model.Snapshot{}), nil
	}
	var snap model.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return normalize(snap), nil
}

// SaveAll encodes snap and atomically replaces the file.
func (s *FileStore) SaveAll(ctx context.Context, snap model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(normalize(snap))
}

// dataFileMode is the permission of the data file after every save.
const dataFileMode os.FileMode = 0o644

func (s *FileStore) write(snap model.Snapshot) error {
	// two-space indent keeps the file diffable by hand
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".data-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmp.Name())
		}
	}()
	// CreateTemp uses 0600; the data file stays readable like any other document
	if err := tmp.Chmod(dataFileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}
	committed = true
	return nil
}
