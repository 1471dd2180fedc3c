// Package jsonfile keeps the ledger snapshot in a single JSON document.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"ledgerlite/internal/core"
)

const formatVersion = 1

type document struct {
	Version int `json:"version"`
	core.Snapshot
}

// Store reads and writes a snapshot file. Writes go to a temporary file in
// the same directory which then replaces the target, so a crash never leaves
// a half-written snapshot behind.
type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// LoadAll returns an empty snapshot when the file does not exist yet.
func (s *Store) LoadAll(ctx context.Context) (core.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return core.Snapshot{}, fmt.Errorf("%w: %v", core.ErrIO, err)
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return core.Snapshot{}, nil
	}
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("%w: read %s: %v", core.ErrIO, s.path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return core.Snapshot{}, fmt.Errorf("%w: decode %s: %v", core.ErrCorruptState, s.path, err)
	}
	if doc.Version != formatVersion {
		return core.Snapshot{}, fmt.Errorf("%w: %s has format version %d, want %d", core.ErrCorruptState, s.path, doc.Version, formatVersion)
	}
	return doc.Snapshot, nil
}

func (s *Store) SaveAll(ctx context.Context, snap core.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrIO, err)
	}
	data, err := json.MarshalIndent(document{Version: formatVersion, Snapshot: snap}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode snapshot: %v", core.ErrIO, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", core.ErrIO, dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".ledger-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", core.ErrIO, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %v", core.ErrIO, tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync %s: %v", core.ErrIO, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", core.ErrIO, tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: replace %s: %v", core.ErrIO, s.path, err)
	}
	return nil
}
