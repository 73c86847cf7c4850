// Package file persists the working-state snapshot as a single JSON
// document on local disk. Writes go through a temp file plus rename so a
// crash mid-write never truncates the previous good snapshot.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"agrocore/pkg/domain"
)

// Sink stores the snapshot at a fixed path.
type Sink struct {
	path string
}

// NewSink creates the parent directory if needed and returns a sink bound to
// path.
func NewSink(path string) (*Sink, error) {
	if path == "" {
		return nil, fmt.Errorf("file sink: empty path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("file sink: create dir: %w", err)
		}
	}
	return &Sink{path: path}, nil
}

// Save atomically replaces the snapshot document.
func (s *Sink) Save(ctx context.Context, snap domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("file sink: encode: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("file sink: write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("file sink: rename: %w", err)
	}
	return nil
}

// Load reads the snapshot document. A missing file reports ok=false without
// error; a corrupt document reports the decode error so the caller can fall
// back to an empty state with a warning.
func (s *Sink) Load(ctx context.Context) (domain.Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, false, err
	}
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Snapshot{}, false, nil
		}
		return domain.Snapshot{}, false, fmt.Errorf("file sink: read: %w", err)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("file sink: decode: %w", err)
	}
	return snap, true, nil
}

// Close is a no-op; the sink holds no open handles between writes.
func (s *Sink) Close() error { return nil }
