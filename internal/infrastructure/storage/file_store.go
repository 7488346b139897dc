package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"NewsRelay/internal/ports"
	"NewsRelay/internal/state"
)

// FileStore keeps the relay state as a JSON document on disk. A missing
// file loads as empty state, which triggers the bootstrap run.
type FileStore struct {
	path     string
	capacity int
}

var _ ports.StateStore = (*FileStore)(nil)

// NewFileStore wires the document path and seen-set capacity.
func NewFileStore(path string, capacity int) *FileStore {
	if capacity <= 0 {
		capacity = state.DefaultCapacity
	}
	return &FileStore{path: path, capacity: capacity}
}

// Load reads and decodes the state document.
func (f *FileStore) Load(ctx context.Context) (*state.State, error) {
	raw, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return state.New(f.capacity), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	st, err := state.Decode(raw, f.capacity)
	if err != nil {
		return nil, fmt.Errorf("state file %s: %w", f.path, err)
	}
	return st, nil
}

// Save writes atomically via a temp file in the same directory plus rename,
// so a crash mid-write never truncates the previous document.
func (f *FileStore) Save(ctx context.Context, st *state.State) error {
	raw, err := state.Encode(st)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp state: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
