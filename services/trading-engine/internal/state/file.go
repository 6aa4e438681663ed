package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/paaavkata/trend-trader/services/trading-engine/internal/position"
)

// FileStore writes one JSON file per bot under dir. Writes go to a temporary
// file that is renamed over the old one.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("empty state directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(bot string) string {
	return filepath.Join(f.dir, bot+".json")
}

func (f *FileStore) Save(_ context.Context, bot string, snap position.Snapshot) error {
	if err := checkName(bot); err != nil {
		return err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(f.dir, bot+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(bot)); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

func (f *FileStore) Load(_ context.Context, bot string) (position.Snapshot, bool, error) {
	if err := checkName(bot); err != nil {
		return position.Snapshot{}, false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path(bot))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return position.Snapshot{}, false, nil
		}
		return position.Snapshot{}, false, fmt.Errorf("failed to read state: %w", err)
	}
	if len(data) == 0 {
		return position.Snapshot{}, false, nil
	}

	var snap position.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return position.Snapshot{}, false, fmt.Errorf("failed to decode state for %s: %w", bot, err)
	}
	return snap, true, nil
}

func (f *FileStore) Delete(_ context.Context, bot string) error {
	if err := checkName(bot); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path(bot)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete state: %w", err)
	}
	return nil
}
