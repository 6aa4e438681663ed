package state

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/paaavkata/trend-trader/services/trading-engine/internal/position"
)

// Store persists the position machine of each bot so a restart resumes where
// it left off.
type Store interface {
	Save(ctx context.Context, bot string, snap position.Snapshot) error
	// Load returns false when nothing was saved for the bot.
	Load(ctx context.Context, bot string) (position.Snapshot, bool, error)
	Delete(ctx context.Context, bot string) error
}

func checkName(bot string) error {
	if bot == "" || strings.ContainsAny(bot, `/\`) || bot == "." || bot == ".." {
		return fmt.Errorf("invalid bot name %q", bot)
	}
	return nil
}

// MemoryStore keeps snapshots in memory; used for backtests.
type MemoryStore struct {
	mu    sync.Mutex
	snaps map[string]position.Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]position.Snapshot)}
}

func (m *MemoryStore) Save(_ context.Context, bot string, snap position.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[bot] = snap
	return nil
}

func (m *MemoryStore) Load(_ context.Context, bot string) (position.Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snaps[bot]
	return snap, ok, nil
}

func (m *MemoryStore) Delete(_ context.Context, bot string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, bot)
	return nil
}
