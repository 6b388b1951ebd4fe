// Package store provides Store implementations.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/warp/capacity-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (session scoped, default)
// =============================================================================

// Memory keeps snapshots in a slice in append order.
// It lives exactly as long as the session that owns it.
type Memory struct {
	mu        sync.RWMutex
	snapshots []generic.Snapshot
	ids       map[string]bool
}

func NewMemory() *Memory {
	return &Memory{ids: make(map[string]bool)}
}

// AppendBatch adds snapshots atomically: a duplicate ID or an out-of-order
// Seq rejects the whole batch before anything is written.
func (m *Memory) AppendBatch(_ context.Context, snapshots []generic.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate everything first (atomic check)
	next := int64(len(m.snapshots) + 1)
	seen := make(map[string]bool, len(snapshots))
	for i, s := range snapshots {
		if m.ids[s.ID] || seen[s.ID] {
			return fmt.Errorf("duplicate snapshot id %s", s.ID)
		}
		seen[s.ID] = true
		if s.Seq != next+int64(i) {
			return fmt.Errorf("snapshot seq %d out of order (want %d)", s.Seq, next+int64(i))
		}
	}

	// Append all (atomic write)
	for _, s := range snapshots {
		m.snapshots = append(m.snapshots, s)
		m.ids[s.ID] = true
	}
	return nil
}

func (m *Memory) Load(_ context.Context) ([]generic.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generic.Snapshot, len(m.snapshots))
	copy(result, m.snapshots)
	return result, nil
}

func (m *Memory) LoadPeriod(_ context.Context, period string) ([]generic.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []generic.Snapshot
	for _, s := range m.snapshots {
		if s.Period == period {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.snapshots), nil
}
