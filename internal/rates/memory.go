package rates

import (
	"context"
	"sync"
)

// MemoryStore keeps the latest snapshot in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	snap *Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) Load(_ context.Context) (Snapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snap == nil {
		return Snapshot{}, false, nil
	}
	s := *m.snap
	s.Rates = s.Rates.Clone()
	return s, true, nil
}

func (m *MemoryStore) Save(_ context.Context, snap Snapshot) error {
	snap.Rates = snap.Rates.Clone()
	m.mu.Lock()
	m.snap = &snap
	m.mu.Unlock()
	return nil
}

var _ Store = (*MemoryStore)(nil)
