package internal

import (
	"context"
	"sync"

	"github.com/lychee-technology/propgrid"
)

// MemoryStore keeps collapse-state snapshots in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]*propgrid.Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]*propgrid.Snapshot)}
}

func (s *MemoryStore) Save(_ context.Context, key string, names *propgrid.CollapsedNames) (*propgrid.Snapshot, error) {
	snap := propgrid.NewSnapshot(key, names)
	s.mu.Lock()
	s.snaps[key] = snap
	s.mu.Unlock()
	return copySnapshot(snap), nil
}

func (s *MemoryStore) Load(_ context.Context, key string) (*propgrid.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[key]
	if !ok {
		return nil, propgrid.NewStateNotFoundError(key)
	}
	return copySnapshot(snap), nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.snaps, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// copySnapshot prevents callers from mutating stored names.
func copySnapshot(snap *propgrid.Snapshot) *propgrid.Snapshot {
	out := *snap
	out.Names = snap.Names.Clone()
	return &out
}
