// Package memory provides an in-process, map-backed store.SnapshotStore.
// It never touches disk: snapshots live only as long as the process does,
// which makes it the natural default for local development and for tests
// that exercise a SnapshotStore without standing up a real backend.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cognitron/cognitron/cerr"
	"github.com/cognitron/cognitron/store"
)

// SnapshotStore implements store.SnapshotStore with an in-memory map
// guarded by a mutex.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]*store.Snapshot
}

// New creates an empty in-memory snapshot store.
func New() *SnapshotStore {
	return &SnapshotStore{snapshots: make(map[string]*store.Snapshot)}
}

func clone(s *store.Snapshot) *store.Snapshot {
	cp := *s
	return &cp
}

func (s *SnapshotStore) Save(ctx context.Context, snapshot *store.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.ID] = clone(snapshot)
	return nil
}

func (s *SnapshotStore) Load(ctx context.Context, snapshotID string) (*store.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[snapshotID]
	if !ok {
		return nil, cerr.New("store/memory", cerr.NotFound, "snapshot not found: "+snapshotID)
	}
	return clone(snap), nil
}

func (s *SnapshotStore) List(ctx context.Context, namespace string) ([]*store.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*store.Snapshot
	for _, snap := range s.snapshots {
		if snap.Namespace == namespace {
			matches = append(matches, clone(snap))
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Timestamp.Before(matches[j].Timestamp)
	})
	return matches, nil
}

func (s *SnapshotStore) Delete(ctx context.Context, snapshotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, snapshotID)
	return nil
}

func (s *SnapshotStore) Clear(ctx context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, snap := range s.snapshots {
		if snap.Namespace == namespace {
			delete(s.snapshots, id)
		}
	}
	return nil
}
