// Package file provides a JSON-file-backed store.SnapshotStore: one file
// per snapshot under baseDir/<namespace>/<id>.json. It needs no external
// service, trading Redis/Postgres's concurrency and query support for a
// dependency-free backend that survives a restart.
package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cognitron/cognitron/cerr"
	"github.com/cognitron/cognitron/store"
)

// SnapshotStore implements store.SnapshotStore by writing one JSON file
// per snapshot under a namespace subdirectory of baseDir.
type SnapshotStore struct {
	mu      sync.Mutex
	baseDir string
}

// New creates a file-backed snapshot store rooted at baseDir. baseDir is
// created lazily on first write.
func New(baseDir string) *SnapshotStore {
	return &SnapshotStore{baseDir: baseDir}
}

func (s *SnapshotStore) namespaceDir(namespace string) string {
	return filepath.Join(s.baseDir, sanitize(namespace))
}

func (s *SnapshotStore) snapshotPath(namespace, id string) string {
	return filepath.Join(s.namespaceDir(namespace), sanitize(id)+".json")
}

// sanitize keeps namespace/id values from escaping baseDir via path
// separators; snapshot identifiers are caller-controlled but may
// originate from conversation IDs that aren't guaranteed filesystem-safe.
func sanitize(part string) string {
	return filepath.Base(filepath.Clean(string(filepath.Separator) + part))
}

func (s *SnapshotStore) Save(ctx context.Context, snapshot *store.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.namespaceDir(snapshot.Namespace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return cerr.Wrap("store/file", cerr.Persistence, "create namespace directory failed", err)
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return cerr.Wrap("store/file", cerr.Persistence, "marshal snapshot failed", err)
	}

	path := s.snapshotPath(snapshot.Namespace, snapshot.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return cerr.Wrap("store/file", cerr.Persistence, "write snapshot failed", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return cerr.Wrap("store/file", cerr.Persistence, "commit snapshot failed", err)
	}
	return nil
}

// Load searches every namespace directory for the given snapshot ID,
// since the store doesn't index snapshot ID to namespace separately.
func (s *SnapshotStore) Load(ctx context.Context, snapshotID string) (*store.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cerr.New("store/file", cerr.NotFound, "snapshot not found: "+snapshotID)
		}
		return nil, cerr.Wrap("store/file", cerr.Persistence, "read base directory failed", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(s.baseDir, entry.Name(), sanitize(snapshotID)+".json")
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var snap store.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, cerr.Wrap("store/file", cerr.Persistence, "unmarshal snapshot failed", err)
		}
		return &snap, nil
	}
	return nil, cerr.New("store/file", cerr.NotFound, "snapshot not found: "+snapshotID)
}

func (s *SnapshotStore) List(ctx context.Context, namespace string) ([]*store.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.namespaceDir(namespace)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, cerr.Wrap("store/file", cerr.Persistence, "read namespace directory failed", err)
	}

	var snapshots []*store.Snapshot
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, cerr.Wrap("store/file", cerr.Persistence, "read snapshot failed", err)
		}
		var snap store.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, cerr.Wrap("store/file", cerr.Persistence, "unmarshal snapshot failed", err)
		}
		snapshots = append(snapshots, &snap)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Timestamp.Before(snapshots[j].Timestamp)
	})
	return snapshots, nil
}

func (s *SnapshotStore) Delete(ctx context.Context, snapshotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return cerr.Wrap("store/file", cerr.Persistence, "read base directory failed", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(s.baseDir, entry.Name(), sanitize(snapshotID)+".json")
		if err := os.Remove(path); err == nil {
			return nil
		}
	}
	return nil
}

func (s *SnapshotStore) Clear(ctx context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.namespaceDir(namespace)
	if err := os.RemoveAll(dir); err != nil {
		return cerr.Wrap("store/file", cerr.Persistence, "clear namespace directory failed", err)
	}
	return nil
}
