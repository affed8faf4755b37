package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cognitron/cognitron/cerr"
	"github.com/cognitron/cognitron/conceptgraph"
	"github.com/cognitron/cognitron/memory"
	"github.com/cognitron/cognitron/store"
	storefile "github.com/cognitron/cognitron/store/file"
	storememory "github.com/cognitron/cognitron/store/memory"
	storepostgres "github.com/cognitron/cognitron/store/postgres"
	storeredis "github.com/cognitron/cognitron/store/redis"
	storesqlite "github.com/cognitron/cognitron/store/sqlite"
)

const (
	snapshotNamespace        = "cognitron"
	conceptGraphSnapshotID   = "concept-graph"
	semanticMemorySnapshotID = "semantic-memory"
)

// semanticMemorySnapshot wraps the semantic tier's contents; the type
// registry only accepts structs, not bare slices.
type semanticMemorySnapshot struct {
	Concepts []*memory.SemanticConcept `json:"concepts"`
}

func init() {
	mustRegisterType(conceptgraph.State{}, "conceptgraph.State")
	mustRegisterType(semanticMemorySnapshot{}, "semanticMemorySnapshot")
}

func mustRegisterType(value any, name string) {
	if err := store.RegisterTypeWithValue(value, name); err != nil {
		panic(err)
	}
}

// snapshotter saves and restores durable long-term state across process
// restarts: the concept graph and consolidated semantic memory. Working
// memory and the episodic log are deliberately excluded; they are
// short-lived by design, and starting them empty matches their role as
// scratch and recency buffers rather than durable knowledge.
type snapshotter struct {
	backend store.SnapshotStore
	graph   *conceptgraph.Graph
	tiers   *memory.Tiers
}

func newSnapshotter(backend store.SnapshotStore, graph *conceptgraph.Graph, tiers *memory.Tiers) *snapshotter {
	return &snapshotter{backend: backend, graph: graph, tiers: tiers}
}

// buildSnapshotBackend selects and constructs the durable store named by
// cfg.SnapshotBackend. "file" (the default) and "memory" never fail;
// "redis" dials lazily so a bad address only surfaces on first use;
// "postgres" and "sqlite" open a real connection/handle up front and can
// fail here.
func buildSnapshotBackend(ctx context.Context, cfg config) (store.SnapshotStore, error) {
	switch cfg.SnapshotBackend {
	case "", "file":
		return storefile.New(cfg.SnapshotDir), nil
	case "memory":
		return storememory.New(), nil
	case "redis":
		return storeredis.New(storeredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}), nil
	case "postgres":
		backend, err := storepostgres.New(ctx, storepostgres.Options{ConnString: cfg.PostgresConnString})
		if err != nil {
			return nil, cerr.Wrap("cognitron", cerr.Persistence, "connect to postgres snapshot backend failed", err)
		}
		if err := backend.InitSchema(ctx); err != nil {
			return nil, err
		}
		return backend, nil
	case "sqlite":
		backend, err := storesqlite.New(storesqlite.Options{Path: cfg.SQLitePath})
		if err != nil {
			return nil, cerr.Wrap("cognitron", cerr.Persistence, "open sqlite snapshot backend failed", err)
		}
		return backend, nil
	default:
		return nil, cerr.New("cognitron", cerr.Input, fmt.Sprintf("unknown SNAPSHOT_BACKEND %q", cfg.SnapshotBackend))
	}
}

// Restore loads the most recent snapshots, if any exist, and applies them.
// A missing snapshot (first run, or a fresh SNAPSHOT_DIR) is not an error.
func (s *snapshotter) Restore(ctx context.Context) error {
	if err := s.restoreGraph(ctx); err != nil {
		return err
	}
	return s.restoreSemantic(ctx)
}

func (s *snapshotter) restoreGraph(ctx context.Context) error {
	snap, err := s.backend.Load(ctx, conceptGraphSnapshotID)
	if err != nil {
		if cerr.Is(err, cerr.NotFound) {
			return nil
		}
		return err
	}
	state, err := decodeSnapshotData[conceptgraph.State](snap.Data)
	if err != nil {
		return err
	}
	s.graph.Import(state)
	return nil
}

func (s *snapshotter) restoreSemantic(ctx context.Context) error {
	snap, err := s.backend.Load(ctx, semanticMemorySnapshotID)
	if err != nil {
		if cerr.Is(err, cerr.NotFound) {
			return nil
		}
		return err
	}
	wrapped, err := decodeSnapshotData[semanticMemorySnapshot](snap.Data)
	if err != nil {
		return err
	}
	s.tiers.Semantic.Restore(wrapped.Concepts)
	return nil
}

// Save persists the current concept graph and semantic memory contents.
func (s *snapshotter) Save(ctx context.Context) error {
	if err := s.save(ctx, conceptGraphSnapshotID, s.graph.Export()); err != nil {
		return err
	}
	return s.save(ctx, semanticMemorySnapshotID, semanticMemorySnapshot{Concepts: s.tiers.Semantic.All()})
}

func (s *snapshotter) save(ctx context.Context, id string, state any) error {
	data, err := store.NewSnapshotData(state)
	if err != nil {
		return cerr.Wrap("cognitron", cerr.Persistence, "encode snapshot failed", err)
	}
	return s.backend.Save(ctx, &store.Snapshot{
		ID:        id,
		Namespace: snapshotNamespace,
		Component: id,
		Data:      data,
	})
}

// decodeSnapshotData recovers a concrete value from a Snapshot.Data field.
// Data arrives back as a generic map after round-tripping through the
// store's own JSON encoding of Snapshot, so it is re-marshaled into the
// store.SnapshotData wrapper shape before being unmarshaled into T.
func decodeSnapshotData[T any](data any) (T, error) {
	var zero T
	raw, err := json.Marshal(data)
	if err != nil {
		return zero, cerr.Wrap("cognitron", cerr.Persistence, "re-marshal snapshot data failed", err)
	}
	var wrapped store.SnapshotData
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return zero, cerr.Wrap("cognitron", cerr.Persistence, "unmarshal snapshot wrapper failed", err)
	}
	if err := json.Unmarshal(wrapped.Data, &zero); err != nil {
		return zero, cerr.Wrap("cognitron", cerr.Persistence, "unmarshal snapshot value failed", err)
	}
	return zero, nil
}
