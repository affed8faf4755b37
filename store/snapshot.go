// Package store provides persistence backends for the platform's
// in-process state: segment engine vocabularies, memory tier contents,
// and concept graph snapshots. A Snapshot is one serialized save point for
// a component within a namespace (typically a conversation id or a
// process-wide component name); SnapshotStore is the uniform interface
// every backend implements.
package store

import (
	"context"
	"time"
)

// Snapshot is one saved state for a component at a point in time.
type Snapshot struct {
	ID        string         `json:"id"`
	Namespace string         `json:"namespace"`
	Component string         `json:"component"`
	Data      any            `json:"data"`
	Metadata  map[string]any `json:"metadata"`
	Timestamp time.Time      `json:"timestamp"`
	Version   int            `json:"version"`
}

// SnapshotStore defines persistence for Snapshot values. Implementations
// live in store/memory, store/file, store/redis, store/postgres, and
// store/sqlite.
type SnapshotStore interface {
	// Save stores a snapshot.
	Save(ctx context.Context, snapshot *Snapshot) error

	// Load retrieves a snapshot by ID.
	Load(ctx context.Context, snapshotID string) (*Snapshot, error)

	// List returns all snapshots within a namespace, oldest first.
	List(ctx context.Context, namespace string) ([]*Snapshot, error)

	// Delete removes a single snapshot.
	Delete(ctx context.Context, snapshotID string) error

	// Clear removes every snapshot within a namespace.
	Clear(ctx context.Context, namespace string) error
}
