package store

// Backend selection.
//
// store/memory and store/file are dependency-free and best for local
// development or single-process deployments. store/memory keeps snapshots
// only for the life of the process; store/file writes them to disk, so
// they survive a restart. store/sqlite adds a durable embedded database
// without an external service. store/redis and store/postgres are the backends for
// multi-instance deployments: Redis for low-latency, optionally-expiring
// snapshots, Postgres for long-lived archival storage that needs to be
// queried outside the application.
//
// TypeRegistry and SnapshotData exist for callers that want a
// Snapshot.Data payload to round-trip into a concrete Go struct instead
// of a generic map[string]any. A component registers its state type once
// at startup:
//
//	store.RegisterTypeWithValue(conceptgraph.State{}, "conceptgraph.State")
//
// and from then on NewSnapshotData/SnapshotData.ToValue preserve the
// type across the JSON round trip. Components that are content with a
// generic map don't need the registry at all.
