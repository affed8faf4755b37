// Package sqlite provides a SQLite-backed store.SnapshotStore
// implementation: the embedded, dependency-free backend for single-
// process deployments that still want snapshots to survive a restart
// without standing up Postgres or Redis.
//
// New opens (and creates, if necessary) the database file and runs
// InitSchema automatically. Snapshot.Data and Metadata are serialized
// as JSON text columns.
//
//	snapStore, err := sqlite.New(sqlite.Options{Path: "./cognitron.db"})
//	if err != nil {
//		return err
//	}
//	defer snapStore.Close()
package sqlite
