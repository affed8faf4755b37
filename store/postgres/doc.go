// Package postgres provides a PostgreSQL-backed store.SnapshotStore
// implementation: the durable backend for semantic memory and concept
// graph snapshots that need to survive process restarts and be shared
// across multiple instances.
//
// New opens a connection pool from a DSN; NewWithPool accepts any DBPool
// implementation (pgxmock in tests, a *pgxpool.Pool in production).
// InitSchema creates the snapshots table and its namespace index; callers
// are expected to run it once at startup rather than on every Save.
//
//	snapStore, err := postgres.New(ctx, postgres.Options{
//		ConnString: os.Getenv("DATABASE_URL"),
//	})
//	if err != nil {
//		return err
//	}
//	defer snapStore.Close()
//
//	if err := snapStore.InitSchema(ctx); err != nil {
//		return err
//	}
package postgres
