package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cognitron/cognitron/cerr"
	"github.com/cognitron/cognitron/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBPool defines the interface for a database connection pool, narrow
// enough that pgxmock can stand in for it in tests.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// SnapshotStore implements store.SnapshotStore using PostgreSQL: the
// durable backend for long-lived semantic memory and concept graph
// snapshots.
type SnapshotStore struct {
	pool      DBPool
	tableName string
}

// Options configures the Postgres connection.
type Options struct {
	ConnString string
	TableName  string // Default "snapshots"
}

// New creates a Postgres-backed snapshot store and opens a connection
// pool.
func New(ctx context.Context, opts Options) (*SnapshotStore, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, cerr.Wrap("store/postgres", cerr.Persistence, "unable to create connection pool", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "snapshots"
	}

	return &SnapshotStore{pool: pool, tableName: tableName}, nil
}

// NewWithPool creates a store from an existing pool, useful for testing
// with pgxmock.
func NewWithPool(pool DBPool, tableName string) *SnapshotStore {
	if tableName == "" {
		tableName = "snapshots"
	}
	return &SnapshotStore{pool: pool, tableName: tableName}
}

// InitSchema creates the snapshots table if it doesn't exist.
func (s *SnapshotStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			namespace TEXT NOT NULL,
			component TEXT NOT NULL,
			data JSONB NOT NULL,
			metadata JSONB,
			timestamp TIMESTAMPTZ NOT NULL,
			version INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_namespace ON %s (namespace);
	`, s.tableName, s.tableName, s.tableName)

	_, err := s.pool.Exec(ctx, query)
	if err != nil {
		return cerr.Wrap("store/postgres", cerr.Persistence, "create schema failed", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *SnapshotStore) Close() {
	s.pool.Close()
}

func (s *SnapshotStore) Save(ctx context.Context, snapshot *store.Snapshot) error {
	dataJSON, err := json.Marshal(snapshot.Data)
	if err != nil {
		return cerr.Wrap("store/postgres", cerr.Persistence, "failed to marshal data", err)
	}
	metadataJSON, err := json.Marshal(snapshot.Metadata)
	if err != nil {
		return cerr.Wrap("store/postgres", cerr.Persistence, "marshal metadata failed", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, namespace, component, data, metadata, timestamp, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			namespace = EXCLUDED.namespace,
			component = EXCLUDED.component,
			data = EXCLUDED.data,
			metadata = EXCLUDED.metadata,
			timestamp = EXCLUDED.timestamp,
			version = EXCLUDED.version
	`, s.tableName)

	_, err = s.pool.Exec(ctx, query,
		snapshot.ID, snapshot.Namespace, snapshot.Component, dataJSON, metadataJSON, snapshot.Timestamp, snapshot.Version,
	)
	if err != nil {
		return cerr.Wrap("store/postgres", cerr.Persistence, "save snapshot failed", err)
	}
	return nil
}

func (s *SnapshotStore) Load(ctx context.Context, snapshotID string) (*store.Snapshot, error) {
	query := fmt.Sprintf(`
		SELECT id, namespace, component, data, metadata, timestamp, version
		FROM %s WHERE id = $1
	`, s.tableName)

	var snap store.Snapshot
	var dataJSON, metadataJSON []byte

	err := s.pool.QueryRow(ctx, query, snapshotID).Scan(
		&snap.ID, &snap.Namespace, &snap.Component, &dataJSON, &metadataJSON, &snap.Timestamp, &snap.Version,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, cerr.New("store/postgres", cerr.NotFound, "snapshot not found: "+snapshotID)
		}
		return nil, cerr.Wrap("store/postgres", cerr.Persistence, "failed to load snapshot", err)
	}

	if err := json.Unmarshal(dataJSON, &snap.Data); err != nil {
		return nil, cerr.Wrap("store/postgres", cerr.Persistence, "unmarshal data failed", err)
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &snap.Metadata); err != nil {
			return nil, cerr.Wrap("store/postgres", cerr.Persistence, "unmarshal metadata failed", err)
		}
	}
	return &snap, nil
}

func (s *SnapshotStore) List(ctx context.Context, namespace string) ([]*store.Snapshot, error) {
	query := fmt.Sprintf(`
		SELECT id, namespace, component, data, metadata, timestamp, version
		FROM %s WHERE namespace = $1 ORDER BY timestamp ASC
	`, s.tableName)

	rows, err := s.pool.Query(ctx, query, namespace)
	if err != nil {
		return nil, cerr.Wrap("store/postgres", cerr.Persistence, "list snapshots failed", err)
	}
	defer rows.Close()

	var snapshots []*store.Snapshot
	for rows.Next() {
		var snap store.Snapshot
		var dataJSON, metadataJSON []byte

		if err := rows.Scan(&snap.ID, &snap.Namespace, &snap.Component, &dataJSON, &metadataJSON, &snap.Timestamp, &snap.Version); err != nil {
			return nil, cerr.Wrap("store/postgres", cerr.Persistence, "scan snapshot row failed", err)
		}
		if err := json.Unmarshal(dataJSON, &snap.Data); err != nil {
			return nil, cerr.Wrap("store/postgres", cerr.Persistence, "unmarshal data failed", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &snap.Metadata); err != nil {
				return nil, cerr.Wrap("store/postgres", cerr.Persistence, "unmarshal metadata failed", err)
			}
		}
		snapshots = append(snapshots, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, cerr.Wrap("store/postgres", cerr.Persistence, "iterate snapshot rows failed", err)
	}
	return snapshots, nil
}

func (s *SnapshotStore) Delete(ctx context.Context, snapshotID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.tableName)
	_, err := s.pool.Exec(ctx, query, snapshotID)
	if err != nil {
		return cerr.Wrap("store/postgres", cerr.Persistence, "delete snapshot failed", err)
	}
	return nil
}

func (s *SnapshotStore) Clear(ctx context.Context, namespace string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE namespace = $1", s.tableName)
	_, err := s.pool.Exec(ctx, query, namespace)
	if err != nil {
		return cerr.Wrap("store/postgres", cerr.Persistence, "clear snapshots failed", err)
	}
	return nil
}
