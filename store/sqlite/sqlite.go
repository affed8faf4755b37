package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/cognitron/cognitron/cerr"
	"github.com/cognitron/cognitron/store"
	_ "github.com/mattn/go-sqlite3"
)

// SnapshotStore implements store.SnapshotStore using SQLite: the
// embedded, dependency-free backend for single-process deployments
// that still want snapshots to survive a restart.
type SnapshotStore struct {
	db        *sql.DB
	tableName string
}

// Options configures the SQLite connection.
type Options struct {
	Path      string
	TableName string // Default "snapshots"
}

// New opens (creating if necessary) a SQLite-backed snapshot store.
func New(opts Options) (*SnapshotStore, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, cerr.Wrap("store/sqlite", cerr.Persistence, "open database failed", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "snapshots"
	}

	snapStore := &SnapshotStore{db: db, tableName: tableName}

	if err := snapStore.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return snapStore, nil
}

// InitSchema creates the snapshots table if it doesn't exist.
func (s *SnapshotStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			namespace TEXT NOT NULL,
			component TEXT NOT NULL,
			data TEXT NOT NULL,
			metadata TEXT,
			timestamp DATETIME NOT NULL,
			version INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_namespace ON %s (namespace);
	`, s.tableName, s.tableName, s.tableName)

	_, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return cerr.Wrap("store/sqlite", cerr.Persistence, "create schema failed", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

func (s *SnapshotStore) Save(ctx context.Context, snapshot *store.Snapshot) error {
	dataJSON, err := json.Marshal(snapshot.Data)
	if err != nil {
		return cerr.Wrap("store/sqlite", cerr.Persistence, "marshal data failed", err)
	}
	metadataJSON, err := json.Marshal(snapshot.Metadata)
	if err != nil {
		return cerr.Wrap("store/sqlite", cerr.Persistence, "marshal metadata failed", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, namespace, component, data, metadata, timestamp, version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			namespace = excluded.namespace,
			component = excluded.component,
			data = excluded.data,
			metadata = excluded.metadata,
			timestamp = excluded.timestamp,
			version = excluded.version
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		snapshot.ID, snapshot.Namespace, snapshot.Component,
		string(dataJSON), string(metadataJSON), snapshot.Timestamp, snapshot.Version,
	)
	if err != nil {
		return cerr.Wrap("store/sqlite", cerr.Persistence, "save snapshot failed", err)
	}
	return nil
}

func (s *SnapshotStore) Load(ctx context.Context, snapshotID string) (*store.Snapshot, error) {
	query := fmt.Sprintf(`
		SELECT id, namespace, component, data, metadata, timestamp, version
		FROM %s WHERE id = ?
	`, s.tableName)

	var snap store.Snapshot
	var dataJSON, metadataJSON string

	err := s.db.QueryRowContext(ctx, query, snapshotID).Scan(
		&snap.ID, &snap.Namespace, &snap.Component, &dataJSON, &metadataJSON, &snap.Timestamp, &snap.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, cerr.New("store/sqlite", cerr.NotFound, "snapshot not found: "+snapshotID)
		}
		return nil, cerr.Wrap("store/sqlite", cerr.Persistence, "load snapshot failed", err)
	}

	if err := json.Unmarshal([]byte(dataJSON), &snap.Data); err != nil {
		return nil, cerr.Wrap("store/sqlite", cerr.Persistence, "unmarshal data failed", err)
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal([]byte(metadataJSON), &snap.Metadata); err != nil {
			return nil, cerr.Wrap("store/sqlite", cerr.Persistence, "unmarshal metadata failed", err)
		}
	}
	return &snap, nil
}

func (s *SnapshotStore) List(ctx context.Context, namespace string) ([]*store.Snapshot, error) {
	query := fmt.Sprintf(`
		SELECT id, namespace, component, data, metadata, timestamp, version
		FROM %s WHERE namespace = ? ORDER BY timestamp ASC
	`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query, namespace)
	if err != nil {
		return nil, cerr.Wrap("store/sqlite", cerr.Persistence, "list snapshots failed", err)
	}
	defer rows.Close()

	var snapshots []*store.Snapshot
	for rows.Next() {
		var snap store.Snapshot
		var dataJSON, metadataJSON string

		if err := rows.Scan(&snap.ID, &snap.Namespace, &snap.Component, &dataJSON, &metadataJSON, &snap.Timestamp, &snap.Version); err != nil {
			return nil, cerr.Wrap("store/sqlite", cerr.Persistence, "scan snapshot row failed", err)
		}
		if err := json.Unmarshal([]byte(dataJSON), &snap.Data); err != nil {
			return nil, cerr.Wrap("store/sqlite", cerr.Persistence, "unmarshal data failed", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal([]byte(metadataJSON), &snap.Metadata); err != nil {
				return nil, cerr.Wrap("store/sqlite", cerr.Persistence, "unmarshal metadata failed", err)
			}
		}
		snapshots = append(snapshots, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, cerr.Wrap("store/sqlite", cerr.Persistence, "iterate snapshot rows failed", err)
	}
	return snapshots, nil
}

func (s *SnapshotStore) Delete(ctx context.Context, snapshotID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.tableName)
	_, err := s.db.ExecContext(ctx, query, snapshotID)
	if err != nil {
		return cerr.Wrap("store/sqlite", cerr.Persistence, "delete snapshot failed", err)
	}
	return nil
}

func (s *SnapshotStore) Clear(ctx context.Context, namespace string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE namespace = ?", s.tableName)
	_, err := s.db.ExecContext(ctx, query, namespace)
	if err != nil {
		return cerr.Wrap("store/sqlite", cerr.Persistence, "clear snapshots failed", err)
	}
	return nil
}
