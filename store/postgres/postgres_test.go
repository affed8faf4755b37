package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/cognitron/cognitron/store"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotStoreSave(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	snapStore := NewWithPool(mock, "snapshots")

	snap := &store.Snapshot{
		ID:        "snap-1",
		Namespace: "ns-1",
		Component: "memory",
		Data:      map[string]any{"foo": "bar"},
		Timestamp: time.Now(),
		Version:   1,
	}

	dataJSON, _ := json.Marshal(snap.Data)
	metadataJSON, _ := json.Marshal(snap.Metadata)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO snapshots")).
		WithArgs(snap.ID, snap.Namespace, snap.Component, dataJSON, metadataJSON, snap.Timestamp, snap.Version).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, snapStore.Save(context.Background(), snap))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotStoreSaveMarshalErrorSurfaces(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	snapStore := NewWithPool(mock, "snapshots")
	snap := &store.Snapshot{ID: "snap-1", Data: make(chan int)}

	err = snapStore.Save(context.Background(), snap)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to marshal data")
}

func TestSnapshotStoreLoad(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	snapStore := NewWithPool(mock, "snapshots")

	timestamp := time.Now()
	dataJSON, _ := json.Marshal(map[string]any{"foo": "bar"})

	rows := pgxmock.NewRows([]string{"id", "namespace", "component", "data", "metadata", "timestamp", "version"}).
		AddRow("snap-1", "ns-1", "memory", dataJSON, []byte("{}"), timestamp, 1)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, namespace, component, data, metadata, timestamp, version FROM snapshots WHERE id = $1")).
		WithArgs("snap-1").
		WillReturnRows(rows)

	loaded, err := snapStore.Load(context.Background(), "snap-1")
	require.NoError(t, err)
	assert.Equal(t, "snap-1", loaded.ID)
	assert.Equal(t, "memory", loaded.Component)
	assert.Equal(t, 1, loaded.Version)

	data, ok := loaded.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bar", data["foo"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotStoreLoadNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	snapStore := NewWithPool(mock, "snapshots")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, namespace, component, data, metadata, timestamp, version FROM snapshots WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	loaded, err := snapStore.Load(context.Background(), "missing")
	require.Error(t, err)
	assert.Nil(t, loaded)
	assert.Contains(t, err.Error(), "snapshot not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotStoreLoadDatabaseError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	snapStore := NewWithPool(mock, "snapshots")
	dbError := errors.New("connection reset")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, namespace, component, data, metadata, timestamp, version FROM snapshots WHERE id = $1")).
		WithArgs("snap-1").
		WillReturnError(dbError)

	_, err = snapStore.Load(context.Background(), "snap-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load snapshot")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotStoreList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	snapStore := NewWithPool(mock, "snapshots")
	timestamp := time.Now()

	data1, _ := json.Marshal(map[string]any{"step": 1})
	data2, _ := json.Marshal(map[string]any{"step": 2})

	rows := pgxmock.NewRows([]string{"id", "namespace", "component", "data", "metadata", "timestamp", "version"}).
		AddRow("snap-1", "ns-1", "memory", data1, []byte("{}"), timestamp, 1).
		AddRow("snap-2", "ns-1", "conceptgraph", data2, []byte("{}"), timestamp, 2)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, namespace, component, data, metadata, timestamp, version FROM snapshots WHERE namespace = $1 ORDER BY timestamp ASC")).
		WithArgs("ns-1").
		WillReturnRows(rows)

	loaded, err := snapStore.List(context.Background(), "ns-1")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "snap-1", loaded[0].ID)
	assert.Equal(t, "snap-2", loaded[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotStoreDelete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	snapStore := NewWithPool(mock, "snapshots")

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM snapshots WHERE id = $1")).
		WithArgs("snap-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, snapStore.Delete(context.Background(), "snap-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotStoreClear(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	snapStore := NewWithPool(mock, "snapshots")

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM snapshots WHERE namespace = $1")).
		WithArgs("ns-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 5))

	require.NoError(t, snapStore.Clear(context.Background(), "ns-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotStoreInitSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	snapStore := NewWithPool(mock, "snapshots")

	mock.ExpectExec(regexp.QuoteMeta(`
		CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			namespace TEXT NOT NULL,
			component TEXT NOT NULL,
			data JSONB NOT NULL,
			metadata JSONB,
			timestamp TIMESTAMPTZ NOT NULL,
			version INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_snapshots_namespace ON snapshots (namespace);
	`)).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, snapStore.InitSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewWithPoolDefaultsTableName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	snapStore := NewWithPool(mock, "")
	assert.Equal(t, "snapshots", snapStore.tableName)
}

func TestNewRejectsInvalidConnectionString(t *testing.T) {
	_, err := New(context.Background(), Options{ConnString: "invalid://connection-string"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to create connection pool")
}
