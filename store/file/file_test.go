package file

import (
	"context"
	"testing"
	"time"

	"github.com/cognitron/cognitron/cerr"
	"github.com/cognitron/cognitron/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotStoreSaveAndLoad(t *testing.T) {
	snapStore := New(t.TempDir())
	ctx := context.Background()

	snap := &store.Snapshot{ID: "snap-1", Namespace: "conv-123", Component: "memory", Data: map[string]any{"foo": "bar"}}
	require.NoError(t, snapStore.Save(ctx, snap))

	loaded, err := snapStore.Load(ctx, "snap-1")
	require.NoError(t, err)
	assert.Equal(t, "memory", loaded.Component)

	data, ok := loaded.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bar", data["foo"])
}

func TestSnapshotStoreLoadNotFound(t *testing.T) {
	snapStore := New(t.TempDir())
	_, err := snapStore.Load(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.NotFound))
}

func TestSnapshotStoreListOrdersByTimestamp(t *testing.T) {
	snapStore := New(t.TempDir())
	ctx := context.Background()

	older := time.Now().Add(-time.Hour)
	newer := time.Now()

	require.NoError(t, snapStore.Save(ctx, &store.Snapshot{ID: "snap-2", Namespace: "conv-123", Timestamp: newer}))
	require.NoError(t, snapStore.Save(ctx, &store.Snapshot{ID: "snap-1", Namespace: "conv-123", Timestamp: older}))

	list, err := snapStore.List(ctx, "conv-123")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "snap-1", list[0].ID)
	assert.Equal(t, "snap-2", list[1].ID)
}

func TestSnapshotStoreListOnMissingNamespaceReturnsEmpty(t *testing.T) {
	snapStore := New(t.TempDir())
	list, err := snapStore.List(context.Background(), "never-written")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSnapshotStoreDeleteAndClear(t *testing.T) {
	snapStore := New(t.TempDir())
	ctx := context.Background()

	require.NoError(t, snapStore.Save(ctx, &store.Snapshot{ID: "snap-1", Namespace: "conv-123"}))
	require.NoError(t, snapStore.Save(ctx, &store.Snapshot{ID: "snap-2", Namespace: "conv-123"}))

	require.NoError(t, snapStore.Delete(ctx, "snap-1"))
	_, err := snapStore.Load(ctx, "snap-1")
	assert.Error(t, err)

	require.NoError(t, snapStore.Clear(ctx, "conv-123"))
	list, err := snapStore.List(ctx, "conv-123")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSnapshotStoreSaveOverwritesExisting(t *testing.T) {
	snapStore := New(t.TempDir())
	ctx := context.Background()

	require.NoError(t, snapStore.Save(ctx, &store.Snapshot{ID: "snap-1", Namespace: "conv-123", Version: 1}))
	require.NoError(t, snapStore.Save(ctx, &store.Snapshot{ID: "snap-1", Namespace: "conv-123", Version: 2}))

	loaded, err := snapStore.Load(ctx, "snap-1")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Version)
}
