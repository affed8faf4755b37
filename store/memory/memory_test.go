package memory

import (
	"context"
	"testing"
	"time"

	"github.com/cognitron/cognitron/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotStoreSaveAndLoad(t *testing.T) {
	snapStore := New()
	ctx := context.Background()

	snap := &store.Snapshot{ID: "snap-1", Namespace: "ns-1", Component: "memory", Data: map[string]any{"foo": "bar"}}
	require.NoError(t, snapStore.Save(ctx, snap))

	loaded, err := snapStore.Load(ctx, "snap-1")
	require.NoError(t, err)
	assert.Equal(t, "memory", loaded.Component)

	// Mutating the loaded copy must not affect the stored snapshot.
	loaded.Component = "mutated"
	again, err := snapStore.Load(ctx, "snap-1")
	require.NoError(t, err)
	assert.Equal(t, "memory", again.Component)
}

func TestSnapshotStoreLoadNotFound(t *testing.T) {
	snapStore := New()
	_, err := snapStore.Load(context.Background(), "missing")
	require.Error(t, err)
}

func TestSnapshotStoreListOrdersByTimestamp(t *testing.T) {
	snapStore := New()
	ctx := context.Background()

	older := time.Now().Add(-time.Hour)
	newer := time.Now()

	require.NoError(t, snapStore.Save(ctx, &store.Snapshot{ID: "snap-2", Namespace: "ns-1", Timestamp: newer}))
	require.NoError(t, snapStore.Save(ctx, &store.Snapshot{ID: "snap-1", Namespace: "ns-1", Timestamp: older}))

	list, err := snapStore.List(ctx, "ns-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "snap-1", list[0].ID)
	assert.Equal(t, "snap-2", list[1].ID)
}

func TestSnapshotStoreDeleteAndClear(t *testing.T) {
	snapStore := New()
	ctx := context.Background()

	require.NoError(t, snapStore.Save(ctx, &store.Snapshot{ID: "snap-1", Namespace: "ns-1"}))
	require.NoError(t, snapStore.Save(ctx, &store.Snapshot{ID: "snap-2", Namespace: "ns-1"}))
	require.NoError(t, snapStore.Save(ctx, &store.Snapshot{ID: "snap-3", Namespace: "ns-2"}))

	require.NoError(t, snapStore.Delete(ctx, "snap-1"))
	_, err := snapStore.Load(ctx, "snap-1")
	assert.Error(t, err)

	require.NoError(t, snapStore.Clear(ctx, "ns-1"))
	listNS1, err := snapStore.List(ctx, "ns-1")
	require.NoError(t, err)
	assert.Len(t, listNS1, 0)

	listNS2, err := snapStore.List(ctx, "ns-2")
	require.NoError(t, err)
	assert.Len(t, listNS2, 1)
}
