package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cognitron/cognitron/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSnapshotStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	snapStore := New(Options{Addr: mr.Addr()})
	ctx := context.Background()
	namespace := "conv-123"

	snap := &store.Snapshot{
		ID:        "snap-1",
		Namespace: namespace,
		Component: "memory",
		Data:      map[string]any{"foo": "bar"},
		Timestamp: time.Now(),
		Version:   1,
	}

	require.NoError(t, snapStore.Save(ctx, snap))

	loaded, err := snapStore.Load(ctx, "snap-1")
	require.NoError(t, err)
	assert.Equal(t, snap.ID, loaded.ID)
	assert.Equal(t, snap.Component, loaded.Component)

	data, ok := loaded.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bar", data["foo"])

	list, err := snapStore.List(ctx, namespace)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, snap.ID, list[0].ID)

	require.NoError(t, snapStore.Delete(ctx, "snap-1"))
	_, err = snapStore.Load(ctx, "snap-1")
	assert.Error(t, err)

	list, err = snapStore.List(ctx, namespace)
	require.NoError(t, err)
	assert.Len(t, list, 0)

	require.NoError(t, snapStore.Save(ctx, &store.Snapshot{ID: "snap-2", Namespace: namespace}))
	require.NoError(t, snapStore.Save(ctx, &store.Snapshot{ID: "snap-3", Namespace: namespace}))

	list, err = snapStore.List(ctx, namespace)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, snapStore.Clear(ctx, namespace))

	list, err = snapStore.List(ctx, namespace)
	require.NoError(t, err)
	assert.Len(t, list, 0)
}
