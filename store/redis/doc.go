// Package redis provides a Redis-backed store.SnapshotStore implementation:
// the low-latency, optionally-expiring backend for snapshots that don't
// need to survive beyond a session or a bounded TTL window.
//
// Each snapshot is stored as a JSON blob under a prefixed key, with a
// per-namespace Redis set tracking membership so List and Clear can
// enumerate and remove a namespace's snapshots without a full key scan.
//
//	snapStore := redis.New(redis.Options{
//		Addr:   "localhost:6379",
//		Prefix: "cognitron:",
//		TTL:    24 * time.Hour,
//	})
//
//	err := snapStore.Save(ctx, &store.Snapshot{
//		ID:        "snap-1",
//		Namespace: conversationID,
//		Component: "conceptgraph",
//		Data:      graph.Export(),
//	})
package redis
