package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cognitron/cognitron/cerr"
	"github.com/cognitron/cognitron/store"
	"github.com/redis/go-redis/v9"
)

// SnapshotStore implements store.SnapshotStore using Redis. It's the
// high-performance, optionally-expiring backend: best for short-lived
// working-memory snapshots rather than long-term archival.
type SnapshotStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default "cognitron:"
	TTL      time.Duration // Expiration for snapshots, default 0 (no expiration)
}

// New creates a Redis-backed snapshot store.
func New(opts Options) *SnapshotStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "cognitron:"
	}

	return &SnapshotStore{client: client, prefix: prefix, ttl: opts.TTL}
}

func (s *SnapshotStore) snapshotKey(id string) string {
	return fmt.Sprintf("%ssnapshot:%s", s.prefix, id)
}

func (s *SnapshotStore) namespaceKey(ns string) string {
	return fmt.Sprintf("%snamespace:%s:snapshots", s.prefix, ns)
}

func (s *SnapshotStore) Save(ctx context.Context, snapshot *store.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return cerr.Wrap("store/redis", cerr.Persistence, "marshal snapshot failed", err)
	}

	key := s.snapshotKey(snapshot.ID)
	pipe := s.client.Pipeline()
	pipe.Set(ctx, key, data, s.ttl)

	if snapshot.Namespace != "" {
		nsKey := s.namespaceKey(snapshot.Namespace)
		pipe.SAdd(ctx, nsKey, snapshot.ID)
		if s.ttl > 0 {
			pipe.Expire(ctx, nsKey, s.ttl)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return cerr.Wrap("store/redis", cerr.Persistence, "save snapshot failed", err)
	}
	return nil
}

func (s *SnapshotStore) Load(ctx context.Context, snapshotID string) (*store.Snapshot, error) {
	key := s.snapshotKey(snapshotID)
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, cerr.New("store/redis", cerr.NotFound, "snapshot not found: "+snapshotID)
		}
		return nil, cerr.Wrap("store/redis", cerr.Persistence, "load snapshot failed", err)
	}

	var snapshot store.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, cerr.Wrap("store/redis", cerr.Persistence, "unmarshal snapshot failed", err)
	}
	return &snapshot, nil
}

func (s *SnapshotStore) List(ctx context.Context, namespace string) ([]*store.Snapshot, error) {
	nsKey := s.namespaceKey(namespace)
	ids, err := s.client.SMembers(ctx, nsKey).Result()
	if err != nil {
		return nil, cerr.Wrap("store/redis", cerr.Persistence, fmt.Sprintf("list snapshots for namespace %s failed", namespace), err)
	}
	if len(ids) == 0 {
		return []*store.Snapshot{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.snapshotKey(id))
	}

	results, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, cerr.Wrap("store/redis", cerr.Persistence, "fetch snapshots failed", err)
	}

	var snapshots []*store.Snapshot
	for _, result := range results {
		if result == nil {
			continue
		}
		strData, ok := result.(string)
		if !ok {
			continue
		}
		var snapshot store.Snapshot
		if err := json.Unmarshal([]byte(strData), &snapshot); err != nil {
			continue
		}
		snapshots = append(snapshots, &snapshot)
	}
	return snapshots, nil
}

func (s *SnapshotStore) Delete(ctx context.Context, snapshotID string) error {
	snapshot, err := s.Load(ctx, snapshotID)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.snapshotKey(snapshotID))
	if snapshot.Namespace != "" {
		pipe.SRem(ctx, s.namespaceKey(snapshot.Namespace), snapshotID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return cerr.Wrap("store/redis", cerr.Persistence, "delete snapshot failed", err)
	}
	return nil
}

func (s *SnapshotStore) Clear(ctx context.Context, namespace string) error {
	nsKey := s.namespaceKey(namespace)
	ids, err := s.client.SMembers(ctx, nsKey).Result()
	if err != nil {
		return cerr.Wrap("store/redis", cerr.Persistence, "list snapshots for clearing failed", err)
	}
	if len(ids) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, s.snapshotKey(id))
	}
	pipe.Del(ctx, nsKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return cerr.Wrap("store/redis", cerr.Persistence, "clear snapshots failed", err)
	}
	return nil
}
