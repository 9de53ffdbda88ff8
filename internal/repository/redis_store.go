package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/match-session-planner/internal/model"
)

// RedisStore keeps the snapshot as one JSON value under a single key.
// SET replaces the value atomically, which is all SaveAll needs.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a Redis-backed snapshot store.  The snapshot is
// stored under "<prefix>:snapshot"; an empty prefix defaults to
// "matchsessions".
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "matchsessions"
	}
	return &RedisStore{client: client, key: prefix + ":snapshot"}
}

// LoadAll fetches and decodes the snapshot.  A missing key is an empty
// snapshot.
func (r *RedisStore) LoadAll(ctx context.Context) (model.Snapshot, error) {
	val, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return normalize(model.Snapshot{}), nil
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("redis get snapshot: %w", err)
	}
	var snap model.Snapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return normalize(snap), nil
}

// SaveAll encodes snap and overwrites the key without expiry.
func (r *RedisStore) SaveAll(ctx context.Context, snap model.Snapshot) error {
	data, err := json.Marshal(normalize(snap))
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return r.client.Set(ctx, r.key, data, 0).Err()
}
