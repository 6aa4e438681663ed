package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/paaavkata/trend-trader/services/trading-engine/internal/position"
)

type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps each snapshot as a JSON string under prefix + bot name.
type RedisStore struct {
	client redisClient
	prefix string
}

func NewRedisStore(client redisClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "trend-trader:state:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) key(bot string) string { return r.prefix + bot }

func (r *RedisStore) Save(ctx context.Context, bot string, snap position.Snapshot) error {
	if err := checkName(bot); err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := r.client.Set(ctx, r.key(bot), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save state to redis: %w", err)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context, bot string) (position.Snapshot, bool, error) {
	if err := checkName(bot); err != nil {
		return position.Snapshot{}, false, err
	}

	data, err := r.client.Get(ctx, r.key(bot)).Bytes()
	if errors.Is(err, redis.Nil) {
		return position.Snapshot{}, false, nil
	}
	if err != nil {
		return position.Snapshot{}, false, fmt.Errorf("failed to load state from redis: %w", err)
	}

	var snap position.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return position.Snapshot{}, false, fmt.Errorf("failed to decode state for %s: %w", bot, err)
	}
	return snap, true, nil
}

func (r *RedisStore) Delete(ctx context.Context, bot string) error {
	if err := r.client.Del(ctx, r.key(bot)).Err(); err != nil {
		return fmt.Errorf("failed to delete state from redis: %w", err)
	}
	return nil
}
