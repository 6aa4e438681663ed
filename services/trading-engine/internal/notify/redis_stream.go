package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStream appends every event to a capped redis stream so other services
// can consume bot activity.
type RedisStream struct {
	client streamAdder
	stream string
	maxLen int64
}

func NewRedisStream(client streamAdder, stream string, maxLen int64) *RedisStream {
	if stream == "" {
		stream = "trend-trader:events"
	}
	return &RedisStream{client: client, stream: stream, maxLen: maxLen}
}

func (r *RedisStream) Notify(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]interface{}{
			"kind":    string(e.Kind),
			"bot":     e.Bot,
			"symbol":  e.Symbol,
			"payload": string(payload),
		},
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}

	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", r.stream, err)
	}
	return nil
}
