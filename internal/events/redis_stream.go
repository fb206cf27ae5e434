package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultStreamMaxLen = 100_000

// RedisStreamPublisher appends events to a Redis stream so that downstream
// indexers can follow enrollment and recovery activity.
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisStreamPublisher builds a stream publisher. The stream is trimmed
// approximately to a bounded length.
func NewRedisStreamPublisher(client *redis.Client, stream string) *RedisStreamPublisher {
	return &RedisStreamPublisher{client: client, stream: stream, maxLen: defaultStreamMaxLen}
}

// Publish appends the event with XADD.
func (p *RedisStreamPublisher) Publish(ctx context.Context, event Event) error {
	values := make(map[string]any)
	for k, v := range event.Fields() {
		values[k] = v
	}
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: values,
	}).Err()
	if err != nil {
		return fmt.Errorf("publish %s to stream %s: %w", event.Kind, p.stream, err)
	}
	return nil
}
