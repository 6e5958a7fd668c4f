package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes settlement events on a Redis pub/sub channel so
// other instances and external collaborators can subscribe.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher creates a publisher over an existing Redis client. The
// client is owned by the caller.
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = "mediahub:settlement:events"
	}
	return &RedisPublisher{client: client, channel: channel}
}

// Publish serializes the event as JSON and publishes it.
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Ensure RedisPublisher implements Publisher
var _ Publisher = (*RedisPublisher)(nil)
