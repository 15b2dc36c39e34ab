package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/pranshuparmar/procalert/pkg/model"
)

// DefaultRedisChannel is the Pub/Sub channel used when none is configured.
const DefaultRedisChannel = "procalert.alerts"

// RedisPublisher is the part of *redis.Client used by Redis.
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Redis publishes notifications as JSON on a Pub/Sub channel.
type Redis struct {
	client  RedisPublisher
	channel string
	closer  func() error
}

// NewRedis publishes on channel through client. The client is not closed by
// Close.
func NewRedis(client RedisPublisher, channel string) *Redis {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &Redis{client: client, channel: channel}
}

// DialRedis connects to the server at addr and verifies it answers.
func DialRedis(ctx context.Context, addr, channel string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	r := NewRedis(client, channel)
	r.closer = client.Close
	return r, nil
}

func (r *Redis) Name() string {
	return "redis"
}

func (r *Redis) Notify(ctx context.Context, n model.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", r.channel, err)
	}
	return nil
}

func (r *Redis) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}
