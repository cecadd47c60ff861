package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"auction-relay/internal/domain"
)

// RedisChannel receives every event. Per-kind channels are RedisChannel:<Kind>.
const RedisChannel = "auction:events"

// RedisOptions configures a RedisPublisher.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// RedisPublisher publishes events with Redis PUBLISH.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher connects to Redis and verifies the connection.
func NewRedisPublisher(ctx context.Context, opts RedisOptions) (*RedisPublisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisPublisher{client: rdb}, nil
}

// RedisKindChannel returns the channel for one event kind.
func RedisKindChannel(kind domain.EventKind) string {
	return RedisChannel + ":" + string(kind)
}

// Name returns "redis".
func (p *RedisPublisher) Name() string {
	return "redis"
}

// Publish sends e to the shared channel and its kind channel in one round trip.
func (p *RedisPublisher) Publish(ctx context.Context, e *domain.ContractEvent) error {
	payload, err := encode(e)
	if err != nil {
		return err
	}

	pipe := p.client.Pipeline()
	pipe.Publish(ctx, RedisChannel, payload)
	pipe.Publish(ctx, RedisKindChannel(e.Kind), payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
