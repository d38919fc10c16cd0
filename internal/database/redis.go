package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisClients struct {
	Events *redis.Client
	PubSub *redis.Client
}

// NewRedisClients opens two connections: one for publishing chat update
// events, one dedicated to pub/sub subscriptions (a subscribed connection
// cannot issue other commands).
func NewRedisClients(redisURL string) (*RedisClients, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	eventsClient := redis.NewClient(opt)
	if err := eventsClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis (events): %w", err)
	}

	pubsubOpt := *opt
	pubsubClient := redis.NewClient(&pubsubOpt)
	if err := pubsubClient.Ping(ctx).Err(); err != nil {
		eventsClient.Close()
		return nil, fmt.Errorf("failed to ping Redis (pubsub): %w", err)
	}

	return &RedisClients{
		Events: eventsClient,
		PubSub: pubsubClient,
	}, nil
}

func (r *RedisClients) Close() {
	r.Events.Close()
	r.PubSub.Close()
}
