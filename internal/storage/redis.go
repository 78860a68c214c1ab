package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"delivery-audit/internal/data"
)

const DefaultReferenceKey = "delivery:reference"

// RedisStore keeps reference times in one hash, field = ticket id.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(ctx context.Context, redisURL, key string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return NewRedisStoreWithClient(client, key), nil
}

func NewRedisStoreWithClient(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultReferenceKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Lookup(ctx context.Context, ticketID string) (*data.TimeValue, error) {
	raw, err := s.client.HGet(ctx, s.key, ticketID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading reference for %s: %w", ticketID, err)
	}
	tv, err := data.ParseClock(raw)
	if err != nil {
		return nil, fmt.Errorf("stored reference for %s: %w", ticketID, err)
	}
	return &tv, nil
}

func (s *RedisStore) Put(ctx context.Context, ticketID string, t data.TimeValue) error {
	if err := s.client.HSet(ctx, s.key, ticketID, t.String()).Err(); err != nil {
		return fmt.Errorf("storing reference for %s: %w", ticketID, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
