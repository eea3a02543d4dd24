package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements chart session storage using Redis
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a new Redis-backed chart store
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, ttl), nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client: client,
		prefix: "chart:",
		ttl:    ttl,
	}
}

// key generates the Redis key for a chart ID
func (s *RedisStore) key(chartID string) string {
	return s.prefix + chartID
}

// Get retrieves a chart record
func (s *RedisStore) Get(ctx context.Context, chartID string) (Record, error) {
	jsonData, err := s.client.Get(ctx, s.key(chartID)).Result()
	if err == redis.Nil {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("lookup chart: %w", err)
	}

	var record Record
	if err := json.Unmarshal([]byte(jsonData), &record); err != nil {
		return Record{}, fmt.Errorf("unmarshal chart record: %w", err)
	}
	return record, nil
}

// Put stores a chart record and refreshes its expiration
func (s *RedisStore) Put(ctx context.Context, chartID string, record Record) error {
	jsonData, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal chart record: %w", err)
	}

	if err := s.client.Set(ctx, s.key(chartID), jsonData, s.ttl).Err(); err != nil {
		return fmt.Errorf("save chart: %w", err)
	}
	return nil
}

// Delete removes a chart record
func (s *RedisStore) Delete(ctx context.Context, chartID string) error {
	if err := s.client.Del(ctx, s.key(chartID)).Err(); err != nil {
		return fmt.Errorf("delete chart: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
