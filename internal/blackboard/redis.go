package blackboard

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisStore provides a Redis-backed implementation of Store using plain
// string keys, so entries written by other clients stay readable.
type RedisStore struct {
	mu      sync.Mutex
	client  *redis.Client
	options *redis.Options
	logger  *log.Logger
}

// NewRedisStore returns a new RedisStore with given options.
func NewRedisStore(opts *redis.Options, logger *log.Logger) *RedisStore {
	if logger == nil {
		logger = log.Default()
	}
	return &RedisStore{
		client:  redis.NewClient(opts),
		options: opts,
		logger:  logger,
	}
}

// ensureConnection pings Redis and reconnects if needed.
func (s *RedisStore) ensureConnection(ctx context.Context) *redis.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.client.Ping(ctx).Err(); err != nil {
		s.logger.Println("[WARN] blackboard reconnecting to Redis", err)
		_ = s.client.Close()
		s.client = redis.NewClient(s.options)
	}
	return s.client
}

// Ping verifies the broker is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	return client.Ping(ctx).Err()
}

// Get retrieves a value.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.ensureConnection(ctx).Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set stores a value without expiry.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.ensureConnection(ctx).Set(ctx, key, value, 0).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client.Close()
}
