// Package core provides a simplified Redis client wrapper with namespacing
// and connection management, used by registry.RedisStore to persist a run's
// registry records (not its trace) for cross-process audit (SPEC_FULL.md,
// DOMAIN STACK).
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisClient provides a simplified Redis interface with key namespacing.
type RedisClient struct {
	client    *redis.Client
	namespace string
	logger    Logger
}

// RedisClientOptions configures the Redis client.
type RedisClientOptions struct {
	RedisURL  string
	Namespace string
	Logger    Logger
}

// NewRedisClient creates a new Redis client with the given options and
// verifies connectivity with a short-timeout ping.
func NewRedisClient(opts RedisClientOptions) (*RedisClient, error) {
	if opts.RedisURL == "" {
		return nil, fmt.Errorf("redis URL is required: %w", ErrInvalidConfiguration)
	}

	redisOpt, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", ErrInvalidConfiguration)
	}

	client := redis.NewClient(redisOpt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	rc := &RedisClient{
		client:    client,
		namespace: opts.Namespace,
		logger:    opts.Logger,
	}
	if rc.logger != nil {
		rc.logger.Info("redis client connected", map[string]interface{}{"namespace": opts.Namespace})
	}
	return rc, nil
}

// Close closes the Redis connection.
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// Namespace returns the key namespace being used.
func (r *RedisClient) Namespace() string {
	return r.namespace
}

func (r *RedisClient) formatKey(key string) string {
	if r.namespace != "" {
		return fmt.Sprintf("%s:%s", r.namespace, key)
	}
	return key
}

// HSet stores a hash field.
func (r *RedisClient) HSet(ctx context.Context, key, field string, value interface{}) error {
	return r.client.HSet(ctx, r.formatKey(key), field, value).Err()
}

// HGet retrieves a hash field.
func (r *RedisClient) HGet(ctx context.Context, key, field string) (string, error) {
	return r.client.HGet(ctx, r.formatKey(key), field).Result()
}

// HGetAll retrieves every field in a hash.
func (r *RedisClient) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return r.client.HGetAll(ctx, r.formatKey(key)).Result()
}

// RPush appends a value to a list, used to persist append-only trace events.
func (r *RedisClient) RPush(ctx context.Context, key string, value interface{}) error {
	return r.client.RPush(ctx, r.formatKey(key), value).Err()
}

// LRange returns a range of list values.
func (r *RedisClient) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return r.client.LRange(ctx, r.formatKey(key), start, stop).Result()
}

// Expire sets a TTL on a key, used for the heartbeat-refresh pattern the
// optional Redis execution store applies to long-running runs.
func (r *RedisClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return r.client.Expire(ctx, r.formatKey(key), ttl).Err()
}

// HealthCheck verifies Redis connectivity.
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
