package sigcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const redisKeyPrefix = "signet:sigcache:"

// Redis is a Cache backed by a Redis (or Redis-compatible SaaS) instance.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to the Redis URL and verifies the connection.
func NewRedis(ctx context.Context, redisURL string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Info().Str("addr", opts.Addr).Msg("Signature cache using Redis")
	return &Redis{client: client, ttl: ttl}, nil
}

// Put stores a signature data-URL with the configured TTL.
func (r *Redis) Put(ctx context.Context, key, dataURL string) error {
	if !validDataURL(dataURL) {
		return errors.New("sigcache: not an image data-URL")
	}
	if err := r.client.Set(ctx, redisKeyPrefix+key, dataURL, r.ttl).Err(); err != nil {
		return fmt.Errorf("set signature cache entry: %w", err)
	}
	return nil
}

// Get returns the stored data-URL or ErrNotFound.
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get signature cache entry: %w", err)
	}
	return val, nil
}

// Close releases the Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}
