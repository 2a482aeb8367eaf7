package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default bounds for the Redis backend. The TTL is the only upper bound on
// cross-instance staleness, so it is kept short.
const (
	defaultTTL  = 15 * time.Minute
	dialTimeout = 3 * time.Second
)

// Redis is a Store backed by a Redis server. Tags are tracked as Redis sets
// of member keys, so InvalidateTag clears every tagged entry in one round.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis parses a Redis URL, verifies connectivity, and returns a
// ready-to-use Store with tag support.
func NewRedis(ctx context.Context, redisURL string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	opts.DialTimeout = dialTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &Redis{client: client, ttl: defaultTTL}, nil
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Get returns the cached value for key; redis.Nil maps to a miss.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %q: %w", key, err)
	}
	return v, true, nil
}

// Set stores the value with the default TTL and registers the key under
// each tag's member set.
func (r *Redis) Set(ctx context.Context, key string, value []byte, tags ...string) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, value, r.ttl)
	for _, tag := range tags {
		pipe.SAdd(ctx, tagKey(tag), key)
		pipe.Expire(ctx, tagKey(tag), r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return nil
}

// Delete removes a single key.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache delete %q: %w", key, err)
	}
	return nil
}

// InvalidateTag deletes every key registered under the tag, then the tag
// set itself.
func (r *Redis) InvalidateTag(ctx context.Context, tag string) error {
	keys, err := r.client.SMembers(ctx, tagKey(tag)).Result()
	if err != nil {
		return fmt.Errorf("cache tag members %q: %w", tag, err)
	}

	pipe := r.client.TxPipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, tagKey(tag))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache invalidate tag %q: %w", tag, err)
	}
	return nil
}

func tagKey(tag string) string {
	return "tag:" + tag
}
