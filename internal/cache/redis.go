package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend shares tag versions and view entries between server
// processes through Redis.
type RedisBackend struct {
	client *redis.Client
}

var _ Backend = (*RedisBackend)(nil)

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// OpenRedis connects and pings the server.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return &RedisBackend{client: client}, nil
}

// Versions implements Backend with one MGET.
func (r *RedisBackend) Versions(ctx context.Context, keys []string) ([]uint64, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read tag versions: %w", err)
	}
	return parseVersions(vals)
}

func parseVersions(vals []any) ([]uint64, error) {
	versions := make([]uint64, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue // nil: key never bumped
		}
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse tag version %q: %w", s, err)
		}
		versions[i] = n
	}
	return versions, nil
}

// Bump implements Backend with pipelined INCRs.
func (r *RedisBackend) Bump(ctx context.Context, keys []string) error {
	_, err := r.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range keys {
			p.Incr(ctx, k)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bump tag versions: %w", err)
	}
	return nil
}

// Load implements Backend.
func (r *RedisBackend) Load(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load view %s: %w", key, err)
	}
	return val, true, nil
}

// Save implements Backend.
func (r *RedisBackend) Save(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("save view %s: %w", key, err)
	}
	return nil
}

// Close implements Backend.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}
