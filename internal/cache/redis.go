package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/WeWe-power/DiscussionProject/internal/config"
)

// Leaderboard slot keys. Written only by the aggregator, read by the API.
const (
	KeyBestMessages  = "best_messages"
	KeyWorstMessages = "worst_messages"
	KeyUsersScoring  = "users_scoring"
)

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes the Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// SetLeaderboard overwrites one leaderboard slot with a serialized board.
// Slots carry no TTL: the next aggregation run replaces them.
func (c *RedisCache) SetLeaderboard(ctx context.Context, key string, payload []byte) error {
	return c.Client.Set(ctx, key, payload, 0).Err()
}

// GetLeaderboard reads one leaderboard slot. An absent slot is a normal
// state (no aggregation has run yet) and is reported via found=false,
// not an error.
func (c *RedisCache) GetLeaderboard(ctx context.Context, key string) (payload []byte, found bool, err error) {
	val, err := c.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}
