package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var rdb *redis.Client

// ErrUnavailable is returned when no redis client is configured; callers
// treat it as a cache miss.
var ErrUnavailable = errors.New("cache unavailable")

func RedisClient(addr string, password string, db int) error {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return err
	}

	rdb = client
	return nil
}

func SetCache(key string, value interface{}, expiration time.Duration) error {
	if rdb == nil {
		return ErrUnavailable
	}

	ctx := context.Background()
	return rdb.Set(ctx, key, value, expiration).Err()
}

func GetCache(key string) (string, error) {
	if rdb == nil {
		return "", ErrUnavailable
	}

	ctx := context.Background()
	val, err := rdb.Get(ctx, key).Result()
	if err != nil {
		return "", err
	}
	return val, nil
}
