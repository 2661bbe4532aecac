package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisKV：Redis 字符串键后端，键名加前缀以便与其他业务共用实例
type RedisKV struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisKV(rdb *redis.Client, prefix string) *RedisKV {
	return &RedisKV{rdb: rdb, prefix: prefix}
}

func (k *RedisKV) Name() string { return "redis" }

func (k *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := k.rdb.Get(ctx, k.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("redis", err)
	}
	return v, true, nil
}

func (k *RedisKV) Set(ctx context.Context, key, value string) error {
	if err := k.rdb.Set(ctx, k.prefix+key, value, 0).Err(); err != nil {
		return unavailable("redis", err)
	}
	return nil
}

func (k *RedisKV) Delete(ctx context.Context, key string) error {
	if err := k.rdb.Del(ctx, k.prefix+key).Err(); err != nil {
		return unavailable("redis", err)
	}
	return nil
}

// Ping：连通性检查
func (k *RedisKV) Ping(ctx context.Context) error {
	if err := k.rdb.Ping(ctx).Err(); err != nil {
		return unavailable("redis", err)
	}
	return nil
}
