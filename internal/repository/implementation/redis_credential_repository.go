package implementation

import (
	"context"
	"errors"
	"fmt"

	"ragchat-client/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

type redisCredentialRepository struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCredentialRepository shares credentials between every client process
// pointed at the same Redis instance and prefix.
func NewRedisCredentialRepository(rdb *redis.Client, prefix string) contract.ICredentialRepository {
	return &redisCredentialRepository{rdb: rdb, prefix: prefix}
}

func (r *redisCredentialRepository) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.rdb.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

func (r *redisCredentialRepository) Set(ctx context.Context, key, value string) error {
	if err := r.rdb.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *redisCredentialRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, key := range keys {
		prefixed = append(prefixed, r.prefix+key)
	}
	// DEL with several keys is atomic
	if err := r.rdb.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
