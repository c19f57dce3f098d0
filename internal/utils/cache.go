package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// GetCache retrieves a value from Redis and unmarshals it into dest
func GetCache(ctx context.Context, rdb redis.Cmdable, key string, dest any) (bool, error) {
	val, err := rdb.Get(ctx, key).Result() // Get value from Redis
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb redis.Cmdable, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// DeleteCache deletes a key from Redis
func DeleteCache(ctx context.Context, rdb redis.Cmdable, key string) error {
	return rdb.Del(ctx, key).Err() // Delete key from Redis
}

// DeleteCachePrefix deletes every key starting with prefix
func DeleteCachePrefix(ctx context.Context, rdb redis.Cmdable, prefix string) error {
	var cursor uint64
	for {
		keys, next, err := rdb.Scan(ctx, cursor, prefix+"*", 100).Result() // Scan one batch
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil // Scan complete
		}
		cursor = next
	}
}

// RedisCache exposes the helpers above as a value usable behind an interface
type RedisCache struct {
	Client redis.Cmdable // Redis client
}

// Get retrieves key into dest
func (c RedisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	return GetCache(ctx, c.Client, key, dest)
}

// Set stores value under key for ttl
func (c RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return SetCache(ctx, c.Client, key, value, ttl)
}

// Delete removes key
func (c RedisCache) Delete(ctx context.Context, key string) error {
	return DeleteCache(ctx, c.Client, key)
}

// DeletePrefix removes every key starting with prefix
func (c RedisCache) DeletePrefix(ctx context.Context, prefix string) error {
	return DeleteCachePrefix(ctx, c.Client, prefix)
}
