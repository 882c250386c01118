// Package cache содержит реализацию кэша заметок на Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"notecache/internal/notes/config"
	"notecache/internal/notes/ports/cache"
	"notecache/pkg/logger"
)

// Константы для логирования.
const (
	LogMethodGet            = "get"
	LogMethodSet            = "set"
	LogMethodDelete         = "delete"
	LogMethodDeleteByPrefix = "delete_by_prefix"
	LogMethodIncrBy         = "incr_by"
	LogMethodIncrExisting   = "incr_by_if_exists"

	ErrorFailedToGet    = "failed to get value from redis"
	ErrorFailedToSet    = "failed to set value in redis"
	ErrorFailedToDelete = "failed to delete value from redis"
	ErrorFailedToScan   = "failed to scan keys in redis"
	ErrorFailedToIncr   = "failed to increment counter in redis"
	LogKeysInvalidated  = "keys invalidated"
	LogCacheCreated     = "redis cache created"
	ErrorFailedToPing   = "failed to ping redis"
	ErrorFailedToClose  = "failed to close redis connection"
)

const (
	breakerName       = "redis-cache"
	defaultScanCount  = 100
	defaultTTLSeconds = 300
)

// Options настраивает RedisCache.
type Options struct {
	DefaultTTL time.Duration
	ScanCount  int64
	Breaker    config.BreakerConfig
	OnState    StateListener
}

// RedisCache реализует cache.Cache поверх go-redis.
type RedisCache struct {
	client     *redis.Client
	breaker    *gobreaker.CircuitBreaker
	defaultTTL time.Duration
	scanCount  int64
}

var _ cache.Cache = (*RedisCache)(nil)

// NewRedisCache оборачивает готовый клиент Redis.
func NewRedisCache(ctx context.Context, client *redis.Client, opts Options) *RedisCache {
	scanCount := opts.ScanCount
	if scanCount <= 0 {
		scanCount = defaultScanCount
	}
	defaultTTL := opts.DefaultTTL
	if defaultTTL <= 0 {
		defaultTTL = defaultTTLSeconds * time.Second
	}
	logger.Log(ctx).Debug(ctx, LogCacheCreated,
		zap.Duration("default_ttl", defaultTTL),
		zap.Int64("scan_count", scanCount))
	return &RedisCache{
		client:     client,
		breaker:    newBreaker(breakerName, opts.Breaker, opts.OnState),
		defaultTTL: defaultTTL,
		scanCount:  scanCount,
	}
}

// Get получает значение по ключу. Отсутствие ключа не является ошибкой.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	log := logger.Log(ctx).With(zap.String("method", LogMethodGet), zap.String("key", key))

	value, err := guard(c.breaker, func() (*string, error) {
		v, err := c.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &v, nil
	})
	if err != nil {
		log.Debug(ctx, ErrorFailedToGet, zap.Error(err))
		return "", false, fmt.Errorf("%s: %w", ErrorFailedToGet, err)
	}
	if value == nil {
		return "", false, nil
	}
	return *value, true, nil
}

// Set записывает значение с TTL; ttl <= 0 означает TTL по умолчанию.
func (c *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	log := logger.Log(ctx).With(zap.String("method", LogMethodSet), zap.String("key", key))

	ttl = c.ttl(ttl)
	_, err := guard(c.breaker, func() (struct{}, error) {
		return struct{}{}, c.client.Set(ctx, key, value, ttl).Err()
	})
	if err != nil {
		log.Debug(ctx, ErrorFailedToSet, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorFailedToSet, err)
	}
	return nil
}

// Delete удаляет ключи.
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	log := logger.Log(ctx).With(zap.String("method", LogMethodDelete), zap.Strings("keys", keys))

	_, err := guard(c.breaker, func() (struct{}, error) {
		return struct{}{}, c.client.Del(ctx, keys...).Err()
	})
	if err != nil {
		log.Debug(ctx, ErrorFailedToDelete, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorFailedToDelete, err)
	}
	return nil
}

// DeleteByPrefix удаляет все ключи с префиксом. Ключи собираются полным обходом SCAN
// и удаляются пачками только после него, иначе курсор пропускает часть ключей.
func (c *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	log := logger.Log(ctx).With(zap.String("method", LogMethodDeleteByPrefix), zap.String("prefix", prefix))

	deleted, err := guard(c.breaker, func() (int64, error) {
		var keys []string
		iter := c.client.Scan(ctx, 0, escapeGlob(prefix)+"*", c.scanCount).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return 0, fmt.Errorf("%s: %w", ErrorFailedToScan, err)
		}

		var total int64
		for batch := range slices.Chunk(keys, int(c.scanCount)) {
			n, err := c.client.Del(ctx, batch...).Result()
			if err != nil {
				return total, fmt.Errorf("%s: %w", ErrorFailedToDelete, err)
			}
			total += n
		}
		return total, nil
	})
	if err != nil {
		log.Debug(ctx, ErrorFailedToScan, zap.Error(err))
		return deleted, fmt.Errorf("%s: %w", ErrorFailedToScan, err)
	}

	log.Debug(ctx, LogKeysInvalidated, zap.Int64("deleted", deleted))
	return deleted, nil
}

// IncrBy выполняет INCRBY и EXPIRE в одной транзакции.
func (c *RedisCache) IncrBy(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	log := logger.Log(ctx).With(zap.String("method", LogMethodIncrBy), zap.String("key", key))

	ttl = c.ttl(ttl)
	value, err := guard(c.breaker, func() (int64, error) {
		var incr *redis.IntCmd
		_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.IncrBy(ctx, key, delta)
			pipe.Expire(ctx, key, ttl)
			return nil
		})
		if err != nil {
			return 0, err
		}
		return incr.Val(), nil
	})
	if err != nil {
		log.Debug(ctx, ErrorFailedToIncr, zap.Error(err))
		return 0, fmt.Errorf("%s: %w", ErrorFailedToIncr, err)
	}
	return value, nil
}

// incrExistingScript сдвигает счетчик и продлевает TTL, только если ключ уже есть.
// Для отсутствующего ключа возвращает nil.
var incrExistingScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return false
end
local v = redis.call("INCRBY", KEYS[1], ARGV[1])
redis.call("PEXPIRE", KEYS[1], ARGV[2])
return v
`)

// IncrByIfExists сдвигает существующий счетчик. Отсутствующий ключ не создается.
func (c *RedisCache) IncrByIfExists(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, bool, error) {
	log := logger.Log(ctx).With(zap.String("method", LogMethodIncrExisting), zap.String("key", key))

	ttl = c.ttl(ttl)
	value, err := guard(c.breaker, func() (*int64, error) {
		v, err := incrExistingScript.Run(ctx, c.client, []string{key}, delta, ttl.Milliseconds()).Int64()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &v, nil
	})
	if err != nil {
		log.Debug(ctx, ErrorFailedToIncr, zap.Error(err))
		return 0, false, fmt.Errorf("%s: %w", ErrorFailedToIncr, err)
	}
	if value == nil {
		return 0, false, nil
	}
	return *value, true, nil
}

// Ping проверяет соединение в обход breaker.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%s: %w", ErrorFailedToPing, err)
	}
	return nil
}

// Close закрывает соединение с Redis.
func (c *RedisCache) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("%s: %w", ErrorFailedToClose, err)
	}
	return nil
}

func (c *RedisCache) ttl(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return c.defaultTTL
	}
	return ttl
}

var globReplacer = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globReplacer.Replace(s)
}
