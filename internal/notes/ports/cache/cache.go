// Package cache определяет порт TTL-хранилища ключ-значение.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable означает, что кэш отклонил вызов без обращения к серверу.
var ErrUnavailable = errors.New("cache unavailable")

// Cache определяет примитивы кэша. Отсутствие ключа не является ошибкой.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)

	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	Delete(ctx context.Context, keys ...string) error

	// DeleteByPrefix удаляет все ключи с префиксом и возвращает их число.
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)

	// IncrBy увеличивает счетчик на delta и обновляет его TTL.
	// Отсутствующий ключ создается со значением delta.
	IncrBy(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)

	// IncrByIfExists сдвигает счетчик и обновляет TTL, только если ключ существует.
	// Для отсутствующего ключа возвращает ok=false и ничего не создает.
	IncrByIfExists(ctx context.Context, key string, delta int64, ttl time.Duration) (value int64, ok bool, err error)

	Ping(ctx context.Context) error

	Close() error
}
