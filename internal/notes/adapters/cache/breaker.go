package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"notecache/internal/notes/config"
	"notecache/internal/notes/ports/cache"
	"notecache/pkg/logger"
)

// LogBreakerStateChanged - сообщение о смене состояния breaker.
const LogBreakerStateChanged = "cache circuit breaker state changed"

// StateListener получает уведомления о смене состояния breaker.
type StateListener func(name string, from, to gobreaker.State)

// newBreaker создает breaker кэша. Смена состояния не относится к конкретному запросу,
// поэтому логируется глобальным логгером без request id.
func newBreaker(name string, cfg config.BreakerConfig, listener StateListener) *gobreaker.CircuitBreaker {
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			ctx := context.Background()
			logger.Log(ctx).Warn(ctx, LogBreakerStateChanged,
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			if listener != nil {
				listener(name, from, to)
			}
		},
		// Отмена запроса вызывающей стороной не говорит о здоровье Redis.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

// guard выполняет fn через breaker; отказ breaker превращается в cache.ErrUnavailable.
func guard[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	res, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%w: %w", cache.ErrUnavailable, err)
		}
		return zero, err
	}
	v, _ := res.(T)
	return v, nil
}
