// Package config содержит конфигурацию сервиса заметок.
package config

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"notecache/pkg/config"
	"notecache/pkg/logger"
)

// Константы ошибок и сообщений для конфигурации.
const (
	ServiceName         = "notes"
	LogConfigLoaded     = "notes configuration resolved"
	ErrFailedLoadConfig = "failed to load notes configuration"
	ErrInvalidBackend   = "unsupported store backend"
)

// Config представляет полную конфигурацию сервиса заметок.
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Postgres PostgresConfig `yaml:"postgres"`
	DynamoDB DynamoDBConfig `yaml:"dynamodb"`
	Redis    RedisConfig    `yaml:"redis"`
	Breaker  BreakerConfig  `yaml:"breaker"`
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	JWT      JWTConfig      `yaml:"jwt"`
	Logging  LoggingConfig  `yaml:"logging"`
	Shutdown ShutdownConfig `yaml:"shutdown"`
}

// Load загружает конфигурацию из переменных окружения.
func Load(ctx context.Context) (*Config, error) {
	log := logger.Log(ctx)

	cfg, err := config.Load[Config](ctx, ServiceName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrFailedLoadConfig, err)
	}

	if !cfg.Store.Backend.Valid() {
		log.Error(ctx, ErrInvalidBackend, zap.String("backend", string(cfg.Store.Backend)))
		return nil, fmt.Errorf("%s: %w", ErrFailedLoadConfig, fmt.Errorf("%s %q", ErrInvalidBackend, cfg.Store.Backend))
	}

	log.Info(ctx, LogConfigLoaded,
		zap.String("store_backend", string(cfg.Store.Backend)),
		zap.String("redis_address", cfg.Redis.GetAddress()),
		zap.Duration("cache_ttl", cfg.Redis.DefaultTTL),
		zap.Int("redis_pool_size", cfg.Redis.PoolSize),
		zap.String("http_address", cfg.HTTP.GetAddress()),
		zap.String("grpc_address", cfg.GRPC.GetAddress()),
		zap.String("log_level", cfg.Logging.Level),
		zap.String("log_mode", cfg.Logging.Mode),
		zap.Int("shutdown_timeout_seconds", cfg.Shutdown.Timeout))

	return cfg, nil
}
