package config

import "time"

// BreakerConfig настраивает circuit breaker вокруг обращений к кэшу.
type BreakerConfig struct {
	MaxRequests         uint32        `yaml:"max_requests" env:"NOTES_BREAKER_MAX_REQUESTS" env-default:"3"`
	Interval            time.Duration `yaml:"interval" env:"NOTES_BREAKER_INTERVAL" env-default:"30s"`
	Timeout             time.Duration `yaml:"timeout" env:"NOTES_BREAKER_TIMEOUT" env-default:"10s"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures" env:"NOTES_BREAKER_CONSECUTIVE_FAILURES" env-default:"5"`
}
