package grpc

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"notecache/pkg/logger"
)

// Имена служб в health.
const (
	ServiceOverall = ""
	ServiceStore   = "store"
	ServiceCache   = "cache"
)

// Состояния компонентов и сервиса.
const (
	StatusUp       = "up"
	StatusDown     = "down"
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// LogComponentDown - сообщение о недоступном компоненте.
const LogComponentDown = "health check failed"

const (
	defaultHealthInterval = 15 * time.Second
	pingTimeout           = 2 * time.Second
)

// Pinger - компонент с проверкой доступности.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusSetter - приемник статусов служб, обычно *health.Server.
type StatusSetter interface {
	SetServingStatus(service string, status healthpb.HealthCheckResponse_ServingStatus)
}

// Snapshot - результат последней проверки.
type Snapshot struct {
	Store     string    `json:"store"`
	Cache     string    `json:"cache"`
	CheckedAt time.Time `json:"checked_at"`
}

// Status сводит состояние компонентов: без хранилища сервис не работает, без кэша деградирует.
func (s Snapshot) Status() string {
	switch {
	case s.Store != StatusUp:
		return StatusDown
	case s.Cache != StatusUp:
		return StatusDegraded
	default:
		return StatusOK
	}
}

// HealthMonitor периодически проверяет хранилище и кэш.
type HealthMonitor struct {
	store    Pinger
	cache    Pinger
	setter   StatusSetter
	interval time.Duration

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewHealthMonitor создает монитор; interval <= 0 означает 15 секунд.
func NewHealthMonitor(store, cache Pinger, setter StatusSetter, interval time.Duration) *HealthMonitor {
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	return &HealthMonitor{
		store:    store,
		cache:    cache,
		setter:   setter,
		interval: interval,
		snapshot: Snapshot{Store: StatusDown, Cache: StatusDown},
	}
}

// Check проверяет компоненты и публикует статусы.
func (m *HealthMonitor) Check(ctx context.Context) Snapshot {
	snap := Snapshot{
		Store:     ping(ctx, ServiceStore, m.store),
		Cache:     ping(ctx, ServiceCache, m.cache),
		CheckedAt: time.Now().UTC(),
	}

	if m.setter != nil {
		m.setter.SetServingStatus(ServiceOverall, servingStatus(snap.Store))
		m.setter.SetServingStatus(ServiceStore, servingStatus(snap.Store))
		m.setter.SetServingStatus(ServiceCache, servingStatus(snap.Cache))
	}

	m.mu.Lock()
	m.snapshot = snap
	m.mu.Unlock()

	return snap
}

// Run выполняет Check сразу и затем каждые interval, пока не отменен ctx.
func (m *HealthMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Snapshot возвращает результат последней проверки.
func (m *HealthMonitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

func ping(ctx context.Context, name string, p Pinger) string {
	if p == nil {
		return StatusDown
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := p.Ping(pingCtx); err != nil {
		logger.Log(ctx).Warn(ctx, LogComponentDown, zap.String("component", name), zap.Error(err))
		return StatusDown
	}
	return StatusUp
}

func servingStatus(status string) healthpb.HealthCheckResponse_ServingStatus {
	if status == StatusUp {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}
