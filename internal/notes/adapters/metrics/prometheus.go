// Package metrics содержит метрики Prometheus для сервиса заметок.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
)

// Значения метки result.
const (
	ResultHit  = "hit"
	ResultMiss = "miss"
)

// Collector хранит метрики сервиса в собственном реестре.
type Collector struct {
	registry *prometheus.Registry

	CacheRequests *prometheus.CounterVec
	CacheFailures *prometheus.CounterVec
	BreakerState  *prometheus.GaugeVec
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
}

// NewCollector создает набор метрик с заданным namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		CacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_requests_total",
				Help:      "Cache lookups by key family and result",
			},
			[]string{"family", "result"},
		),
		CacheFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_failures_total",
				Help:      "Failed cache operations downgraded to a miss or no-op",
			},
			[]string{"op"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cache_breaker_state",
				Help:      "Cache circuit breaker state: 0 closed, 1 half-open, 2 open",
			},
			[]string{"breaker"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		c.CacheRequests,
		c.CacheFailures,
		c.BreakerState,
		c.HTTPRequests,
		c.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Hit учитывает попадание в кэш.
func (c *Collector) Hit(family string) {
	c.CacheRequests.WithLabelValues(family, ResultHit).Inc()
}

// Miss учитывает промах кэша.
func (c *Collector) Miss(family string) {
	c.CacheRequests.WithLabelValues(family, ResultMiss).Inc()
}

// Failure учитывает сбой операции кэша.
func (c *Collector) Failure(op string) {
	c.CacheFailures.WithLabelValues(op).Inc()
}

// BreakerStateChanged выставляет gauge состояния breaker.
func (c *Collector) BreakerStateChanged(name string, _, to gobreaker.State) {
	c.BreakerState.WithLabelValues(name).Set(breakerStateValue(to))
}

// ObserveHTTP учитывает обработанный HTTP-запрос.
func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler отдает метрики реестра.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry возвращает реестр метрик.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
