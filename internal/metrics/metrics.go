// Package metrics exposes Prometheus counters for the HTTP layer, the push
// channel and the notification fan-out.
//
// Each Collector owns its own registry instead of using the global default
// one, so tests can build as many collectors as they like without
// "duplicate metrics collector registration" panics.
//
// Every method is safe to call on a nil *Collector. Services take an
// optional collector and tests usually pass nil.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "heapoverflow"

// Collector holds every metric the server exports.
type Collector struct {
	registry *prometheus.Registry

	// HTTP
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Push channel
	Broadcasts     *prometheus.CounterVec
	WSConnections  prometheus.Gauge
	WSDroppedConns prometheus.Counter

	// Fan-out
	NotificationsCreated prometheus.Counter
	FanoutFailures       *prometheus.CounterVec
}

// NewCollector builds a collector with a fresh registry. Go runtime and
// process metrics are registered alongside the application ones.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
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
		Broadcasts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "broadcast_events_total",
				Help:      "Push events emitted, by event name",
			},
			[]string{"event"},
		),
		WSConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "websocket_connections",
				Help:      "Currently connected push clients",
			},
		),
		WSDroppedConns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "websocket_dropped_total",
				Help:      "Push clients disconnected because their send buffer was full",
			},
		),
		NotificationsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_created_total",
				Help:      "Notification records stored by the fan-out engine",
			},
		),
		FanoutFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fanout_failures_total",
				Help:      "Fan-out steps that failed, by step",
			},
			[]string{"step"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Broadcasts,
		c.WSConnections,
		c.WSDroppedConns,
		c.NotificationsCreated,
		c.FanoutFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Handler serves this collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObserveHTTP records one completed request. route is the chi route
// pattern, not the raw path, so label cardinality stays bounded.
func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (c *Collector) IncBroadcast(event string) {
	if c == nil {
		return
	}
	c.Broadcasts.WithLabelValues(event).Inc()
}

func (c *Collector) ConnOpened() {
	if c == nil {
		return
	}
	c.WSConnections.Inc()
}

func (c *Collector) ConnClosed() {
	if c == nil {
		return
	}
	c.WSConnections.Dec()
}

func (c *Collector) IncDropped() {
	if c == nil {
		return
	}
	c.WSDroppedConns.Inc()
}

func (c *Collector) AddNotifications(n int) {
	if c == nil {
		return
	}
	c.NotificationsCreated.Add(float64(n))
}

func (c *Collector) IncFanoutFailure(step string) {
	if c == nil {
		return
	}
	c.FanoutFailures.WithLabelValues(step).Inc()
}
