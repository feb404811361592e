package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JadedBlueEyes/libretto/internal"
)

// Metrics bundles Prometheus collectors for the HTTP API.
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rateLimited     prometheus.Counter
	itemsAssembled  *prometheus.CounterVec
	failedItems     *prometheus.CounterVec
	cacheResets     prometheus.Counter
}

func newMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "libretto",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests received",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "libretto",
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "libretto",
			Name:      "http_rate_limited_total",
			Help:      "Number of HTTP requests rejected due to rate limiting",
		}),
		itemsAssembled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "libretto",
			Name:      "timeline_items_total",
			Help:      "Timeline items served, by item kind",
		}, []string{"kind"}),
		failedItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "libretto",
			Name:      "timeline_failed_items_total",
			Help:      "Timeline items served that failed to parse, by event type",
		}, []string{"event_type"}),
		cacheResets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "libretto",
			Name:      "cache_resets_total",
			Help:      "Number of cache invalidations after a database change",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.rateLimited,
		m.itemsAssembled,
		m.failedItems,
		m.cacheResets,
	)

	return m
}

// Handler returns an HTTP handler exposing the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records timing and status information.
func (m *Metrics) ObserveRequest(route, method string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(dur.Seconds())
}

// IncRateLimited increments the rate limit counter.
func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

// ObserveTimeline counts the items of an assembled timeline by kind.
func (m *Metrics) ObserveTimeline(events []internal.TimelineEvent) {
	if m == nil {
		return
	}
	for _, ev := range events {
		m.itemsAssembled.WithLabelValues(internal.ItemKind(ev.Content)).Inc()
		switch c := ev.Content.(type) {
		case *internal.FailedToParseMessageLike:
			m.failedItems.WithLabelValues(c.EventType).Inc()
		case *internal.FailedToParseState:
			m.failedItems.WithLabelValues(c.EventType).Inc()
		}
	}
}

// IncCacheResets increments the cache invalidation counter.
func (m *Metrics) IncCacheResets() {
	if m == nil {
		return
	}
	m.cacheResets.Inc()
}
