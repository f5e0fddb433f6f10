package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the service exports. Collectors are
// registered on the Registerer passed to NewMetrics so tests can use a
// private registry.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	panicTriggersTotal  *prometheus.CounterVec
	pipelineStagesTotal *prometheus.CounterVec
	pipelineDuration    prometheus.Histogram
	emailsSentTotal     prometheus.Counter
	staleActiveEvents   prometheus.Gauge

	cacheHitsTotal   *prometheus.CounterVec
	cacheMissesTotal *prometheus.CounterVec

	rateLimitAllowTotal *prometheus.CounterVec
	rateLimitDenyTotal  *prometheus.CounterVec

	systemMemoryUsage *prometheus.GaugeVec
	systemCPUUsage    prometheus.Gauge
	systemGoroutines  prometheus.Gauge
}

// NewMetrics registers collectors on reg. A nil reg uses a fresh registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		gatherer: reg,

		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		panicTriggersTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panic_triggers_total",
				Help: "Panic triggers by outcome (accepted, rejected)",
			},
			[]string{"outcome"},
		),
		pipelineStagesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panic_pipeline_stages_total",
				Help: "Pipeline stage completions by stage and outcome",
			},
			[]string{"stage", "outcome"},
		),
		pipelineDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "panic_pipeline_duration_seconds",
				Help:    "Wall clock time from trigger to processed",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
			},
		),
		emailsSentTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "panic_alert_emails_sent_total",
				Help: "Alert emails accepted by the transport",
			},
		),
		staleActiveEvents: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "panic_stale_active_events",
				Help: "Events still active past the stale threshold at the last sweep",
			},
		),

		cacheHitsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache"},
		),
		cacheMissesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache"},
		),

		rateLimitAllowTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limit_allow_total",
				Help: "Allowed requests by rate limiter",
			},
			[]string{"route"},
		),
		rateLimitDenyTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limit_deny_total",
				Help: "Denied requests by rate limiter",
			},
			[]string{"route"},
		),

		systemMemoryUsage: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "system_memory_usage_bytes",
				Help: "System memory usage in bytes",
			},
			[]string{"type"},
		),
		systemCPUUsage: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "system_cpu_usage_percent",
				Help: "System CPU usage percentage",
			},
		),
		systemGoroutines: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "system_goroutines",
				Help: "Number of goroutines",
			},
		),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) RecordTrigger(outcome string) {
	m.panicTriggersTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordStage(stage string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.pipelineStagesTotal.WithLabelValues(stage, outcome).Inc()
}

func (m *Metrics) ObservePipeline(duration time.Duration) {
	m.pipelineDuration.Observe(duration.Seconds())
}

func (m *Metrics) AddEmailsSent(n int) {
	if n > 0 {
		m.emailsSentTotal.Add(float64(n))
	}
}

func (m *Metrics) SetStaleActiveEvents(n int) {
	m.staleActiveEvents.Set(float64(n))
}

func (m *Metrics) RecordCacheHit(cache string) {
	m.cacheHitsTotal.WithLabelValues(cache).Inc()
}

func (m *Metrics) RecordCacheMiss(cache string) {
	m.cacheMissesTotal.WithLabelValues(cache).Inc()
}

// OnAllow and OnDeny make Metrics usable as a rate limiter observer.
func (m *Metrics) OnAllow(route, key string) { m.rateLimitAllowTotal.WithLabelValues(route).Inc() }
func (m *Metrics) OnDeny(route, key string)  { m.rateLimitDenyTotal.WithLabelValues(route).Inc() }
