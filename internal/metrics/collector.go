package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the dashboard's prometheus registry. A nil *Collector is
// valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	// Backend metrics
	backendRequestsTotal   *prometheus.CounterVec
	backendRequestDuration *prometheus.HistogramVec
	backendFallbacksTotal  *prometheus.CounterVec

	// Batch metrics
	batchUploadsTotal *prometheus.CounterVec
	batchPollsTotal   *prometheus.CounterVec
	batchPollersLive  prometheus.Gauge

	// Search metrics
	searchesTotal *prometheus.CounterVec

	// Session metrics
	sessionsActive prometheus.Gauge
	sessionsReaped prometheus.Counter
}

// NewCollector creates a collector with its own registry, so several can
// coexist in one process.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		backendRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_backend_requests_total",
				Help: "Total number of calls made to the prediction backend",
			},
			[]string{"endpoint", "status"},
		),
		backendRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dashboard_backend_request_duration_seconds",
				Help:    "Backend call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		backendFallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_backend_fallbacks_total",
				Help: "Authenticated reads answered by the public mirror",
			},
			[]string{"endpoint"},
		),

		batchUploadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_batch_uploads_total",
				Help: "Batch file uploads by outcome",
			},
			[]string{"outcome"},
		),
		batchPollsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_batch_polls_total",
				Help: "Batch status polls by outcome",
			},
			[]string{"outcome"},
		),
		batchPollersLive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dashboard_batch_pollers_active",
				Help: "Number of running batch pollers",
			},
		),

		searchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_client_searches_total",
				Help: "Client searches by outcome",
			},
			[]string{"outcome"},
		),

		sessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dashboard_sessions_active",
				Help: "Number of live operator sessions",
			},
		),
		sessionsReaped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dashboard_sessions_reaped_total",
				Help: "Idle sessions closed by the reaper",
			},
		),
	}
}

// Handler serves the registry in the prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordBackendRequest records one backend call. status is 0 when no response
// arrived.
func (c *Collector) RecordBackendRequest(endpoint string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	c.backendRequestsTotal.WithLabelValues(endpoint, label).Inc()
	c.backendRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (c *Collector) RecordFallback(endpoint string) {
	if c == nil {
		return
	}
	c.backendFallbacksTotal.WithLabelValues(endpoint).Inc()
}

func (c *Collector) RecordUpload(outcome string) {
	if c == nil {
		return
	}
	c.batchUploadsTotal.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordPoll(outcome string) {
	if c == nil {
		return
	}
	c.batchPollsTotal.WithLabelValues(outcome).Inc()
}

// PollerStarted and PollerStopped track live pollers.
func (c *Collector) PollerStarted() {
	if c == nil {
		return
	}
	c.batchPollersLive.Inc()
}

func (c *Collector) PollerStopped() {
	if c == nil {
		return
	}
	c.batchPollersLive.Dec()
}

func (c *Collector) RecordSearch(outcome string) {
	if c == nil {
		return
	}
	c.searchesTotal.WithLabelValues(outcome).Inc()
}

func (c *Collector) SetActiveSessions(n int) {
	if c == nil {
		return
	}
	c.sessionsActive.Set(float64(n))
}

func (c *Collector) RecordReaped(n int) {
	if c == nil {
		return
	}
	c.sessionsReaped.Add(float64(n))
}
