// Package metrics collects Prometheus metrics for the API, its upstream
// calls, the summary cache and the background task queue.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker/v2"
)

// Collector implements the observer interfaces of the integrations, summary,
// services and background packages
type Collector struct {
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	httpInFlight  prometheus.Gauge
	upstreamCalls *prometheus.CounterVec
	upstreamTime  *prometheus.HistogramVec
	breakerState  *prometheus.GaugeVec
	summaryCache  *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	tasks         *prometheus.CounterVec
	taskAttempts  *prometheus.HistogramVec
}

// NewCollector creates the metrics and registers them with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curalink_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "curalink_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "curalink_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		}),
		upstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curalink_upstream_requests_total",
			Help: "Outbound calls by upstream and outcome",
		}, []string{"upstream", "outcome"}),
		upstreamTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "curalink_upstream_request_duration_seconds",
			Help:    "Outbound call duration in seconds, retries included",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"upstream"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "curalink_upstream_breaker_state",
			Help: "Circuit breaker state per upstream (0 closed, 1 half-open, 2 open)",
		}, []string{"upstream"}),
		summaryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curalink_summary_cache_lookups_total",
			Help: "Summary cache lookups by result",
		}, []string{"result"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curalink_discovery_fallbacks_total",
			Help: "Discovery categories served from local storage after an upstream failure",
		}, []string{"category"}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curalink_background_tasks_total",
			Help: "Background tasks by name and outcome",
		}, []string{"task", "outcome"}),
		taskAttempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "curalink_background_task_attempts",
			Help:    "Attempts used per background task",
			Buckets: []float64{1, 2, 3, 4, 5, 8},
		}, []string{"task"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.httpInFlight,
		c.upstreamCalls,
		c.upstreamTime,
		c.breakerState,
		c.summaryCache,
		c.fallbacks,
		c.tasks,
		c.taskAttempts,
	)

	return c
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// ObserveHTTP records one served request
func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// InFlight returns the in-flight request gauge
func (c *Collector) InFlight() prometheus.Gauge {
	return c.httpInFlight
}

func (c *Collector) ObserveUpstream(upstream string, success bool, elapsed time.Duration) {
	c.upstreamCalls.WithLabelValues(upstream, outcome(success)).Inc()
	c.upstreamTime.WithLabelValues(upstream).Observe(elapsed.Seconds())
}

func (c *Collector) SetBreakerState(upstream string, state gobreaker.State) {
	var v float64
	switch state {
	case gobreaker.StateHalfOpen:
		v = 1
	case gobreaker.StateOpen:
		v = 2
	}
	c.breakerState.WithLabelValues(upstream).Set(v)
}

func (c *Collector) ObserveSummaryCache(hit bool) {
	if hit {
		c.summaryCache.WithLabelValues("hit").Inc()
		return
	}
	c.summaryCache.WithLabelValues("miss").Inc()
}

func (c *Collector) ObserveFallback(category string) {
	c.fallbacks.WithLabelValues(category).Inc()
}

func (c *Collector) ObserveTask(name string, success bool, attempts int) {
	c.tasks.WithLabelValues(name, outcome(success)).Inc()
	c.taskAttempts.WithLabelValues(name).Observe(float64(attempts))
}

// Handler serves the registry for Prometheus scrapes
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
