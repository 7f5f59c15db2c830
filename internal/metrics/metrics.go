// Package metrics exposes Prometheus collectors for the enrichment service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	jobsTotal                  *prometheus.CounterVec
	jobDurationSeconds         *prometheus.HistogramVec
	enqueueFailuresTotal       *prometheus.CounterVec
	parserOutcomesTotal        *prometheus.CounterVec
	tagSourcesTotal            *prometheus.CounterVec
	browserLaunchesTotal       prometheus.Counter
	activeWorkers              prometheus.Gauge
	rateLimitDelaysSeconds     *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times. Observe helpers are no-ops
// until Init has run.
func Init() {
	once.Do(func() {
		jobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linkvault_jobs_total",
				Help: "Total number of enrichment jobs handled, labeled by queue and outcome.",
			},
			[]string{"queue", "outcome"},
		)

		jobDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "linkvault_job_duration_seconds",
				Help:    "Histogram of enrichment job durations, labeled by queue.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"queue"},
		)

		enqueueFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linkvault_enqueue_failures_total",
				Help: "Total number of jobs that could not be enqueued, labeled by queue.",
			},
			[]string{"queue"},
		)

		parserOutcomesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linkvault_parser_outcomes_total",
				Help: "Total number of parser runs, labeled by strategy and outcome.",
			},
			[]string{"strategy", "outcome"},
		)

		tagSourcesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linkvault_tag_sources_total",
				Help: "Total number of tag generations, labeled by the text source used.",
			},
			[]string{"source"},
		)

		browserLaunchesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "linkvault_browser_launches_total",
				Help: "Total number of headless browser launches.",
			},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "linkvault_active_workers",
				Help: "Number of workers currently processing a job.",
			},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "linkvault_rate_limit_delays_seconds",
				Help:    "Histogram of outbound rate limit wait durations.",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"host"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveJob records one handled job.
func ObserveJob(queue, outcome string, duration time.Duration) {
	if jobsTotal == nil {
		return
	}
	jobsTotal.WithLabelValues(queue, outcome).Inc()
	jobDurationSeconds.WithLabelValues(queue).Observe(duration.Seconds())
}

// ObserveEnqueueFailure counts a job that never reached the broker.
func ObserveEnqueueFailure(queue string) {
	if enqueueFailuresTotal == nil {
		return
	}
	enqueueFailuresTotal.WithLabelValues(queue).Inc()
}

// ObserveParser counts a parser strategy run.
func ObserveParser(strategy, outcome string) {
	if parserOutcomesTotal == nil {
		return
	}
	parserOutcomesTotal.WithLabelValues(strategy, outcome).Inc()
}

// ObserveTagSource counts which text source produced tags.
func ObserveTagSource(source string) {
	if tagSourcesTotal == nil {
		return
	}
	tagSourcesTotal.WithLabelValues(source).Inc()
}

// ObserveBrowserLaunch counts a browser process launch.
func ObserveBrowserLaunch() {
	if browserLaunchesTotal == nil {
		return
	}
	browserLaunchesTotal.Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	if activeWorkers == nil {
		return
	}
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	if activeWorkers == nil {
		return
	}
	activeWorkers.Dec()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(rawURL string, duration time.Duration) {
	if rateLimitDelaysSeconds == nil {
		return
	}
	rateLimitDelaysSeconds.WithLabelValues(SanitizeSite(rawURL)).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
