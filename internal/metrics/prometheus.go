package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus holds the scrape-able counters of the service.
type Prometheus struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	GenerationsTotal   *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	GeneratedNotes     *prometheus.HistogramVec
	RepairsTotal       *prometheus.CounterVec

	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
}

// NewPrometheus registers the collectors on a fresh registry.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Prometheus{
		registry: reg,
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path", "status"},
		),
		GenerationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bachgen_generations_total",
				Help: "Generated works by form and outcome",
			},
			[]string{"form", "success"},
		),
		GenerationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bachgen_generation_duration_seconds",
				Help:    "Wall time of one generation",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"form"},
		),
		GeneratedNotes: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bachgen_generated_notes",
				Help:    "Notes per generated work",
				Buckets: prometheus.ExponentialBuckets(100, 2, 10),
			},
			[]string{"form"},
		),
		RepairsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bachgen_repairs_total",
				Help: "Notes changed by the repair passes",
			},
			[]string{"form", "pass"},
		),
		CacheHitsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "bachgen_cache_hits_total",
			Help: "Works served from the cache",
		}),
		CacheMissesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "bachgen_cache_misses_total",
			Help: "Works that had to be generated",
		}),
	}
}

// RecordAPIRequest counts one HTTP request.
func (p *Prometheus) RecordAPIRequest(method, path string, statusCode int, duration time.Duration) {
	if p == nil {
		return
	}
	status := strconv.Itoa(statusCode)
	p.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	p.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordGeneration counts one generated work and the repairs applied to it.
func (p *Prometheus) RecordGeneration(form string, notes int, duration time.Duration, success bool, repairs map[string]int) {
	if p == nil {
		return
	}
	p.GenerationsTotal.WithLabelValues(form, strconv.FormatBool(success)).Inc()
	p.GenerationDuration.WithLabelValues(form).Observe(duration.Seconds())
	p.GeneratedNotes.WithLabelValues(form).Observe(float64(notes))
	for pass, n := range repairs {
		if n > 0 {
			p.RepairsTotal.WithLabelValues(form, pass).Add(float64(n))
		}
	}
}

// RecordCache counts a cache lookup.
func (p *Prometheus) RecordCache(hit bool) {
	if p == nil {
		return
	}
	if hit {
		p.CacheHitsTotal.Inc()
		return
	}
	p.CacheMissesTotal.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
