package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the dashboard's Prometheus collectors on a private registry
type Recorder struct {
	registry *prometheus.Registry

	fetchTotal    *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	cacheRequests *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	refreshEvents *prometheus.CounterVec
}

// NewRecorder creates a recorder with Go and process collectors registered
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Recorder{
		registry: registry,
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aqi_dataset_fetch_total",
			Help: "Dataset fetches by result.",
		}, []string{"result"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "aqi_dataset_fetch_duration_seconds",
			Help:    "Duration of dataset fetches including parsing.",
			Buckets: prometheus.DefBuckets,
		}),
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aqi_cache_requests_total",
			Help: "Dataset cache lookups by result.",
		}, []string{"tier", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aqi_http_requests_total",
			Help: "HTTP API requests by path and status code.",
		}, []string{"path", "code"}),
		refreshEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aqi_refresh_events_total",
			Help: "Refresh events by direction.",
		}, []string{"direction"}),
	}

	registry.MustRegister(r.fetchTotal, r.fetchDuration, r.cacheRequests, r.httpRequests, r.refreshEvents)
	return r
}

// ObserveFetch records one dataset fetch
func (r *Recorder) ObserveFetch(d time.Duration, err error) {
	if r == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	r.fetchTotal.WithLabelValues(result).Inc()
	r.fetchDuration.Observe(d.Seconds())
}

// ObserveCache records a cache lookup on tier ("memory" or "redis")
func (r *Recorder) ObserveCache(tier string, hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheRequests.WithLabelValues(tier, result).Inc()
}

// ObserveHTTP records one API response
func (r *Recorder) ObserveHTTP(path string, code int) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(path, strconv.Itoa(code)).Inc()
}

// ObserveRefreshEvent records a published or consumed refresh event
func (r *Recorder) ObserveRefreshEvent(direction string) {
	if r == nil {
		return
	}
	r.refreshEvents.WithLabelValues(direction).Inc()
}

// Handler exposes the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
