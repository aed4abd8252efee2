package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	resolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visibility_resolutions_total",
			Help: "Completed visibility resolutions by module and applied access type.",
		},
		[]string{"module", "access_type"},
	)

	resolutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "visibility_resolution_duration_seconds",
			Help:    "Visibility resolution latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"module"},
	)

	hierarchyCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "visibility_hierarchy_cache_hits_total",
		Help: "Role hierarchy snapshots served from the per-organization cache.",
	})

	hierarchyCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "visibility_hierarchy_cache_misses_total",
		Help: "Role hierarchy snapshots rebuilt from the directory store.",
	})
)

// Init registers all service metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight,
		httpRequestsTotal,
		httpRequestDuration,
		resolutionsTotal,
		resolutionDuration,
		hierarchyCacheHits,
		hierarchyCacheMisses,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveResolution records one completed visibility resolution.
func ObserveResolution(module, accessType string, duration time.Duration) {
	resolutionsTotal.WithLabelValues(module, accessType).Inc()
	resolutionDuration.WithLabelValues(module).Observe(duration.Seconds())
}

// HierarchyCacheHit counts a hierarchy snapshot served from cache.
func HierarchyCacheHit() { hierarchyCacheHits.Inc() }

// HierarchyCacheMiss counts a hierarchy snapshot rebuilt from the store.
func HierarchyCacheMiss() { hierarchyCacheMisses.Inc() }

// Instrument wraps a handler with RPS/latency/in-flight measurement.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// CanonicalPath collapses per-resource identifiers so metric label
// cardinality stays bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == "/" {
		return "/"
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(parts) == 6 && parts[0] == "v1" && parts[1] == "modules" && parts[3] == "records" && parts[5] == "visibility":
		return "/v1/modules/:module/records/:id/visibility"
	case len(parts) == 4 && parts[0] == "v1" && parts[1] == "organizations" && parts[3] == "hierarchy":
		return "/v1/organizations/:id/hierarchy"
	}
	return path
}

// statusWriter captures the response status code for metric labels.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
