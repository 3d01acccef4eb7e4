package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crewmap_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crewmap_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	airportLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crewmap_airport_lookups_total",
			Help: "Airport lookups by resolving source and result.",
		},
		[]string{"source", "result"},
	)

	datasetFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crewmap_airport_dataset_fetches_total",
			Help: "Remote airport dataset fetch attempts by result.",
		},
		[]string{"result"},
	)

	datasetFetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crewmap_airport_dataset_fetch_duration_seconds",
			Help:    "Duration of remote airport dataset fetches.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	staleServedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crewmap_airport_dataset_stale_served_total",
			Help: "Refresh failures answered with the previously cached dataset.",
		},
	)

	datasetAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "crewmap_airport_dataset_age_seconds",
			Help: "Age of the cached remote airport dataset.",
		},
	)

	datasetRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "crewmap_airport_dataset_records",
			Help: "Number of records in the cached remote airport dataset.",
		},
	)

	breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crewmap_circuit_breaker_state",
			Help: "Circuit breaker state (0: closed, 1: half-open, 2: open).",
		},
		[]string{"name"},
	)

	routeCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crewmap_route_cache_requests_total",
			Help: "Route geometry cache lookups by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(airportLookupsTotal)
	prometheus.MustRegister(datasetFetchesTotal)
	prometheus.MustRegister(datasetFetchDuration)
	prometheus.MustRegister(staleServedTotal)
	prometheus.MustRegister(datasetAgeSeconds)
	prometheus.MustRegister(datasetRecords)
	prometheus.MustRegister(breakerState)
	prometheus.MustRegister(routeCacheTotal)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncAirportLookup counts one lookup resolved by source ("static", "remote"
// or "none") with the given result label.
func IncAirportLookup(source, result string) {
	airportLookupsTotal.WithLabelValues(source, result).Inc()
}

// ObserveDatasetFetch records one remote fetch attempt.
func ObserveDatasetFetch(success bool, d time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	datasetFetchesTotal.WithLabelValues(result).Inc()
	datasetFetchDuration.Observe(d.Seconds())
}

func IncStaleServed() {
	staleServedTotal.Inc()
}

func SetDatasetAge(seconds float64) {
	datasetAgeSeconds.Set(seconds)
}

func SetDatasetRecords(n int) {
	datasetRecords.Set(float64(n))
}

func SetBreakerState(name string, state int) {
	breakerState.WithLabelValues(name).Set(float64(state))
}

func IncRouteCacheHit() {
	routeCacheTotal.WithLabelValues("hit").Inc()
}

func IncRouteCacheMiss() {
	routeCacheTotal.WithLabelValues("miss").Inc()
}

// knownRoutes are exact paths reported under their own label.
var knownRoutes = map[string]bool{
	"/":                                true,
	"/healthz":                         true,
	"/readyz":                          true,
	"/metrics":                         true,
	"/api/v1/route":                    true,
	"/api/v1/geo/route":                true,
	"/api/v1/airports/dataset":         true,
	"/api/v1/airports/dataset/refresh": true,
}

const airportPrefix = "/api/v1/airports/"

// normalizeRoute maps a request path onto a bounded set of label values so
// that arbitrary ICAO codes and scanner traffic cannot explode cardinality.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if rest, ok := strings.CutPrefix(path, airportPrefix); ok && rest != "" && !strings.Contains(rest, "/") {
		return airportPrefix + "{icao}"
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
