// Package metrics exposes Prometheus instrumentation for simulation runs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	episodesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lander_episodes_total",
			Help: "Total number of finished episodes by scenario and outcome.",
		},
		[]string{"scenario", "outcome"},
	)

	ticksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lander_ticks_total",
			Help: "Total number of simulation ticks executed.",
		},
		[]string{"scenario"},
	)

	impactSpeed = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lander_impact_descent_rate_meters_per_second",
			Help:    "Descent rate at touchdown.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 50, 100, 200, 500},
		},
		[]string{"scenario"},
	)

	fuelRemaining = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lander_fuel_remaining_fraction",
			Help:    "Fraction of fuel left at the end of an episode.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
		[]string{"scenario"},
	)

	parachuteEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lander_parachute_events_total",
			Help: "Parachute deployments and losses.",
		},
		[]string{"event"},
	)

	invariantViolations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lander_invariant_violations_total",
			Help: "Ticks aborted because the trajectory was physically inconsistent.",
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lander_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lander_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)

func init() {
	prometheus.MustRegister(episodesTotal)
	prometheus.MustRegister(ticksTotal)
	prometheus.MustRegister(impactSpeed)
	prometheus.MustRegister(fuelRemaining)
	prometheus.MustRegister(parachuteEvents)
	prometheus.MustRegister(invariantViolations)
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
}

// EpisodeSummary is what gets recorded when an episode finishes
type EpisodeSummary struct {
	Scenario    string
	Outcome     string
	DescentRate float64
	Fuel        float64
	Touchdown   bool
}

// ObserveEpisode records a finished episode
func ObserveEpisode(s EpisodeSummary) {
	episodesTotal.WithLabelValues(s.Scenario, s.Outcome).Inc()
	fuelRemaining.WithLabelValues(s.Scenario).Observe(s.Fuel)
	if s.Touchdown {
		impactSpeed.WithLabelValues(s.Scenario).Observe(s.DescentRate)
	}
}

// IncTicks counts one executed tick
func IncTicks(scenario string) {
	ticksTotal.WithLabelValues(scenario).Inc()
}

// IncParachute counts a parachute transition ("deployed" or "lost")
func IncParachute(event string) {
	parachuteEvents.WithLabelValues(event).Inc()
}

// IncInvariantViolation counts an aborted tick
func IncInvariantViolation() {
	invariantViolations.Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
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

		path := normalizeRoute(r.URL.Path)
		httpRequestsTotal.WithLabelValues(path, r.Method, strconv.Itoa(rw.statusCode)).Inc()
		httpDurationSeconds.WithLabelValues(path, r.Method).Observe(time.Since(start).Seconds())
	})
}

// normalizeRoute collapses unknown paths into one label
func normalizeRoute(path string) string {
	switch path {
	case "/", "/metrics", "/health", "/ready":
		return path
	default:
		return "other"
	}
}
