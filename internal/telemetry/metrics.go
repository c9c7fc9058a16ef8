// Package telemetry exposes prometheus metrics for the load generator and the mock targets.
package telemetry

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// server side, recorded by Middleware on the mock targets
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	httpDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// client side, recorded by the load generator
	clientReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loadgen_requests_total",
			Help: "Requests sent by the load generator",
		},
		[]string{"target", "status"},
	)
	clientDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loadgen_request_duration_seconds",
			Help:    "Round trip including full body read, per target",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"target"},
	)
	clientErrs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loadgen_transport_errors_total",
			Help: "Requests that failed below the HTTP layer",
		},
		[]string{"target"},
	)

	Iterations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loadgen_iterations_total",
		Help: "Completed generate/evaluate/index iterations",
	})
	LoopState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "loadgen_state",
		Help: "Current loop state (0 generating, 1 awaiting eval, 2 forwarding, 3 awaiting index)",
	})
	IndexedRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mock_indexed_records",
		Help: "Records accepted by the mock indexing target",
	})
)

var initOnce sync.Once

// Init registers every collector with the default registry. Calling it again is a no-op.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(httpReqs, httpDur, clientReqs, clientDur, clientErrs, Iterations, LoopState, IndexedRecords)
	})
}

// ObserveRequest records one completed client round trip.
func ObserveRequest(target string, status int, d time.Duration) {
	clientReqs.WithLabelValues(target, strconv.Itoa(status)).Inc()
	clientDur.WithLabelValues(target).Observe(d.Seconds())
}

// ObserveTransportError records a request that never produced a response.
func ObserveTransportError(target string) {
	clientErrs.WithLabelValues(target).Inc()
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)

		// the pattern is only known once chi has routed the request
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		httpReqs.WithLabelValues(route, r.Method, http.StatusText(ww.status)).Inc()
		httpDur.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
