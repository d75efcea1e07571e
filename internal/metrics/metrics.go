// Package metrics defines the Prometheus collectors for the service and
// the experiment harness. Search code records into them after a run ends,
// never from inside the search loop.
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry is the dedicated Prometheus registry for the process.
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// SearchRuns counts completed runs by algorithm and outcome (valid, invalid, error).
	SearchRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tourney_search_runs_total", Help: "Completed optimizer runs by algorithm and outcome."},
		[]string{"algorithm", "outcome"},
	)
	// SearchDuration tracks wall time per run.
	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "tourney_search_duration_seconds", Help: "Optimizer run duration in seconds.", Buckets: []float64{.001, .01, .05, .1, .5, 1, 5, 30, 120}},
		[]string{"algorithm"},
	)
	// SearchIterations tracks iterations per run.
	SearchIterations = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "tourney_search_iterations", Help: "Iterations executed per optimizer run.", Buckets: prometheus.ExponentialBuckets(10, 4, 8)},
		[]string{"algorithm"},
	)
	// SearchImprovement tracks the percentage gained over the baseline.
	SearchImprovement = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "tourney_search_improvement_percent", Help: "Travel reduction versus baseline in percent.", Buckets: []float64{0, 1, 2, 5, 10, 15, 20, 30, 50}},
		[]string{"algorithm"},
	)
	// MoveOutcomes counts proposed moves by outcome (accepted, accepted_worse, illegal, invalid).
	MoveOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tourney_move_outcomes_total", Help: "Proposed moves by outcome."},
		[]string{"algorithm", "outcome"},
	)
	// StreamClients is the number of connected run-event subscribers.
	StreamClients = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "tourney_stream_clients", Help: "Connected run-event stream clients."},
		[]string{"transport"},
	)
)

// RegisterDefault registers collectors to the process registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(SearchRuns)
		Registry.MustRegister(SearchDuration)
		Registry.MustRegister(SearchIterations)
		Registry.MustRegister(SearchImprovement)
		Registry.MustRegister(MoveOutcomes)
		Registry.MustRegister(StreamClients)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once

// Handler serves the process registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// RunStats is the slice of a finished run that gets recorded.
type RunStats struct {
	Algorithm      string
	Outcome        string
	Elapsed        time.Duration
	Iterations     int
	ImprovementPct float64
	Accepted       int
	AcceptedWorse  int
	Illegal        int
	Invalid        int
}

// ObserveRun records one completed run.
func ObserveRun(s RunStats) {
	SearchRuns.WithLabelValues(s.Algorithm, s.Outcome).Inc()
	SearchDuration.WithLabelValues(s.Algorithm).Observe(s.Elapsed.Seconds())
	SearchIterations.WithLabelValues(s.Algorithm).Observe(float64(s.Iterations))
	SearchImprovement.WithLabelValues(s.Algorithm).Observe(s.ImprovementPct)
	MoveOutcomes.WithLabelValues(s.Algorithm, "accepted").Add(float64(s.Accepted))
	MoveOutcomes.WithLabelValues(s.Algorithm, "accepted_worse").Add(float64(s.AcceptedWorse))
	MoveOutcomes.WithLabelValues(s.Algorithm, "illegal").Add(float64(s.Illegal))
	MoveOutcomes.WithLabelValues(s.Algorithm, "invalid").Add(float64(s.Invalid))
}

// Middleware counts and times requests. path should be a route pattern,
// not the raw URL, to keep label cardinality bounded.
func Middleware(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		code := strconv.Itoa(sw.status)
		HTTPRequests.WithLabelValues(r.Method, path, code).Inc()
		HTTPDuration.WithLabelValues(r.Method, path, code).Observe(time.Since(start).Seconds())
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

// Flush keeps SSE working through the wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets websocket upgrades pass through the wrapper.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("metrics: %T does not support hijacking", w.ResponseWriter)
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
