package metrics

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"code", "method", "path"},
	)
	httpRequestsDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// CheckoutSubmissions counts accepted checkout submissions.
	CheckoutSubmissions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_submissions_total",
			Help: "Total number of checkout submissions handed to settlement.",
		},
	)

	// SettlementsOpened counts settlement transactions persisted as pending.
	SettlementsOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "settlements_opened_total",
			Help: "Total number of settlement transactions opened at the gateway.",
		},
	)

	// SettlementsResolved counts terminal settlement resolutions by outcome.
	SettlementsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlements_resolved_total",
			Help: "Total number of settlement transactions resolved, by status and reason.",
		},
		[]string{"status", "reason"},
	)

	// SettlementReplays counts callback arrivals answered from the stored
	// resolution.
	SettlementReplays = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "settlement_callback_replays_total",
			Help: "Total number of replayed settlement callbacks answered idempotently.",
		},
	)

	// GatewayRequestFailures counts failed payment-open calls to the gateway.
	GatewayRequestFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_request_failures_total",
			Help: "Total number of failed gateway payment requests.",
		},
	)
)

func init() {
	if err := prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		slog.Debug("ProcessCollector registration skipped (likely already registered)",
			slog.String("error", err.Error()))
	}

	if err := prometheus.Register(collectors.NewGoCollector()); err != nil {
		slog.Debug("GoCollector registration skipped (likely already registered)",
			slog.String("error", err.Error()))
	}
}

// wrapper around http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{w, http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		start := time.Now()

		rw := newResponseWriter(w)

		defer func() {
			duration := time.Since(start)
			statusCodeStr := strconv.Itoa(rw.statusCode)

			// r.Pattern is filled in by the mux during routing, so it is only
			// available after next.ServeHTTP returns. It keeps wildcard routes
			// like /cart/items/{productId} to one label per route.
			pathPattern := r.URL.Path
			if _, pattern, ok := strings.Cut(r.Pattern, " "); ok {
				pathPattern = pattern
			}

			httpRequestsTotal.WithLabelValues(statusCodeStr, r.Method, pathPattern).Inc()
			httpRequestsDuration.WithLabelValues(r.Method, pathPattern).Observe(duration.Seconds())
		}()

		next.ServeHTTP(rw, r)
	})
}

// http.Handler for the Prometheus /metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}
