package infra

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EventsTotal counts decoded live events by type.
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "empire_events_total",
			Help: "Live events received, by type",
		},
		[]string{"type"},
	)

	// IntentsTotal counts intents produced by the lifecycle tracker.
	IntentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "empire_intents_total",
			Help: "Tracker intents executed, by kind",
		},
		[]string{"kind"},
	)

	// DelistsTotal counts delist attempts by outcome.
	DelistsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "empire_delists_total",
			Help: "Price-drift delists, by outcome",
		},
		[]string{"outcome"},
	)

	// RequestsTotal counts REST calls by operation and outcome.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "empire_requests_total",
			Help: "Marketplace REST calls, by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	// ConnectedSessions is the number of sessions with an open socket.
	ConnectedSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "empire_connected_sessions",
			Help: "Sessions whose live socket is connected",
		},
	)

	// TrackedDeposits is the ledger size per account.
	TrackedDeposits = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "empire_tracked_deposits",
			Help: "Deposits currently held in the price ledger",
		},
		[]string{"user_id"},
	)

	// HTTPRequestsTotal counts status server requests.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "empire_http_requests_total",
			Help: "Status server requests, by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks status server latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "empire_http_request_duration_seconds",
			Help:    "Status server request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "route"},
	)

	// NotificationsDropped counts notifications lost to a full delivery queue.
	NotificationsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "empire_notifications_dropped_total",
			Help: "Notifications dropped because the delivery queue was full",
		},
	)
)

// RecordRequest records the outcome of a REST call.
func RecordRequest(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	RequestsTotal.WithLabelValues(op, outcome).Inc()
}

// MetricsHandler exposes the default registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// MetricsMiddleware records request metrics labelled by chi route pattern.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
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
