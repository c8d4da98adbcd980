package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec

	// WebSocketClients is the number of connected event subscribers.
	WebSocketClients prometheus.Gauge

	RateLimitedTotal prometheus.Counter
)

func initAPIMetrics() {
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fqName("api_request_duration_seconds"),
			Help:    "HTTP request duration in seconds.",
			Buckets: APIBuckets,
		},
		[]string{"handler", "method", "status"},
	)
	HTTPRequestsTotal = NewCounterVec(
		"api_requests_total",
		"HTTP requests processed.",
		[]string{"handler", "method", "status"},
	)
	WebSocketClients = NewGauge(
		"api_websocket_clients",
		"Connected WebSocket event subscribers.",
	)
	RateLimitedTotal = NewCounter(
		"api_rate_limited_total",
		"Requests rejected by the rate limiter.",
	)
}

func registerAPIMetrics() {
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(WebSocketClients)
	prometheus.MustRegister(RateLimitedTotal)
}

// RecordRequest records one served HTTP request.
func RecordRequest(handler, method string, status int, elapsed time.Duration) {
	Init()
	code := strconv.Itoa(status)
	HTTPRequestDuration.WithLabelValues(handler, method, code).Observe(elapsed.Seconds())
	HTTPRequestsTotal.WithLabelValues(handler, method, code).Inc()
}

// RecordRateLimited counts one rejected request.
func RecordRateLimited() {
	Init()
	RateLimitedTotal.Inc()
}

// AddWebSocketClients adjusts the subscriber gauge by delta.
func AddWebSocketClients(delta int) {
	Init()
	WebSocketClients.Add(float64(delta))
}
