package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "route", "status"},
	)

	DBConnAcquireDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_conn_acquire_duration_seconds",
			Help:    "Time spent acquiring and configuring a request-scoped database connection",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"result"}, // result: ok, acquire_error, session_error
	)

	AuthRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_rejections_total",
			Help: "Requests rejected by the bearer token gate",
		},
		[]string{"reason"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Application events handed to the events backend",
		},
		[]string{"event", "result"},
	)
)

func RecordHTTPRequestDuration(method, route, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

func RecordDBConnAcquire(result string, duration time.Duration) {
	DBConnAcquireDuration.WithLabelValues(result).Observe(duration.Seconds())
}

func IncrementAuthRejection(reason string) {
	AuthRejections.WithLabelValues(reason).Inc()
}

func IncrementEventPublished(event, result string) {
	EventsPublished.WithLabelValues(event, result).Inc()
}
