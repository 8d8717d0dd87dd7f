package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService records request-level Prometheus metrics.
type MetricsService struct {
	requestDuration *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
}

// NewMetricsService registers the HTTP metric vectors.
func NewMetricsService() *MetricsService {
	return &MetricsService{
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "data_siswa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "data_siswa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Number of HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
	}
}

// Handler returns the Prometheus scrape handler.
func (s *MetricsService) Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest records one completed HTTP request.
func (s *MetricsService) ObserveRequest(method, route string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	s.requestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
	s.requestsTotal.WithLabelValues(method, route, code).Inc()
}
