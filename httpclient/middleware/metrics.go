package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kbukum/foundation/httpclient"
)

// Metrics holds the Prometheus collectors for outgoing requests. It is
// safe for concurrent use.
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec
	errorsTotal      *prometheus.CounterVec
}

// NewMetrics registers the collectors on registry under namespace.
// A nil registry uses prometheus.DefaultRegisterer.
func NewMetrics(registry prometheus.Registerer, namespace string) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)
	return &Metrics{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_client_requests_total",
				Help:      "Total number of HTTP requests sent",
			},
			[]string{"method", "host", "status_code"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_client_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "host"},
		),
		requestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_client_requests_in_flight",
				Help:      "Number of HTTP requests currently in flight",
			},
			[]string{"method", "host"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_client_errors_total",
				Help:      "Total number of requests that failed without a response",
			},
			[]string{"method", "host"},
		),
	}
}

// Middleware records every round trip.
func (m *Metrics) Middleware() httpclient.Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return httpclient.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			method, host := req.Method, req.URL.Host
			inFlight := m.requestsInFlight.WithLabelValues(method, host)
			inFlight.Inc()
			defer inFlight.Dec()

			start := time.Now()
			resp, err := next.RoundTrip(req)
			m.requestDuration.WithLabelValues(method, host).Observe(time.Since(start).Seconds())

			if err != nil {
				m.errorsTotal.WithLabelValues(method, host).Inc()
				return resp, err
			}
			m.requestsTotal.WithLabelValues(method, host, strconv.Itoa(resp.StatusCode)).Inc()
			return resp, nil
		})
	}
}
