package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns the collectors of one process. It does not use the global
// prometheus registry so tests can create as many as they need.
type Registry struct {
	registry *prometheus.Registry
	client   *Client
	server   *Server
}

func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Registry{
		registry: reg,
		client:   newClient(reg),
		server:   newServer(reg),
	}
}

func (r *Registry) Client() *Client { return r.client }

func (r *Registry) Server() *Server { return r.server }

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0}

// StatusClass buckets an HTTP status for use as a label. Zero means the
// request never got a response.
func StatusClass(status int) string {
	switch {
	case status == 0:
		return "error"
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// Client records calls made by the API client. A nil *Client records nothing.
type Client struct {
	calls        *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	retries      *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
}

func newClient(reg *prometheus.Registry) *Client {
	c := &Client{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_client_requests_total",
				Help: "API requests sent by the orders client by method, path and status class",
			},
			[]string{"method", "path", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orders_client_request_duration_seconds",
				Help:    "Duration of a single API request attempt in seconds",
				Buckets: durationBuckets,
			},
			[]string{"method", "path", "status"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_client_retries_total",
				Help: "API request attempts that were retried, by method, path and reason",
			},
			[]string{"method", "path", "reason"},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "orders_client_circuit_breaker_state",
				Help: "Circuit breaker state per API host (0 closed, 1 open, 2 half-open)",
			},
			[]string{"host"},
		),
	}

	reg.MustRegister(c.calls, c.duration, c.retries, c.breakerState)
	return c
}

func (c *Client) Request(method, path string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	class := StatusClass(status)
	c.calls.WithLabelValues(method, path, class).Inc()
	c.duration.WithLabelValues(method, path, class).Observe(duration.Seconds())
}

func (c *Client) Retry(method, path, reason string) {
	if c == nil {
		return
	}
	c.retries.WithLabelValues(method, path, reason).Inc()
}

func (c *Client) BreakerState(host string, state int) {
	if c == nil {
		return
	}
	c.breakerState.WithLabelValues(host).Set(float64(state))
}

// Server records requests handled by the mock API server. A nil *Server
// records nothing.
type Server struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	events   *prometheus.CounterVec
}

func newServer(reg *prometheus.Registry) *Server {
	s := &Server{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_mock_http_requests_total",
				Help: "Requests handled by the mock API by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orders_mock_http_request_duration_seconds",
				Help:    "Mock API request duration in seconds",
				Buckets: durationBuckets,
			},
			[]string{"method", "route"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_mock_events_published_total",
				Help: "Order events published by the mock API by type and outcome",
			},
			[]string{"type", "outcome"},
		),
	}

	reg.MustRegister(s.requests, s.duration, s.events)
	return s
}

func (s *Server) Request(method, route string, status int, duration time.Duration) {
	if s == nil {
		return
	}
	s.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	s.duration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (s *Server) EventPublished(eventType string, err error) {
	if s == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.events.WithLabelValues(eventType, outcome).Inc()
}
