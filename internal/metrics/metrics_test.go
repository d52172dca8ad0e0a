package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusClass(t *testing.T) {
	tests := map[int]string{
		0:   "error",
		200: "2xx",
		204: "2xx",
		302: "3xx",
		400: "4xx",
		429: "4xx",
		500: "5xx",
		503: "5xx",
	}
	for status, want := range tests {
		assert.Equal(t, want, StatusClass(status), "status %d", status)
	}
}

func TestClientRecordsRequests(t *testing.T) {
	reg := New()
	client := reg.Client()

	client.Request("POST", "/v1/orders", 200, 20*time.Millisecond)
	client.Request("POST", "/v1/orders", 201, 30*time.Millisecond)
	client.Request("GET", "/v1/orders/{id}", 404, time.Millisecond)
	client.Retry("POST", "/v1/orders", "status_503")
	client.BreakerState("api.stripe.com", 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(client.calls.WithLabelValues("POST", "/v1/orders", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(client.calls.WithLabelValues("GET", "/v1/orders/{id}", "4xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(client.retries.WithLabelValues("POST", "/v1/orders", "status_503")))
	assert.Equal(t, 1.0, testutil.ToFloat64(client.breakerState.WithLabelValues("api.stripe.com")))
}

func TestNilRecordersAreNoops(t *testing.T) {
	var client *Client
	var server *Server

	assert.NotPanics(t, func() {
		client.Request("GET", "/v1/orders", 200, time.Millisecond)
		client.Retry("GET", "/v1/orders", "network")
		client.BreakerState("localhost", 0)
		server.Request("GET", "/v1/orders", 200, time.Millisecond)
		server.EventPublished("order.created", nil)
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	reg := New()
	reg.Server().Request("POST", "/v1/orders/{id}/pay", 402, 5*time.Millisecond)
	reg.Server().EventPublished("order.created", errors.New("broker down"))

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `orders_mock_http_requests_total{method="POST",route="/v1/orders/{id}/pay",status="402"} 1`)
	assert.Contains(t, string(body), `orders_mock_events_published_total{outcome="error",type="order.created"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
