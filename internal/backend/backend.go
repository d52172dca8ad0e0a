package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jogardn/orders-client/internal/circuitbreaker"
	"github.com/jogardn/orders-client/internal/metrics"
	"github.com/jogardn/orders-client/pkg/models"
)

const (
	DefaultBaseURL           = "https://api.stripe.com"
	APIVersion               = "2019-11-05"
	DefaultMaxNetworkRetries = 2
	DefaultHTTPTimeout       = 80 * time.Second

	userAgent = "orders-client/1.0"

	defaultMinRetryDelay = 500 * time.Millisecond
	defaultMaxRetryDelay = 5 * time.Second
	backoffMultiplier    = 2
)

// Validator is implemented by every params struct sent through Call.
type Validator interface {
	Validate() error
}

type Config struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	// MaxNetworkRetries bounds the retries after the first attempt. Zero
	// disables retrying.
	MaxNetworkRetries int
	HTTPClient        *http.Client
	Breaker           circuitbreaker.Config
	MinRetryDelay     time.Duration
	MaxRetryDelay     time.Duration
	Metrics           *metrics.Client
	Logger            *logrus.Logger
}

// Backend sends requests to the API and turns responses into values or
// *Error. It is safe for concurrent use.
type Backend struct {
	apiKey            string
	baseURL           *url.URL
	apiVersion        string
	maxNetworkRetries int
	minRetryDelay     time.Duration
	maxRetryDelay     time.Duration

	httpClient *http.Client
	breakers   *circuitbreaker.Manager
	metrics    *metrics.Client
	logger     *logrus.Logger
}

func New(cfg Config) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base url: %w", err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = APIVersion
	}
	if cfg.MaxNetworkRetries < 0 {
		cfg.MaxNetworkRetries = 0
	}
	if cfg.MinRetryDelay <= 0 {
		cfg.MinRetryDelay = defaultMinRetryDelay
	}
	if cfg.MaxRetryDelay < cfg.MinRetryDelay {
		cfg.MaxRetryDelay = max(defaultMaxRetryDelay, cfg.MinRetryDelay)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	breakerConfig := cfg.Breaker
	breakerConfig.IsFailure = serverFailure
	if cfg.Metrics != nil {
		recorder := cfg.Metrics
		breakerConfig.OnStateChange = func(name string, _ circuitbreaker.State, to circuitbreaker.State) {
			recorder.BreakerState(name, int(to))
		}
	}

	return &Backend{
		apiKey:            cfg.APIKey,
		baseURL:           baseURL,
		apiVersion:        cfg.APIVersion,
		maxNetworkRetries: cfg.MaxNetworkRetries,
		minRetryDelay:     cfg.MinRetryDelay,
		maxRetryDelay:     cfg.MaxRetryDelay,
		httpClient:        cfg.HTTPClient,
		breakers:          circuitbreaker.NewManager(breakerConfig, cfg.Logger),
		metrics:           cfg.Metrics,
		logger:            cfg.Logger,
	}, nil
}

func (b *Backend) Breakers() *circuitbreaker.Manager { return b.breakers }

func (b *Backend) Logger() *logrus.Logger { return b.logger }

// Call validates params, sends them and decodes a successful response into
// out. GET params travel on the query string and must implement
// models.QueryEncoder; other methods send params as a JSON body. params must
// be nil or a non-nil pointer.
func (b *Backend) Call(ctx context.Context, method, path string, params Validator, out any, opts ...RequestOption) error {
	if params != nil {
		if err := params.Validate(); err != nil {
			return err
		}
	}

	o := collectOptions(opts)
	u := b.baseURL.JoinPath(path)

	var body []byte
	if method == http.MethodGet || method == http.MethodDelete {
		if encoder, ok := params.(models.QueryEncoder); ok {
			values := url.Values{}
			encoder.AppendTo(values)
			u.RawQuery = values.Encode()
		}
	} else {
		body = []byte("{}")
		if params != nil {
			encoded, err := json.Marshal(params)
			if err != nil {
				return fmt.Errorf("failed to marshal params: %w", err)
			}
			body = encoded
		}
		if o.idempotencyKey == "" && method == http.MethodPost {
			o.idempotencyKey = uuid.NewString()
		}
	}

	maxRetries := b.maxNetworkRetries
	if o.maxNetworkRetries != nil {
		maxRetries = max(*o.maxNetworkRetries, 0)
	}

	req := &request{
		method: method,
		url:    u.String(),
		route:  routeTemplate(path),
		body:   body,
		opts:   o,
	}
	breaker := b.breakers.GetOrCreate(b.baseURL.Host)

	for attempt := 0; ; attempt++ {
		payload, err := b.attempt(ctx, breaker, req, attempt)
		if err == nil {
			if out == nil || len(payload) == 0 {
				return nil
			}
			if err := json.Unmarshal(payload, out); err != nil {
				return fmt.Errorf("failed to decode response of %s %s: %w", method, path, err)
			}
			return nil
		}

		retry, reason := b.shouldRetry(ctx, err, attempt, maxRetries)
		if !retry {
			return err
		}

		delay := b.backoff(attempt)
		b.metrics.Retry(method, req.route, reason)
		b.logger.WithFields(logrus.Fields{
			"method":  method,
			"path":    path,
			"attempt": attempt + 1,
			"reason":  reason,
			"delay":   delay.String(),
			"error":   err.Error(),
		}).Warn("Retrying API request")

		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

type request struct {
	method string
	url    string
	route  string
	body   []byte
	opts   requestOptions
}

func (b *Backend) attempt(ctx context.Context, breaker *circuitbreaker.CircuitBreaker, r *request, attempt int) ([]byte, error) {
	var payload []byte

	err := breaker.Execute(ctx, func(ctx context.Context) error {
		var reader io.Reader
		if r.body != nil {
			reader = bytes.NewReader(r.body)
		}

		req, err := http.NewRequestWithContext(ctx, r.method, r.url, reader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		b.setHeaders(req, r)

		start := time.Now()
		resp, err := b.httpClient.Do(req)
		if err != nil {
			b.metrics.Request(r.method, r.route, 0, time.Since(start))
			return fmt.Errorf("failed to send request: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		duration := time.Since(start)
		b.metrics.Request(r.method, r.route, resp.StatusCode, duration)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		requestID := resp.Header.Get("Request-Id")
		b.logger.WithFields(logrus.Fields{
			"method":     r.method,
			"path":       r.route,
			"status":     resp.StatusCode,
			"attempt":    attempt + 1,
			"request_id": requestID,
			"duration":   duration.String(),
		}).Debug("API request completed")

		if resp.StatusCode >= 400 {
			return decodeError(resp, data)
		}
		payload = data
		return nil
	})

	return payload, err
}

func (b *Backend) setHeaders(req *http.Request, r *request) {
	version := b.apiVersion
	if r.opts.apiVersion != "" {
		version = r.opts.apiVersion
	}

	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("Stripe-Version", version)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.opts.idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", r.opts.idempotencyKey)
	}
	if r.opts.connectedAccount != "" {
		req.Header.Set("Stripe-Account", r.opts.connectedAccount)
	}
}

func decodeError(resp *http.Response, data []byte) *Error {
	var envelope ErrorResponse
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Error == nil {
		errType := ErrorTypeInvalidRequest
		if resp.StatusCode >= 500 {
			errType = ErrorTypeAPI
		}
		envelope.Error = &Error{
			Type:    errType,
			Message: fmt.Sprintf("unexpected error response: %s", truncate(data, 200)),
		}
	}

	apiErr := envelope.Error
	apiErr.HTTPStatus = resp.StatusCode
	apiErr.RequestID = resp.Header.Get("Request-Id")
	if v := resp.Header.Get("Stripe-Should-Retry"); v != "" {
		retry := v == "true"
		apiErr.shouldRetry = &retry
	}
	return apiErr
}

func (b *Backend) shouldRetry(ctx context.Context, err error, attempt, maxRetries int) (bool, string) {
	if attempt >= maxRetries || ctx.Err() != nil {
		return false, ""
	}
	if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
		return false, ""
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return true, "network"
	}

	reason := fmt.Sprintf("status_%d", apiErr.HTTPStatus)
	if apiErr.shouldRetry != nil {
		return *apiErr.shouldRetry, reason
	}

	switch {
	case apiErr.HTTPStatus == http.StatusConflict,
		apiErr.HTTPStatus == http.StatusTooManyRequests,
		apiErr.HTTPStatus >= 500:
		return true, reason
	default:
		return false, ""
	}
}

// backoff doubles the delay per attempt and picks a random point in its upper
// half, capped at maxRetryDelay.
func (b *Backend) backoff(attempt int) time.Duration {
	delay := b.minRetryDelay
	for i := 0; i < attempt && delay < b.maxRetryDelay; i++ {
		delay *= backoffMultiplier
	}
	delay = min(delay, b.maxRetryDelay)

	half := delay / 2
	return half + time.Duration(rand.Int64N(int64(half)+1))
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// routeTemplate replaces object IDs in path with {id} so metric labels stay
// bounded.
func routeTemplate(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if looksLikeID(segment) {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}

func looksLikeID(segment string) bool {
	if !strings.Contains(segment, "_") {
		return false
	}
	return strings.ContainsAny(segment, "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ")
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}
