package mockapi

import (
	"bufio"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/jogardn/orders-client/internal/backend"
	"github.com/jogardn/orders-client/internal/events"
	"github.com/jogardn/orders-client/internal/metrics"
	"github.com/jogardn/orders-client/internal/websocket"
)

type Options struct {
	Store   Store
	Catalog *Catalog
	// Publisher receives every order event, typically a Kafka producer.
	Publisher events.Publisher
	Hub       *websocket.Hub
	Metrics   *metrics.Registry
	// APIKey, when set, is the only key the server accepts. Any bearer key
	// is accepted otherwise.
	APIKey string
	Logger *logrus.Logger
	Now    func() time.Time
}

// Server serves the order endpoints of the API from a Store.
type Server struct {
	store       Store
	catalog     *Catalog
	publisher   events.Publisher
	hub         *websocket.Hub
	registry    *metrics.Registry
	metrics     *metrics.Server
	apiKey      string
	idempotency *idempotencyCache
	logger      *logrus.Logger
	now         func() time.Time

	// mutex serializes read-modify-write cycles on orders.
	mutex sync.Mutex
}

func NewServer(opts Options) *Server {
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.Catalog == nil {
		opts.Catalog = DefaultCatalog()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	publishers := events.Publishers{opts.Publisher}
	if opts.Hub != nil {
		publishers = append(publishers, opts.Hub)
	}

	s := &Server{
		store:       opts.Store,
		catalog:     opts.Catalog,
		publisher:   publishers,
		hub:         opts.Hub,
		registry:    opts.Metrics,
		apiKey:      opts.APIKey,
		idempotency: newIdempotencyCache(opts.Now, opts.Logger),
		logger:      opts.Logger,
		now:         opts.Now,
	}
	if opts.Metrics != nil {
		s.metrics = opts.Metrics.Server()
	}
	return s
}

func (s *Server) Catalog() *Catalog { return s.catalog }

func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.loggingMiddleware)

	router.HandleFunc("/health", s.healthCheck).Methods(http.MethodGet)
	if s.registry != nil {
		router.Handle("/metrics", s.registry.Handler()).Methods(http.MethodGet)
	}
	if s.hub != nil {
		router.HandleFunc("/v1/events/ws", s.hub.HandleWebSocket).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/v1").Subrouter()
	api.Use(s.authMiddleware, s.idempotency.middleware)
	api.HandleFunc("/orders", s.handleCreate).Methods(http.MethodPost)
	api.HandleFunc("/orders", s.handleList).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", s.handleRetrieve).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", s.handleUpdate).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}/pay", s.handlePay).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}/returns", s.handleReturn).Methods(http.MethodPost)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, backend.NewError(http.StatusNotFound, backend.ErrorTypeInvalidRequest,
			fmt.Sprintf("Unrecognized request URL (%s: %s)", r.Method, r.URL.Path)))
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, backend.NewError(http.StatusMethodNotAllowed, backend.ErrorTypeInvalidRequest,
			fmt.Sprintf("Unrecognized request URL (%s: %s)", r.Method, r.URL.Path)))
	})

	return router
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.WithError(err).Warn("Store health check failed")
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	body := map[string]any{
		"status":  status,
		"service": "orders-mock",
	}
	if s.hub != nil {
		body["subscribers"] = s.hub.ClientCount()
	}
	respondWithJSON(w, code, body)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(p)
}

// Hijack lets the websocket endpoint take over the connection.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := "req_" + newToken(7)
		w.Header().Set("Request-Id", requestID)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}

		s.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": requestID,
		}).Debug("Request received")

		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		duration := time.Since(start)

		s.metrics.Request(r.Method, route, sw.status, duration)
		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      sw.status,
			"request_id":  requestID,
			"duration_ms": duration.Milliseconds(),
		}).Info("Request completed")
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || key == "" {
			respondWithError(w, backend.NewError(http.StatusUnauthorized, backend.ErrorTypeAuthentication,
				"You did not provide an API key. You need to provide your API key in the Authorization header, using Bearer auth."))
			return
		}
		if s.apiKey != "" && key != s.apiKey {
			respondWithError(w, backend.NewError(http.StatusUnauthorized, backend.ErrorTypeAuthentication,
				"Invalid API Key provided"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// respond writes v, or the API error behind err. Errors that are not API
// errors are logged and reported as a generic api_error.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err == nil {
		respondWithJSON(w, http.StatusOK, v)
		return
	}

	var apiErr *backend.Error
	if errors.As(err, &apiErr) {
		respondWithError(w, apiErr)
		return
	}

	s.logger.WithError(err).WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).Error("Request failed")
	respondWithError(w, backend.NewError(http.StatusInternalServerError, backend.ErrorTypeAPI,
		"An unknown error occurred"))
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, `{"error":{"type":"api_error","message":"failed to encode response"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, apiErr *backend.Error) {
	respondWithJSON(w, apiErr.HTTPStatus, backend.ErrorResponse{Error: apiErr})
}

// decodeParams reads a JSON request body into params and validates it. An
// empty body leaves params at its zero value.
func decodeParams(r *http.Request, params backend.Validator) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(params); err != nil && !errors.Is(err, io.EOF) {
		return invalidRequest("Invalid request body: " + err.Error())
	}
	if err := params.Validate(); err != nil {
		return invalidRequest(err.Error())
	}
	return nil
}

func invalidRequest(message string) *backend.Error {
	return backend.NewError(http.StatusBadRequest, backend.ErrorTypeInvalidRequest, message)
}

func resourceMissing(kind, id, param string) *backend.Error {
	return invalidRequest(fmt.Sprintf("No such %s: '%s'", kind, id)).
		WithCode("resource_missing").
		WithParam(param)
}

func (s *Server) publish(ctx context.Context, eventType events.EventType, object any, previous map[string]any) {
	event, err := events.NewEvent(eventType, object, s.now())
	if err == nil && len(previous) > 0 {
		_, err = event.WithPreviousAttributes(previous)
	}
	if err == nil {
		err = s.publisher.Publish(ctx, event)
	}

	s.metrics.EventPublished(string(eventType), err)
	if err != nil {
		s.logger.WithError(err).WithField("event_type", eventType).Warn("Failed to publish event")
	}
}

// newToken returns n random bytes hex encoded.
func newToken(n int) string {
	u := uuid.New()
	return hex.EncodeToString(u[:n])
}

func newID(prefix string) string {
	return prefix + "_" + newToken(12)
}
