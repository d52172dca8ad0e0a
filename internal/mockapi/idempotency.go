package mockapi

import (
	"bytes"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jogardn/orders-client/internal/backend"
)

const idempotencyTTL = 24 * time.Hour

type cachedResponse struct {
	method  string
	path    string
	body    []byte
	status  int
	payload []byte
	done    bool
	stored  time.Time
}

// idempotencyCache replays the first response seen for an Idempotency-Key.
// Keys are scoped to the API key that sent them.
type idempotencyCache struct {
	entries map[string]*cachedResponse
	mutex   sync.Mutex
	now     func() time.Time
	logger  *logrus.Logger
}

func newIdempotencyCache(now func() time.Time, logger *logrus.Logger) *idempotencyCache {
	return &idempotencyCache{
		entries: make(map[string]*cachedResponse),
		now:     now,
		logger:  logger,
	}
}

type recordingWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (w *recordingWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	w.buf.Write(p)
	return w.ResponseWriter.Write(p)
}

func (c *idempotencyCache) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("Idempotency-Key")
		if key == "" || r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			respondWithError(w, backend.NewError(http.StatusBadRequest, backend.ErrorTypeInvalidRequest, "Could not read request body"))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		scoped := r.Header.Get("Authorization") + "\x00" + key

		c.mutex.Lock()
		c.evict()
		entry, exists := c.entries[scoped]
		if !exists {
			entry = &cachedResponse{method: r.Method, path: r.URL.Path, body: body, stored: c.now()}
			c.entries[scoped] = entry
		}
		c.mutex.Unlock()

		if exists {
			c.replay(w, r, key, entry, body)
			return
		}

		rec := &recordingWriter{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		c.mutex.Lock()
		defer c.mutex.Unlock()
		if rec.status >= http.StatusInternalServerError {
			// Let the client retry server failures.
			delete(c.entries, scoped)
			return
		}
		entry.status = rec.status
		entry.payload = rec.buf.Bytes()
		entry.done = true
	})
}

func (c *idempotencyCache) replay(w http.ResponseWriter, r *http.Request, key string, entry *cachedResponse, body []byte) {
	c.mutex.Lock()
	done, status, payload := entry.done, entry.status, entry.payload
	c.mutex.Unlock()

	switch {
	case entry.method != r.Method || entry.path != r.URL.Path || !bytes.Equal(entry.body, body):
		respondWithError(w, backend.NewError(http.StatusBadRequest, backend.ErrorTypeIdempotency,
			"Keys for idempotent requests can only be used with the same parameters they were first used with"))
	case !done:
		respondWithError(w, backend.NewError(http.StatusConflict, backend.ErrorTypeIdempotency,
			"There is currently another in-progress request using this Idempotent Key"))
	default:
		c.logger.WithFields(logrus.Fields{
			"idempotency_key": key,
			"path":            r.URL.Path,
		}).Debug("Replaying idempotent response")

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(status)
		w.Write(payload)
	}
}

// evict drops expired entries. The caller holds the mutex.
func (c *idempotencyCache) evict() {
	cutoff := c.now().Add(-idempotencyTTL)
	for key, entry := range c.entries {
		if entry.done && entry.stored.Before(cutoff) {
			delete(c.entries, key)
		}
	}
}
