package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var (
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
)

const (
	defaultMaxFailures = 5
	defaultTimeout     = 30 * time.Second
	defaultMaxRequests = 1
)

type Config struct {
	Name        string
	MaxFailures int
	Timeout     time.Duration
	MaxRequests int
	// IsFailure decides whether an error returned by the protected call counts
	// against the breaker. Nil counts every error.
	IsFailure     func(err error) bool
	OnStateChange func(name string, from State, to State)
}

// CircuitBreaker stops calling an API host after repeated server-side
// failures and tries the host again once Timeout has elapsed.
type CircuitBreaker struct {
	name          string
	maxFailures   int
	timeout       time.Duration
	maxRequests   int
	isFailure     func(err error) bool
	onStateChange func(name string, from State, to State)

	mutex        sync.RWMutex
	state        State
	failures     int
	requests     int
	lastFailTime time.Time

	totalRequests   int64
	totalFailures   int64
	totalSuccesses  int64
	totalRejected   int64
	stateChanges    int64
	lastStateChange time.Time

	now    func() time.Time
	logger *logrus.Logger
}

func New(config Config, logger *logrus.Logger) *CircuitBreaker {
	config = sanitize(config, logger)

	return &CircuitBreaker{
		name:          config.Name,
		maxFailures:   config.MaxFailures,
		timeout:       config.Timeout,
		maxRequests:   config.MaxRequests,
		isFailure:     config.IsFailure,
		onStateChange: config.OnStateChange,
		state:         StateClosed,
		now:           time.Now,
		logger:        logger,
	}
}

func sanitize(config Config, logger *logrus.Logger) Config {
	if config.Name == "" {
		config.Name = "unnamed"
		logger.Warn("Circuit breaker created without name, using 'unnamed'")
	}

	warn := func(field string, invalid, fallback interface{}) {
		logger.WithFields(logrus.Fields{
			"circuit_breaker": config.Name,
			"field":           field,
			"invalid_value":   invalid,
			"default_value":   fallback,
		}).Warn("Invalid circuit breaker setting, using default")
	}

	if config.MaxFailures <= 0 {
		warn("max_failures", config.MaxFailures, defaultMaxFailures)
		config.MaxFailures = defaultMaxFailures
	}
	if config.Timeout <= 0 {
		warn("timeout", config.Timeout, defaultTimeout)
		config.Timeout = defaultTimeout
	}
	if config.MaxRequests <= 0 {
		warn("max_requests", config.MaxRequests, defaultMaxRequests)
		config.MaxRequests = defaultMaxRequests
	}

	// Upper bounds keep a misconfigured breaker from never opening or never
	// probing again.
	if config.MaxFailures > 1000 {
		warn("max_failures", config.MaxFailures, 1000)
		config.MaxFailures = 1000
	}
	if config.Timeout > 10*time.Minute {
		warn("timeout", config.Timeout, 10*time.Minute)
		config.Timeout = 10 * time.Minute
	}
	if config.MaxRequests > 100 {
		warn("max_requests", config.MaxRequests, 100)
		config.MaxRequests = 100
	}

	return config
}

// Execute runs fn unless the breaker is open. The error of fn is returned
// unchanged; ErrCircuitBreakerOpen is returned when the call was rejected.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := cb.admit(); err != nil {
		return err
	}

	err := fn(ctx)

	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	// A caller giving up says nothing about the health of the host either
	// way: free its half-open slot and keep the state.
	if errors.Is(err, context.Canceled) {
		if cb.state == StateHalfOpen && cb.requests > 0 {
			cb.requests--
		}
		return err
	}

	if err != nil && cb.countsAsFailure(err) {
		cb.onFailure()
		cb.totalFailures++
		return err
	}

	cb.onSuccess()
	cb.totalSuccesses++
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.lastFailTime) <= cb.timeout {
			cb.totalRejected++
			cb.logger.WithFields(logrus.Fields{
				"circuit_breaker": cb.name,
				"state":           cb.state.String(),
			}).Debug("Circuit breaker is open, rejecting request")
			return ErrCircuitBreakerOpen
		}
		cb.setState(StateHalfOpen)
		cb.requests = 0
	}

	if cb.state == StateHalfOpen && cb.requests >= cb.maxRequests {
		cb.totalRejected++
		cb.logger.WithFields(logrus.Fields{
			"circuit_breaker": cb.name,
			"state":           cb.state.String(),
			"requests":        cb.requests,
			"max_requests":    cb.maxRequests,
		}).Debug("Circuit breaker half-open max requests reached")
		return ErrCircuitBreakerOpen
	}

	cb.totalRequests++
	if cb.state == StateHalfOpen {
		cb.requests++
	}
	return nil
}

func (cb *CircuitBreaker) countsAsFailure(err error) bool {
	if cb.isFailure == nil {
		return true
	}
	return cb.isFailure(err)
}

func (cb *CircuitBreaker) onSuccess() {
	cb.failures = 0

	if cb.state == StateHalfOpen {
		cb.setState(StateClosed)
		cb.requests = 0
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.failures++
	cb.lastFailTime = cb.now()

	if cb.state == StateClosed && cb.failures >= cb.maxFailures {
		cb.setState(StateOpen)
		cb.requests = 0
	} else if cb.state == StateHalfOpen {
		cb.setState(StateOpen)
		cb.requests = 0
	}
}

func (cb *CircuitBreaker) setState(newState State) {
	if cb.state == newState {
		return
	}

	oldState := cb.state
	cb.state = newState
	cb.stateChanges++
	cb.lastStateChange = cb.now()

	cb.logger.WithFields(logrus.Fields{
		"circuit_breaker": cb.name,
		"from_state":      oldState.String(),
		"to_state":        newState.String(),
	}).Info("Circuit breaker state changed")

	if cb.onStateChange != nil {
		go cb.executeStateChangeCallback(cb.name, oldState, newState)
	}
}

func (cb *CircuitBreaker) executeStateChangeCallback(name string, from State, to State) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})

	go func() {
		defer func() {
			if r := recover(); r != nil {
				cb.logger.WithFields(logrus.Fields{
					"circuit_breaker": name,
					"from_state":      from.String(),
					"to_state":        to.String(),
					"panic":           r,
				}).Error("Circuit breaker state change callback panicked")
			}
			close(done)
		}()

		cb.onStateChange(name, from, to)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		cb.logger.WithFields(logrus.Fields{
			"circuit_breaker": name,
			"from_state":      from.String(),
			"to_state":        to.String(),
			"timeout":         "5s",
		}).Warn("Circuit breaker state change callback timed out")
	}
}

func (cb *CircuitBreaker) Name() string { return cb.name }

func (cb *CircuitBreaker) State() State {
	cb.mutex.RLock()
	defer cb.mutex.RUnlock()
	return cb.state
}

// Metrics is a point-in-time snapshot of a breaker.
type Metrics struct {
	Name            string    `json:"name"`
	State           string    `json:"state"`
	Failures        int       `json:"failures"`
	TotalRequests   int64     `json:"total_requests"`
	TotalFailures   int64     `json:"total_failures"`
	TotalSuccesses  int64     `json:"total_successes"`
	TotalRejected   int64     `json:"total_rejected"`
	StateChanges    int64     `json:"state_changes"`
	LastFailure     time.Time `json:"last_failure"`
	LastStateChange time.Time `json:"last_state_change"`
}

func (cb *CircuitBreaker) Metrics() Metrics {
	cb.mutex.RLock()
	defer cb.mutex.RUnlock()

	return Metrics{
		Name:            cb.name,
		State:           cb.state.String(),
		Failures:        cb.failures,
		TotalRequests:   cb.totalRequests,
		TotalFailures:   cb.totalFailures,
		TotalSuccesses:  cb.totalSuccesses,
		TotalRejected:   cb.totalRejected,
		StateChanges:    cb.stateChanges,
		LastFailure:     cb.lastFailTime,
		LastStateChange: cb.lastStateChange,
	}
}

func (cb *CircuitBreaker) Reset() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.setState(StateClosed)
	cb.failures = 0
	cb.requests = 0
	cb.lastFailTime = time.Time{}
}
