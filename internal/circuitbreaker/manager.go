package circuitbreaker

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Manager hands out one breaker per API host so that an outage of one host
// does not block calls to another.
type Manager struct {
	breakers map[string]*CircuitBreaker
	defaults Config
	mutex    sync.RWMutex
	logger   *logrus.Logger
}

func NewManager(defaults Config, logger *logrus.Logger) *Manager {
	return &Manager{
		breakers: make(map[string]*CircuitBreaker),
		defaults: defaults,
		logger:   logger,
	}
}

func (m *Manager) GetOrCreate(name string) *CircuitBreaker {
	m.mutex.RLock()
	breaker, exists := m.breakers[name]
	m.mutex.RUnlock()
	if exists {
		return breaker
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if breaker, exists := m.breakers[name]; exists {
		return breaker
	}

	config := m.defaults
	config.Name = name
	breaker = New(config, m.logger)
	m.breakers[name] = breaker

	m.logger.WithFields(logrus.Fields{
		"circuit_breaker": name,
		"max_failures":    breaker.maxFailures,
		"timeout":         breaker.timeout.String(),
		"max_requests":    breaker.maxRequests,
	}).Info("Circuit breaker created")

	return breaker
}

// AllMetrics snapshots every breaker, keyed by API host.
func (m *Manager) AllMetrics() map[string]Metrics {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	metrics := make(map[string]Metrics, len(m.breakers))
	for name, breaker := range m.breakers {
		metrics[name] = breaker.Metrics()
	}

	return metrics
}

func (m *Manager) ResetAll() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, breaker := range m.breakers {
		breaker.Reset()
	}

	m.logger.Info("All circuit breakers reset")
}
