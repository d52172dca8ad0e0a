package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://api.stripe.com", cfg.Client.BaseURL)
	assert.Equal(t, "2019-11-05", cfg.Client.APIVersion)
	assert.Equal(t, 2, cfg.Client.MaxNetworkRetries)
	assert.Equal(t, 80*time.Second, cfg.Client.HTTPTimeout)
	assert.Equal(t, 5, cfg.Breaker.MaxFailures)
	assert.Equal(t, 12111, cfg.Mock.Port)
	assert.Empty(t, cfg.Mock.DatabaseURL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ORDERS_API_KEY", "sk_test_123")
	t.Setenv("ORDERS_API_BASE_URL", "http://localhost:12111")
	t.Setenv("ORDERS_MAX_NETWORK_RETRIES", "0")
	t.Setenv("ORDERS_BREAKER_TIMEOUT", "5s")
	t.Setenv("MOCK_SEED_ORDERS", "25")
	t.Setenv("KAFKA_BROKERS", "localhost:9092,localhost:9093")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:12111", cfg.Client.BaseURL)
	assert.Equal(t, 0, cfg.Client.MaxNetworkRetries)
	assert.Equal(t, 5*time.Second, cfg.Breaker.Timeout)
	assert.Equal(t, 25, cfg.Mock.SeedOrders)
	assert.Equal(t, "localhost:9092,localhost:9093", cfg.Kafka.Brokers)

	bc, err := cfg.Backend(logrus.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, "sk_test_123", bc.APIKey)
	assert.Equal(t, 5*time.Second, bc.Breaker.Timeout)
	assert.Equal(t, 80*time.Second, bc.HTTPClient.Timeout)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "retries above ten", key: "ORDERS_MAX_NETWORK_RETRIES", value: "11"},
		{name: "relative base url", key: "ORDERS_API_BASE_URL", value: "api.stripe.com"},
		{name: "unknown log level", key: "LOG_LEVEL", value: "verbose"},
		{name: "unknown log format", key: "LOG_FORMAT", value: "xml"},
		{name: "port out of range", key: "MOCK_PORT", value: "70000"},
		{name: "retry delays inverted", key: "ORDERS_MAX_RETRY_DELAY", value: "100ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config validation")
		})
	}
}

func TestBackendNeedsAPIKey(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	_, err = cfg.Backend(logrus.New(), nil)
	assert.ErrorContains(t, err, "ORDERS_API_KEY")
}

func TestLoadFromFile(t *testing.T) {
	// Reading an env file exports its values; restore them afterwards.
	t.Setenv("ORDERS_API_KEY", "")
	t.Setenv("MOCK_PORT", "12111")

	path := filepath.Join(t.TempDir(), "orders.env")
	require.NoError(t, os.WriteFile(path, []byte("ORDERS_API_KEY=sk_file\nMOCK_PORT=8099\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk_file", cfg.Client.APIKey)
	assert.Equal(t, 8099, cfg.Mock.Port)
}

func TestNewLoggerWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.log")

	logger, closer, err := NewLogger(Logger{Level: "warn", Format: "json", File: path, MaxSize: 1, MaxAge: 1})
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())

	logger.Info("dropped")
	logger.WithField("order_id", "or_1").Warn("kept")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"order_id":"or_1"`)
	assert.NotContains(t, string(data), "dropped")
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	_, _, err := NewLogger(Logger{Level: "loud"})
	assert.Error(t, err)
}
