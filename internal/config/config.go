package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/jogardn/orders-client/internal/backend"
	"github.com/jogardn/orders-client/internal/circuitbreaker"
	"github.com/jogardn/orders-client/internal/metrics"
)

type (
	Config struct {
		Client  Client  `env-prefix:"ORDERS_"`
		Breaker Breaker `env-prefix:"ORDERS_BREAKER_"`
		Mock    Mock    `env-prefix:"MOCK_"`
		Kafka   Kafka   `env-prefix:"KAFKA_"`
		Logger  Logger  `env-prefix:"LOG_"`
	}

	Client struct {
		APIKey            string        `env:"API_KEY"`
		BaseURL           string        `env:"API_BASE_URL"        env-default:"https://api.stripe.com" validate:"required,url"`
		APIVersion        string        `env:"API_VERSION"         env-default:"2019-11-05"             validate:"required"`
		MaxNetworkRetries int           `env:"MAX_NETWORK_RETRIES" env-default:"2"                      validate:"min=0,max=10"`
		HTTPTimeout       time.Duration `env:"HTTP_TIMEOUT"        env-default:"80s"                    validate:"gte=1s,lte=10m"`
		MinRetryDelay     time.Duration `env:"MIN_RETRY_DELAY"     env-default:"500ms"                  validate:"gte=1ms,lte=30s"`
		MaxRetryDelay     time.Duration `env:"MAX_RETRY_DELAY"     env-default:"5s"                     validate:"gte=1ms,lte=1m,gtefield=MinRetryDelay"`
	}

	Breaker struct {
		MaxFailures int           `env:"MAX_FAILURES" env-default:"5"   validate:"min=1,max=1000"`
		Timeout     time.Duration `env:"TIMEOUT"      env-default:"30s" validate:"gte=1s,lte=10m"`
		MaxRequests int           `env:"MAX_REQUESTS" env-default:"1"   validate:"min=1,max=100"`
	}

	Mock struct {
		Port            int           `env:"PORT"             env-default:"12111" validate:"gte=1,lte=65535"`
		APIKey          string        `env:"API_KEY"`
		DatabaseURL     string        `env:"DATABASE_URL"`
		DBConnAttempts  int           `env:"DB_CONN_ATTEMPTS" env-default:"10"    validate:"min=1,max=60"`
		SeedOrders      int           `env:"SEED_ORDERS"      env-default:"0"     validate:"min=0,max=10000"`
		ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"30s"   validate:"gte=1s,lte=5m"`
	}

	// Kafka is optional: with no brokers the mock server publishes events to
	// websocket subscribers only.
	Kafka struct {
		Brokers    string        `env:"BROKERS"`
		GroupID    string        `env:"GROUP_ID"    env-default:"orders-cli" validate:"required"`
		Retries    int           `env:"RETRIES"     env-default:"3"          validate:"min=0,max=20"`
		RetryDelay time.Duration `env:"RETRY_DELAY" env-default:"1s"         validate:"gte=1ms,lte=1m"`
	}

	Logger struct {
		Level      string `env:"LEVEL"       env-default:"info" validate:"oneof=debug info warn error"`
		Format     string `env:"FORMAT"      env-default:"json" validate:"oneof=json text"`
		File       string `env:"FILE"`
		MaxSize    int    `env:"MAX_SIZE"    env-default:"100"  validate:"min=1,max=1000"`
		MaxBackups int    `env:"MAX_BACKUPS" env-default:"3"    validate:"min=0,max=20"`
		MaxAge     int    `env:"MAX_AGE"     env-default:"28"   validate:"min=1,max=365"`
	}
)

// Load reads .env when present, then the environment, or the file at path
// when path is not empty, and validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("config validation: %w", err)
	}

	msgs := make([]string, 0, len(validationErrs))
	for _, ve := range validationErrs {
		msgs = append(msgs, fmt.Sprintf("%s=%v must satisfy '%s'", ve.Namespace(), ve.Value(), ve.Tag()))
	}
	return fmt.Errorf("config validation: %s", strings.Join(msgs, "; "))
}

// Backend builds the API client settings. The API key is checked here
// rather than in Validate since only the client needs one.
func (c *Config) Backend(logger *logrus.Logger, m *metrics.Client) (backend.Config, error) {
	if c.Client.APIKey == "" {
		return backend.Config{}, errors.New("ORDERS_API_KEY is not set")
	}

	return backend.Config{
		APIKey:            c.Client.APIKey,
		BaseURL:           c.Client.BaseURL,
		APIVersion:        c.Client.APIVersion,
		MaxNetworkRetries: c.Client.MaxNetworkRetries,
		HTTPClient:        &http.Client{Timeout: c.Client.HTTPTimeout},
		MinRetryDelay:     c.Client.MinRetryDelay,
		MaxRetryDelay:     c.Client.MaxRetryDelay,
		Breaker: circuitbreaker.Config{
			MaxFailures: c.Breaker.MaxFailures,
			Timeout:     c.Breaker.Timeout,
			MaxRequests: c.Breaker.MaxRequests,
		},
		Metrics: m,
		Logger:  logger,
	}, nil
}
