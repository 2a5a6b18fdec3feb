package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"

	BrokerNone     = "none"
	BrokerKafka    = "kafka"
	BrokerRabbitMQ = "rabbitmq"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                     string
	LogLevel                string
	HTTPAddr                string
	StorageDriver           string
	MongoURI                string
	MongoDB                 string
	DatabaseURL             string
	Broker                  string
	KafkaBrokers            []string
	KafkaTopicPrefix        string
	KafkaPaymentsTopic      string
	KafkaGroupID            string
	RabbitMQURL             string
	RabbitMQExchange        string
	RabbitMQPaymentsQueue   string
	IdempotencyTTL          time.Duration
	OutboxPollInterval      time.Duration
	RetryBackoff            []time.Duration
	JWTSecret               string
	JWTIssuer               string
	S3Endpoint              string
	S3PublicEndpoint        string
	S3AccessKey             string
	S3SecretKey             string
	S3Bucket                string
	S3UseSSL                bool
	CompletionSweepInterval time.Duration
	DemoMode                bool
	DemoDailyRate           int64
	TxRetryBudget           time.Duration
	DefaultCurrency         string
	CORSOrigins             []string
}

// Load reads an optional .env file and then parses the current environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv parses configuration from the current environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		Env:                   getEnv("APP_ENV", "dev"),
		LogLevel:              getEnv("LOG_LEVEL", ""),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		StorageDriver:         strings.ToLower(getEnv("STORAGE_DRIVER", DriverMemory)),
		MongoURI:              os.Getenv("MONGO_URI"),
		MongoDB:               getEnv("MONGO_DB", "lendit"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		Broker:                strings.ToLower(getEnv("BROKER", BrokerNone)),
		KafkaBrokers:          splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopicPrefix:      getEnv("KAFKA_TOPIC_PREFIX", ""),
		KafkaPaymentsTopic:    getEnv("KAFKA_PAYMENTS_TOPIC", ""),
		KafkaGroupID:          getEnv("KAFKA_GROUP_ID", "lendit"),
		RabbitMQURL:           os.Getenv("RABBITMQ_URL"),
		RabbitMQExchange:      getEnv("RABBITMQ_EXCHANGE", "lendit.events"),
		RabbitMQPaymentsQueue: getEnv("RABBITMQ_PAYMENTS_QUEUE", ""),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		JWTIssuer:             getEnv("JWT_ISSUER", ""),
		S3Endpoint:            os.Getenv("S3_ENDPOINT"),
		S3PublicEndpoint:      getEnv("S3_PUBLIC_ENDPOINT", ""),
		S3AccessKey:           getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:           getEnv("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:              getEnv("S3_BUCKET", "lendit-photos"),
		DefaultCurrency:       strings.ToUpper(getEnv("DEFAULT_CURRENCY", "USD")),
		CORSOrigins:           splitList(getEnv("CORS_ORIGINS", "*")),
	}
	var err error
	if cfg.IdempotencyTTL, err = parseDurationEnv("IDEMP_TTL", 168*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.CompletionSweepInterval, err = parseDurationEnv("COMPLETION_SWEEP_INTERVAL", 15*time.Minute); err != nil {
		return Config{}, err
	}

	retryStr := getEnv("RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}
	if cfg.TxRetryBudget, err = parseDurationEnv("TX_RETRY_BUDGET", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.DemoDailyRate, err = parseIntEnv("DEMO_DAILY_RATE", 2500); err != nil {
		return Config{}, err
	}
	if cfg.S3UseSSL, err = parseBoolEnv("S3_USE_SSL", false); err != nil {
		return Config{}, err
	}
	if cfg.DemoMode, err = parseBoolEnv("DEMO_MODE", false); err != nil {
		return Config{}, err
	}
	if cfg.S3PublicEndpoint == "" {
		cfg.S3PublicEndpoint = cfg.S3Endpoint
	}
	if cfg.RabbitMQPaymentsQueue == "" {
		cfg.RabbitMQPaymentsQueue = cfg.KafkaGroupID + ".payments"
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate requires the keys of the selected storage driver and broker only.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case DriverMemory:
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when STORAGE_DRIVER=%s", DriverMongo)
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_DRIVER=%s", DriverPostgres)
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	switch c.Broker {
	case BrokerNone:
	case BrokerKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when BROKER=%s", BrokerKafka)
		}
	case BrokerRabbitMQ:
		if c.RabbitMQURL == "" {
			return fmt.Errorf("RABBITMQ_URL is required when BROKER=%s", BrokerRabbitMQ)
		}
	default:
		return fmt.Errorf("unknown BROKER %q", c.Broker)
	}
	if c.Broker != BrokerNone && c.StorageDriver == DriverMemory {
		return fmt.Errorf("BROKER=%s needs a persistent STORAGE_DRIVER", c.Broker)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.DemoDailyRate < 0 {
		return fmt.Errorf("DEMO_DAILY_RATE must not be negative")
	}
	if len(c.DefaultCurrency) != 3 {
		return fmt.Errorf("invalid DEFAULT_CURRENCY %q", c.DefaultCurrency)
	}
	return nil
}

// PhotosEnabled reports whether object storage is configured.
func (c Config) PhotosEnabled() bool {
	return c.S3Endpoint != ""
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

// parseIntEnv reads an integer such as a price in minor units.
func parseIntEnv(key string, def int64) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return v, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
