package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	HTTP     ServerConfig
	MySQL    MySQLConfig
	Log      LogConfig
	Stripe   StripeConfig
	Mock     MockConfig
	Webhooks WebhooksConfig
	Payments PaymentsConfig
	Jobs     JobsConfig
}

type AppConfig struct {
	ServiceName string
	APIKey      string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type StripeConfig struct {
	SecretKey          string
	WebhookSecret      string
	SignatureTolerance time.Duration
	HTTPTimeout        time.Duration
	SuccessURL         string
	CancelURL          string
}

type MockConfig struct {
	Enabled         bool
	WebhookSecret   string
	CheckoutBaseURL string
}

type WebhooksConfig struct {
	SuspendThreshold   int32
	SignatureTolerance time.Duration
	DispatchTimeout    time.Duration
	WorkflowURL        string
	WorkflowTimeout    time.Duration
}

type PaymentsConfig struct {
	DefaultProvider     string
	ReconcileStaleAfter time.Duration
	JobBatchSize        int32
}

type JobsConfig struct {
	ReconcileInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "payment-hub"),
			APIKey:      getEnv("APP_API_KEY", ""),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Stripe: StripeConfig{
			SecretKey:          getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret:      getEnv("STRIPE_WEBHOOK_SECRET", ""),
			SignatureTolerance: getSecondsEnv("STRIPE_SIGNATURE_TOLERANCE_SECONDS", 300*time.Second),
			HTTPTimeout:        getSecondsEnv("STRIPE_HTTP_TIMEOUT_SECONDS", 10*time.Second),
			SuccessURL:         getEnv("STRIPE_SUCCESS_URL", ""),
			CancelURL:          getEnv("STRIPE_CANCEL_URL", ""),
		},
		Mock: MockConfig{
			Enabled:         getBoolEnv("MOCK_PROVIDER_ENABLED", false),
			WebhookSecret:   getEnv("MOCK_WEBHOOK_SECRET", ""),
			CheckoutBaseURL: getEnv("MOCK_CHECKOUT_BASE_URL", ""),
		},
		Webhooks: WebhooksConfig{
			SuspendThreshold:   int32(getIntEnv("WEBHOOKS_SUSPEND_THRESHOLD", 10)),
			SignatureTolerance: getSecondsEnv("WEBHOOKS_SIGNATURE_TOLERANCE_SECONDS", 300*time.Second),
			DispatchTimeout:    getSecondsEnv("WEBHOOKS_DISPATCH_TIMEOUT_SECONDS", 10*time.Second),
			WorkflowURL:        getEnv("WEBHOOKS_WORKFLOW_URL", ""),
			WorkflowTimeout:    getSecondsEnv("WEBHOOKS_WORKFLOW_TIMEOUT_SECONDS", 10*time.Second),
		},
		Payments: PaymentsConfig{
			DefaultProvider:     getEnv("PAYMENTS_DEFAULT_PROVIDER", "stripe"),
			ReconcileStaleAfter: getMinutesEnv("PAYMENTS_RECONCILE_STALE_AFTER_MINUTES", 15*time.Minute),
			JobBatchSize:        int32(getIntEnv("PAYMENTS_JOB_BATCH_SIZE", 100)),
		},
		Jobs: JobsConfig{
			ReconcileInterval: getMinutesEnv("PAYMENTS_RECONCILE_INTERVAL_MINUTES", 2*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
