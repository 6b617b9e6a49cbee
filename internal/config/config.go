// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mbd888/txrisk/internal/risk"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port      string
	Env       string // "development", "staging", "production"
	LogLevel  string
	LogFormat string // "json" or "text"

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// History source. When set, histories come from the mirror node instead
	// of the ledger_transactions table.
	MirrorNodeURL string

	// HistoryCacheTTL is how long fetched histories are reused. Zero disables.
	HistoryCacheTTL time.Duration

	// Engine
	HistoryLimit     int
	BatchConcurrency int
	FetchTimeout     time.Duration
	ModelMetrics     risk.ModelMetrics

	// Alert fan-out
	KafkaBrokers    []string
	KafkaAlertTopic string
	AlertMinLevel   string
	WebhookURL      string
	WebhookSecret   string // signs webhook bodies when set

	// Observability
	OTLPEndpoint     string
	TraceSampleRatio float64

	// Security
	CORSOrigins         []string // empty allows any origin without credentials
	RateLimitRPS        int
	MaxWebSocketClients int

	// DemoSeed loads synthetic ledger histories into the in-memory provider.
	DemoSeed bool
}

const (
	DefaultPort                = "8080"
	DefaultEnv                 = "development"
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "json"
	DefaultKafkaAlertTopic     = "txrisk.alerts"
	DefaultAlertMinLevel       = string(risk.LevelHigh)
	DefaultRateLimit           = 100
	DefaultMaxWebSocketClients = 1000
	DefaultHistoryCacheTTL     = 5 * time.Second

	maxHistoryLimit     = 1000
	maxBatchConcurrency = 100
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", DefaultPort),
		Env:                 getEnv("ENV", DefaultEnv),
		LogLevel:            getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:           getEnv("LOG_FORMAT", DefaultLogFormat),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		MirrorNodeURL:       os.Getenv("MIRROR_NODE_URL"),
		HistoryCacheTTL:     getEnvDuration("HISTORY_CACHE_TTL", DefaultHistoryCacheTTL),
		HistoryLimit:        int(getEnvInt64("HISTORY_LIMIT", risk.DefaultHistoryLimit)),
		BatchConcurrency:    int(getEnvInt64("BATCH_CONCURRENCY", risk.DefaultBatchConcurrency)),
		FetchTimeout:        getEnvDuration("FETCH_TIMEOUT", risk.DefaultFetchTimeout),
		ModelMetrics:        loadModelMetrics(),
		KafkaBrokers:        getEnvList("KAFKA_BROKERS"),
		KafkaAlertTopic:     getEnv("KAFKA_ALERT_TOPIC", DefaultKafkaAlertTopic),
		AlertMinLevel:       getEnv("ALERT_MIN_LEVEL", DefaultAlertMinLevel),
		WebhookURL:          os.Getenv("ALERT_WEBHOOK_URL"),
		WebhookSecret:       os.Getenv("ALERT_WEBHOOK_SECRET"),
		OTLPEndpoint:        os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TraceSampleRatio:    getEnvFloat("OTEL_TRACES_SAMPLE_RATIO", 1),
		CORSOrigins:         getEnvList("CORS_ALLOWED_ORIGINS"),
		RateLimitRPS:        int(getEnvInt64("RATE_LIMIT_RPS", DefaultRateLimit)),
		MaxWebSocketClients: int(getEnvInt64("MAX_WS_CLIENTS", DefaultMaxWebSocketClients)),
		DemoSeed:            getEnvBool("DEMO_SEED", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadModelMetrics starts from the shipped snapshot and applies MODEL_* overrides.
func loadModelMetrics() risk.ModelMetrics {
	m := risk.DefaultModelMetrics
	m.Accuracy = getEnvFloat("MODEL_ACCURACY", m.Accuracy)
	m.Precision = getEnvFloat("MODEL_PRECISION", m.Precision)
	m.Recall = getEnvFloat("MODEL_RECALL", m.Recall)
	m.F1Score = getEnvFloat("MODEL_F1_SCORE", m.F1Score)
	m.TotalPredictions = getEnvInt64("MODEL_TOTAL_PREDICTIONS", m.TotalPredictions)
	m.TruePositives = getEnvInt64("MODEL_TRUE_POSITIVES", m.TruePositives)
	m.FalsePositives = getEnvInt64("MODEL_FALSE_POSITIVES", m.FalsePositives)
	if v := os.Getenv("MODEL_LAST_UPDATED"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			m.LastUpdated = t.UTC()
		}
	}
	return m
}

// Validate checks that all configuration values are usable
func (c *Config) Validate() error {
	if p, err := strconv.Atoi(c.Port); err != nil || p <= 0 || p > 65535 {
		return fmt.Errorf("PORT must be a number between 1 and 65535")
	}

	if c.MirrorNodeURL != "" && !isAbsoluteURL(c.MirrorNodeURL) {
		return fmt.Errorf("MIRROR_NODE_URL must be an absolute URL")
	}
	if c.WebhookURL != "" && !isAbsoluteURL(c.WebhookURL) {
		return fmt.Errorf("ALERT_WEBHOOK_URL must be an absolute URL")
	}

	if c.HistoryLimit <= 0 || c.HistoryLimit > maxHistoryLimit {
		return fmt.Errorf("HISTORY_LIMIT must be between 1 and %d", maxHistoryLimit)
	}
	if c.BatchConcurrency <= 0 || c.BatchConcurrency > maxBatchConcurrency {
		return fmt.Errorf("BATCH_CONCURRENCY must be between 1 and %d", maxBatchConcurrency)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		return fmt.Errorf("OTEL_TRACES_SAMPLE_RATIO must be between 0 and 1")
	}
	if c.HistoryCacheTTL < 0 {
		return fmt.Errorf("HISTORY_CACHE_TTL must not be negative")
	}

	switch risk.RiskLevel(c.AlertMinLevel) {
	case risk.LevelLow, risk.LevelMedium, risk.LevelHigh, risk.LevelCritical:
	default:
		return fmt.Errorf("ALERT_MIN_LEVEL must be one of low, medium, high, critical")
	}

	if len(c.KafkaBrokers) > 0 && c.KafkaAlertTopic == "" {
		return fmt.Errorf("KAFKA_ALERT_TOPIC is required when KAFKA_BROKERS is set")
	}

	for name, v := range map[string]float64{
		"MODEL_ACCURACY":  c.ModelMetrics.Accuracy,
		"MODEL_PRECISION": c.ModelMetrics.Precision,
		"MODEL_RECALL":    c.ModelMetrics.Recall,
		"MODEL_F1_SCORE":  c.ModelMetrics.F1Score,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}

	return nil
}

// RiskConfig returns the engine configuration derived from c.
func (c *Config) RiskConfig() risk.Config {
	rc := risk.DefaultConfig()
	rc.ModelMetrics = c.ModelMetrics
	rc.HistoryLimit = c.HistoryLimit
	rc.BatchConcurrency = c.BatchConcurrency
	rc.FetchTimeout = c.FetchTimeout
	return rc
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// getEnvList splits a comma-separated value, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
