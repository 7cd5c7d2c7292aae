package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventSinkNone     = "none"
	EventSinkKafka    = "kafka"
	EventSinkDynamoDB = "dynamodb"
)

type Config struct {
	HTTPAddr    string
	DatabaseURL string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	CookieSecure    bool

	EventSink     string
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaGroupID  string
	DynamoDBTable string
	AWSRegion     string

	SMTPHost string
	SMTPPort string
	SMTPFrom string

	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal

	LogLevel  string
	LogFormat string

	AdminEmail    string
	AdminPassword string
}

// Load reads the API configuration from the environment. JWT_SECRET is required.
func Load() (Config, error) {
	cfg, err := LoadWorker()
	if err != nil {
		return Config{}, err
	}
	if len(cfg.JWTSecret) < 32 {
		return Config{}, fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	return cfg, nil
}

// LoadWorker reads the configuration for processes that issue no tokens.
func LoadWorker() (Config, error) {
	cfg := Config{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		EventSink:     strings.ToLower(getEnv("EVENT_SINK", EventSinkNone)),
		KafkaBrokers:  splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "storefront-orders"),
		KafkaGroupID:  getEnv("KAFKA_GROUP_ID", "order-notifier"),
		DynamoDBTable: getEnv("DYNAMODB_TABLE", "storefront-order-events"),
		AWSRegion:     getEnv("AWS_REGION", "ap-northeast-1"),
		SMTPHost:      getEnv("SMTP_HOST", "localhost"),
		SMTPPort:      getEnv("SMTP_PORT", "1025"),
		SMTPFrom:      getEnv("SMTP_FROM", "noreply@example.com"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "text"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	var err error
	if cfg.AccessTokenTTL, err = durationEnv("ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = durationEnv("REFRESH_TOKEN_TTL", 7*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.CookieSecure, err = boolEnv("COOKIE_SECURE", false); err != nil {
		return Config{}, err
	}
	if cfg.TaxRate, err = decimalEnv("TAX_RATE", "0.07"); err != nil {
		return Config{}, err
	}
	if cfg.FreeShippingThreshold, err = decimalEnv("FREE_SHIPPING_THRESHOLD", "1000"); err != nil {
		return Config{}, err
	}
	if cfg.FlatShippingFee, err = decimalEnv("FLAT_SHIPPING_FEE", "50"); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.EventSink {
	case EventSinkNone, EventSinkKafka, EventSinkDynamoDB:
	default:
		return fmt.Errorf("EVENT_SINK: unknown sink %q", c.EventSink)
	}
	if c.EventSink == EventSinkKafka && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS: at least one broker is required")
	}
	if c.TaxRate.IsNegative() || c.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("TAX_RATE: must be in [0, 1)")
	}
	if c.FreeShippingThreshold.IsNegative() {
		return fmt.Errorf("FREE_SHIPPING_THRESHOLD: must not be negative")
	}
	if c.FlatShippingFee.IsNegative() {
		return fmt.Errorf("FLAT_SHIPPING_FEE: must not be negative")
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func durationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	return d, nil
}

func boolEnv(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, raw)
	}
	return b, nil
}

func decimalEnv(key, defaultValue string) (decimal.Decimal, error) {
	raw := getEnv(key, defaultValue)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid number %q", key, raw)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
