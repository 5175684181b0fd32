package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env     string
	Server  ServerConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
	Booking BookingConfig
	Log     LogConfig
}

type ServerConfig struct {
	HTTPPort     int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type RedisConfig struct {
	Enabled      bool
	Addr         string
	Password     string
	DB           int
	MaxRetries   int
	PoolSize     int
	MinIdleConns int
}

type KafkaConfig struct {
	Enabled              bool
	Brokers              []string
	ProducerRetryMax     int
	ProducerRequiredAcks int
	ConsumerGroupID      string
}

// BookingConfig carries the business rules of the reservation engine.
type BookingConfig struct {
	// HoldTTL bounds how long seats stay reserved without payment.
	HoldTTL time.Duration
	// SweepInterval is the cadence of the background expiry sweep.
	SweepInterval time.Duration
	// CancelCutoff is the minimum time before departure at which a
	// ticket may still be cancelled.
	CancelCutoff time.Duration
	// MaxTransferCount caps how many times one ticket changes hands.
	MaxTransferCount int
	TransferTokenTTL time.Duration
	// OnlineCommissionRate applies to online sales only, as a fraction
	// of the base fare.
	OnlineCommissionRate float64
	// RefundForfeitsCommission controls whether online cancellations
	// refund net of commission or in full.
	RefundForfeitsCommission bool
	// QRSecret signs ticket QR payloads for offline scan validation.
	QRSecret string
}

type LogConfig struct {
	Level    string
	Mode     string
	Encoding string
}

func Load() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg := &Config{
		Env: getEnv("ENV", "development"),
		Server: ServerConfig{
			HTTPPort:     getEnvAsInt("SERVER_HTTP_PORT", 8086),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Redis: RedisConfig{
			Enabled:      getEnvAsBool("REDIS_ENABLED", false),
			Addr:         getEnv("REDIS_ADDR", "localhost:6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			MaxRetries:   getEnvAsInt("REDIS_MAX_RETRIES", 3),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
		},
		Kafka: KafkaConfig{
			Enabled:              getEnvAsBool("KAFKA_ENABLED", false),
			Brokers:              getEnvAsSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			ProducerRetryMax:     getEnvAsInt("KAFKA_PRODUCER_RETRY_MAX", 3),
			ProducerRequiredAcks: getEnvAsInt("KAFKA_PRODUCER_REQUIRED_ACKS", 1),
			ConsumerGroupID:      getEnv("KAFKA_CONSUMER_GROUP_ID", "reservation-service"),
		},
		Booking: BookingConfig{
			HoldTTL:                  getEnvAsDuration("BOOKING_HOLD_TTL", 10*time.Minute),
			SweepInterval:            getEnvAsDuration("BOOKING_SWEEP_INTERVAL", 20*time.Second),
			CancelCutoff:             getEnvAsDuration("BOOKING_CANCEL_CUTOFF", 1*time.Hour),
			MaxTransferCount:         getEnvAsInt("BOOKING_MAX_TRANSFER_COUNT", 1),
			TransferTokenTTL:         getEnvAsDuration("BOOKING_TRANSFER_TOKEN_TTL", 24*time.Hour),
			OnlineCommissionRate:     getEnvAsFloat("BOOKING_ONLINE_COMMISSION_RATE", 0.10),
			RefundForfeitsCommission: getEnvAsBool("BOOKING_REFUND_FORFEITS_COMMISSION", true),
			QRSecret:                 getEnv("BOOKING_QR_SECRET", "qr-signing-secret"),
		},
		Log: LogConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Mode:     getEnv("LOG_MODE", "development"),
			Encoding: getEnv("LOG_ENCODING", "console"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.HTTPPort)
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}

	if c.Booking.HoldTTL <= 0 {
		return fmt.Errorf("hold TTL must be positive")
	}

	if c.Booking.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}

	if c.Booking.MaxTransferCount < 0 {
		return fmt.Errorf("max transfer count must not be negative")
	}

	if c.Booking.OnlineCommissionRate < 0 || c.Booking.OnlineCommissionRate >= 1 {
		return fmt.Errorf("online commission rate must be in [0, 1): %f", c.Booking.OnlineCommissionRate)
	}

	if c.Booking.QRSecret == "" || c.Booking.QRSecret == "qr-signing-secret" {
		if c.Env == "production" {
			return fmt.Errorf("QR signing secret must be set in production")
		}
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
