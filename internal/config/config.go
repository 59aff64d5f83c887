package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr            = ":8080"
	defaultGRPCAddr            = ":50051"
	defaultMySQLDSN            = "root:root@tcp(localhost:3306)/restopos?parseTime=true"
	defaultRedisAddr           = "localhost:6379"
	defaultStoreTimeout        = 5 * time.Second
	defaultCompensationTimeout = 10 * time.Second
	defaultLineSyncRetries     = 3
	defaultLineSyncBackoff     = 100 * time.Millisecond
	defaultPaymentGuardTTL     = 30 * time.Second
	defaultCartTTL             = 24 * time.Hour
)

// Config holds all runtime settings of the order core.
type Config struct {
	HTTPAddr  string
	GRPCAddr  string
	MySQLDSN  string
	RedisAddr string
	// AMQPURL enables status event publishing when set.
	AMQPURL string

	StoreTimeout        time.Duration
	CompensationTimeout time.Duration
	LineSyncRetries     int
	LineSyncBackoff     time.Duration
	PaymentGuardTTL     time.Duration
	CartTTL             time.Duration
}

// Load reads an optional .env file at path and then the process environment.
// Variables already present in the environment win over the file.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	cfg := &Config{
		HTTPAddr:  getString("HTTP_ADDR", defaultHTTPAddr),
		GRPCAddr:  getString("GRPC_ADDR", defaultGRPCAddr),
		MySQLDSN:  getString("MYSQL_DSN", defaultMySQLDSN),
		RedisAddr: getString("REDIS_ADDR", defaultRedisAddr),
		AMQPURL:   os.Getenv("AMQP_URL"),
	}

	var err error
	if cfg.StoreTimeout, err = getDuration("STORE_TIMEOUT", defaultStoreTimeout); err != nil {
		return nil, err
	}
	if cfg.CompensationTimeout, err = getDuration("COMPENSATION_TIMEOUT", defaultCompensationTimeout); err != nil {
		return nil, err
	}
	if cfg.LineSyncRetries, err = getInt("LINE_SYNC_RETRIES", defaultLineSyncRetries); err != nil {
		return nil, err
	}
	if cfg.LineSyncBackoff, err = getDuration("LINE_SYNC_BACKOFF", defaultLineSyncBackoff); err != nil {
		return nil, err
	}
	if cfg.PaymentGuardTTL, err = getDuration("PAYMENT_GUARD_TTL", defaultPaymentGuardTTL); err != nil {
		return nil, err
	}
	if cfg.CartTTL, err = getDuration("CART_TTL", defaultCartTTL); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}
	if c.CompensationTimeout <= 0 {
		return fmt.Errorf("COMPENSATION_TIMEOUT must be positive")
	}
	if c.LineSyncRetries < 0 {
		return fmt.Errorf("LINE_SYNC_RETRIES must not be negative")
	}
	return nil
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return d, nil
}
