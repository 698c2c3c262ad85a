package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	strutil "mailguard/pkg/platform/strings"
)

// Config captures everything the service reads from the environment.
type Config struct {
	Addr        string
	Environment string

	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	CRM      CRMConfig
	Checks   ChecksConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings for the MX lookup cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds producer settings for the validation event stream.
type KafkaConfig struct {
	Brokers         string
	Topic           string
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
}

// CRMConfig holds settings for the CRM contacts API.
type CRMConfig struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
}

// ChecksConfig tunes the validation checkers. The three domain lists extend
// the built-in membership sets.
type ChecksConfig struct {
	DNSTimeout          time.Duration
	MXCacheTTL          time.Duration
	DisposableDomains   []string
	BlacklistedDomains  []string
	FreeProviderDomains []string
}

// FromEnv builds the full configuration from environment variables so main
// stays lean. Empty URLs mean the corresponding dependency is not configured.
func FromEnv() Config {
	return Config{
		Addr:        envString("MAILGUARD_ADDR", ":8080"),
		Environment: envString("MAILGUARD_ENV", "development"),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:         os.Getenv("KAFKA_BROKERS"),
			Topic:           envString("KAFKA_TOPIC", "mailguard.validation.events"),
			Acks:            envString("KAFKA_ACKS", "all"),
			Retries:         envInt("KAFKA_RETRIES", 3),
			DeliveryTimeout: envDuration("KAFKA_DELIVERY_TIMEOUT", 30*time.Second),
		},
		CRM: CRMConfig{
			BaseURL:     envString("CRM_BASE_URL", "https://api.hubapi.com"),
			AccessToken: os.Getenv("CRM_ACCESS_TOKEN"),
			Timeout:     envDuration("CRM_TIMEOUT", 10*time.Second),
		},
		Checks: ChecksConfig{
			DNSTimeout:          envDuration("DNS_TIMEOUT", 5*time.Second),
			MXCacheTTL:          envDuration("MX_CACHE_TTL", 5*time.Minute),
			DisposableDomains:   envList("DISPOSABLE_DOMAINS"),
			BlacklistedDomains:  envList("BLACKLISTED_DOMAINS"),
			FreeProviderDomains: envList("FREE_PROVIDER_DOMAINS"),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// envList parses a comma-separated list, trimming whitespace and dropping
// empty and duplicate entries.
func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	return strutil.DedupeAndTrim(strings.Split(v, ","))
}
