package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "https://api.hubapi.com", cfg.CRM.BaseURL)
	assert.Equal(t, "mailguard.validation.events", cfg.Kafka.Topic)
	assert.Equal(t, 5*time.Second, cfg.Checks.DNSTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Checks.MXCacheTTL)
	assert.Empty(t, cfg.Database.URL)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MAILGUARD_ADDR", ":9090")
	t.Setenv("DNS_TIMEOUT", "2s")
	t.Setenv("DISPOSABLE_DOMAINS", "trashmail.com, spam4.me ,")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "not-a-number")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 2*time.Second, cfg.Checks.DNSTimeout)
	assert.Equal(t, []string{"trashmail.com", "spam4.me"}, cfg.Checks.DisposableDomains)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns, "bad int falls back to default")
}
