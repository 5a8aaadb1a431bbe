package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_DRIVER", "COMPLETION_BASE_URL", "COMPLETION_MODEL",
		"COMPLETION_TEMPERATURE", "COMPLETION_MAX_TOKENS", "ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.Completion.BaseURL)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.Completion.Model)
	assert.InDelta(t, 0.7, cfg.Completion.Temperature, 1e-9)
	assert.Equal(t, int64(1024), cfg.Completion.MaxTokens)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("COMPLETION_TEMPERATURE", "0.2")
	t.Setenv("COMPLETION_MAX_TOKENS", "256")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("COMPLETION_BREAKER_ENABLED", "false")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "http://localhost:9000", cfg.Server.BaseURL)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.InDelta(t, 0.2, cfg.Completion.Temperature, 1e-9)
	assert.Equal(t, int64(256), cfg.Completion.MaxTokens)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.Completion.BreakerEnabled)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "lots")
	t.Setenv("CACHE_TTL", "soon")

	cfg := Load()

	assert.Equal(t, 20, cfg.Database.MaxConns)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Host = "db"
	cfg.Database.Port = "5433"
	cfg.Database.User = "chat"
	cfg.Database.Password = "secret"
	cfg.Database.Name = "chat"
	cfg.Database.SSLMode = "disable"

	assert.Equal(t, "host=db port=5433 user=chat password=secret dbname=chat sslmode=disable", PostgresDSN(cfg))

	cfg.Database.DSN = "postgres://override"
	assert.Equal(t, "postgres://override", PostgresDSN(cfg))
}

func TestDialectorRejectsUnknownDriver(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Driver = "oracle"

	_, err := dialectorFor(cfg)
	assert.Error(t, err)
}
