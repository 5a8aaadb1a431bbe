package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port           string
		Env            string
		BaseURL        string
		GRPCPort       string
		AllowedOrigins []string
	}

	// Database configuration
	Database struct {
		Driver   string
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		MaxConns int
	}

	// Completion holds the hosted model settings
	Completion struct {
		BaseURL          string
		APIKey           string
		Model            string
		Temperature      float64
		MaxTokens        int64
		BreakerEnabled   bool
		BreakerThreshold uint
		BreakerCooldown  time.Duration
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// Cache settings
	Cache struct {
		Enabled     bool
		TTL         time.Duration
		MaxSize     int
		PurgeWindow time.Duration
		RedisURL    string
	}

	// Observability settings
	Observability struct {
		TracingEnabled bool
		MetricsEnabled bool
		ServiceName    string
	}

	// Vault configuration for secrets lookup
	Vault struct {
		Enabled     bool
		Address     string
		Token       string
		Namespace   string
		SecretsPath string
	}

	// OpenAPISchemaPath enables request validation when set
	OpenAPISchemaPath string

	// CharacterSeedPath points to a YAML file of characters upserted at startup
	CharacterSeedPath string
}

var (
	instance *Config
	once     sync.Once
)

// New returns the process-wide Config, loading it on first use
func New() *Config {
	once.Do(func() {
		// Load .env file if exists
		godotenv.Load()
		instance = Load()
	})

	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

// Load builds a fresh Config from the current environment
func Load() *Config {
	cfg := &Config{}

	// Server config
	cfg.Server.Port = getEnvString("PORT", "8081")
	cfg.Server.Env = getEnvString("APP_ENV", "development")
	cfg.Server.BaseURL = getEnvString("BASE_URL", "http://localhost:"+cfg.Server.Port)
	cfg.Server.GRPCPort = getEnvString("GRPC_HEALTH_PORT", "")
	cfg.Server.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"*"})

	// Database config
	cfg.Database.Driver = getEnvString("DB_DRIVER", "postgres")
	cfg.Database.DSN = getEnvString("DATABASE_DSN", "")
	cfg.Database.Host = getEnvString("DB_HOST", "localhost")
	cfg.Database.Port = getEnvString("DB_PORT", "5432")
	cfg.Database.User = getEnvString("DB_USER", "postgres")
	cfg.Database.Password = getEnvString("DB_PASSWORD", "postgres")
	cfg.Database.Name = getEnvString("DB_NAME", "character_chat")
	cfg.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)

	// Completion config
	cfg.Completion.BaseURL = getEnvString("COMPLETION_BASE_URL", "https://api.groq.com/openai/v1")
	cfg.Completion.APIKey = getEnvString("GROQ_API_KEY", "")
	cfg.Completion.Model = getEnvString("COMPLETION_MODEL", "llama-3.3-70b-versatile")
	cfg.Completion.Temperature = getEnvFloat("COMPLETION_TEMPERATURE", 0.7)
	cfg.Completion.MaxTokens = getEnvInt64("COMPLETION_MAX_TOKENS", 1024)
	cfg.Completion.BreakerEnabled = getEnvBool("COMPLETION_BREAKER_ENABLED", true)
	cfg.Completion.BreakerThreshold = uint(getEnvInt("COMPLETION_BREAKER_THRESHOLD", 5))
	cfg.Completion.BreakerCooldown = getEnvDuration("COMPLETION_BREAKER_COOLDOWN", 30*time.Second)

	// Logging config
	cfg.Logging.Level = getEnvString("LOG_LEVEL", "info")
	cfg.Logging.Format = getEnvString("LOG_FORMAT", "json")

	// Cache settings
	cfg.Cache.Enabled = getEnvBool("CACHE_ENABLED", true)
	cfg.Cache.TTL = getEnvDuration("CACHE_TTL", 5*time.Minute)
	cfg.Cache.MaxSize = getEnvInt("CACHE_MAX_SIZE", 1000)
	cfg.Cache.PurgeWindow = getEnvDuration("CACHE_PURGE_WINDOW", 10*time.Minute)
	cfg.Cache.RedisURL = getEnvString("REDIS_URL", "")

	// Observability
	cfg.Observability.TracingEnabled = getEnvBool("TRACING_ENABLED", false)
	cfg.Observability.MetricsEnabled = getEnvBool("METRICS_ENABLED", true)
	cfg.Observability.ServiceName = getEnvString("SERVICE_NAME", "character-chat")

	// Vault
	cfg.Vault.Enabled = getEnvBool("VAULT_ENABLED", false)
	cfg.Vault.Address = getEnvString("VAULT_ADDR", "")
	cfg.Vault.Token = getEnvString("VAULT_TOKEN", "")
	cfg.Vault.Namespace = getEnvString("VAULT_NAMESPACE", "")
	cfg.Vault.SecretsPath = getEnvString("VAULT_SECRETS_PATH", "character-chat")

	cfg.OpenAPISchemaPath = getEnvString("OPENAPI_SCHEMA_PATH", "")
	cfg.CharacterSeedPath = getEnvString("CHARACTER_SEED_PATH", "")

	return cfg
}

// IsProduction reports whether the server runs with APP_ENV=production
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
