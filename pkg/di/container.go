package di

import (
	"context"
	"fmt"
	"io"
	"time"

	"character-chat/backend/internal/ai"
	"character-chat/backend/internal/feed"
	"character-chat/backend/internal/repository"
	"character-chat/backend/internal/service"
	"character-chat/backend/pkg/cache"
	"character-chat/backend/pkg/config"
	"character-chat/backend/pkg/health"
	"character-chat/backend/pkg/logger"
	"character-chat/backend/pkg/resilience"
	"character-chat/backend/pkg/secrets"
	"character-chat/backend/shared/observability"

	"gorm.io/gorm"
)

const instrumentationName = "character-chat/backend"

// Container holds all the dependencies for the application
type Container struct {
	DB            *gorm.DB
	Logger        *logger.Logger
	Config        *config.Config
	Secrets       secrets.Manager
	Cache         cache.Cache
	Observability *observability.Provider
	Breaker       *resilience.CircuitBreaker
	Completer     ai.Completer

	CharacterRepository repository.CharacterRepository
	MessageRepository   repository.MessageRepository

	CharacterService    *service.CharacterService
	ConversationService *service.ConversationService

	Hub    *feed.Hub
	Health *health.Checker
}

// Config holds the configuration for the container
type Config struct {
	App          *config.Config
	LoggerConfig logger.Config
	// Completer replaces the hosted model client when set
	Completer ai.Completer
	// Secrets replaces the Vault/environment manager when set
	Secrets secrets.Manager
	// TraceOutput receives exported spans; defaults to stdout
	TraceOutput io.Writer
}

// DefaultConfig returns a configuration built from the process environment
func DefaultConfig() *Config {
	app := config.Get()
	logCfg := logger.DefaultConfig()
	logCfg.Level = app.Logging.Level
	logCfg.JSON = app.Logging.Format != "text"

	return &Config{
		App:          app,
		LoggerConfig: logCfg,
	}
}

// New creates a new dependency injection container
func New(db *gorm.DB, cfg *Config) (*Container, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.App == nil {
		cfg.App = config.Get()
	}
	app := cfg.App

	// Initialize the logger
	log := logger.New(cfg.LoggerConfig)

	c := &Container{
		DB:     db,
		Logger: log,
		Config: app,
	}

	// Observability first so the completer can be instrumented
	provider, err := observability.Setup(observability.Options{
		ServiceName:    app.Observability.ServiceName,
		TracingEnabled: app.Observability.TracingEnabled,
		MetricsEnabled: app.Observability.MetricsEnabled,
		TraceOutput:    cfg.TraceOutput,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up observability: %w", err)
	}
	c.Observability = provider

	// Secrets
	c.Secrets = cfg.Secrets
	if c.Secrets == nil {
		manager, err := secrets.NewVaultManager(secrets.VaultConfig{
			Enabled:     app.Vault.Enabled,
			Address:     app.Vault.Address,
			Token:       app.Vault.Token,
			Namespace:   app.Vault.Namespace,
			SecretsPath: app.Vault.SecretsPath,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create secrets manager: %w", err)
		}
		c.Secrets = manager
	}

	// Repositories
	c.MessageRepository = repository.NewGormMessageRepository(db)
	c.CharacterRepository = repository.NewGormCharacterRepository(db)
	if app.Cache.Enabled {
		store, err := newCache(app, log)
		if err != nil {
			return nil, err
		}
		c.Cache = store
		c.CharacterRepository = repository.NewCachedCharacterRepository(c.CharacterRepository, store, app.Cache.TTL, log)
	}

	// Completion chain: client -> breaker -> instrumentation
	completer, err := c.newCompleter(cfg)
	if err != nil {
		return nil, err
	}
	c.Completer = completer

	// Live feed and services
	c.Hub = feed.NewHub(log)
	c.CharacterService = service.NewCharacterService(c.CharacterRepository, log)
	c.ConversationService = service.NewConversationService(
		c.CharacterRepository,
		c.MessageRepository,
		c.Completer,
		c.Hub,
		log,
	)

	// Health
	c.Health = health.NewChecker(log, 30*time.Second)
	c.Health.RegisterDatabaseCheck(func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	if c.Breaker != nil {
		c.Health.RegisterBreakerCheck("completion", c.Breaker)
	}
	if r, ok := c.Cache.(*cache.Redis); ok {
		c.Health.RegisterCheck("cache", false, func(ctx context.Context) (health.Status, string, error) {
			if err := r.Ping(ctx); err != nil {
				return health.StatusDegraded, "Redis unreachable, reads go to the database", err
			}
			return health.StatusUp, "Redis connection is established", nil
		})
	}

	return c, nil
}

func newCache(app *config.Config, log *logger.Logger) (cache.Cache, error) {
	if app.Cache.RedisURL != "" {
		r, err := cache.NewRedis(context.Background(), app.Cache.RedisURL, "character-chat:")
		if err != nil {
			return nil, fmt.Errorf("failed to connect to cache: %w", err)
		}
		log.Info("Character cache backed by Redis")
		return r, nil
	}

	log.Info("Character cache held in memory", "max_items", app.Cache.MaxSize)
	return cache.NewMemory(cache.Options{
		MaxItems:        app.Cache.MaxSize,
		CleanupInterval: app.Cache.PurgeWindow,
	}), nil
}

func (c *Container) newCompleter(cfg *Config) (ai.Completer, error) {
	app := cfg.App

	completer := cfg.Completer
	if completer == nil {
		apiKey := c.Secrets.GetSecretWithDefault(context.Background(), secrets.KeyCompletionAPIKey, app.Completion.APIKey)
		client, err := ai.NewGroqClient(ai.Options{
			BaseURL:     app.Completion.BaseURL,
			APIKey:      apiKey,
			Model:       app.Completion.Model,
			Temperature: app.Completion.Temperature,
			MaxTokens:   app.Completion.MaxTokens,
		}, c.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create completion client: %w", err)
		}
		completer = client
	}

	if app.Completion.BreakerEnabled {
		breakerCfg := resilience.DefaultConfig("completion")
		breakerCfg.FailureThreshold = app.Completion.BreakerThreshold
		breakerCfg.Cooldown = app.Completion.BreakerCooldown
		c.Breaker = resilience.NewCircuitBreaker(breakerCfg, c.Logger)
		completer = ai.NewBreakerCompleter(completer, c.Breaker)
	}

	instrumented, err := ai.NewInstrumentedCompleter(
		completer,
		c.Observability.Meter(instrumentationName),
		c.Observability.Tracer(instrumentationName),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to instrument completion client: %w", err)
	}
	return instrumented, nil
}

// Close releases the cache connection and flushes telemetry
func (c *Container) Close(ctx context.Context) error {
	var firstErr error
	switch store := c.Cache.(type) {
	case *cache.Redis:
		firstErr = store.Close()
	case *cache.Memory:
		store.Close()
	}
	if c.Observability != nil {
		if err := c.Observability.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
