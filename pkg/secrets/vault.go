package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"character-chat/backend/pkg/logger"

	vault "github.com/hashicorp/vault/api"
)

const kvMount = "secret"

// VaultConfig holds configuration for Vault client
type VaultConfig struct {
	Enabled     bool
	Address     string
	Token       string
	Namespace   string
	SecretsPath string
	Timeout     time.Duration
	MaxRetries  int
	CacheTTL    time.Duration
}

// VaultManager reads secrets from one Vault KV v2 entry and falls back to
// environment variables for keys Vault does not hold
type VaultManager struct {
	client    *vault.Client
	config    VaultConfig
	cache     map[string]string
	cachedAt  time.Time
	mu        sync.RWMutex
	log       *logger.Logger
	lookupEnv func(string) (string, bool)
}

// NewVaultManager creates a new Vault manager instance. A disabled config
// yields an environment-only manager.
func NewVaultManager(config VaultConfig, log *logger.Logger) (*VaultManager, error) {
	if config.CacheTTL <= 0 {
		config.CacheTTL = 5 * time.Minute
	}
	manager := &VaultManager{
		config:    config,
		cache:     make(map[string]string),
		log:       log,
		lookupEnv: os.LookupEnv,
	}

	if !config.Enabled {
		return manager, nil
	}

	if config.Address == "" {
		return nil, ErrNoVaultAddress
	}
	if config.Token == "" {
		return nil, ErrNoVaultToken
	}
	if config.SecretsPath == "" {
		config.SecretsPath = "character-chat"
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = config.Address
	vaultConfig.Timeout = config.Timeout
	vaultConfig.MaxRetries = config.MaxRetries

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	client.SetToken(config.Token)
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	manager.client = client
	manager.config = config
	return manager, nil
}

// GetSecret retrieves a secret from Vault, with fallback to environment variable
func (m *VaultManager) GetSecret(ctx context.Context, key string) (string, error) {
	if value, ok := m.cached(key); ok {
		return value, nil
	}

	if m.client == nil {
		return m.getFromEnvironment(key)
	}

	value, err := m.getFromVault(ctx, key)
	if errors.Is(err, ErrSecretNotFound) {
		m.log.Warn("Secret not found in Vault, falling back to environment", "key", key)
		return m.getFromEnvironment(key)
	}
	if err != nil {
		return "", err
	}

	m.cacheSecret(key, value)
	return value, nil
}

// GetSecretWithDefault retrieves a secret with a default value if not found
func (m *VaultManager) GetSecretWithDefault(ctx context.Context, key, defaultValue string) string {
	value, err := m.GetSecret(ctx, key)
	if err != nil {
		m.log.Warn("Failed to get secret, using default value",
			"key", key,
			"error", err.Error(),
		)
		return defaultValue
	}
	return value
}

func (m *VaultManager) getFromVault(ctx context.Context, key string) (string, error) {
	secret, err := m.client.KVv2(kvMount).Get(ctx, m.config.SecretsPath)
	if errors.Is(err, vault.ErrSecretNotFound) {
		return "", ErrSecretNotFound
	}
	if err != nil {
		m.log.Error("Failed to read secret from Vault",
			"path", m.config.SecretsPath,
			"error", err.Error(),
		)
		return "", fmt.Errorf("failed to read secret: %w", err)
	}

	if secret == nil || secret.Data == nil {
		return "", ErrSecretNotFound
	}
	value, ok := secret.Data[key].(string)
	if !ok || value == "" {
		return "", ErrSecretNotFound
	}
	return value, nil
}

// getFromEnvironment maps groq_api_key or groq-api-key to GROQ_API_KEY
func (m *VaultManager) getFromEnvironment(key string) (string, error) {
	envKey := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))

	value, ok := m.lookupEnv(envKey)
	if !ok || value == "" {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	}

	m.cacheSecret(key, value)
	return value, nil
}

func (m *VaultManager) cached(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.cachedAt) > m.config.CacheTTL {
		m.cache = make(map[string]string)
		m.cachedAt = time.Now()
	}
	value, ok := m.cache[key]
	return value, ok
}

func (m *VaultManager) cacheSecret(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[key] = value
}
