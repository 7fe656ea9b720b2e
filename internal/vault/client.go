// Package vault retrieves broker credentials and service secrets from
// HashiCorp Vault. Secrets live under a KV v2 mount (default
// "equityfunk"), one secret per service.
//
// Local development uses VAULT_DEV_TOKEN against a dev-mode server.
// Production deployments must use VAULT_TOKEN with proper auth and TLS.
package vault

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/equityfunk/internal/config"
	"github.com/ajitpratap0/equityfunk/internal/metrics"
)

const defaultMount = "equityfunk"

// Known insecure development tokens that should trigger warnings
var insecureDevTokens = map[string]bool{
	"equityfunk-dev-token": true,
	"root":                 true,
	"dev":                  true,
	"test":                 true,
}

// Client reads secrets from a KV v2 mount with a short-lived cache
type Client struct {
	api   *api.Client
	mount string

	mu    sync.RWMutex
	cache map[string]cachedSecret
	ttl   time.Duration
}

type cachedSecret struct {
	data      map[string]interface{}
	expiresAt time.Time
}

// Config holds Vault client settings. Zero values fall back to the
// standard VAULT_ADDR and VAULT_TOKEN environment variables.
type Config struct {
	Address  string
	Token    string
	Mount    string
	CacheTTL time.Duration
}

// NewClient creates a Vault client. Fails when no token is available.
func NewClient(cfg Config) (*Client, error) {
	apiCfg := api.DefaultConfig()
	if cfg.Address != "" {
		apiCfg.Address = cfg.Address
	}

	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("create vault client: %w", err)
	}

	token := cfg.Token
	tokenSource := "config"
	if token == "" {
		if token = os.Getenv("VAULT_TOKEN"); token != "" {
			tokenSource = "VAULT_TOKEN"
		} else if token = os.Getenv("VAULT_DEV_TOKEN"); token != "" {
			tokenSource = "VAULT_DEV_TOKEN"
		}
	}
	if token == "" {
		return nil, fmt.Errorf("vault token is required (set VAULT_TOKEN or VAULT_DEV_TOKEN)")
	}
	client.SetToken(token)

	if insecureDevTokens[token] {
		log.Warn().
			Str("token_source", tokenSource).
			Msg("Using known insecure development token. DO NOT use in production")
	}

	mount := cfg.Mount
	if mount == "" {
		mount = defaultMount
	}
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}

	log.Info().
		Str("vault_addr", apiCfg.Address).
		Str("mount", mount).
		Str("token_source", tokenSource).
		Msg("Vault client initialized")

	return &Client{
		api:   client,
		mount: mount,
		cache: make(map[string]cachedSecret),
		ttl:   ttl,
	}, nil
}

// NewClientFromEnv creates a client from VAULT_ADDR and VAULT_TOKEN.
// Returns nil when VAULT_ADDR is unset, which disables Vault and leaves
// credentials to config and environment variables.
func NewClientFromEnv() (*Client, error) {
	if os.Getenv("VAULT_ADDR") == "" {
		return nil, nil
	}
	return NewClient(Config{})
}

// getSecret reads one KV v2 secret, serving from cache when fresh
func (c *Client) getSecret(ctx context.Context, name string) (map[string]interface{}, error) {
	c.mu.RLock()
	cached, ok := c.cache[name]
	c.mu.RUnlock()
	if ok && time.Now().Before(cached.expiresAt) {
		metrics.RecordVaultCache(true)
		return cached.data, nil
	}
	metrics.RecordVaultCache(false)

	secret, err := c.api.KVv2(c.mount).Get(ctx, name)
	metrics.RecordVaultRequest(err)
	if err != nil {
		return nil, fmt.Errorf("read secret %s/%s: %w", c.mount, name, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret %s/%s not found", c.mount, name)
	}

	c.mu.Lock()
	c.cache[name] = cachedSecret{data: secret.Data, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()

	return secret.Data, nil
}

// ClearCache drops all cached secrets
func (c *Client) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]cachedSecret)
}

// Health checks that Vault is initialized and unsealed
func (c *Client) Health(ctx context.Context) error {
	health, err := c.api.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault health check: %w", err)
	}
	if !health.Initialized || health.Sealed {
		return fmt.Errorf("vault not ready: initialized=%t sealed=%t", health.Initialized, health.Sealed)
	}
	return nil
}

// BrokerCredentials holds the brokerage API key pair
type BrokerCredentials struct {
	APIKey    string
	SecretKey string
}

// GetBrokerCredentials reads the "broker" secret
func (c *Client) GetBrokerCredentials(ctx context.Context) (*BrokerCredentials, error) {
	data, err := c.getSecret(ctx, "broker")
	if err != nil {
		return nil, err
	}
	return &BrokerCredentials{
		APIKey:    stringValue(data, "api_key"),
		SecretKey: stringValue(data, "secret_key"),
	}, nil
}

// GetDatabaseURL reads the PostgreSQL connection URL from the
// "database" secret
func (c *Client) GetDatabaseURL(ctx context.Context) (string, error) {
	data, err := c.getSecret(ctx, "database")
	if err != nil {
		return "", err
	}
	return stringValue(data, "url"), nil
}

// GetRedisPassword reads the Redis password from the "redis" secret
func (c *Client) GetRedisPassword(ctx context.Context) (string, error) {
	data, err := c.getSecret(ctx, "redis")
	if err != nil {
		return "", err
	}
	return stringValue(data, "password"), nil
}

// TelegramCredentials holds the alert bot token and chat
type TelegramCredentials struct {
	Token  string
	ChatID int64
}

// GetTelegramCredentials reads the "telegram" secret
func (c *Client) GetTelegramCredentials(ctx context.Context) (*TelegramCredentials, error) {
	data, err := c.getSecret(ctx, "telegram")
	if err != nil {
		return nil, err
	}
	creds := &TelegramCredentials{Token: stringValue(data, "token")}
	if raw := stringValue(data, "chat_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("telegram chat_id %q is not an integer: %w", raw, err)
		}
		creds.ChatID = id
	}
	return creds, nil
}

// Hydrate overlays Vault secrets onto the loaded configuration. Only
// empty fields are filled so explicit config and environment overrides
// win. Missing secrets are skipped, not fatal.
func (c *Client) Hydrate(ctx context.Context, cfg *config.Config) {
	if c == nil {
		return
	}

	if cfg.Broker.APIKey == "" || cfg.Broker.SecretKey == "" {
		if creds, err := c.GetBrokerCredentials(ctx); err == nil {
			if cfg.Broker.APIKey == "" {
				cfg.Broker.APIKey = creds.APIKey
			}
			if cfg.Broker.SecretKey == "" {
				cfg.Broker.SecretKey = creds.SecretKey
			}
		} else {
			log.Debug().Err(err).Msg("No broker credentials in Vault")
		}
	}

	if cfg.Database.Enabled && cfg.Database.URL == "" {
		if url, err := c.GetDatabaseURL(ctx); err == nil {
			cfg.Database.URL = url
		} else {
			log.Debug().Err(err).Msg("No database URL in Vault")
		}
	}

	if cfg.Data.RedisEnabled && cfg.Redis.Password == "" {
		if password, err := c.GetRedisPassword(ctx); err == nil {
			cfg.Redis.Password = password
		} else {
			log.Debug().Err(err).Msg("No redis password in Vault")
		}
	}

	if cfg.Alerts.TelegramToken == "" {
		if creds, err := c.GetTelegramCredentials(ctx); err == nil {
			cfg.Alerts.TelegramToken = creds.Token
			if cfg.Alerts.TelegramChatID == 0 {
				cfg.Alerts.TelegramChatID = creds.ChatID
			}
		} else {
			log.Debug().Err(err).Msg("No telegram credentials in Vault")
		}
	}
}

func stringValue(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
