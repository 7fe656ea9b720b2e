package config

import (
	"fmt"
	"os"
)

// Broker credential environment variables. These follow the Alpaca SDK
// conventions so the same environment works for both.
const (
	EnvAPIKey    = "APCA_API_KEY_ID"
	EnvSecretKey = "APCA_API_SECRET_KEY"
)

// LoadBrokerCredentials fills empty broker credentials from the
// environment. Precedence overall: explicit config, then Vault
// hydration (internal/vault), then these variables.
func LoadBrokerCredentials(cfg *Config) error {
	if cfg.Broker.APIKey == "" {
		cfg.Broker.APIKey = os.Getenv(EnvAPIKey)
	}
	if cfg.Broker.SecretKey == "" {
		cfg.Broker.SecretKey = os.Getenv(EnvSecretKey)
	}

	if cfg.Broker.APIKey == "" || cfg.Broker.SecretKey == "" {
		return fmt.Errorf("broker credentials not found in config, Vault, or environment (%s/%s)", EnvAPIKey, EnvSecretKey)
	}
	return nil
}
