package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Strategy   StrategyConfig   `mapstructure:"strategy"`
	Data       DataConfig       `mapstructure:"data"`
	Execution  ExecutionConfig  `mapstructure:"execution"`
	Broker     BrokerConfig     `mapstructure:"broker"`
	Redis      RedisConfig      `mapstructure:"redis"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Alerts     AlertsConfig     `mapstructure:"alerts"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	Name            string `mapstructure:"name"`
	Version         string `mapstructure:"version"`
	Environment     string `mapstructure:"environment"` // development, staging, production
	LogLevel        string `mapstructure:"log_level"`
	LogFormat       string `mapstructure:"log_format"`       // "json" or "console"
	IntervalMinutes int    `mapstructure:"interval_minutes"` // continuous mode tick cadence
	MaxErrors       int    `mapstructure:"max_errors"`       // consecutive tick failures before fail-stop
}

// Nuclear portfolio weighting policies
const (
	WeightingInverseVol = "inverse_volatility"
	WeightingEqual      = "equal"
)

// StrategyConfig contains strategy engine settings
type StrategyConfig struct {
	// Allocations maps strategy name ("nuclear", "tecl") to its capital share.
	// Shares must sum to 1.0 within 0.01 or construction fails.
	Allocations map[string]float64 `mapstructure:"allocations"`

	TopNNuclear int `mapstructure:"top_n_nuclear"`

	// NuclearWeighting selects the nuclear portfolio weighting policy:
	// "inverse_volatility" (default) or "equal".
	NuclearWeighting string `mapstructure:"nuclear_weighting"`
}

// DataConfig contains market data settings
type DataConfig struct {
	CacheTTL           int     `mapstructure:"cache_ttl"` // seconds
	RedisEnabled       bool    `mapstructure:"redis_enabled"`
	RateLimitPerSecond float64 `mapstructure:"rate_limit_per_second"`
	HistoryPeriod      string  `mapstructure:"history_period"` // e.g. "1y"
	HistoryInterval    string  `mapstructure:"history_interval"`
}

// ExecutionConfig contains rebalancing and order placement settings
type ExecutionConfig struct {
	SlippageBPS       float64 `mapstructure:"slippage_bps"`  // percent of price per attempt (0.3 = 0.3%)
	PollTimeout       int     `mapstructure:"poll_timeout"`  // seconds per limit-order attempt
	PollInterval      int     `mapstructure:"poll_interval"` // seconds between order status polls
	MaxWaitTime       int     `mapstructure:"max_wait_time"` // seconds for sell settlement
	MaxRetries        int     `mapstructure:"max_retries"`
	IgnoreMarketHours bool    `mapstructure:"ignore_market_hours"`
	MinTradeValue     float64 `mapstructure:"min_trade_value"`   // USD tolerance for rebalance deltas
	BuySafetyMargin   float64 `mapstructure:"buy_safety_margin"` // fraction held back from estimated proceeds
}

// BrokerConfig contains broker API settings
type BrokerConfig struct {
	PaperTrading bool   `mapstructure:"paper_trading"`
	APIKey       string `mapstructure:"api_key"`
	SecretKey    string `mapstructure:"secret_key"`
	BaseURL      string `mapstructure:"base_url"` // override; empty selects paper/live by PaperTrading
}

// RedisConfig contains Redis settings for the market data cache
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NATSConfig contains NATS event publishing settings
type NATSConfig struct {
	URL    string `mapstructure:"url"` // empty disables publishing
	Prefix string `mapstructure:"prefix"`
}

// DatabaseConfig contains PostgreSQL settings for order persistence
type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// AlertsConfig contains alert sink settings
type AlertsConfig struct {
	LogPath          string `mapstructure:"log_path"`       // alert JSON-lines file
	ExecutionLogPath string `mapstructure:"execution_log"`  // trade execution JSON-lines file
	DashboardPath    string `mapstructure:"dashboard_path"` // per-tick dashboard snapshot
	TelegramToken    string `mapstructure:"telegram_token"`
	TelegramChatID   int64  `mapstructure:"telegram_chat_id"`
}

// MonitoringConfig contains monitoring settings
type MonitoringConfig struct {
	PrometheusPort int  `mapstructure:"prometheus_port"`
	EnableMetrics  bool `mapstructure:"enable_metrics"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable overrides
	v.AutomaticEnv()
	v.SetEnvPrefix("EQUITYFUNK")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "EquityFunk")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "console")
	v.SetDefault("app.interval_minutes", 15)
	v.SetDefault("app.max_errors", 3)

	// Strategy defaults
	v.SetDefault("strategy.allocations", map[string]float64{
		"nuclear": 0.5,
		"tecl":    0.5,
	})
	v.SetDefault("strategy.top_n_nuclear", 3)
	v.SetDefault("strategy.nuclear_weighting", "inverse_volatility")

	// Data defaults
	v.SetDefault("data.cache_ttl", 300)
	v.SetDefault("data.redis_enabled", false)
	v.SetDefault("data.rate_limit_per_second", 5.0)
	v.SetDefault("data.history_period", "1y")
	v.SetDefault("data.history_interval", "1d")

	// Execution defaults
	v.SetDefault("execution.slippage_bps", 0.3)
	v.SetDefault("execution.poll_timeout", 30)
	v.SetDefault("execution.poll_interval", 2)
	v.SetDefault("execution.max_wait_time", 60)
	v.SetDefault("execution.max_retries", 3)
	v.SetDefault("execution.ignore_market_hours", false)
	v.SetDefault("execution.min_trade_value", 1.0)
	v.SetDefault("execution.buy_safety_margin", 0.0)

	// Broker defaults
	v.SetDefault("broker.paper_trading", true)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// NATS defaults (empty URL disables event publishing)
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.prefix", "equityfunk.")

	// Database defaults
	v.SetDefault("database.enabled", false)

	// Alerts defaults
	v.SetDefault("alerts.log_path", "data/alerts.jsonl")
	v.SetDefault("alerts.execution_log", "data/executions.jsonl")
	v.SetDefault("alerts.dashboard_path", "data/dashboard.json")

	// Monitoring defaults
	v.SetDefault("monitoring.prometheus_port", 9100)
	v.SetDefault("monitoring.enable_metrics", true)
}

// GetRedisAddr returns the Redis address
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TickInterval returns the continuous mode cadence as a duration
func (c *AppConfig) TickInterval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// PollTimeoutDuration returns the per-attempt limit order timeout
func (c *ExecutionConfig) PollTimeoutDuration() time.Duration {
	return time.Duration(c.PollTimeout) * time.Second
}

// PollIntervalDuration returns the order status polling interval
func (c *ExecutionConfig) PollIntervalDuration() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

// MaxWaitDuration returns the sell settlement deadline
func (c *ExecutionConfig) MaxWaitDuration() time.Duration {
	return time.Duration(c.MaxWaitTime) * time.Second
}

// CacheTTLDuration returns the market data cache TTL
func (c *DataConfig) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}
