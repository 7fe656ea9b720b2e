package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:            "EquityFunk",
			Environment:     "development",
			IntervalMinutes: 15,
			MaxErrors:       3,
		},
		Strategy: StrategyConfig{
			Allocations:      map[string]float64{"nuclear": 0.5, "tecl": 0.5},
			TopNNuclear:      3,
			NuclearWeighting: "inverse_volatility",
		},
		Data: DataConfig{
			CacheTTL:           300,
			RateLimitPerSecond: 5.0,
		},
		Execution: ExecutionConfig{
			SlippageBPS:   0.3,
			PollTimeout:   30,
			PollInterval:  2,
			MaxWaitTime:   60,
			MaxRetries:    3,
			MinTradeValue: 1.0,
		},
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid config passes", func(t *testing.T) {
		require.NoError(t, validConfig().Validate())
	})

	t.Run("allocations must sum to one", func(t *testing.T) {
		cfg := validConfig()
		cfg.Strategy.Allocations = map[string]float64{"nuclear": 0.6, "tecl": 0.6}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "strategy.allocations")
	})

	t.Run("allocation sum within tolerance passes", func(t *testing.T) {
		cfg := validConfig()
		cfg.Strategy.Allocations = map[string]float64{"nuclear": 0.505, "tecl": 0.5}
		require.NoError(t, cfg.Validate())
	})

	t.Run("negative allocation rejected", func(t *testing.T) {
		cfg := validConfig()
		cfg.Strategy.Allocations = map[string]float64{"nuclear": -0.5, "tecl": 1.5}
		require.Error(t, cfg.Validate())
	})

	t.Run("missing allocations rejected", func(t *testing.T) {
		cfg := validConfig()
		cfg.Strategy.Allocations = nil
		require.Error(t, cfg.Validate())
	})

	t.Run("unknown weighting policy rejected", func(t *testing.T) {
		cfg := validConfig()
		cfg.Strategy.NuclearWeighting = "momentum"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nuclear_weighting")
	})

	t.Run("database enabled requires url", func(t *testing.T) {
		cfg := validConfig()
		cfg.Database.Enabled = true
		require.Error(t, cfg.Validate())

		cfg.Database.URL = "postgres://localhost/equityfunk"
		require.NoError(t, cfg.Validate())
	})

	t.Run("buy safety margin range", func(t *testing.T) {
		cfg := validConfig()
		cfg.Execution.BuySafetyMargin = 1.0
		require.Error(t, cfg.Validate())

		cfg.Execution.BuySafetyMargin = 0.05
		require.NoError(t, cfg.Validate())
	})
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "EquityFunk", cfg.App.Name)
	assert.Equal(t, 15, cfg.App.IntervalMinutes)
	assert.Equal(t, 3, cfg.App.MaxErrors)
	assert.Equal(t, 3, cfg.Strategy.TopNNuclear)
	assert.Equal(t, "inverse_volatility", cfg.Strategy.NuclearWeighting)
	assert.InDelta(t, 0.5, cfg.Strategy.Allocations["nuclear"], 1e-9)
	assert.InDelta(t, 0.5, cfg.Strategy.Allocations["tecl"], 1e-9)
	assert.Equal(t, 300, cfg.Data.CacheTTL)
	assert.InDelta(t, 0.3, cfg.Execution.SlippageBPS, 1e-9)
	assert.Equal(t, 30, cfg.Execution.PollTimeout)
	assert.Equal(t, 2, cfg.Execution.PollInterval)
	assert.Equal(t, 60, cfg.Execution.MaxWaitTime)
	assert.True(t, cfg.Broker.PaperTrading)
}
