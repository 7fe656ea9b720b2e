package config

import (
	"fmt"
	"math"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Configuration validation failed with %d error(s):\n\n", len(ve)))
	for i, err := range ve {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	sb.WriteString("\nPlease fix the above errors and try again.\n")
	return sb.String()
}

// AllocationTolerance is the permitted deviation of strategy capital shares from 1.0
const AllocationTolerance = 0.01

// Validate performs comprehensive configuration validation
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateApp()...)
	errors = append(errors, c.validateStrategy()...)
	errors = append(errors, c.validateData()...)
	errors = append(errors, c.validateExecution()...)
	errors = append(errors, c.validateDatabase()...)

	if len(errors) > 0 {
		return errors
	}

	return nil
}

func (c *Config) validateApp() ValidationErrors {
	var errors ValidationErrors

	if c.App.Name == "" {
		errors = append(errors, ValidationError{
			Field:   "app.name",
			Message: "Application name is required",
		})
	}

	if c.App.Environment != "" {
		validEnvs := []string{"development", "staging", "production"}
		valid := false
		for _, env := range validEnvs {
			if c.App.Environment == env {
				valid = true
				break
			}
		}
		if !valid {
			errors = append(errors, ValidationError{
				Field:   "app.environment",
				Message: fmt.Sprintf("Invalid environment %q (must be development, staging, or production)", c.App.Environment),
			})
		}
	}

	if c.App.IntervalMinutes <= 0 {
		errors = append(errors, ValidationError{
			Field:   "app.interval_minutes",
			Message: "Tick interval must be positive",
		})
	}

	if c.App.MaxErrors <= 0 {
		errors = append(errors, ValidationError{
			Field:   "app.max_errors",
			Message: "Max consecutive errors must be positive",
		})
	}

	return errors
}

func (c *Config) validateStrategy() ValidationErrors {
	var errors ValidationErrors

	if len(c.Strategy.Allocations) == 0 {
		errors = append(errors, ValidationError{
			Field:   "strategy.allocations",
			Message: "At least one strategy allocation is required",
		})
		return errors
	}

	var sum float64
	for name, share := range c.Strategy.Allocations {
		if share < 0 || share > 1 {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("strategy.allocations.%s", name),
				Message: fmt.Sprintf("Allocation %.4f is outside [0, 1]", share),
			})
		}
		sum += share
	}

	if math.Abs(sum-1.0) > AllocationTolerance {
		errors = append(errors, ValidationError{
			Field:   "strategy.allocations",
			Message: fmt.Sprintf("Allocations must sum to 1.0 (got %.4f)", sum),
		})
	}

	if c.Strategy.TopNNuclear <= 0 {
		errors = append(errors, ValidationError{
			Field:   "strategy.top_n_nuclear",
			Message: "Nuclear portfolio size must be positive",
		})
	}

	switch c.Strategy.NuclearWeighting {
	case "", WeightingInverseVol, WeightingEqual:
	default:
		errors = append(errors, ValidationError{
			Field:   "strategy.nuclear_weighting",
			Message: fmt.Sprintf("Unknown weighting policy %q (must be inverse_volatility or equal)", c.Strategy.NuclearWeighting),
		})
	}

	return errors
}

func (c *Config) validateData() ValidationErrors {
	var errors ValidationErrors

	if c.Data.CacheTTL < 0 {
		errors = append(errors, ValidationError{
			Field:   "data.cache_ttl",
			Message: "Cache TTL cannot be negative",
		})
	}

	if c.Data.RateLimitPerSecond <= 0 {
		errors = append(errors, ValidationError{
			Field:   "data.rate_limit_per_second",
			Message: "Rate limit must be positive",
		})
	}

	return errors
}

func (c *Config) validateExecution() ValidationErrors {
	var errors ValidationErrors

	if c.Execution.SlippageBPS < 0 {
		errors = append(errors, ValidationError{
			Field:   "execution.slippage_bps",
			Message: "Slippage cannot be negative",
		})
	}

	if c.Execution.MaxRetries < 0 {
		errors = append(errors, ValidationError{
			Field:   "execution.max_retries",
			Message: "Max retries cannot be negative",
		})
	}

	if c.Execution.PollInterval <= 0 {
		errors = append(errors, ValidationError{
			Field:   "execution.poll_interval",
			Message: "Poll interval must be positive",
		})
	}

	if c.Execution.MinTradeValue < 0 {
		errors = append(errors, ValidationError{
			Field:   "execution.min_trade_value",
			Message: "Trade value tolerance cannot be negative",
		})
	}

	if c.Execution.BuySafetyMargin < 0 || c.Execution.BuySafetyMargin >= 1 {
		errors = append(errors, ValidationError{
			Field:   "execution.buy_safety_margin",
			Message: "Buy safety margin must be in [0, 1)",
		})
	}

	return errors
}

func (c *Config) validateDatabase() ValidationErrors {
	var errors ValidationErrors

	if c.Database.Enabled && c.Database.URL == "" {
		errors = append(errors, ValidationError{
			Field:   "database.url",
			Message: "Database URL is required when persistence is enabled",
		})
	}

	return errors
}
