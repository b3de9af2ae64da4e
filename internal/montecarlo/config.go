// Package montecarlo provides the Monte Carlo portfolio forecasting engine.
// It projects portfolio value forward by simulating thousands of random
// return paths and deriving percentile bands, summary statistics and
// tail-risk metrics from them. The engine is pure computation: no I/O, no
// persistence, deterministic for a fixed seed.
package montecarlo

import (
	"fmt"
	"sort"
)

// Distribution selects the shock distribution used for path generation.
type Distribution string

const (
	DistNormal     Distribution = "normal"
	DistLogNormal  Distribution = "lognormal"
	DistStudentT   Distribution = "student_t"
	DistHistorical Distribution = "historical"
)

// Method selects the stochastic process used for path generation.
type Method string

const (
	MethodGBM           Method = "geometric_brownian"
	MethodBootstrap     Method = "historical_bootstrap"
	MethodMeanReversion Method = "mean_reversion"
)

// Simulation bounds. Requests outside these fail validation before any
// path generation starts.
const (
	MinSimulations = 100
	MaxSimulations = 100000
	MinYears       = 1
	MaxYears       = 50
)

// Config holds the parameters for one simulation run. It is validated once
// at construction and treated as immutable afterwards.
type Config struct {
	NumSimulations      int          `json:"num_simulations"`
	Years               int          `json:"years"`
	TimeStepMonths      int          `json:"time_step_months"`
	Distribution        Distribution `json:"distribution"`
	Method              Method       `json:"method"`
	RiskFreeRate        float64      `json:"risk_free_rate"`
	MonthlyContribution float64      `json:"monthly_contribution"`
	ConfidenceLevels    []float64    `json:"confidence_levels"`

	// RandomSeed makes the run bit-reproducible. Nil means a time-based
	// seed. Seeding is scoped to the call: each Run owns its generator,
	// so concurrent simulations never interfere.
	RandomSeed *int64 `json:"random_seed,omitempty"`

	// AllowNegativeRates permits a negative risk-free rate for stress
	// scenarios. The default validator rejects negative rates.
	AllowNegativeRates bool `json:"allow_negative_rates,omitempty"`
}

// DefaultConfig returns sensible defaults for a forecast run.
func DefaultConfig() Config {
	return Config{
		NumSimulations:   1000,
		Years:            10,
		TimeStepMonths:   1,
		Distribution:     DistNormal,
		Method:           MethodGBM,
		RiskFreeRate:     0.03,
		ConfidenceLevels: []float64{0.05, 0.25, 0.50, 0.75, 0.95},
	}
}

// Validate checks the configuration and normalizes defaulted fields.
// Rules are checked in order; the first violation is returned as a
// *ConfigError naming the offending field.
func (c *Config) Validate() error {
	if c.NumSimulations < MinSimulations || c.NumSimulations > MaxSimulations {
		return &ConfigError{
			Field:  "num_simulations",
			Reason: fmt.Sprintf("must be between %d and %d, got %d", MinSimulations, MaxSimulations, c.NumSimulations),
		}
	}

	if c.Years < MinYears || c.Years > MaxYears {
		return &ConfigError{
			Field:  "years",
			Reason: fmt.Sprintf("must be between %d and %d, got %d", MinYears, MaxYears, c.Years),
		}
	}

	if c.TimeStepMonths == 0 {
		c.TimeStepMonths = 1
	}
	if c.TimeStepMonths < 1 || c.TimeStepMonths > 12 || 12%c.TimeStepMonths != 0 {
		return &ConfigError{
			Field:  "time_step_months",
			Reason: fmt.Sprintf("must divide 12 evenly, got %d", c.TimeStepMonths),
		}
	}

	if c.Distribution == "" {
		c.Distribution = DistNormal
	}
	switch c.Distribution {
	case DistNormal, DistLogNormal, DistStudentT, DistHistorical:
	default:
		return &ConfigError{
			Field:  "distribution",
			Reason: fmt.Sprintf("unknown distribution %q", c.Distribution),
		}
	}

	if c.Method == "" {
		c.Method = MethodGBM
	}
	switch c.Method {
	case MethodGBM, MethodBootstrap, MethodMeanReversion:
	default:
		return &ConfigError{
			Field:  "method",
			Reason: fmt.Sprintf("unknown method %q", c.Method),
		}
	}

	if c.RiskFreeRate < 0 && !c.AllowNegativeRates {
		return &ConfigError{
			Field:  "risk_free_rate",
			Reason: fmt.Sprintf("must be >= 0, got %g (set allow_negative_rates for stress scenarios)", c.RiskFreeRate),
		}
	}

	if c.MonthlyContribution < 0 {
		return &ConfigError{
			Field:  "monthly_contribution",
			Reason: fmt.Sprintf("must be >= 0, got %g", c.MonthlyContribution),
		}
	}

	if len(c.ConfidenceLevels) == 0 {
		c.ConfidenceLevels = []float64{0.05, 0.25, 0.50, 0.75, 0.95}
	}
	for _, level := range c.ConfidenceLevels {
		if level < 0 || level > 1 {
			return &ConfigError{
				Field:  "confidence_levels",
				Reason: fmt.Sprintf("levels must lie in [0,1], got %g", level),
			}
		}
	}
	sort.Float64s(c.ConfidenceLevels)

	return nil
}

// steps returns the number of simulated time steps (excluding the initial
// column) and the step length in years.
func (c *Config) steps() (int, float64) {
	return c.Years * 12 / c.TimeStepMonths, float64(c.TimeStepMonths) / 12.0
}
