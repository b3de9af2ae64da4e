package montecarlo

import (
	"errors"
	"testing"
)

func TestConfigValidateBounds(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string // offending field, empty for success
	}{
		{"defaults", func(c *Config) {}, ""},
		{"sims at lower bound", func(c *Config) { c.NumSimulations = 100 }, ""},
		{"sims below lower bound", func(c *Config) { c.NumSimulations = 99 }, "num_simulations"},
		{"sims at upper bound", func(c *Config) { c.NumSimulations = 100000 }, ""},
		{"sims above upper bound", func(c *Config) { c.NumSimulations = 100001 }, "num_simulations"},
		{"years at upper bound", func(c *Config) { c.Years = 50 }, ""},
		{"years above upper bound", func(c *Config) { c.Years = 51 }, "years"},
		{"years below lower bound", func(c *Config) { c.Years = 0 }, "years"},
		{"negative rate rejected", func(c *Config) { c.RiskFreeRate = -0.01 }, "risk_free_rate"},
		{"negative rate allowed by policy", func(c *Config) {
			c.RiskFreeRate = -0.01
			c.AllowNegativeRates = true
		}, ""},
		{"negative contribution", func(c *Config) { c.MonthlyContribution = -1 }, "monthly_contribution"},
		{"bad distribution", func(c *Config) { c.Distribution = "cauchy" }, "distribution"},
		{"bad method", func(c *Config) { c.Method = "jump_diffusion" }, "method"},
		{"step must divide year", func(c *Config) { c.TimeStepMonths = 5 }, "time_step_months"},
		{"quarterly step", func(c *Config) { c.TimeStepMonths = 3 }, ""},
		{"level out of range", func(c *Config) { c.ConfidenceLevels = []float64{0.5, 1.5} }, "confidence_levels"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()

			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %v", err)
			}
			if cfgErr.Field != tc.wantErr {
				t.Errorf("error names field %q, want %q", cfgErr.Field, tc.wantErr)
			}
		})
	}
}

func TestConfigValidateNormalizes(t *testing.T) {
	cfg := Config{NumSimulations: 500, Years: 5}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}

	if cfg.TimeStepMonths != 1 {
		t.Errorf("TimeStepMonths defaulted to %d, want 1", cfg.TimeStepMonths)
	}
	if cfg.Distribution != DistNormal {
		t.Errorf("Distribution defaulted to %q, want normal", cfg.Distribution)
	}
	if cfg.Method != MethodGBM {
		t.Errorf("Method defaulted to %q, want geometric_brownian", cfg.Method)
	}
	if len(cfg.ConfidenceLevels) != 5 {
		t.Errorf("ConfidenceLevels defaulted to %v", cfg.ConfidenceLevels)
	}
}

func TestConfigLevelsSorted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConfidenceLevels = []float64{0.95, 0.05, 0.50}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}

	for i := 1; i < len(cfg.ConfidenceLevels); i++ {
		if cfg.ConfidenceLevels[i-1] > cfg.ConfidenceLevels[i] {
			t.Fatalf("levels not sorted ascending: %v", cfg.ConfidenceLevels)
		}
	}
}
