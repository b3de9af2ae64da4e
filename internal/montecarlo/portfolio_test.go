package montecarlo

import (
	"errors"
	"math"
	"testing"
)

func TestComputePortfolioStats(t *testing.T) {
	holdings := []Holding{
		{Value: 60000, AnnualReturn: 0.10, AnnualVolatility: 0.20},
		{Value: 40000, AnnualReturn: 0.04, AnnualVolatility: 0.05},
	}

	stats, err := ComputePortfolioStats(holdings, 0.03)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.InitialValue != 100000 {
		t.Errorf("InitialValue = %g, want 100000", stats.InitialValue)
	}
	if math.Abs(stats.MeanReturn-0.076) > 1e-12 {
		t.Errorf("MeanReturn = %g, want 0.076", stats.MeanReturn)
	}

	// Uncorrelated aggregation: sqrt((0.6*0.2)^2 + (0.4*0.05)^2).
	wantVol := math.Sqrt(0.6*0.6*0.2*0.2 + 0.4*0.4*0.05*0.05)
	if math.Abs(stats.Volatility-wantVol) > 1e-12 {
		t.Errorf("Volatility = %g, want %g", stats.Volatility, wantVol)
	}

	wantSharpe := (0.076 - 0.03) / wantVol
	if math.Abs(stats.SharpeRatio-wantSharpe) > 1e-12 {
		t.Errorf("SharpeRatio = %g, want %g", stats.SharpeRatio, wantSharpe)
	}

	weightSum := 0.0
	for _, w := range stats.Weights {
		weightSum += w
	}
	if math.Abs(weightSum-1) > 1e-12 {
		t.Errorf("weights sum to %g, want 1", weightSum)
	}
}

func TestComputePortfolioStatsErrors(t *testing.T) {
	cases := []struct {
		name     string
		holdings []Holding
	}{
		{"empty portfolio", nil},
		{"non-positive value", []Holding{{Value: 0, AnnualReturn: 0.05}}},
		{"negative value", []Holding{{Value: -100, AnnualReturn: 0.05}}},
		{"negative volatility", []Holding{{Value: 100, AnnualReturn: 0.05, AnnualVolatility: -0.1}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ComputePortfolioStats(tc.holdings, 0.03)
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %v", err)
			}
		})
	}
}

func TestZeroVolatilitySharpe(t *testing.T) {
	holdings := []Holding{{Value: 100000, AnnualReturn: 0.08, AnnualVolatility: 0}}

	stats, err := ComputePortfolioStats(holdings, 0.03)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Degenerate case: no division by zero, Sharpe reported as zero.
	if stats.Volatility != 0 {
		t.Errorf("Volatility = %g, want 0", stats.Volatility)
	}
	if stats.SharpeRatio != 0 {
		t.Errorf("SharpeRatio = %g, want 0", stats.SharpeRatio)
	}
}
