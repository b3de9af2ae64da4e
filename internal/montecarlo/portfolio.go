package montecarlo

import (
	"fmt"
	"math"
)

// Holding describes one portfolio position: its current value and the
// pre-estimated annual return and volatility used for forecasting. The
// engine never estimates these itself.
type Holding struct {
	Value            float64 `json:"value"`
	AnnualReturn     float64 `json:"annual_return"`
	AnnualVolatility float64 `json:"annual_volatility"`
}

// PortfolioStats is the single weighted descriptor the path simulator
// consumes. It is derived fresh per run and discarded afterwards.
type PortfolioStats struct {
	InitialValue float64   `json:"initial_value"`
	MeanReturn   float64   `json:"mean_return"`
	Volatility   float64   `json:"volatility"`
	SharpeRatio  float64   `json:"sharpe_ratio"`
	Weights      []float64 `json:"weights"`
}

// ComputePortfolioStats reduces a list of holdings into value-weighted
// return and volatility. Per-holding volatilities are combined as
// sqrt(sum(w_i^2 * vol_i^2)), which treats holdings as uncorrelated. That
// understates volatility for correlated holdings; it is a deliberate
// simplification kept for parity with the rest of the analytics stack.
func ComputePortfolioStats(holdings []Holding, riskFreeRate float64) (*PortfolioStats, error) {
	if len(holdings) == 0 {
		return nil, &ConfigError{Field: "holdings", Reason: "empty portfolio"}
	}

	totalValue := 0.0
	for i, h := range holdings {
		if h.Value <= 0 {
			return nil, &ConfigError{
				Field:  "holdings",
				Reason: fmt.Sprintf("holding %d has non-positive value %g", i, h.Value),
			}
		}
		if h.AnnualVolatility < 0 {
			return nil, &ConfigError{
				Field:  "holdings",
				Reason: fmt.Sprintf("holding %d has negative volatility %g", i, h.AnnualVolatility),
			}
		}
		totalValue += h.Value
	}
	if totalValue <= 0 {
		return nil, &ConfigError{Field: "holdings", Reason: "non-positive portfolio value"}
	}

	stats := &PortfolioStats{
		InitialValue: totalValue,
		Weights:      make([]float64, len(holdings)),
	}

	variance := 0.0
	for i, h := range holdings {
		weight := h.Value / totalValue
		stats.Weights[i] = weight
		stats.MeanReturn += weight * h.AnnualReturn
		variance += weight * weight * h.AnnualVolatility * h.AnnualVolatility
	}
	stats.Volatility = math.Sqrt(variance)

	// A zero-volatility portfolio is deterministic; Sharpe is undefined
	// rather than infinite, so report it as zero instead of dividing.
	if stats.Volatility > 0 {
		stats.SharpeRatio = (stats.MeanReturn - riskFreeRate) / stats.Volatility
	}

	return stats, nil
}
