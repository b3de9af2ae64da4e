// Package types provides shared type definitions for the forecast backend.
package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Request limits enforced at the API boundary before the engine runs its
// own validation.
const (
	MaxHoldings = 100
)

// HoldingInput is one portfolio position in a simulation request. Value is
// a money amount and travels as a decimal; return and volatility are
// dimensionless annual rates.
type HoldingInput struct {
	Ticker           string          `json:"ticker,omitempty"`
	Value            decimal.Decimal `json:"value"`
	AnnualReturn     float64         `json:"annual_return"`
	AnnualVolatility float64         `json:"annual_volatility"`
}

// SimulationRequest is the wire shape for a forecast run.
type SimulationRequest struct {
	Holdings            []HoldingInput `json:"holdings"`
	Years               int            `json:"years"`
	NumSimulations      int            `json:"num_simulations"`
	ConfidenceLevels    []float64      `json:"confidence_levels,omitempty"`
	RiskFreeRate        *float64       `json:"risk_free_rate,omitempty"`
	MonthlyContribution float64        `json:"monthly_contribution,omitempty"`
	RandomSeed          *int64         `json:"random_seed,omitempty"`
	Distribution        string         `json:"distribution,omitempty"`
	Method              string         `json:"method,omitempty"`
}

// CheckLimits validates the boundary constraints the engine does not own:
// holding count and presence. Engine-level parameter validation happens
// inside the simulator.
func (r *SimulationRequest) CheckLimits() error {
	if len(r.Holdings) == 0 {
		return fmt.Errorf("holdings list cannot be empty")
	}
	if len(r.Holdings) > MaxHoldings {
		return fmt.Errorf("at most %d holdings per request, got %d", MaxHoldings, len(r.Holdings))
	}
	return nil
}

// ScenarioSummary carries the final-value extremes as money amounts.
type ScenarioSummary struct {
	BestCase  decimal.Decimal `json:"best_case"`
	WorstCase decimal.Decimal `json:"worst_case"`
	Median    decimal.Decimal `json:"median"`
	Mean      decimal.Decimal `json:"mean"`
}

// SimulationJob tracks an asynchronous forecast run.
type SimulationJob struct {
	ID        string `json:"id"`
	Status    string `json:"status"` // "running", "completed", "failed"
	StartedAt int64  `json:"started_at"`
	Error     string `json:"error,omitempty"`
}

// Job statuses.
const (
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)
