package montecarlo

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Simulator runs Monte Carlo portfolio forecasts. Construct one per call
// or request; it holds no shared mutable state and its configuration is
// fixed at construction. Runs with the same config, holdings and seed are
// bit-identical.
type Simulator struct {
	logger *zap.Logger
	config Config
	hist   *historicalSample
}

// NewSimulator validates the configuration and returns a simulator bound
// to it. Validation failures are *ConfigError.
func NewSimulator(logger *zap.Logger, config Config) (*Simulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{
		logger: logger,
		config: config,
		hist:   newHistoricalSample(defaultMonthlyReturns),
	}, nil
}

// UseHistoricalReturns replaces the built-in monthly return sample used by
// the historical bootstrap method and the historical shock distribution.
func (s *Simulator) UseHistoricalReturns(returns []float64) error {
	if len(returns) < 12 {
		return &ConfigError{Field: "historical_returns", Reason: "need at least 12 monthly samples"}
	}
	s.hist = newHistoricalSample(returns)
	return nil
}

// Metadata echoes the resolved inputs and run timing.
type Metadata struct {
	NumSimulations   int          `json:"num_simulations"`
	Years            int          `json:"years"`
	Method           Method       `json:"method"`
	Distribution     Distribution `json:"distribution"`
	InitialValue     float64      `json:"initial_value"`
	MeanAnnualReturn float64      `json:"mean_annual_return"`
	AnnualVolatility float64      `json:"annual_volatility"`
	SharpeRatio      float64      `json:"sharpe_ratio"`
	DurationSeconds  float64      `json:"duration_seconds"`
}

// Result is the immutable output bundle of one simulation run. It carries
// only aggregates and a bounded path sample; the full path matrix is
// released before the result is assembled.
type Result struct {
	Metadata      Metadata           `json:"metadata"`
	Scenarios     Scenarios          `json:"scenarios"`
	Percentiles   map[string]float64 `json:"percentiles"`
	Statistics    Statistics         `json:"statistics"`
	Probabilities Probabilities      `json:"probabilities"`
	RiskMetrics   RiskMetrics        `json:"risk_metrics"`
	TimeSeries    TimeSeries         `json:"time_series"`
}

// Run executes the full pipeline: portfolio aggregation, path generation,
// outcome analysis and result assembly. The random generator is owned by
// this call, so concurrent Runs never interfere with each other's
// reproducibility.
func (s *Simulator) Run(holdings []Holding) (*Result, error) {
	start := time.Now()

	stats, err := ComputePortfolioStats(holdings, s.config.RiskFreeRate)
	if err != nil {
		return nil, err
	}

	seed := time.Now().UnixNano()
	if s.config.RandomSeed != nil {
		seed = *s.config.RandomSeed
	}
	rng := rand.New(rand.NewSource(seed))

	s.logger.Info("starting portfolio simulation",
		zap.Int("num_simulations", s.config.NumSimulations),
		zap.Int("years", s.config.Years),
		zap.String("method", string(s.config.Method)),
		zap.String("distribution", string(s.config.Distribution)),
		zap.Float64("initial_value", stats.InitialValue),
	)

	paths := generatePaths(stats, s.config, s.hist, rng)
	outcome := analyzePaths(paths, s.config, stats.InitialValue, rng)

	// The matrix is the largest allocation in the pipeline; drop the
	// reference as soon as the aggregates exist.
	paths = nil

	result := &Result{
		Metadata: Metadata{
			NumSimulations:   s.config.NumSimulations,
			Years:            s.config.Years,
			Method:           s.config.Method,
			Distribution:     s.config.Distribution,
			InitialValue:     stats.InitialValue,
			MeanAnnualReturn: stats.MeanReturn,
			AnnualVolatility: stats.Volatility,
			SharpeRatio:      stats.SharpeRatio,
			DurationSeconds:  time.Since(start).Seconds(),
		},
		Scenarios:     outcome.scenarios,
		Percentiles:   outcome.percentiles,
		Statistics:    outcome.statistics,
		Probabilities: outcome.probabilities,
		RiskMetrics:   outcome.riskMetrics,
		TimeSeries:    outcome.timeSeries,
	}

	if err := result.checkFinite(); err != nil {
		s.logger.Error("simulation produced non-finite values", zap.Error(err))
		return nil, err
	}

	s.logger.Info("simulation complete",
		zap.Float64("median_outcome", result.Scenarios.Median),
		zap.Float64("duration_seconds", result.Metadata.DurationSeconds),
	)

	return result, nil
}

// QuickSummary is the condensed payload for fast forecasts.
type QuickSummary struct {
	InitialValue  float64 `json:"initial_value"`
	MedianOutcome float64 `json:"median_outcome"`
	BestCase      float64 `json:"best_case"`
	WorstCase     float64 `json:"worst_case"`
	ProbGain      float64 `json:"prob_gain"`
	ProbLoss      float64 `json:"prob_loss"`
}

// QuickForecast runs a reduced simulation (minimum path count, key
// percentiles only) and returns a condensed summary.
func QuickForecast(logger *zap.Logger, holdings []Holding, years int) (*QuickSummary, error) {
	cfg := DefaultConfig()
	cfg.NumSimulations = MinSimulations
	cfg.Years = years
	cfg.ConfidenceLevels = []float64{0.05, 0.50, 0.95}

	sim, err := NewSimulator(logger, cfg)
	if err != nil {
		return nil, err
	}
	result, err := sim.Run(holdings)
	if err != nil {
		return nil, err
	}

	return &QuickSummary{
		InitialValue:  result.Metadata.InitialValue,
		MedianOutcome: result.Scenarios.Median,
		BestCase:      result.Scenarios.BestCase,
		WorstCase:     result.Scenarios.WorstCase,
		ProbGain:      result.Probabilities.ProbGain,
		ProbLoss:      result.Probabilities.ProbLoss,
	}, nil
}

// checkFinite rejects any result carrying NaN or Inf. Such values are
// computation defects (extreme inputs overflowing the growth step), never
// valid low-probability outcomes.
func (r *Result) checkFinite() error {
	check := func(name string, vals ...float64) error {
		for _, v := range vals {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return &ComputeError{Stage: name, Reason: fmt.Sprintf("non-finite value %g", v)}
			}
		}
		return nil
	}

	if err := check("scenarios", r.Scenarios.BestCase, r.Scenarios.WorstCase, r.Scenarios.Median, r.Scenarios.Mean); err != nil {
		return err
	}
	for key, v := range r.Percentiles {
		if err := check("percentiles."+key, v); err != nil {
			return err
		}
	}
	st := r.Statistics
	if err := check("statistics",
		st.MeanFinalValue, st.MedianFinalValue, st.StdFinalValue, st.MinFinalValue, st.MaxFinalValue,
		st.MeanTotalReturn, st.MedianTotalReturn, st.MeanAnnualizedReturn, st.MedianAnnualizedReturn); err != nil {
		return err
	}
	rm := r.RiskMetrics
	if err := check("risk_metrics",
		rm.ValueAtRisk95, rm.ValueAtRisk99, rm.ConditionalVaR95, rm.ConditionalVaR99,
		rm.MeanMaxDrawdown, rm.WorstDrawdown); err != nil {
		return err
	}
	bands := r.TimeSeries.PercentileBands
	for _, series := range [][]float64{bands.P5, bands.P25, bands.P50, bands.P75, bands.P95, bands.Mean} {
		if err := check("time_series.percentile_bands", series...); err != nil {
			return err
		}
	}
	for _, path := range r.TimeSeries.SamplePaths {
		if err := check("time_series.sample_paths", path...); err != nil {
			return err
		}
	}
	return nil
}
