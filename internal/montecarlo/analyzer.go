package montecarlo

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// maxSamplePaths bounds the number of raw paths included in the time
// series for plotting. The full matrix is never serialized.
const maxSamplePaths = 100

// Scenarios holds the final-value extremes across all paths.
type Scenarios struct {
	BestCase  float64 `json:"best_case"`
	WorstCase float64 `json:"worst_case"`
	Median    float64 `json:"median"`
	Mean      float64 `json:"mean"`
}

// Statistics holds descriptive statistics of final values and per-path
// returns.
type Statistics struct {
	MeanFinalValue         float64 `json:"mean_final_value"`
	MedianFinalValue       float64 `json:"median_final_value"`
	StdFinalValue          float64 `json:"std_final_value"`
	MinFinalValue          float64 `json:"min_final_value"`
	MaxFinalValue          float64 `json:"max_final_value"`
	MeanTotalReturn        float64 `json:"mean_total_return"`
	MedianTotalReturn      float64 `json:"median_total_return"`
	MeanAnnualizedReturn   float64 `json:"mean_annualized_return"`
	MedianAnnualizedReturn float64 `json:"median_annualized_return"`
}

// Probabilities holds the fraction of paths reaching each outcome
// threshold. A path whose final value lands exactly on the initial value
// counts in neither the gain nor the loss bucket, so gain+loss <= 1.
type Probabilities struct {
	ProbGain      float64 `json:"prob_gain"`
	ProbLoss      float64 `json:"prob_loss"`
	ProbDouble    float64 `json:"prob_double"`
	ProbTriple    float64 `json:"prob_triple"`
	Prob10PctGain float64 `json:"prob_10pct_gain"`
	Prob25PctGain float64 `json:"prob_25pct_gain"`
	ProbHalf      float64 `json:"prob_half"`
	Prob10PctLoss float64 `json:"prob_10pct_loss"`
}

// RiskMetrics holds tail-risk measures derived from per-path total
// returns and drawdowns. VaR values are signed returns, not clamped.
type RiskMetrics struct {
	ValueAtRisk95    float64 `json:"value_at_risk_95"`
	ValueAtRisk99    float64 `json:"value_at_risk_99"`
	ConditionalVaR95 float64 `json:"conditional_var_95"`
	ConditionalVaR99 float64 `json:"conditional_var_99"`
	MeanMaxDrawdown  float64 `json:"mean_max_drawdown"`
	WorstDrawdown    float64 `json:"worst_drawdown"`
}

// PercentileBands holds per-time-step percentile series for charting.
type PercentileBands struct {
	P5   []float64 `json:"p5"`
	P25  []float64 `json:"p25"`
	P50  []float64 `json:"p50"`
	P75  []float64 `json:"p75"`
	P95  []float64 `json:"p95"`
	Mean []float64 `json:"mean"`
}

// TimeSeries is the chart-oriented view of the simulation: percentile
// bands across every time step plus a bounded sample of raw paths.
type TimeSeries struct {
	SamplePaths     [][]float64     `json:"sample_paths"`
	PercentileBands PercentileBands `json:"percentile_bands"`
}

// analysis is everything the analyzer extracts from the path matrix. Once
// built, the matrix itself can be released.
type analysis struct {
	scenarios     Scenarios
	percentiles   map[string]float64
	statistics    Statistics
	probabilities Probabilities
	riskMetrics   RiskMetrics
	timeSeries    TimeSeries
}

// analyzePaths derives every aggregate the result needs from the matrix.
// It is read-only over paths; rng is used solely to pick the plotting
// sample.
func analyzePaths(paths [][]float64, cfg Config, initialValue float64, rng *rand.Rand) *analysis {
	finals := make([]float64, len(paths))
	for i, path := range paths {
		finals[i] = path[len(path)-1]
	}

	sortedFinals := make([]float64, len(finals))
	copy(sortedFinals, finals)
	sort.Float64s(sortedFinals)

	returns := make([]float64, len(finals))
	for i, v := range finals {
		returns[i] = v/initialValue - 1
	}
	sortedReturns := make([]float64, len(returns))
	copy(sortedReturns, returns)
	sort.Float64s(sortedReturns)

	return &analysis{
		scenarios:     calcScenarios(sortedFinals),
		percentiles:   calcPercentiles(sortedFinals, cfg.ConfidenceLevels),
		statistics:    calcStatistics(finals, sortedFinals, returns, sortedReturns, cfg.Years),
		probabilities: calcProbabilities(finals, initialValue),
		riskMetrics:   calcRiskMetrics(paths, sortedReturns),
		timeSeries:    calcTimeSeries(paths, rng),
	}
}

func calcScenarios(sortedFinals []float64) Scenarios {
	return Scenarios{
		BestCase:  sortedFinals[len(sortedFinals)-1],
		WorstCase: sortedFinals[0],
		Median:    percentile(sortedFinals, 0.50),
		Mean:      mean(sortedFinals),
	}
}

// calcPercentiles keys each requested confidence level as p{level*100}
// over the final-value distribution.
func calcPercentiles(sortedFinals []float64, levels []float64) map[string]float64 {
	out := make(map[string]float64, len(levels))
	for _, level := range levels {
		key := fmt.Sprintf("p%d", int(math.Round(level*100)))
		out[key] = percentile(sortedFinals, level)
	}
	return out
}

func calcStatistics(finals, sortedFinals, returns, sortedReturns []float64, years int) Statistics {
	annualized := make([]float64, len(returns))
	for i, r := range returns {
		// Annualization uses the configured horizon. Growth factors can
		// go non-positive on extreme paths; the fractional power is
		// undefined there, so treat the path as a total loss.
		growth := 1 + r
		if growth > 0 {
			annualized[i] = math.Pow(growth, 1/float64(years)) - 1
		} else {
			annualized[i] = -1
		}
	}
	sortedAnnualized := make([]float64, len(annualized))
	copy(sortedAnnualized, annualized)
	sort.Float64s(sortedAnnualized)

	return Statistics{
		MeanFinalValue:         mean(finals),
		MedianFinalValue:       percentile(sortedFinals, 0.50),
		StdFinalValue:          stddev(finals),
		MinFinalValue:          sortedFinals[0],
		MaxFinalValue:          sortedFinals[len(sortedFinals)-1],
		MeanTotalReturn:        mean(returns),
		MedianTotalReturn:      percentile(sortedReturns, 0.50),
		MeanAnnualizedReturn:   mean(annualized),
		MedianAnnualizedReturn: percentile(sortedAnnualized, 0.50),
	}
}

func calcProbabilities(finals []float64, initial float64) Probabilities {
	n := float64(len(finals))
	var gain, loss, double, triple, gain10, gain25, half, loss10 int
	for _, v := range finals {
		if v > initial {
			gain++
		}
		if v < initial {
			loss++
		}
		if v >= initial*2 {
			double++
		}
		if v >= initial*3 {
			triple++
		}
		if v >= initial*1.10 {
			gain10++
		}
		if v >= initial*1.25 {
			gain25++
		}
		if v <= initial*0.5 {
			half++
		}
		if v <= initial*0.9 {
			loss10++
		}
	}
	return Probabilities{
		ProbGain:      float64(gain) / n,
		ProbLoss:      float64(loss) / n,
		ProbDouble:    float64(double) / n,
		ProbTriple:    float64(triple) / n,
		Prob10PctGain: float64(gain10) / n,
		Prob25PctGain: float64(gain25) / n,
		ProbHalf:      float64(half) / n,
		Prob10PctLoss: float64(loss10) / n,
	}
}

func calcRiskMetrics(paths [][]float64, sortedReturns []float64) RiskMetrics {
	var ddSum, worstDD float64
	for _, path := range paths {
		dd := maxDrawdown(path)
		ddSum += dd
		if dd < worstDD {
			worstDD = dd
		}
	}

	var95 := percentile(sortedReturns, 0.05)
	var99 := percentile(sortedReturns, 0.01)

	return RiskMetrics{
		ValueAtRisk95:    var95,
		ValueAtRisk99:    var99,
		ConditionalVaR95: conditionalVaR(sortedReturns, var95),
		ConditionalVaR99: conditionalVaR(sortedReturns, var99),
		MeanMaxDrawdown:  ddSum / float64(len(paths)),
		WorstDrawdown:    worstDD,
	}
}

// maxDrawdown returns the most negative peak-to-trough decline along one
// path, as a signed fraction of the running peak. The initial value is
// positive, so the running peak never reaches zero.
func maxDrawdown(path []float64) float64 {
	runningMax := path[0]
	worst := 0.0
	for _, v := range path[1:] {
		if v > runningMax {
			runningMax = v
			continue
		}
		dd := (v - runningMax) / runningMax
		if dd < worst {
			worst = dd
		}
	}
	return worst
}

// conditionalVaR is the mean of returns at or below the VaR threshold.
// If no path qualifies (degenerate tie cases), it falls back to the VaR
// itself.
func conditionalVaR(sortedReturns []float64, threshold float64) float64 {
	sum := 0.0
	count := 0
	for _, r := range sortedReturns {
		if r > threshold {
			break
		}
		sum += r
		count++
	}
	if count == 0 {
		return threshold
	}
	return sum / float64(count)
}

func calcTimeSeries(paths [][]float64, rng *rand.Rand) TimeSeries {
	steps := len(paths[0])
	bands := PercentileBands{
		P5:   make([]float64, steps),
		P25:  make([]float64, steps),
		P50:  make([]float64, steps),
		P75:  make([]float64, steps),
		P95:  make([]float64, steps),
		Mean: make([]float64, steps),
	}

	column := make([]float64, len(paths))
	for t := 0; t < steps; t++ {
		sum := 0.0
		for i, path := range paths {
			column[i] = path[t]
			sum += path[t]
		}
		sort.Float64s(column)
		bands.P5[t] = percentile(column, 0.05)
		bands.P25[t] = percentile(column, 0.25)
		bands.P50[t] = percentile(column, 0.50)
		bands.P75[t] = percentile(column, 0.75)
		bands.P95[t] = percentile(column, 0.95)
		bands.Mean[t] = sum / float64(len(paths))
	}

	sampleSize := maxSamplePaths
	if sampleSize > len(paths) {
		sampleSize = len(paths)
	}
	samples := make([][]float64, sampleSize)
	for i, idx := range rng.Perm(len(paths))[:sampleSize] {
		row := make([]float64, steps)
		copy(row, paths[idx])
		samples[i] = row
	}

	return TimeSeries{SamplePaths: samples, PercentileBands: bands}
}

// percentile computes the q-quantile of pre-sorted values with linear
// interpolation between order statistics (the same convention the rest of
// the analytics stack uses).
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	m := mean(values)
	variance := 0.0
	for _, v := range values {
		diff := v - m
		variance += diff * diff
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}
