package montecarlo

import (
	"math"
	"math/rand"
	"runtime"
	"sync"
)

// pathBlockSize is the fixed partition width for parallel path generation.
// Blocks are seeded in block order from the call RNG before any worker
// starts, so the generated matrix is bit-identical regardless of how many
// workers run or how they are scheduled.
const pathBlockSize = 4096

// reversionSpeed is the annual rate at which mean-reverting paths are
// pulled back toward the deterministic growth trend.
const reversionSpeed = 2.0

// stepParams carries the precomputed per-step constants for one run.
type stepParams struct {
	initial      float64
	periodReturn float64
	periodVol    float64
	contribution float64
	logDrift     float64 // lognormal drift: (mu - sigma^2/2) * dt
	reversion    float64 // mean reversion pull per step: speed * dt
	stepMonths   int
	method       Method
	dist         Distribution
	hist         *historicalSample
	trend        []float64 // deterministic trend, mean reversion only
}

// generatePaths builds the full simulation matrix: one row per path,
// steps+1 columns, column 0 equal to the initial portfolio value.
//
// Shock draw order is fixed and documented: paths are split into
// pathBlockSize blocks; each block's sub-generator is seeded from a seed
// drawn up front from rng (in block order), and within a block every
// shock is drawn path-major (all steps of the block's first path, then
// the next) as one batch before any stepping happens.
func generatePaths(stats *PortfolioStats, cfg Config, hist *historicalSample, rng *rand.Rand) [][]float64 {
	steps, dt := cfg.steps()

	p := &stepParams{
		initial:      stats.InitialValue,
		periodReturn: stats.MeanReturn * dt,
		periodVol:    stats.Volatility * math.Sqrt(dt),
		contribution: cfg.MonthlyContribution * float64(cfg.TimeStepMonths),
		logDrift:     (stats.MeanReturn - 0.5*stats.Volatility*stats.Volatility) * dt,
		reversion:    reversionSpeed * dt,
		stepMonths:   cfg.TimeStepMonths,
		method:       cfg.Method,
		dist:         cfg.Distribution,
		hist:         hist,
	}

	if cfg.Method == MethodMeanReversion {
		p.trend = make([]float64, steps+1)
		p.trend[0] = stats.InitialValue
		for t := 1; t <= steps; t++ {
			p.trend[t] = p.trend[t-1] * (1 + p.periodReturn)
		}
	}

	numPaths := cfg.NumSimulations
	numBlocks := (numPaths + pathBlockSize - 1) / pathBlockSize
	blockSeeds := make([]int64, numBlocks)
	for i := range blockSeeds {
		blockSeeds[i] = rng.Int63()
	}

	paths := make([][]float64, numPaths)

	workers := runtime.NumCPU()
	if workers > numBlocks {
		workers = numBlocks
	}

	blocks := make(chan int, numBlocks)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range blocks {
				start := b * pathBlockSize
				end := start + pathBlockSize
				if end > numPaths {
					end = numPaths
				}
				generateBlock(paths, start, end, steps, p, rand.New(rand.NewSource(blockSeeds[b])))
			}
		}()
	}
	for b := 0; b < numBlocks; b++ {
		blocks <- b
	}
	close(blocks)
	wg.Wait()

	return paths
}

// generateBlock fills paths[start:end]. All shocks for the block are drawn
// first, path-major, then consumed by the stepping loop.
func generateBlock(paths [][]float64, start, end, steps int, p *stepParams, rng *rand.Rand) {
	n := end - start
	shocks := make([]float64, n*steps)
	for i := range shocks {
		shocks[i] = p.drawShock(rng)
	}

	for i := 0; i < n; i++ {
		row := make([]float64, steps+1)
		row[0] = p.initial
		for t := 1; t <= steps; t++ {
			// Contributions are added after the multiplicative growth
			// step; they do not compound within the same step. A zero
			// contribution takes the identical code path.
			row[t] = p.step(row[t-1], shocks[i*steps+t-1], t) + p.contribution
		}
		paths[start+i] = row
	}
}

// drawShock draws one shock. For the bootstrap method the "shock" is the
// resampled compounded return for the step; for the statistical methods it
// is a zero-mean, unit-variance draw.
func (p *stepParams) drawShock(rng *rand.Rand) float64 {
	if p.method == MethodBootstrap {
		growth := 1.0
		for m := 0; m < p.stepMonths; m++ {
			growth *= 1 + p.hist.returns[rng.Intn(len(p.hist.returns))]
		}
		return growth - 1
	}

	switch p.dist {
	case DistStudentT:
		return studentTShock(rng)
	case DistHistorical:
		return p.hist.standardized(rng.Intn(len(p.hist.returns)))
	default:
		return rng.NormFloat64()
	}
}

// step advances one path by one time step. Values are not clamped at zero:
// extreme negative shocks may push a path negative and downstream
// statistics must tolerate that.
func (p *stepParams) step(prev, shock float64, t int) float64 {
	switch p.method {
	case MethodBootstrap:
		return prev * (1 + shock)

	case MethodMeanReversion:
		pull := 0.0
		if p.trend[t-1] != 0 {
			pull = p.reversion * (p.trend[t-1] - prev) / p.trend[t-1]
		}
		return prev * (1 + p.periodReturn + pull + p.periodVol*shock)

	default: // geometric Brownian motion
		if p.dist == DistLogNormal {
			return prev * math.Exp(p.logDrift+p.periodVol*shock)
		}
		return prev * (1 + p.periodReturn + p.periodVol*shock)
	}
}

// studentTDF is the degrees of freedom for Student-t shocks. Low enough
// for visibly fat tails, high enough that variance exists.
const studentTDF = 5

// studentTShock draws a Student-t variate scaled to unit variance.
func studentTShock(rng *rand.Rand) float64 {
	chi2 := 0.0
	for i := 0; i < studentTDF; i++ {
		z := rng.NormFloat64()
		chi2 += z * z
	}
	t := rng.NormFloat64() / math.Sqrt(chi2/studentTDF)
	return t * math.Sqrt((studentTDF-2.0)/studentTDF)
}
