package montecarlo

import "math"

// defaultMonthlyReturns is a 15-year sample of broad US equity total
// monthly returns used by the historical bootstrap method and the
// historical shock distribution. Callers who want a different sample
// provide their own via UseHistoricalReturns; the engine never fetches data.
var defaultMonthlyReturns = []float64{
	-0.0038, 0.0292, -0.0025, -0.0063, -0.0328, -0.0020,
	0.0550, 0.0254, 0.0518, 0.0179, 0.0242, 0.0152,
	-0.0644, 0.0440, 0.0290, 0.0286, -0.0655, -0.0678,
	-0.0311, -0.0129, 0.0203, 0.0052, 0.0296, -0.0204,
	0.0205, 0.0241, -0.0212, 0.0811, 0.0311, 0.0587,
	-0.0195, -0.0246, -0.0076, 0.0026, 0.0344, 0.0179,
	-0.0120, -0.0339, -0.0152, 0.0597, -0.0275, 0.0177,
	0.0255, -0.0569, 0.0093, 0.0634, -0.0794, -0.0066,
	0.0026, -0.0279, 0.0286, 0.0045, -0.0558, 0.0428,
	0.0360, 0.0479, 0.0691, 0.0228, 0.0123, -0.0487,
	0.0337, -0.0191, -0.0123, -0.0472, -0.0344, -0.0156,
	0.0626, -0.0802, -0.0555, 0.0175, 0.0693, 0.0321,
	-0.0745, -0.1011, 0.0226, -0.0245, -0.0410, 0.0492,
	0.0546, 0.0140, 0.0178, 0.0259, 0.0757, 0.0338,
	0.0295, 0.0308, -0.0602, 0.0623, 0.0483, 0.0300,
	-0.0777, -0.0200, 0.0434, -0.0707, -0.0007, 0.0510,
	-0.0492, 0.0764, 0.0309, 0.0007, 0.0212, 0.0351,
	0.0124, 0.0565, -0.0212, -0.0106, 0.0520, 0.0084,
	-0.0307, 0.0479, 0.0702, -0.0119, -0.0521, 0.0014,
	0.0008, -0.0056, 0.0676, -0.0370, 0.0614, -0.0473,
	-0.0266, 0.0344, 0.0557, 0.0441, 0.0220, 0.0133,
	0.0138, 0.0319, -0.0004, 0.0191, 0.0318, 0.0072,
	0.0401, 0.0315, 0.0937, 0.0212, -0.0112, -0.0088,
	0.0066, 0.0469, -0.0073, 0.0238, 0.0862, -0.1031,
	-0.0411, 0.0177, 0.0243, 0.0175, -0.0113, 0.0354,
	0.0193, -0.0152, 0.1117, 0.0225, -0.0166, 0.0029,
	-0.0025, 0.0045, -0.1101, -0.0137, 0.0506, -0.0430,
	0.0043, 0.0482, 0.0440, 0.0713, -0.0660, -0.0080,
	-0.0075, 0.0340, 0.0541, -0.1082, 0.0540, -0.0550,
	0.0366, -0.0570, 0.0148, 0.0586, 0.0008, 0.0154,
}

// historicalSample holds a return sample plus the moments needed to
// standardize it into unit-variance shocks.
type historicalSample struct {
	returns []float64
	mean    float64
	stddev  float64
}

func newHistoricalSample(returns []float64) *historicalSample {
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	variance /= float64(len(returns))

	return &historicalSample{
		returns: returns,
		mean:    mean,
		stddev:  math.Sqrt(variance),
	}
}

// standardized converts the i-th sampled return into a zero-mean,
// unit-variance shock.
func (h *historicalSample) standardized(i int) float64 {
	if h.stddev == 0 {
		return 0
	}
	return (h.returns[i] - h.mean) / h.stddev
}
