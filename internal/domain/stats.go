package domain

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// NaNPercentile returns the p-th percentile (0-100) of the non-missing values
// using linear interpolation between the closest ranks (the R-7 definition).
// It returns NaN when no value is present.
func NaNPercentile(values []float64, p float64) float64 {
	valid := dropNaN(values)
	if len(valid) == 0 {
		return math.NaN()
	}
	slices.Sort(valid)

	rank := p / 100 * float64(len(valid)-1)
	lo := math.Floor(rank)
	hi := math.Ceil(rank)
	vlo, vhi := valid[int(lo)], valid[int(hi)]
	return vlo + (vhi-vlo)*(rank-lo)
}

// summarize returns mean, sample standard deviation (n-1) and maximum.
// The standard deviation of a single value is NaN.
func summarize(values []float64) (mean, std, maxValue float64) {
	if len(values) == 0 {
		return math.NaN(), math.NaN(), math.NaN()
	}
	mean = stat.Mean(values, nil)
	std = math.NaN()
	if len(values) > 1 {
		std = stat.StdDev(values, nil)
	}
	return mean, std, floats.Max(values)
}

// nanMean averages the non-missing values, NaN when there are none.
func nanMean(values []float64) float64 {
	valid := dropNaN(values)
	if len(valid) == 0 {
		return math.NaN()
	}
	return stat.Mean(valid, nil)
}

// round1 rounds to one decimal, halves to even on the scaled value.
func round1(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return math.RoundToEven(v*10) / 10
}

func dropNaN(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
