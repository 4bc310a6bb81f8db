package simstats

import (
	"math"
	"sort"
)

// Describe holds the same descriptive statistics pandas' Series.describe()
// reports, matching the dtime_* columns queuesim.py writes to its session
// CSV.
type Describe struct {
	Count float64
	Mean  float64
	Std   float64
	Min   float64
	P25   float64
	P50   float64
	P75   float64
	Max   float64
}

// Summarize computes Describe over values. An empty slice yields all-NaN
// fields except Count, matching pandas' behavior on an empty Series.
func Summarize(values []float64) Describe {
	n := len(values)
	if n == 0 {
		return Describe{Count: 0, Mean: math.NaN(), Std: math.NaN(), Min: math.NaN(), P25: math.NaN(), P50: math.NaN(), P75: math.NaN(), Max: math.NaN()}
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(n)

	var variance float64
	if n > 1 {
		var sq float64
		for _, v := range sorted {
			d := v - mean
			sq += d * d
		}
		variance = sq / float64(n-1) // sample std, matching pandas' default ddof=1
	}

	return Describe{
		Count: float64(n),
		Mean:  mean,
		Std:   math.Sqrt(variance),
		Min:   sorted[0],
		P25:   percentile(sorted, 0.25),
		P50:   percentile(sorted, 0.50),
		P75:   percentile(sorted, 0.75),
		Max:   sorted[n-1],
	}
}

// percentile computes the linear-interpolation percentile pandas uses by
// default (numpy's "linear" method) over an already-sorted slice.
func percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
