package value

import (
	"math"
	"sort"

	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean, or NaN for an empty sample
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return stat.Mean(xs, nil)
}

// Median returns the middle value, averaging the two central values of an
// even-length sample. The input is not modified.
func Median(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	cp := append([]float64(nil), xs...)
	sort.Float64s(cp)
	mid := len(cp) / 2
	if len(cp)%2 == 1 {
		return cp[mid]
	}
	return 0.5 * (cp[mid-1] + cp[mid])
}

// StdDev returns the population standard deviation when biased is set, and
// the bias-corrected sample standard deviation otherwise. Samples too small
// for the chosen estimator yield zero.
func StdDev(xs []float64, biased bool) float64 {
	if biased {
		if len(xs) == 0 {
			return 0
		}
		return stat.PopStdDev(xs, nil)
	}
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}

// Percentile estimates the p-th percentile, 0 < p <= 100, at position
// p*(n+1)/100 with linear interpolation between neighbours.
func Percentile(xs []float64, p float64) (float64, error) {
	if p <= 0 || p > 100 {
		return 0, apperrors.NewValidationError("percentile must be in (0, 100]", p)
	}
	if len(xs) == 0 {
		return 0, apperrors.NewValidationError("percentile of an empty sample")
	}

	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	n := len(sorted)
	if n == 1 {
		return sorted[0], nil
	}

	pos := p * float64(n+1) / 100
	if pos < 1 {
		return sorted[0], nil
	}
	if pos >= float64(n) {
		return sorted[n-1], nil
	}

	lowerPos := math.Floor(pos)
	lower := sorted[int(lowerPos)-1]
	upper := sorted[int(lowerPos)]
	return lower + (pos-lowerPos)*(upper-lower), nil
}
