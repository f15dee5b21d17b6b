package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMedian(t *testing.T) {
	tests := []struct {
		name     string
		input    []float64
		expected float64
	}{
		{name: "single element", input: []float64{5.0}, expected: 5.0},
		{name: "odd length", input: []float64{1, 3, 5, 7, 9}, expected: 5.0},
		{name: "even length", input: []float64{1, 2, 3, 4}, expected: 2.5},
		{name: "unsorted", input: []float64{9, 1, 7, 3, 5}, expected: 5.0},
		{name: "negative numbers", input: []float64{-5, -1, 0, 3, 7}, expected: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Median(tt.input))
		})
	}

	t.Run("empty sample", func(t *testing.T) {
		assert.True(t, math.IsNaN(Median(nil)))
	})

	t.Run("input untouched", func(t *testing.T) {
		input := []float64{3, 1, 2}
		Median(input)
		assert.Equal(t, []float64{3, 1, 2}, input)
	})
}

func TestStdDev(t *testing.T) {
	sample := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	tests := []struct {
		name     string
		input    []float64
		biased   bool
		expected float64
	}{
		{name: "population", input: sample, biased: true, expected: 2.0},
		{name: "bias corrected", input: sample, biased: false, expected: math.Sqrt(32.0 / 7.0)},
		{name: "single sample corrected", input: []float64{3}, biased: false, expected: 0},
		{name: "single sample population", input: []float64{3}, biased: true, expected: 0},
		{name: "empty", input: nil, biased: true, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, StdDev(tt.input, tt.biased), 1e-8)
		})
	}

	assert.InDelta(t, 2.138, StdDev(sample, false), 1e-3)
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name     string
		input    []float64
		p        float64
		expected float64
	}{
		{name: "median of four", input: []float64{1, 2, 3, 4}, p: 50, expected: 2.5},
		{name: "unsorted input", input: []float64{4, 1, 3, 2}, p: 50, expected: 2.5},
		{name: "low percentile clamps to minimum", input: []float64{1, 2, 3, 4}, p: 10, expected: 1},
		{name: "high percentile clamps to maximum", input: []float64{1, 2, 3, 4}, p: 100, expected: 4},
		{name: "interpolates", input: []float64{10, 20, 30, 40}, p: 25, expected: 12.5},
		{name: "single value", input: []float64{7}, p: 90, expected: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Percentile(tt.input, tt.p)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, result, 1e-12)
		})
	}

	t.Run("rejects out of range", func(t *testing.T) {
		_, err := Percentile([]float64{1}, 0)
		assert.Error(t, err)
		_, err = Percentile([]float64{1}, 101)
		assert.Error(t, err)
	})

	t.Run("rejects empty sample", func(t *testing.T) {
		_, err := Percentile(nil, 50)
		assert.Error(t, err)
	})
}

func TestMean(t *testing.T) {
	assert.Equal(t, 5.0, Mean([]float64{2, 4, 4, 4, 5, 5, 7, 9}))
	assert.True(t, math.IsNaN(Mean(nil)))
}
