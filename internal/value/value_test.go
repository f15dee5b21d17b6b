package value

import (
	"math"
	"testing"

	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		build    func() *Value[float64]
		expected float64
	}{
		{
			name:     "add",
			build:    func() *Value[float64] { return New[float64](1).Add(2.5) },
			expected: 3.5,
		},
		{
			name:     "add term multiplies every factor",
			build:    func() *Value[float64] { return New[float64](1).AddTerm(2, 3, 4) },
			expected: 25,
		},
		{
			name:     "add power with unit exponent",
			build:    func() *Value[float64] { return New[float64](0).AddPower(2, 3, 1) },
			expected: 6,
		},
		{
			name:     "add power with square",
			build:    func() *Value[float64] { return New[float64](0).AddPower(2, 3, 2) },
			expected: 18,
		},
		{
			name:     "subtract and multiply",
			build:    func() *Value[float64] { return New[float64](10).Subtract(4).Multiply(0.5) },
			expected: 3,
		},
		{
			name:     "residual",
			build:    func() *Value[float64] { return New[float64](0).Residual(New[float64](0.25)) },
			expected: 0.75,
		},
		{
			name:     "restrict above",
			build:    func() *Value[float64] { return New[float64](1.7).Restrict(0, 1) },
			expected: 1,
		},
		{
			name:     "restrict below",
			build:    func() *Value[float64] { return New[float64](-0.2).Restrict(0, 1) },
			expected: 0,
		},
		{
			name:     "exp then ln",
			build:    func() *Value[float64] { return New[float64](2).Exp().Ln() },
			expected: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, tt.build().Float64(), 1e-12)
		})
	}
}

func TestInverseLinks(t *testing.T) {
	tests := []struct {
		name     string
		apply    func(v *Value[float64]) *Value[float64]
		input    float64
		expected float64
	}{
		{name: "logit at zero", apply: (*Value[float64]).InverseLogit, input: 0, expected: 0.5},
		{name: "logit at one", apply: (*Value[float64]).InverseLogit, input: 1, expected: 0.7310585786300049},
		{name: "probit at zero", apply: (*Value[float64]).InverseProbit, input: 0, expected: 0.5},
		{name: "probit at 1.96", apply: (*Value[float64]).InverseProbit, input: 1.96, expected: 0.9750021048517795},
		{name: "cloglog at zero", apply: (*Value[float64]).InverseCloglog, input: 0, expected: 1 - math.Exp(-1)},
		{name: "loglog at zero", apply: (*Value[float64]).InverseLoglog, input: 0, expected: math.Exp(-1)},
		{name: "cauchit at zero", apply: (*Value[float64]).InverseCauchit, input: 0, expected: 0.5},
		{name: "cauchit at one", apply: (*Value[float64]).InverseCauchit, input: 1, expected: 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, tt.apply(New[float64](tt.input)).Float64(), 1e-10)
		})
	}
}

func TestFloatPrecision(t *testing.T) {
	a, b := float32(0.1), float32(0.2)
	expected := a + b

	v := New[float32](0.1).Add(0.2)
	assert.Equal(t, expected, v.Raw())
	assert.NotEqual(t, 0.1, New[float32](0.1).Float64())

	c, x := float32(1.1), float32(3.3)
	product := c * x
	term := New[float32](0).AddTerm(1.1, 3.3)
	assert.Equal(t, product, term.Raw())
}

func TestDivide(t *testing.T) {
	t.Run("true division", func(t *testing.T) {
		v, err := New[float64](6).Divide(3)
		require.NoError(t, err)
		assert.Equal(t, 2.0, v.Float64())
	})

	t.Run("zero over zero is zero", func(t *testing.T) {
		v, err := New[float64](0).Divide(0)
		require.NoError(t, err)
		assert.Equal(t, 0.0, v.Float64())
	})

	t.Run("nonzero over zero fails", func(t *testing.T) {
		v, err := New[float64](1).Divide(0)
		require.Error(t, err)
		assert.True(t, apperrors.IsCategory(err, apperrors.CategoryArithmetic))
		assert.Equal(t, 1.0, v.Float64())
	})

	t.Run("divide by value", func(t *testing.T) {
		v, err := New[float32](1).DivideValue(New[float32](4))
		require.NoError(t, err)
		assert.Equal(t, float32(0.25), v.Raw())
	})
}

func TestResidualSumsToOne(t *testing.T) {
	for _, p := range []float64{0, 0.1, 0.3333333333333333, 0.5, 0.7, 0.999999, 1} {
		first := New[float64](p)
		second := New[float64](0).Residual(first)
		assert.Equal(t, 1.0, first.Float64()+second.Float64(), "p=%v", p)
	}
}

func TestReporting(t *testing.T) {
	factory := NewFactory[float64](true)

	v := factory.NewValue(1).Add(2)
	require.NotNil(t, v.Report())
	assert.Equal(t, "<math><apply><plus/><cn>1.0</cn><cn>2.0</cn></apply></math>", v.Report().Expression())

	plain := NewFactory[float64](false).NewValue(1).Add(2)
	assert.Nil(t, plain.Report())
	assert.Equal(t, plain.Float64(), v.Float64())

	v.AddTerm(0.5, 4)
	assert.Equal(t,
		"<math><apply><plus/><apply><plus/><cn>1.0</cn><cn>2.0</cn></apply><apply><times/><cn>0.5</cn><cn>4.0</cn></apply></apply></math>",
		v.Report().Expression())
	assert.Equal(t, 5.0, v.Float64())

	v.InverseLogit()
	assert.Contains(t, v.Report().Expression(), "<csymbol>inverseLogit</csymbol>")

	v.Reset(3)
	assert.Equal(t, "<math><cn>3.0</cn></math>", v.Report().Expression())
	assert.Len(t, v.Report().History(), 2)
}

func TestCopyIsIndependent(t *testing.T) {
	original := NewFactory[float64](true).NewValue(1)
	clone := original.Copy().Add(1)

	assert.Equal(t, 1.0, original.Float64())
	assert.Equal(t, 2.0, clone.Float64())
	assert.Equal(t, "<math><cn>1.0</cn></math>", original.Report().Expression())
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "1.0", formatNumber(1))
	assert.Equal(t, "-3.0", formatNumber(-3))
	assert.Equal(t, "0.25", formatNumber(0.25))
	assert.Equal(t, "1e-20", formatNumber(1e-20))
	assert.Equal(t, "NaN", formatNumber(math.NaN()))
}
