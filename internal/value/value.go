package value

import (
	"fmt"
	"math"

	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
	"gonum.org/v1/gonum/stat/distuv"
)

// Float is the precision class of a Value.
type Float interface {
	~float32 | ~float64
}

// Value is a mutable numeric accumulator. Every primitive operation is carried
// out at the width of V; explicit conversions keep float32 results from being
// widened or fused.
type Value[V Float] struct {
	value  V
	report *Report
}

// New creates a value seeded with x
func New[V Float](x float64) *Value[V] {
	return &Value[V]{value: V(x)}
}

// Raw returns the accumulator at its native precision
func (v *Value[V]) Raw() V {
	return v.value
}

// Float64 returns the accumulator widened to float64
func (v *Value[V]) Float64() float64 {
	return float64(v.value)
}

// Report returns the audit trail, or nil when reporting is off
func (v *Value[V]) Report() *Report {
	return v.report
}

// Copy returns an independent value with the same state
func (v *Value[V]) Copy() *Value[V] {
	return &Value[V]{value: v.value, report: v.report.clone()}
}

// Reset discards the accumulated value and starts over from x.
func (v *Value[V]) Reset(x float64) *Value[V] {
	v.value = V(x)
	if v.report != nil {
		v.report.restart(cn(x))
	}
	return v
}

// Add adds x
func (v *Value[V]) Add(x float64) *Value[V] {
	v.value += V(x)
	v.trace(func(cur string) string { return apply("plus", cur, cn(x)) })
	return v
}

// AddValue adds another value of the same precision
func (v *Value[V]) AddValue(other *Value[V]) *Value[V] {
	v.value += other.value
	v.trace(func(cur string) string { return apply("plus", cur, other.expression()) })
	return v
}

// AddTerm adds coefficient * factors[0] * factors[1] * ...
func (v *Value[V]) AddTerm(coefficient float64, factors ...float64) *Value[V] {
	term := V(coefficient)
	for _, factor := range factors {
		term = V(term * V(factor))
	}
	v.value += term

	v.trace(func(cur string) string {
		args := make([]string, 0, len(factors)+1)
		args = append(args, cn(coefficient))
		for _, factor := range factors {
			args = append(args, cn(factor))
		}
		return apply("plus", cur, apply("times", args...))
	})
	return v
}

// AddPower adds coefficient * x^exponent. A unit exponent skips math.Pow.
func (v *Value[V]) AddPower(coefficient, x, exponent float64) *Value[V] {
	if exponent == 1 {
		return v.AddTerm(coefficient, x)
	}

	power := V(math.Pow(float64(V(x)), exponent))
	v.value += V(V(coefficient) * power)

	v.trace(func(cur string) string {
		return apply("plus", cur, apply("times", cn(coefficient), apply("power", cn(x), cn(exponent))))
	})
	return v
}

// Subtract subtracts x
func (v *Value[V]) Subtract(x float64) *Value[V] {
	v.value -= V(x)
	v.trace(func(cur string) string { return apply("minus", cur, cn(x)) })
	return v
}

// SubtractValue subtracts another value of the same precision
func (v *Value[V]) SubtractValue(other *Value[V]) *Value[V] {
	v.value -= other.value
	v.trace(func(cur string) string { return apply("minus", cur, other.expression()) })
	return v
}

// Multiply multiplies by x
func (v *Value[V]) Multiply(x float64) *Value[V] {
	v.value *= V(x)
	v.trace(func(cur string) string { return apply("times", cur, cn(x)) })
	return v
}

// Divide divides by x. Zero over zero yields zero; any other division by zero
// is an arithmetic error and leaves the value untouched.
func (v *Value[V]) Divide(x float64) (*Value[V], error) {
	return v.divide(V(x), func() string { return cn(x) })
}

// DivideValue divides by another value of the same precision
func (v *Value[V]) DivideValue(other *Value[V]) (*Value[V], error) {
	return v.divide(other.value, other.expression)
}

func (v *Value[V]) divide(denominator V, operand func() string) (*Value[V], error) {
	if denominator == 0 {
		if v.value != 0 {
			return v, apperrors.NewArithmeticError(fmt.Sprintf("division of %v by zero", v.value))
		}
		v.trace(func(cur string) string { return apply("divide", cur, operand()) })
		return v, nil
	}

	v.value /= denominator
	v.trace(func(cur string) string { return apply("divide", cur, operand()) })
	return v, nil
}

// Residual sets the value to 1 - sum
func (v *Value[V]) Residual(sum *Value[V]) *Value[V] {
	v.value = V(1) - sum.value
	v.trace(func(string) string { return apply("minus", cn(1), sum.expression()) })
	return v
}

// Restrict clamps the value to [lo, hi]
func (v *Value[V]) Restrict(lo, hi float64) *Value[V] {
	v.value = max(V(lo), min(v.value, V(hi)))
	v.trace(func(cur string) string { return apply("max", cn(lo), apply("min", cur, cn(hi))) })
	return v
}

// Exp replaces the value with e^value
func (v *Value[V]) Exp() *Value[V] {
	return v.transform("exp", math.Exp)
}

// Ln replaces the value with its natural logarithm
func (v *Value[V]) Ln() *Value[V] {
	return v.transform("ln", math.Log)
}

// InverseLogit applies 1 / (1 + e^-x)
func (v *Value[V]) InverseLogit() *Value[V] {
	return v.transform("inverseLogit", func(x float64) float64 {
		return 1 / (1 + math.Exp(-x))
	})
}

// InverseProbit applies the standard normal CDF
func (v *Value[V]) InverseProbit() *Value[V] {
	return v.transform("inverseProbit", distuv.UnitNormal.CDF)
}

// InverseCloglog applies 1 - e^(-e^x)
func (v *Value[V]) InverseCloglog() *Value[V] {
	return v.transform("inverseCloglog", func(x float64) float64 {
		return 1 - math.Exp(-math.Exp(x))
	})
}

// InverseLoglog applies e^(-e^-x)
func (v *Value[V]) InverseLoglog() *Value[V] {
	return v.transform("inverseLoglog", func(x float64) float64 {
		return math.Exp(-math.Exp(-x))
	})
}

// InverseCauchit applies 0.5 + atan(x) / pi
func (v *Value[V]) InverseCauchit() *Value[V] {
	return v.transform("inverseCauchit", func(x float64) float64 {
		return 0.5 + math.Atan(x)/math.Pi
	})
}

// Power raises the value to exponent
func (v *Value[V]) Power(exponent float64) *Value[V] {
	v.value = V(math.Pow(float64(v.value), exponent))
	v.trace(func(cur string) string { return apply("power", cur, cn(exponent)) })
	return v
}

// Round rounds half away from zero
func (v *Value[V]) Round() *Value[V] {
	return v.transform("round", math.Round)
}

// Floor rounds toward negative infinity
func (v *Value[V]) Floor() *Value[V] {
	return v.transform("floor", math.Floor)
}

// Ceiling rounds toward positive infinity
func (v *Value[V]) Ceiling() *Value[V] {
	return v.transform("ceiling", math.Ceil)
}

func (v *Value[V]) transform(name string, fn func(float64) float64) *Value[V] {
	v.value = V(fn(float64(v.value)))
	v.trace(func(cur string) string { return apply(name, cur) })
	return v
}

// Compare returns -1, 0 or +1 comparing v to other
func (v *Value[V]) Compare(other *Value[V]) int {
	switch {
	case v.value < other.value:
		return -1
	case v.value > other.value:
		return 1
	default:
		return 0
	}
}

// Equals reports whether v holds exactly x at its precision
func (v *Value[V]) Equals(x float64) bool {
	return v.value == V(x)
}

func (v *Value[V]) String() string {
	return fmt.Sprint(v.value)
}

func (v *Value[V]) trace(step func(cur string) string) {
	if v.report == nil {
		return
	}
	v.report.update(step)
}

func (v *Value[V]) expression() string {
	if v.report == nil {
		return cn(float64(v.value))
	}
	return v.report.current()
}

// Factory creates values of one precision, optionally with audit trails
type Factory[V Float] struct {
	reporting bool
}

// NewFactory creates a value factory
func NewFactory[V Float](reporting bool) Factory[V] {
	return Factory[V]{reporting: reporting}
}

// Reporting reports whether created values carry an audit trail
func (f Factory[V]) Reporting() bool {
	return f.reporting
}

// NewValue creates a value seeded with x
func (f Factory[V]) NewValue(x float64) *Value[V] {
	v := New[V](x)
	if f.reporting {
		v.report = newReport(cn(x))
	}
	return v
}

// Zero creates a zero value
func (f Factory[V]) Zero() *Value[V] {
	return f.NewValue(0)
}
