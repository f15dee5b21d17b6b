package expression

import (
	"fmt"
	"math"
	"strings"

	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
	"github.com/ZanzyTHEbar/modelscore/internal/field"
	"github.com/ZanzyTHEbar/modelscore/internal/value"
)

type numericFunction struct {
	minArgs, maxArgs int // maxArgs < 0 means variadic
	fn               func(xs []float64) (float64, error)
}

var numericFunctions = map[string]numericFunction{
	"+": {2, 2, func(xs []float64) (float64, error) { return xs[0] + xs[1], nil }},
	"-": {2, 2, func(xs []float64) (float64, error) { return xs[0] - xs[1], nil }},
	"*": {2, 2, func(xs []float64) (float64, error) { return xs[0] * xs[1], nil }},
	"/": {2, 2, func(xs []float64) (float64, error) {
		v, err := value.New[float64](xs[0]).Divide(xs[1])
		if err != nil {
			return 0, err
		}
		return v.Float64(), nil
	}},
	"min": {1, -1, func(xs []float64) (float64, error) { return fold(xs, math.Min), nil }},
	"max": {1, -1, func(xs []float64) (float64, error) { return fold(xs, math.Max), nil }},
	"sum": {1, -1, func(xs []float64) (float64, error) {
		return fold(xs, func(a, b float64) float64 { return a + b }), nil
	}},
	"product": {1, -1, func(xs []float64) (float64, error) {
		return fold(xs, func(a, b float64) float64 { return a * b }), nil
	}},
	"avg":              {1, -1, func(xs []float64) (float64, error) { return value.Mean(xs), nil }},
	"median":           {1, -1, func(xs []float64) (float64, error) { return value.Median(xs), nil }},
	"stddev":           {1, -1, func(xs []float64) (float64, error) { return value.StdDev(xs, false), nil }},
	"stddevPopulation": {1, -1, func(xs []float64) (float64, error) { return value.StdDev(xs, true), nil }},
	// the last argument is the percentile
	"percentile": {2, -1, func(xs []float64) (float64, error) {
		return value.Percentile(xs[:len(xs)-1], xs[len(xs)-1])
	}},
	"log10": {1, 1, unary(math.Log10)},
	"ln":    {1, 1, unary(math.Log)},
	"exp":   {1, 1, unary(math.Exp)},
	"sqrt":  {1, 1, unary(math.Sqrt)},
	"abs":   {1, 1, unary(math.Abs)},
	"floor": {1, 1, unary(math.Floor)},
	"ceil":  {1, 1, unary(math.Ceil)},
	"round": {1, 1, unary(func(x float64) float64 { return math.Floor(x + 0.5) })},
	"pow":   {2, 2, func(xs []float64) (float64, error) { return math.Pow(xs[0], xs[1]), nil }},
	"threshold": {2, 2, func(xs []float64) (float64, error) {
		if xs[0] > xs[1] {
			return 1, nil
		}
		return 0, nil
	}},
}

var comparisons = map[string]func(cmp int) bool{
	"equal":          func(cmp int) bool { return cmp == 0 },
	"notEqual":       func(cmp int) bool { return cmp != 0 },
	"lessThan":       func(cmp int) bool { return cmp < 0 },
	"lessOrEqual":    func(cmp int) bool { return cmp <= 0 },
	"greaterThan":    func(cmp int) bool { return cmp > 0 },
	"greaterOrEqual": func(cmp int) bool { return cmp >= 0 },
}

func unary(fn func(float64) float64) func(xs []float64) (float64, error) {
	return func(xs []float64) (float64, error) { return fn(xs[0]), nil }
}

func fold(xs []float64, fn func(a, b float64) float64) float64 {
	acc := xs[0]
	for _, x := range xs[1:] {
		acc = fn(acc, x)
	}
	return acc
}

func (a *Apply) call(r field.Resolver) (*field.Value, error) {
	switch a.Function {
	case "isMissing", "isNotMissing":
		if err := a.arity(1, 1); err != nil {
			return nil, err
		}
		v, err := a.Arguments[0].Evaluate(r)
		if err != nil {
			return nil, err
		}
		return boolean((v == nil) == (a.Function == "isMissing")), nil
	case "if":
		return a.conditional(r)
	}

	args := make([]*field.Value, len(a.Arguments))
	for i := range a.Arguments {
		v, err := a.Arguments[i].Evaluate(r)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, nil
		}
		args[i] = v
	}

	if cmp, ok := comparisons[a.Function]; ok {
		if err := a.arity(2, 2); err != nil {
			return nil, err
		}
		return boolean(cmp(compare(args[0], args[1]))), nil
	}

	switch a.Function {
	case "and", "or":
		if err := a.arity(2, -1); err != nil {
			return nil, err
		}
		result := a.Function == "and"
		for _, arg := range args {
			if truthy(arg) != result {
				result = !result
				break
			}
		}
		return boolean(result), nil
	case "not":
		if err := a.arity(1, 1); err != nil {
			return nil, err
		}
		return boolean(!truthy(args[0])), nil
	}

	nf, ok := numericFunctions[a.Function]
	if !ok {
		return nil, apperrors.NewUnsupportedError("function", a.Function)
	}
	if err := a.arity(nf.minArgs, nf.maxArgs); err != nil {
		return nil, err
	}

	xs := make([]float64, len(args))
	for i, arg := range args {
		x, err := arg.Float64()
		if err != nil {
			return nil, apperrors.NewConfigurationError(fmt.Sprintf("argument %d of %s is not numeric", i+1, a.Function), err)
		}
		xs[i] = x
	}

	result, err := nf.fn(xs)
	if err != nil {
		return nil, err
	}
	return field.FromFloat(result), nil
}

// conditional evaluates only the selected branch. A missing condition or a
// missing else branch yields missing.
func (a *Apply) conditional(r field.Resolver) (*field.Value, error) {
	if err := a.arity(2, 3); err != nil {
		return nil, err
	}
	cond, err := a.Arguments[0].Evaluate(r)
	if err != nil || cond == nil {
		return nil, err
	}
	if truthy(cond) {
		return a.Arguments[1].Evaluate(r)
	}
	if len(a.Arguments) == 3 {
		return a.Arguments[2].Evaluate(r)
	}
	return nil, nil
}

func (a *Apply) arity(lo, hi int) error {
	n := len(a.Arguments)
	if n < lo || (hi >= 0 && n > hi) {
		return apperrors.NewConfigurationError(fmt.Sprintf("function %s called with %d arguments", a.Function, n), nil)
	}
	return nil
}

func boolean(b bool) *field.Value {
	v, _ := field.NewValue(field.Boolean, field.Categorical, b)
	return v
}

func truthy(v *field.Value) bool {
	x, err := v.Float64()
	if err != nil {
		return strings.EqualFold(v.String(), "true")
	}
	return x != 0
}

// compare orders numerically when both sides are numbers, lexically otherwise
func compare(a, b *field.Value) int {
	x, errA := a.Float64()
	y, errB := b.Float64()
	if errA == nil && errB == nil {
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a.String(), b.String())
}
