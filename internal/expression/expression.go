package expression

import (
	"fmt"

	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
	"github.com/ZanzyTHEbar/modelscore/internal/field"
)

// Expression is a tagged variant; exactly one member is set.
type Expression struct {
	Constant *Constant `json:"constant,omitempty" yaml:"constant,omitempty"`
	FieldRef *FieldRef `json:"fieldRef,omitempty" yaml:"fieldRef,omitempty"`
	Apply    *Apply    `json:"apply,omitempty" yaml:"apply,omitempty"`
}

// Constant is a literal; DataType defaults to double. Missing marks the
// literal as a missing value.
type Constant struct {
	Value    string         `json:"value" yaml:"value"`
	DataType field.DataType `json:"dataType,omitempty" yaml:"dataType,omitempty"`
	Missing  bool           `json:"missing,omitempty" yaml:"missing,omitempty"`
}

type FieldRef struct {
	Field        string  `json:"field" yaml:"field" validate:"required"`
	MapMissingTo *string `json:"mapMissingTo,omitempty" yaml:"mapMissingTo,omitempty"`
}

// Apply calls a built-in function. MapMissingTo replaces a missing result.
type Apply struct {
	Function     string       `json:"function" yaml:"function" validate:"required"`
	Arguments    []Expression `json:"arguments" yaml:"arguments"`
	MapMissingTo *string      `json:"mapMissingTo,omitempty" yaml:"mapMissingTo,omitempty"`
}

// Evaluate computes e against r. A nil value with a nil error means missing.
func (e *Expression) Evaluate(r field.Resolver) (*field.Value, error) {
	switch {
	case e.Constant != nil:
		return e.Constant.evaluate()
	case e.FieldRef != nil:
		v := r.Resolve(e.FieldRef.Field)
		if v == nil && e.FieldRef.MapMissingTo != nil {
			return literal(*e.FieldRef.MapMissingTo)
		}
		return v, nil
	case e.Apply != nil:
		return e.Apply.evaluate(r)
	default:
		return nil, apperrors.NewConfigurationError("expression has no variant set", nil)
	}
}

// Number evaluates e and converts the result to float64. ok is false when the
// result is missing.
func (e *Expression) Number(r field.Resolver) (x float64, ok bool, err error) {
	v, err := e.Evaluate(r)
	if err != nil || v == nil {
		return 0, false, err
	}
	x, err = v.Float64()
	if err != nil {
		return 0, false, apperrors.NewConfigurationError("expression result is not numeric", err)
	}
	return x, true, nil
}

func (c *Constant) evaluate() (*field.Value, error) {
	if c.Missing {
		return nil, nil
	}
	dataType := c.DataType
	if dataType == "" {
		dataType = field.Double
	}
	opType := field.Continuous
	if !dataType.Numeric() {
		opType = field.Categorical
	}
	v, err := field.NewValue(dataType, opType, c.Value)
	if err != nil {
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("invalid constant %q", c.Value), err)
	}
	return v, nil
}

func (a *Apply) evaluate(r field.Resolver) (*field.Value, error) {
	v, err := a.call(r)
	if err != nil {
		return nil, err
	}
	if v == nil && a.MapMissingTo != nil {
		return literal(*a.MapMissingTo)
	}
	return v, nil
}

// literal parses a replacement for a missing value: numeric when possible
func literal(s string) (*field.Value, error) {
	if v, err := field.NewValue(field.Double, field.Continuous, s); err == nil {
		return v, nil
	}
	return field.FromString(s), nil
}
