package predicate

import (
	"slices"

	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
	"github.com/ZanzyTHEbar/modelscore/internal/field"
)

// Operator is a simple predicate comparison
type Operator string

const (
	Equal          Operator = "equal"
	NotEqual       Operator = "notEqual"
	LessThan       Operator = "lessThan"
	LessOrEqual    Operator = "lessOrEqual"
	GreaterThan    Operator = "greaterThan"
	GreaterOrEqual Operator = "greaterOrEqual"
	IsMissing      Operator = "isMissing"
	IsNotMissing   Operator = "isNotMissing"
)

// SetOperator is a set membership test
type SetOperator string

const (
	IsIn    SetOperator = "isIn"
	IsNotIn SetOperator = "isNotIn"
)

// BooleanOperator combines compound predicate children
type BooleanOperator string

const (
	And       BooleanOperator = "and"
	Or        BooleanOperator = "or"
	Xor       BooleanOperator = "xor"
	Surrogate BooleanOperator = "surrogate"
)

// Predicate is a tagged variant; exactly one member is set.
type Predicate struct {
	Simple    *Simple    `json:"simple,omitempty" yaml:"simple,omitempty"`
	SimpleSet *SimpleSet `json:"simpleSet,omitempty" yaml:"simpleSet,omitempty"`
	Compound  *Compound  `json:"compound,omitempty" yaml:"compound,omitempty"`
	// Constant models the always-true and always-false predicates
	Constant *bool `json:"constant,omitempty" yaml:"constant,omitempty"`
}

type Simple struct {
	Field    string   `json:"field" yaml:"field" validate:"required"`
	Operator Operator `json:"operator" yaml:"operator" validate:"required,oneof=equal notEqual lessThan lessOrEqual greaterThan greaterOrEqual isMissing isNotMissing"`
	Value    string   `json:"value,omitempty" yaml:"value,omitempty"`
}

type SimpleSet struct {
	Field    string      `json:"field" yaml:"field" validate:"required"`
	Operator SetOperator `json:"operator" yaml:"operator" validate:"required,oneof=isIn isNotIn"`
	Values   []string    `json:"values" yaml:"values"`
}

type Compound struct {
	Operator   BooleanOperator `json:"operator" yaml:"operator" validate:"required,oneof=and or xor surrogate"`
	Predicates []Predicate     `json:"predicates" yaml:"predicates" validate:"min=2,dive"`
}

// AlwaysTrue returns the constant true predicate
func AlwaysTrue() Predicate {
	t := true
	return Predicate{Constant: &t}
}

// AlwaysFalse returns the constant false predicate
func AlwaysFalse() Predicate {
	f := false
	return Predicate{Constant: &f}
}

// Evaluate computes the truth value of p against r. Errors are configuration
// errors, e.g. a literal that does not parse as the field's type.
func (p *Predicate) Evaluate(r field.Resolver) (Truth, error) {
	switch {
	case p.Simple != nil:
		return p.Simple.Evaluate(r)
	case p.SimpleSet != nil:
		return p.SimpleSet.Evaluate(r), nil
	case p.Compound != nil:
		return p.Compound.Evaluate(r)
	case p.Constant != nil:
		return Of(*p.Constant), nil
	default:
		return Unknown, apperrors.NewConfigurationError("predicate has no variant set", nil)
	}
}

func (s *Simple) Evaluate(r field.Resolver) (Truth, error) {
	v := r.Resolve(s.Field)

	switch s.Operator {
	case IsMissing:
		return Of(v == nil), nil
	case IsNotMissing:
		return Of(v != nil), nil
	}

	if v == nil {
		return Unknown, nil
	}

	cmp, err := v.CompareTo(s.Value)
	if err != nil {
		return Unknown, apperrors.NewConfigurationError("predicate value does not match field type", err)
	}

	switch s.Operator {
	case Equal:
		return Of(cmp == 0), nil
	case NotEqual:
		return Of(cmp != 0), nil
	case LessThan:
		return Of(cmp < 0), nil
	case LessOrEqual:
		return Of(cmp <= 0), nil
	case GreaterThan:
		return Of(cmp > 0), nil
	case GreaterOrEqual:
		return Of(cmp >= 0), nil
	default:
		return Unknown, apperrors.NewUnsupportedError("simple predicate operator", s.Operator)
	}
}

func (s *SimpleSet) Evaluate(r field.Resolver) Truth {
	v := r.Resolve(s.Field)
	if v == nil {
		return Unknown
	}

	member := slices.ContainsFunc(s.Values, v.Equals)
	if s.Operator == IsNotIn {
		return Of(!member)
	}
	return Of(member)
}

func (c *Compound) Evaluate(r field.Resolver) (Truth, error) {
	if len(c.Predicates) == 0 {
		return Unknown, apperrors.NewConfigurationError("compound predicate has no children", nil)
	}

	if c.Operator == Surrogate {
		for i := range c.Predicates {
			t, err := c.Predicates[i].Evaluate(r)
			if err != nil {
				return Unknown, err
			}
			if t != Unknown {
				return t, nil
			}
		}
		return Unknown, nil
	}

	result, err := c.Predicates[0].Evaluate(r)
	if err != nil {
		return Unknown, err
	}

	for i := 1; i < len(c.Predicates); i++ {
		// short circuit once the outcome can no longer change
		if (c.Operator == And && result == False) || (c.Operator == Or && result == True) {
			break
		}

		t, err := c.Predicates[i].Evaluate(r)
		if err != nil {
			return Unknown, err
		}

		switch c.Operator {
		case And:
			result = result.And(t)
		case Or:
			result = result.Or(t)
		case Xor:
			result = result.Xor(t)
		default:
			return Unknown, apperrors.NewUnsupportedError("boolean operator", c.Operator)
		}
	}

	return result, nil
}
