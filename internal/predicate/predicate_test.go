package predicate

import (
	"testing"

	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
	"github.com/ZanzyTHEbar/modelscore/internal/field"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruthTables(t *testing.T) {
	tests := []struct {
		name string
		a, b Truth
		and  Truth
		or   Truth
		xor  Truth
	}{
		{name: "true true", a: True, b: True, and: True, or: True, xor: False},
		{name: "true false", a: True, b: False, and: False, or: True, xor: True},
		{name: "false false", a: False, b: False, and: False, or: False, xor: False},
		{name: "unknown false", a: Unknown, b: False, and: False, or: Unknown, xor: Unknown},
		{name: "unknown true", a: Unknown, b: True, and: Unknown, or: True, xor: Unknown},
		{name: "unknown unknown", a: Unknown, b: Unknown, and: Unknown, or: Unknown, xor: Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.and, tt.a.And(tt.b))
			assert.Equal(t, tt.and, tt.b.And(tt.a))
			assert.Equal(t, tt.or, tt.a.Or(tt.b))
			assert.Equal(t, tt.or, tt.b.Or(tt.a))
			assert.Equal(t, tt.xor, tt.a.Xor(tt.b))
		})
	}

	assert.Equal(t, False, True.Not())
	assert.Equal(t, True, False.Not())
	assert.Equal(t, Unknown, Unknown.Not())
	assert.False(t, Unknown.IsTrue())
}

func TestSimple(t *testing.T) {
	record := field.Record{
		"age":   field.FromFloat(30),
		"color": field.FromString("red"),
	}

	tests := []struct {
		name      string
		predicate Simple
		expected  Truth
	}{
		{name: "equal", predicate: Simple{Field: "age", Operator: Equal, Value: "30"}, expected: True},
		{name: "not equal", predicate: Simple{Field: "color", Operator: NotEqual, Value: "blue"}, expected: True},
		{name: "less than", predicate: Simple{Field: "age", Operator: LessThan, Value: "30"}, expected: False},
		{name: "less or equal", predicate: Simple{Field: "age", Operator: LessOrEqual, Value: "30"}, expected: True},
		{name: "greater than", predicate: Simple{Field: "age", Operator: GreaterThan, Value: "18.5"}, expected: True},
		{name: "greater or equal", predicate: Simple{Field: "age", Operator: GreaterOrEqual, Value: "31"}, expected: False},
		{name: "missing field is unknown", predicate: Simple{Field: "income", Operator: GreaterThan, Value: "0"}, expected: Unknown},
		{name: "is missing", predicate: Simple{Field: "income", Operator: IsMissing}, expected: True},
		{name: "is not missing", predicate: Simple{Field: "age", Operator: IsNotMissing}, expected: True},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Predicate{Simple: &tt.predicate}
			result, err := p.Evaluate(record)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}

	t.Run("bad literal is a configuration error", func(t *testing.T) {
		p := Predicate{Simple: &Simple{Field: "age", Operator: Equal, Value: "thirty"}}
		_, err := p.Evaluate(record)
		require.Error(t, err)
		assert.True(t, apperrors.IsConfiguration(err))
	})
}

func TestSimpleSet(t *testing.T) {
	record := field.Record{"color": field.FromString("red")}

	in := Predicate{SimpleSet: &SimpleSet{Field: "color", Operator: IsIn, Values: []string{"green", "red"}}}
	result, err := in.Evaluate(record)
	require.NoError(t, err)
	assert.Equal(t, True, result)

	notIn := Predicate{SimpleSet: &SimpleSet{Field: "color", Operator: IsNotIn, Values: []string{"green", "red"}}}
	result, err = notIn.Evaluate(record)
	require.NoError(t, err)
	assert.Equal(t, False, result)

	missing := Predicate{SimpleSet: &SimpleSet{Field: "shape", Operator: IsIn, Values: []string{"round"}}}
	result, err = missing.Evaluate(record)
	require.NoError(t, err)
	assert.Equal(t, Unknown, result)
}

func TestCompound(t *testing.T) {
	record := field.Record{"x": field.FromFloat(1)}

	unknown := Predicate{Simple: &Simple{Field: "y", Operator: Equal, Value: "1"}}
	isOne := Predicate{Simple: &Simple{Field: "x", Operator: Equal, Value: "1"}}

	tests := []struct {
		name     string
		operator BooleanOperator
		children []Predicate
		expected Truth
	}{
		{name: "unknown and false", operator: And, children: []Predicate{unknown, AlwaysFalse()}, expected: False},
		{name: "unknown and true", operator: And, children: []Predicate{unknown, isOne}, expected: Unknown},
		{name: "unknown or true", operator: Or, children: []Predicate{unknown, isOne}, expected: True},
		{name: "unknown or false", operator: Or, children: []Predicate{unknown, AlwaysFalse()}, expected: Unknown},
		{name: "xor", operator: Xor, children: []Predicate{isOne, AlwaysFalse()}, expected: True},
		{name: "surrogate skips unknown", operator: Surrogate, children: []Predicate{unknown, AlwaysFalse(), AlwaysTrue()}, expected: False},
		{name: "surrogate all unknown", operator: Surrogate, children: []Predicate{unknown, unknown}, expected: Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Predicate{Compound: &Compound{Operator: tt.operator, Predicates: tt.children}}
			result, err := p.Evaluate(record)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}

	t.Run("empty predicate", func(t *testing.T) {
		_, err := (&Predicate{}).Evaluate(record)
		assert.Error(t, err)
	})
}
