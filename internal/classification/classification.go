package classification

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
	"github.com/ZanzyTHEbar/modelscore/internal/field"
	"github.com/ZanzyTHEbar/modelscore/internal/value"
)

// Type decides how values of a distribution are compared
type Type string

const (
	Distance    Type = "distance"
	Similarity  Type = "similarity"
	Probability Type = "probability"
	Confidence  Type = "confidence"
	Vote        Type = "vote"
)

// better reports whether a beats b: smaller for distances, larger otherwise
func (t Type) better(a, b interface{ Float64() float64 }) bool {
	if t == Distance {
		return a.Float64() < b.Float64()
	}
	return a.Float64() > b.Float64()
}

// Normalized reports whether values of this type sum to one
func (t Type) Normalized() bool {
	return t == Probability
}

// Ranked is one row of a ranking
type Ranked struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// Distribution is the read-only view downstream output code works with
type Distribution interface {
	Type() Type
	// Result is the materialized prediction, e.g. the winning label
	Result() any
	Keys() []string
	Get(key string) (float64, bool)
	Ranking() []Ranked
	// Winner returns the key behind Result and its value
	Winner() (string, float64, bool)
	// Report returns the audit trail of a value, or nil
	Report(key string) *value.Report
}

// EntityDistribution is a distribution whose winner is an entity
type EntityDistribution interface {
	Distribution
	EntityID() string
}

// Classification is a distribution over target categories
type Classification[V value.Float] struct {
	typ    Type
	values *ValueMap[string, V]
	winner *string
	result any
}

// New creates an empty classification of the given type
func New[V value.Float](t Type) *Classification[V] {
	return &Classification[V]{typ: t, values: NewValueMap[string, V]()}
}

func (c *Classification[V]) Type() Type {
	return c.typ
}

// Values exposes the underlying map for evaluators that build the distribution
func (c *Classification[V]) Values() *ValueMap[string, V] {
	return c.values
}

// Put adds a category; duplicates are rejected
func (c *Classification[V]) Put(key string, v *value.Value[V]) error {
	return c.values.Put(key, v)
}

func (c *Classification[V]) Keys() []string {
	return c.values.Keys()
}

func (c *Classification[V]) Get(key string) (float64, bool) {
	v, ok := c.values.Get(key)
	if !ok {
		return 0, false
	}
	return v.Float64(), true
}

func (c *Classification[V]) Report(key string) *value.Report {
	v, ok := c.values.Get(key)
	if !ok {
		return nil
	}
	return v.Report()
}

// Winner returns the winning key and its value. A key chosen through
// ComputeResultFor takes precedence over the value ordering.
func (c *Classification[V]) Winner() (string, float64, bool) {
	if c.winner != nil {
		v, _ := c.values.Get(*c.winner)
		return *c.winner, v.Float64(), true
	}
	key, v, ok := c.values.Winner(c.typ)
	if !ok {
		return "", 0, false
	}
	return key, v.Float64(), true
}

func (c *Classification[V]) Ranking() []Ranked {
	entries := c.values.Ranking(c.typ)
	ranking := make([]Ranked, len(entries))
	for i, e := range entries {
		ranking[i] = Ranked{Key: e.Key, Value: e.Value.Float64()}
	}
	return ranking
}

// ComputeResult materializes the winner coerced to dataType. An empty data
// type keeps the key as a string.
func (c *Classification[V]) ComputeResult(dataType field.DataType) error {
	key, _, ok := c.values.Winner(c.typ)
	if !ok {
		return apperrors.NewUndefinedResultError("empty distribution has no winner")
	}
	c.winner = nil
	return c.materialize(key, dataType)
}

// ComputeResultFor materializes key as the winner regardless of value order
func (c *Classification[V]) ComputeResultFor(key string, dataType field.DataType) error {
	if _, ok := c.values.Get(key); !ok {
		return apperrors.NewConfigurationError(fmt.Sprintf("unknown winner %q", key), nil)
	}
	c.winner = &key
	return c.materialize(key, dataType)
}

func (c *Classification[V]) materialize(key string, dataType field.DataType) error {
	if dataType == "" {
		c.result = key
		return nil
	}

	v, err := field.NewValue(dataType, field.Categorical, key)
	if err != nil {
		return apperrors.NewConfigurationError("winning key does not match the target type", err)
	}
	c.result = v.Interface()
	return nil
}

func (c *Classification[V]) Result() any {
	return c.result
}

// MarshalJSON renders the result and the per-key values in insertion order
func (c *Classification[V]) MarshalJSON() ([]byte, error) {
	return json.Marshal(Summarize(c))
}

// Summary is the JSON-friendly form of a distribution
type Summary struct {
	Type     Type     `json:"type"`
	Result   any      `json:"result"`
	EntityID string   `json:"entity_id,omitempty"`
	Values   []Ranked `json:"values"`
}

// Summarize renders any distribution in its JSON-friendly form
func Summarize(d Distribution) Summary {
	keys := d.Keys()
	values := make([]Ranked, 0, len(keys))
	for _, k := range keys {
		x, _ := d.Get(k)
		values = append(values, Ranked{Key: k, Value: x})
	}

	s := Summary{Type: d.Type(), Result: d.Result(), Values: values}
	if ed, ok := d.(EntityDistribution); ok {
		s.EntityID = ed.EntityID()
	}
	return s
}
