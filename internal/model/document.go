package model

import (
	"github.com/ZanzyTHEbar/modelscore/internal/field"
)

// Kind selects the evaluation algorithm of a document
type Kind string

const (
	KindRegression Kind = "regression"
	KindRuleSet    Kind = "ruleSet"
	KindNaiveBayes Kind = "naiveBayes"
	KindScorecard  Kind = "scorecard"
	KindClustering Kind = "clustering"
	KindTimeSeries Kind = "timeSeries"
)

// MathContext selects the precision values are accumulated at
type MathContext string

const (
	MathFloat  MathContext = "float"
	MathDouble MathContext = "double"
)

// Document is a complete model: metadata, fields, target, outputs and exactly
// one model body matching Kind.
type Document struct {
	ID          string             `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string             `json:"name" yaml:"name" validate:"required,max=100"`
	Version     string             `json:"version,omitempty" yaml:"version,omitempty"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	Kind        Kind               `json:"kind" yaml:"kind" validate:"required,oneof=regression ruleSet naiveBayes scorecard clustering timeSeries"`
	MathContext MathContext        `json:"mathContext,omitempty" yaml:"mathContext,omitempty" validate:"omitempty,oneof=float double"`
	DataFields  []field.Definition `json:"dataFields" yaml:"dataFields" validate:"dive"`
	Target      Target             `json:"target" yaml:"target"`
	Output      []OutputField      `json:"output,omitempty" yaml:"output,omitempty" validate:"dive"`

	Regression *RegressionModel `json:"regression,omitempty" yaml:"regression,omitempty"`
	RuleSet    *RuleSetModel    `json:"ruleSet,omitempty" yaml:"ruleSet,omitempty"`
	NaiveBayes *NaiveBayesModel `json:"naiveBayes,omitempty" yaml:"naiveBayes,omitempty"`
	Scorecard  *ScorecardModel  `json:"scorecard,omitempty" yaml:"scorecard,omitempty"`
	Clustering *ClusteringModel `json:"clustering,omitempty" yaml:"clustering,omitempty"`
	TimeSeries *TimeSeriesModel `json:"timeSeries,omitempty" yaml:"timeSeries,omitempty"`
}

// Float reports whether values accumulate at single precision
func (d *Document) Float() bool {
	return d.MathContext == MathFloat
}

// Field returns the definition of a declared field
func (d *Document) Field(name string) (field.Definition, bool) {
	for _, def := range d.DataFields {
		if def.Name == name {
			return def, true
		}
	}
	return field.Definition{}, false
}

// Target describes the predicted field and its post-processing
type Target struct {
	Field    string         `json:"field,omitempty" yaml:"field,omitempty"`
	OpType   field.OpType   `json:"opType,omitempty" yaml:"opType,omitempty" validate:"omitempty,oneof=categorical ordinal continuous"`
	DataType field.DataType `json:"dataType,omitempty" yaml:"dataType,omitempty" validate:"omitempty,oneof=string integer float double boolean"`
	// Values lists the categories in declared order, with optional priors
	Values       []TargetValue `json:"values,omitempty" yaml:"values,omitempty" validate:"dive"`
	DefaultValue *float64      `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`

	Min             *float64    `json:"min,omitempty" yaml:"min,omitempty"`
	Max             *float64    `json:"max,omitempty" yaml:"max,omitempty"`
	RescaleFactor   *float64    `json:"rescaleFactor,omitempty" yaml:"rescaleFactor,omitempty"`
	RescaleConstant float64     `json:"rescaleConstant,omitempty" yaml:"rescaleConstant,omitempty"`
	CastInteger     CastInteger `json:"castInteger,omitempty" yaml:"castInteger,omitempty" validate:"omitempty,oneof=round ceiling floor"`
}

type TargetValue struct {
	Value string   `json:"value" yaml:"value" validate:"required"`
	Prior *float64 `json:"prior,omitempty" yaml:"prior,omitempty" validate:"omitempty,gte=0,lte=1"`
}

type CastInteger string

const (
	CastRound   CastInteger = "round"
	CastCeiling CastInteger = "ceiling"
	CastFloor   CastInteger = "floor"
)

// Categorical reports whether the target is a classification target
func (t *Target) Categorical() bool {
	return t.OpType == field.Categorical || t.OpType == field.Ordinal
}

// Categories returns the declared category labels in order
func (t *Target) Categories() []string {
	categories := make([]string, len(t.Values))
	for i, v := range t.Values {
		categories[i] = v.Value
	}
	return categories
}

// HasPriors reports whether every declared category carries a prior
func (t *Target) HasPriors() bool {
	if len(t.Values) == 0 {
		return false
	}
	for _, v := range t.Values {
		if v.Prior == nil {
			return false
		}
	}
	return true
}

// Feature names what an output field extracts from a result
type Feature string

const (
	FeaturePredictedValue Feature = "predictedValue"
	FeatureProbability    Feature = "probability"
	FeatureAffinity       Feature = "affinity"
	FeatureEntityID       Feature = "entityId"
	FeatureReasonCode     Feature = "reasonCode"
)

// OutputField is a named value derived from the target result
type OutputField struct {
	Name    string  `json:"name" yaml:"name" validate:"required"`
	Feature Feature `json:"feature" yaml:"feature" validate:"required,oneof=predictedValue probability affinity entityId reasonCode"`
	// Value selects the category or entity for probability and affinity
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
	// Rank is the 1-based reason code rank
	Rank int `json:"rank,omitempty" yaml:"rank,omitempty" validate:"gte=0"`
}
