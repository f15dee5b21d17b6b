package model

import (
	"github.com/ZanzyTHEbar/modelscore/internal/expression"
	"github.com/ZanzyTHEbar/modelscore/internal/predicate"
)

// Normalization turns raw regression values into predictions or probabilities
type Normalization string

const (
	NormNone      Normalization = "none"
	NormSimpleMax Normalization = "simplemax"
	NormSoftMax   Normalization = "softmax"
	NormLogit     Normalization = "logit"
	NormProbit    Normalization = "probit"
	NormCloglog   Normalization = "cloglog"
	NormExp       Normalization = "exp"
	NormLoglog    Normalization = "loglog"
	NormCauchit   Normalization = "cauchit"
)

type RegressionModel struct {
	Normalization Normalization     `json:"normalization,omitempty" yaml:"normalization,omitempty" validate:"omitempty,oneof=none simplemax softmax logit probit cloglog exp loglog cauchit"`
	Tables        []RegressionTable `json:"tables" yaml:"tables" validate:"min=1,dive"`
}

type RegressionTable struct {
	Intercept             float64                `json:"intercept" yaml:"intercept"`
	TargetCategory        string                 `json:"targetCategory,omitempty" yaml:"targetCategory,omitempty"`
	NumericPredictors     []NumericPredictor     `json:"numericPredictors,omitempty" yaml:"numericPredictors,omitempty" validate:"dive"`
	CategoricalPredictors []CategoricalPredictor `json:"categoricalPredictors,omitempty" yaml:"categoricalPredictors,omitempty" validate:"dive"`
	PredictorTerms        []PredictorTerm        `json:"predictorTerms,omitempty" yaml:"predictorTerms,omitempty" validate:"dive"`
}

// Default reports whether the table has no predictors and a zero intercept
func (t *RegressionTable) Default() bool {
	return t.Intercept == 0 && len(t.NumericPredictors) == 0 &&
		len(t.CategoricalPredictors) == 0 && len(t.PredictorTerms) == 0
}

type NumericPredictor struct {
	Field       string  `json:"field" yaml:"field" validate:"required"`
	Exponent    *int    `json:"exponent,omitempty" yaml:"exponent,omitempty"`
	Coefficient float64 `json:"coefficient" yaml:"coefficient"`
}

// ExponentOrDefault returns the declared exponent, 1 when absent
func (p *NumericPredictor) ExponentOrDefault() int {
	if p.Exponent == nil {
		return 1
	}
	return *p.Exponent
}

type CategoricalPredictor struct {
	Field       string  `json:"field" yaml:"field" validate:"required"`
	Value       string  `json:"value" yaml:"value"`
	Coefficient float64 `json:"coefficient" yaml:"coefficient"`
}

// PredictorTerm is an interaction: coefficient times the product of fields
type PredictorTerm struct {
	Name        string   `json:"name,omitempty" yaml:"name,omitempty"`
	Fields      []string `json:"fields" yaml:"fields" validate:"min=1"`
	Coefficient float64  `json:"coefficient" yaml:"coefficient"`
}

type Criterion string

const (
	FirstHit    Criterion = "firstHit"
	WeightedMax Criterion = "weightedMax"
	WeightedSum Criterion = "weightedSum"
)

type RuleSetModel struct {
	DefaultScore      *string  `json:"defaultScore,omitempty" yaml:"defaultScore,omitempty"`
	DefaultConfidence *float64 `json:"defaultConfidence,omitempty" yaml:"defaultConfidence,omitempty"`
	// Only the first criterion decides; the rest are informational
	Criteria []Criterion `json:"criteria" yaml:"criteria" validate:"min=1,dive,oneof=firstHit weightedMax weightedSum"`
	Rules    []Rule      `json:"rules" yaml:"rules" validate:"dive"`
}

// Rule is simple when Rules is empty and compound otherwise. A compound rule
// only descends into its children when its own predicate holds.
type Rule struct {
	ID         string              `json:"id,omitempty" yaml:"id,omitempty"`
	Predicate  predicate.Predicate `json:"predicate" yaml:"predicate"`
	Score      string              `json:"score,omitempty" yaml:"score,omitempty"`
	Confidence *float64            `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Weight     *float64            `json:"weight,omitempty" yaml:"weight,omitempty"`
	Rules      []Rule              `json:"rules,omitempty" yaml:"rules,omitempty" validate:"dive"`
}

func (r *Rule) Compound() bool {
	return len(r.Rules) > 0
}

// ConfidenceOrDefault returns the declared confidence, 1 when absent
func (r *Rule) ConfidenceOrDefault() float64 {
	if r.Confidence == nil {
		return 1
	}
	return *r.Confidence
}

// WeightOrDefault returns the declared weight, 1 when absent
func (r *Rule) WeightOrDefault() float64 {
	if r.Weight == nil {
		return 1
	}
	return *r.Weight
}

type NaiveBayesModel struct {
	Threshold float64       `json:"threshold" yaml:"threshold" validate:"gt=0"`
	Inputs    []BayesInput  `json:"inputs" yaml:"inputs" validate:"dive"`
	Output    []TargetCount `json:"output" yaml:"output" validate:"min=1,dive"`
}

// BayesInput holds either discrete pair counts or continuous per-category
// distributions for one field.
type BayesInput struct {
	Field      string       `json:"field" yaml:"field" validate:"required"`
	PairCounts []PairCount  `json:"pairCounts,omitempty" yaml:"pairCounts,omitempty" validate:"dive"`
	Stats      []TargetStat `json:"stats,omitempty" yaml:"stats,omitempty" validate:"dive"`
}

type PairCount struct {
	Value  string        `json:"value" yaml:"value"`
	Counts []TargetCount `json:"counts" yaml:"counts" validate:"dive"`
}

type TargetCount struct {
	Category string  `json:"category" yaml:"category" validate:"required"`
	Count    float64 `json:"count" yaml:"count" validate:"gte=0"`
}

type DistributionKind string

const (
	Gaussian DistributionKind = "gaussian"
	Poisson  DistributionKind = "poisson"
)

type TargetStat struct {
	Category     string       `json:"category" yaml:"category" validate:"required"`
	Distribution Distribution `json:"distribution" yaml:"distribution"`
}

// Distribution is a continuous likelihood. Mean doubles as the Poisson rate.
type Distribution struct {
	Kind     DistributionKind `json:"kind" yaml:"kind" validate:"required"`
	Mean     float64          `json:"mean" yaml:"mean"`
	Variance float64          `json:"variance,omitempty" yaml:"variance,omitempty" validate:"gte=0"`
}

type ReasonCodeAlgorithm string

const (
	PointsAbove ReasonCodeAlgorithm = "pointsAbove"
	PointsBelow ReasonCodeAlgorithm = "pointsBelow"
)

type ScorecardModel struct {
	InitialScore        float64             `json:"initialScore" yaml:"initialScore"`
	UseReasonCodes      *bool               `json:"useReasonCodes,omitempty" yaml:"useReasonCodes,omitempty"`
	ReasonCodeAlgorithm ReasonCodeAlgorithm `json:"reasonCodeAlgorithm,omitempty" yaml:"reasonCodeAlgorithm,omitempty" validate:"omitempty,oneof=pointsAbove pointsBelow"`
	BaselineScore       *float64            `json:"baselineScore,omitempty" yaml:"baselineScore,omitempty"`
	Characteristics     []Characteristic    `json:"characteristics" yaml:"characteristics" validate:"min=1,dive"`
}

// ReasonCodes reports whether reason codes are tracked; the default is on
func (s *ScorecardModel) ReasonCodes() bool {
	return s.UseReasonCodes == nil || *s.UseReasonCodes
}

type Characteristic struct {
	Name          string      `json:"name" yaml:"name" validate:"required"`
	ReasonCode    string      `json:"reasonCode,omitempty" yaml:"reasonCode,omitempty"`
	BaselineScore *float64    `json:"baselineScore,omitempty" yaml:"baselineScore,omitempty"`
	Attributes    []Attribute `json:"attributes" yaml:"attributes" validate:"min=1,dive"`
}

// Attribute contributes PartialScore, or ComputedScore when set
type Attribute struct {
	Predicate     predicate.Predicate    `json:"predicate" yaml:"predicate"`
	PartialScore  float64                `json:"partialScore,omitempty" yaml:"partialScore,omitempty"`
	ComputedScore *expression.Expression `json:"computedScore,omitempty" yaml:"computedScore,omitempty"`
	ReasonCode    string                 `json:"reasonCode,omitempty" yaml:"reasonCode,omitempty"`
}

type MeasureKind string

const (
	MeasureDistance   MeasureKind = "distance"
	MeasureSimilarity MeasureKind = "similarity"
)

type Metric string

const (
	Euclidean        Metric = "euclidean"
	SquaredEuclidean Metric = "squaredEuclidean"
	CityBlock        Metric = "cityBlock"
	Chebychev        Metric = "chebychev"
	Minkowski        Metric = "minkowski"
	SimpleMatching   Metric = "simpleMatching"
	Jaccard          Metric = "jaccard"
	Tanimoto         Metric = "tanimoto"
	BinarySimilarity Metric = "binarySimilarity"
)

type CompareFunction string

const (
	AbsDiff  CompareFunction = "absDiff"
	GaussSim CompareFunction = "gaussSim"
	Delta    CompareFunction = "delta"
	Equal    CompareFunction = "equal"
)

type ClusteringModel struct {
	Measure Measure           `json:"measure" yaml:"measure"`
	Fields  []ClusteringField `json:"fields" yaml:"fields" validate:"min=1,dive"`
	// MissingValueWeights adjusts distances when inputs are missing; defaults to the field weights
	MissingValueWeights []float64 `json:"missingValueWeights,omitempty" yaml:"missingValueWeights,omitempty"`
	Clusters            []Cluster `json:"clusters" yaml:"clusters" validate:"min=1,dive"`
}

type Measure struct {
	Kind            MeasureKind     `json:"kind" yaml:"kind" validate:"required,oneof=distance similarity"`
	Metric          Metric          `json:"metric" yaml:"metric" validate:"required"`
	CompareFunction CompareFunction `json:"compareFunction,omitempty" yaml:"compareFunction,omitempty" validate:"omitempty,oneof=absDiff gaussSim delta equal"`
	// P is the Minkowski exponent
	P float64 `json:"p,omitempty" yaml:"p,omitempty"`
	// Binary holds the binarySimilarity parameters
	Binary *BinaryParameters `json:"binary,omitempty" yaml:"binary,omitempty"`
}

type BinaryParameters struct {
	C00 float64 `json:"c00" yaml:"c00"`
	C01 float64 `json:"c01" yaml:"c01"`
	C10 float64 `json:"c10" yaml:"c10"`
	C11 float64 `json:"c11" yaml:"c11"`
	D00 float64 `json:"d00" yaml:"d00"`
	D01 float64 `json:"d01" yaml:"d01"`
	D10 float64 `json:"d10" yaml:"d10"`
	D11 float64 `json:"d11" yaml:"d11"`
}

type ClusteringField struct {
	Field           string          `json:"field" yaml:"field" validate:"required"`
	Weight          *float64        `json:"weight,omitempty" yaml:"weight,omitempty"`
	CompareFunction CompareFunction `json:"compareFunction,omitempty" yaml:"compareFunction,omitempty" validate:"omitempty,oneof=absDiff gaussSim delta equal"`
	// Similarity is the gaussSim scale
	Similarity *float64 `json:"similarity,omitempty" yaml:"similarity,omitempty"`
}

// WeightOrDefault returns the field weight, 1 when absent
func (f *ClusteringField) WeightOrDefault() float64 {
	if f.Weight == nil {
		return 1
	}
	return *f.Weight
}

type Cluster struct {
	ID     string    `json:"id,omitempty" yaml:"id,omitempty"`
	Name   string    `json:"name,omitempty" yaml:"name,omitempty"`
	Center []float64 `json:"center" yaml:"center" validate:"min=1"`
}

type TimeSeriesModel struct {
	Algorithm  string           `json:"algorithm" yaml:"algorithm" validate:"required"`
	StateSpace *StateSpaceModel `json:"stateSpace,omitempty" yaml:"stateSpace,omitempty"`
}

// StateSpaceModel forecasts F*x + c, advancing x by T for later steps
type StateSpaceModel struct {
	StateVector       []float64   `json:"stateVector" yaml:"stateVector" validate:"min=1"`
	TransitionMatrix  [][]float64 `json:"transitionMatrix,omitempty" yaml:"transitionMatrix,omitempty"`
	MeasurementMatrix [][]float64 `json:"measurementMatrix" yaml:"measurementMatrix" validate:"min=1"`
	InterceptVector   []float64   `json:"interceptVector,omitempty" yaml:"interceptVector,omitempty"`
}

