package evaluator

import (
	"math"
	"testing"

	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
	"github.com/ZanzyTHEbar/modelscore/internal/field"
	"github.com/ZanzyTHEbar/modelscore/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

func binomialDoc(method model.Normalization) *model.Document {
	return &model.Document{
		Name: "binomial",
		Kind: model.KindRegression,
		Target: model.Target{
			Field:  "outcome",
			OpType: field.Categorical,
			Values: []model.TargetValue{{Value: "yes"}, {Value: "no"}},
		},
		Regression: &model.RegressionModel{
			Normalization: method,
			Tables: []model.RegressionTable{
				{
					Intercept:         0.5,
					TargetCategory:    "yes",
					NumericPredictors: []model.NumericPredictor{{Field: "x", Coefficient: 1}},
				},
				{TargetCategory: "no"},
			},
		},
	}
}

func probabilities(t *testing.T, results Results, name string, categories ...string) []float64 {
	t.Helper()
	dist, ok := results[name].(interface{ Probability(string) float64 })
	require.True(t, ok, "expected a probability distribution, got %T", results[name])

	ps := make([]float64, len(categories))
	for i, c := range categories {
		ps[i] = dist.Probability(c)
	}
	return ps
}

func TestLinearRegression(t *testing.T) {
	tests := []struct {
		name     string
		table    model.RegressionTable
		record   field.Record
		expected float64
	}{
		{
			name: "intercept and slope",
			table: model.RegressionTable{
				Intercept:         1,
				NumericPredictors: []model.NumericPredictor{{Field: "x", Coefficient: 2}},
			},
			record:   numbers("x", 3.0),
			expected: 7,
		},
		{
			name: "exponent",
			table: model.RegressionTable{
				NumericPredictors: []model.NumericPredictor{{Field: "x", Exponent: ptr(2), Coefficient: 0.5}},
			},
			record:   numbers("x", 4.0),
			expected: 8,
		},
		{
			name: "explicit zero exponent is a constant term",
			table: model.RegressionTable{
				Intercept:         1,
				NumericPredictors: []model.NumericPredictor{{Field: "x", Exponent: ptr(0), Coefficient: 3}},
			},
			record:   numbers("x", 4.0),
			expected: 4,
		},
		{
			name: "categorical group",
			table: model.RegressionTable{
				Intercept: 10,
				CategoricalPredictors: []model.CategoricalPredictor{
					{Field: "color", Value: "red", Coefficient: 1.5},
					{Field: "color", Value: "blue", Coefficient: -2},
				},
			},
			record:   numbers("color", "blue"),
			expected: 8,
		},
		{
			name: "categorical without match contributes nothing",
			table: model.RegressionTable{
				Intercept: 10,
				CategoricalPredictors: []model.CategoricalPredictor{
					{Field: "color", Value: "red", Coefficient: 1.5},
				},
			},
			record:   numbers("color", "green"),
			expected: 10,
		},
		{
			name: "missing categorical field is skipped",
			table: model.RegressionTable{
				Intercept: 10,
				CategoricalPredictors: []model.CategoricalPredictor{
					{Field: "color", Value: "red", Coefficient: 1.5},
				},
			},
			record:   field.Record{},
			expected: 10,
		},
		{
			name: "interaction term",
			table: model.RegressionTable{
				Intercept:      1,
				PredictorTerms: []model.PredictorTerm{{Fields: []string{"x", "z"}, Coefficient: 3}},
			},
			record:   numbers("x", 2.0, "z", 5.0),
			expected: 31,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := linearDoc()
			doc.Regression.Tables = []model.RegressionTable{tt.table}

			results, err := build(t, doc).Evaluate(tt.record)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, results["y"], 1e-12)
		})
	}
}

func TestRegressionMissingNumericField(t *testing.T) {
	doc := linearDoc()
	doc.Regression.Tables[0].PredictorTerms = []model.PredictorTerm{{Fields: []string{"x", "z"}, Coefficient: 1}}

	results, err := build(t, doc).Evaluate(numbers("x", 1.0))
	require.NoError(t, err)
	assert.Nil(t, results["y"])
}

func TestRegressionContinuousNormalization(t *testing.T) {
	tests := []struct {
		name     string
		method   model.Normalization
		expected float64
	}{
		{name: "none", method: model.NormNone, expected: 2},
		{name: "exp", method: model.NormExp, expected: math.Exp(2)},
		{name: "logit", method: model.NormLogit, expected: 1 / (1 + math.Exp(-2))},
		{name: "softmax", method: model.NormSoftMax, expected: 1 / (1 + math.Exp(-2))},
		{name: "probit", method: model.NormProbit, expected: distuv.UnitNormal.CDF(2)},
		{name: "cloglog", method: model.NormCloglog, expected: 1 - math.Exp(-math.Exp(2))},
		{name: "loglog", method: model.NormLoglog, expected: math.Exp(-math.Exp(-2))},
		{name: "cauchit", method: model.NormCauchit, expected: 0.5 + math.Atan(2)/math.Pi},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := linearDoc()
			doc.Regression.Normalization = tt.method

			results, err := build(t, doc).Evaluate(numbers("x", 0.5))
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, results["y"], 1e-12)
		})
	}
}

func TestRegressionSimpleMaxOnContinuousTarget(t *testing.T) {
	doc := linearDoc()
	doc.Regression.Normalization = model.NormSimpleMax

	_, err := build(t, doc).Evaluate(numbers("x", 1.0))
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryUnsupported))
}

// The second category is the residual of the first, so the pair sums to
// exactly one whatever the link.
func TestBinomialSumsToExactlyOne(t *testing.T) {
	methods := []model.Normalization{
		model.NormNone,
		model.NormLogit,
		model.NormProbit,
		model.NormCloglog,
		model.NormLoglog,
		model.NormCauchit,
	}
	inputs := []float64{-7.3, -1, -0.5, 0, 0.123456789, 0.7, 2.5, 11}

	for _, method := range methods {
		t.Run(string(method), func(t *testing.T) {
			m := build(t, binomialDoc(method))
			for _, x := range inputs {
				results, err := m.Evaluate(numbers("x", x))
				require.NoError(t, err)

				ps := probabilities(t, results, "outcome", "yes", "no")
				assert.Equal(t, 1.0, ps[0]+ps[1], "x=%v", x)
				assert.GreaterOrEqual(t, ps[0], 0.0)
				assert.LessOrEqual(t, ps[0], 1.0)
			}
		})
	}
}

func TestBinomialLogit(t *testing.T) {
	results, err := build(t, binomialDoc(model.NormLogit)).Evaluate(numbers("x", -2.0))
	require.NoError(t, err)

	ps := probabilities(t, results, "outcome", "yes", "no")
	p := 1 / (1 + math.Exp(1.5))
	assert.InDelta(t, p, ps[0], 1e-12)
	assert.InDelta(t, 1-p, ps[1], 1e-12)

	dist := results["outcome"].(interface{ Result() any })
	assert.Equal(t, "no", dist.Result())
}

func TestMultinomialSoftMax(t *testing.T) {
	doc := binomialDoc(model.NormSoftMax)
	doc.Target.Values = append(doc.Target.Values, model.TargetValue{Value: "maybe"})
	doc.Regression.Tables = []model.RegressionTable{
		{Intercept: 1, TargetCategory: "yes", NumericPredictors: []model.NumericPredictor{{Field: "x", Coefficient: 2}}},
		{Intercept: 0.5, TargetCategory: "no"},
		{Intercept: -1, TargetCategory: "maybe", NumericPredictors: []model.NumericPredictor{{Field: "x", Coefficient: -1}}},
	}

	m := build(t, doc)
	for _, x := range []float64{-400, -3, 0, 0.25, 3, 400} {
		results, err := m.Evaluate(numbers("x", x))
		require.NoError(t, err)

		ps := probabilities(t, results, "outcome", "yes", "no", "maybe")
		assert.InDelta(t, 1.0, ps[0]+ps[1]+ps[2], 1e-8, "x=%v", x)
		for _, p := range ps {
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 1.0)
		}
	}

	results, err := m.Evaluate(numbers("x", 0.0))
	require.NoError(t, err)
	ps := probabilities(t, results, "outcome", "yes", "no", "maybe")
	z := math.Exp(1) + math.Exp(0.5) + math.Exp(-1)
	assert.InDelta(t, math.Exp(1)/z, ps[0], 1e-12)
	assert.InDelta(t, math.Exp(0.5)/z, ps[1], 1e-12)
	assert.InDelta(t, math.Exp(-1)/z, ps[2], 1e-12)
}

func TestSoftMaxWithDefaultTableIsLogit(t *testing.T) {
	results, err := build(t, binomialDoc(model.NormSoftMax)).Evaluate(numbers("x", 1.0))
	require.NoError(t, err)

	ps := probabilities(t, results, "outcome", "yes", "no")
	p := 1 / (1 + math.Exp(-1.5))
	assert.InDelta(t, p, ps[0], 1e-12)
	assert.Equal(t, 1.0, ps[0]+ps[1])
}

func TestMultinomialSimpleMax(t *testing.T) {
	doc := binomialDoc(model.NormSimpleMax)
	doc.Regression.Tables[1].Intercept = 1.5

	results, err := build(t, doc).Evaluate(numbers("x", 0.0))
	require.NoError(t, err)

	ps := probabilities(t, results, "outcome", "yes", "no")
	assert.InDelta(t, 0.25, ps[0], 1e-12)
	assert.InDelta(t, 0.75, ps[1], 1e-12)
}

func TestMultinomialNone(t *testing.T) {
	doc := binomialDoc(model.NormNone)
	doc.Target.Values = append(doc.Target.Values, model.TargetValue{Value: "maybe"})
	doc.Regression.Tables = []model.RegressionTable{
		{Intercept: 0.2, TargetCategory: "yes"},
		{Intercept: 1.7, TargetCategory: "no"},
		{TargetCategory: "maybe"},
	}

	results, err := build(t, doc).Evaluate(field.Record{})
	require.NoError(t, err)

	ps := probabilities(t, results, "outcome", "yes", "no", "maybe")
	assert.InDelta(t, 0.2, ps[0], 1e-12)
	assert.Equal(t, 1.0, ps[1])
	assert.InDelta(t, -0.2, ps[2], 1e-12)
}

func TestOrdinalCumulativeLogit(t *testing.T) {
	doc := &model.Document{
		Name: "ordinal",
		Kind: model.KindRegression,
		Target: model.Target{
			Field:  "grade",
			OpType: field.Ordinal,
			Values: []model.TargetValue{{Value: "low"}, {Value: "mid"}, {Value: "high"}},
		},
		Regression: &model.RegressionModel{
			Normalization: model.NormLogit,
			Tables: []model.RegressionTable{
				{Intercept: -1, TargetCategory: "low", NumericPredictors: []model.NumericPredictor{{Field: "x", Coefficient: 1}}},
				{Intercept: 1, TargetCategory: "mid", NumericPredictors: []model.NumericPredictor{{Field: "x", Coefficient: 1}}},
				{TargetCategory: "high"},
			},
		},
	}

	results, err := build(t, doc).Evaluate(numbers("x", 0.5))
	require.NoError(t, err)

	c1 := 1 / (1 + math.Exp(0.5))
	c2 := 1 / (1 + math.Exp(-1.5))
	ps := probabilities(t, results, "grade", "low", "mid", "high")
	assert.InDelta(t, c1, ps[0], 1e-12)
	assert.InDelta(t, c2-c1, ps[1], 1e-12)
	assert.InDelta(t, 1-c2, ps[2], 1e-12)
	assert.InDelta(t, 1.0, ps[0]+ps[1]+ps[2], 1e-12)
}

func TestClassificationMissingFieldUsesPriors(t *testing.T) {
	doc := binomialDoc(model.NormLogit)
	doc.Target.Values = []model.TargetValue{{Value: "yes", Prior: ptr(0.3)}, {Value: "no", Prior: ptr(0.7)}}

	results, err := build(t, doc).Evaluate(field.Record{})
	require.NoError(t, err)

	ps := probabilities(t, results, "outcome", "yes", "no")
	assert.Equal(t, []float64{0.3, 0.7}, ps)
	dist := results["outcome"].(interface{ Result() any })
	assert.Equal(t, "no", dist.Result())
}

func TestRegressionConfiguration(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(doc *model.Document)
	}{
		{
			name: "classification with one table",
			mutate: func(doc *model.Document) {
				doc.Regression.Tables = doc.Regression.Tables[:1]
			},
		},
		{
			name: "table without category",
			mutate: func(doc *model.Document) {
				doc.Regression.Tables[1].TargetCategory = ""
			},
		},
		{
			name: "continuous target with two tables",
			mutate: func(doc *model.Document) {
				doc.Target.OpType = field.Continuous
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := binomialDoc(model.NormLogit)
			tt.mutate(doc)
			_, err := New(doc, false)
			require.Error(t, err)
			assert.True(t, apperrors.IsConfiguration(err))
		})
	}
}

func TestCategoricalGroupDoubleMatch(t *testing.T) {
	doc := linearDoc()
	doc.Regression.Tables[0].CategoricalPredictors = []model.CategoricalPredictor{
		{Field: "color", Value: "red", Coefficient: 1},
		{Field: "color", Value: "red", Coefficient: 2},
	}

	_, err := build(t, doc).Evaluate(numbers("x", 1.0, "color", "red"))
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestFloatMathContext(t *testing.T) {
	doc := linearDoc()
	doc.MathContext = model.MathFloat
	doc.Regression.Tables[0] = model.RegressionTable{
		Intercept:         0.1,
		NumericPredictors: []model.NumericPredictor{{Field: "x", Coefficient: 0.2}},
	}

	results, err := build(t, doc).Evaluate(numbers("x", 0.3))
	require.NoError(t, err)

	intercept, coefficient, x := float32(0.1), float32(0.2), float32(0.3)
	want := float64(intercept + float32(coefficient*x))
	assert.Equal(t, want, results["y"])
	assert.NotEqual(t, 0.1+0.2*0.3, results["y"])
}

func TestRegressionReport(t *testing.T) {
	m, err := New(linearDoc(), true)
	require.NoError(t, err)

	s := m.scorer.(*regression[float64])
	v, err := s.evaluateTable(&s.body.Tables[0], numbers("x", 3.0))
	require.NoError(t, err)
	require.NotNil(t, v.Report())
	assert.Contains(t, v.Report().Expression(), "<times/>")
	assert.Equal(t, 7.0, v.Float64())
}
