package evaluator

import (
	"fmt"
	"math"

	"github.com/ZanzyTHEbar/modelscore/internal/classification"
	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
	"github.com/ZanzyTHEbar/modelscore/internal/field"
	"github.com/ZanzyTHEbar/modelscore/internal/model"
	"github.com/ZanzyTHEbar/modelscore/internal/value"
)

// DefaultTarget names the target entry when the document does not declare one
const DefaultTarget = "prediction"

// Results maps output names to values. The target entry holds a float64, a
// classification.Distribution, a *ScoreResult, or nil when the prediction is
// missing.
type Results map[string]any

// Evaluator scores records against one loaded model. Implementations are
// safe for concurrent use.
type Evaluator interface {
	Document() *model.Document
	Evaluate(r field.Resolver) (Results, error)
}

// Forecaster is implemented by models that can project several steps ahead
type Forecaster interface {
	Forecast(horizon int) ([]float64, error)
}

// scorer computes the raw target result of one model kind. A nil result with
// a nil error means the prediction is missing.
type scorer interface {
	score(r field.Resolver) (any, error)
}

type factory func(doc *model.Document, reporting bool) (scorer, error)

var registry = map[model.Kind]factory{
	model.KindRegression: newRegressionScorer,
	model.KindRuleSet:    newRuleSetScorer,
	model.KindNaiveBayes: newNaiveBayesScorer,
	model.KindScorecard:  newScorecardScorer,
	model.KindClustering: newClusteringScorer,
	model.KindTimeSeries: newTimeSeriesScorer,
}

// Model is the evaluator built for a document
type Model struct {
	doc    *model.Document
	scorer scorer
}

// New builds the evaluator registered for the document's kind. With
// reporting on, every value carries a symbolic audit trail.
func New(doc *model.Document, reporting bool) (*Model, error) {
	build, ok := registry[doc.Kind]
	if !ok {
		return nil, apperrors.NewUnsupportedError("model kind", doc.Kind)
	}

	s, err := build(doc, reporting)
	if err != nil {
		return nil, err
	}

	return &Model{doc: doc, scorer: s}, nil
}

func (m *Model) Document() *model.Document {
	return m.doc
}

// TargetName returns the key the prediction is stored under
func (m *Model) TargetName() string {
	if m.doc.Target.Field != "" {
		return m.doc.Target.Field
	}
	return DefaultTarget
}

// Evaluate scores one record. Undefined results fall back to the target's
// declared default; without one the error is returned.
func (m *Model) Evaluate(r field.Resolver) (Results, error) {
	result, err := m.scorer.score(r)
	if err != nil {
		if !apperrors.IsUndefinedResult(err) {
			return nil, err
		}
		fallback, ferr := m.defaultResult()
		if ferr != nil {
			return nil, ferr
		}
		if fallback == nil {
			return nil, err
		}
		result = fallback
	}

	if result == nil {
		if result, err = m.defaultResult(); err != nil {
			return nil, err
		}
	}

	result = m.postProcess(result)

	results := Results{m.TargetName(): result}
	for _, out := range m.doc.Output {
		results[out.Name] = outputValue(out, result)
	}
	return results, nil
}

// Forecast projects the model horizon steps ahead
func (m *Model) Forecast(horizon int) ([]float64, error) {
	f, ok := m.scorer.(Forecaster)
	if !ok {
		return nil, apperrors.NewUnsupportedError("forecast for model kind", m.doc.Kind)
	}
	if horizon < 1 {
		return nil, apperrors.NewValidationError("horizon must be at least 1", horizon)
	}
	return f.Forecast(horizon)
}

// defaultResult is the declared fallback: prior probabilities for
// classification targets, the default value otherwise. nil when neither exists.
func (m *Model) defaultResult() (any, error) {
	target := &m.doc.Target

	if target.Categorical() {
		if !target.HasPriors() {
			return nil, nil
		}
		dist := classification.NewProbabilityDistribution[float64]()
		for _, tv := range target.Values {
			if err := dist.Put(tv.Value, value.New[float64](*tv.Prior)); err != nil {
				return nil, err
			}
		}
		if err := dist.ComputeResult(target.DataType); err != nil {
			return nil, err
		}
		return dist, nil
	}

	if target.DefaultValue != nil {
		return *target.DefaultValue, nil
	}
	return nil, nil
}

// postProcess clamps, rescales and casts continuous predictions, in that order
func (m *Model) postProcess(result any) any {
	target := &m.doc.Target

	apply := func(x float64) float64 {
		if target.Min != nil {
			x = math.Max(x, *target.Min)
		}
		if target.Max != nil {
			x = math.Min(x, *target.Max)
		}
		if target.RescaleFactor != nil {
			x *= *target.RescaleFactor
		}
		x += target.RescaleConstant

		switch target.CastInteger {
		case model.CastRound:
			x = math.Round(x)
		case model.CastCeiling:
			x = math.Ceil(x)
		case model.CastFloor:
			x = math.Floor(x)
		}
		return x
	}

	switch r := result.(type) {
	case float64:
		return apply(r)
	case *ScoreResult:
		r.Score = apply(r.Score)
		return r
	default:
		return result
	}
}

func outputValue(out model.OutputField, result any) any {
	switch out.Feature {
	case model.FeaturePredictedValue:
		return predictedValue(result)
	case model.FeatureProbability, model.FeatureAffinity:
		dist, ok := result.(classification.Distribution)
		if !ok {
			return nil
		}
		if out.Value == "" {
			_, x, ok := dist.Winner()
			if !ok {
				return nil
			}
			return x
		}
		x, ok := dist.Get(out.Value)
		if !ok {
			if out.Feature == model.FeatureProbability {
				return 0.0
			}
			return nil
		}
		return x
	case model.FeatureEntityID:
		if dist, ok := result.(classification.EntityDistribution); ok {
			return dist.EntityID()
		}
		return nil
	case model.FeatureReasonCode:
		score, ok := result.(*ScoreResult)
		if !ok {
			return nil
		}
		rank := max(out.Rank, 1)
		if rank > len(score.Contributors) {
			return nil
		}
		return score.Contributors[rank-1].Name
	default:
		return nil
	}
}

func predictedValue(result any) any {
	switch r := result.(type) {
	case classification.Distribution:
		return r.Result()
	case *ScoreResult:
		return r.Score
	default:
		return result
	}
}

// Flatten renders results as JSON-friendly values
func Flatten(results Results) map[string]any {
	flat := make(map[string]any, len(results))
	for name, result := range results {
		switch r := result.(type) {
		case classification.Distribution:
			flat[name] = classification.Summarize(r)
		default:
			flat[name] = r
		}
	}
	return flat
}

// precision dispatches a generic constructor on the document's math context
func precision(doc *model.Document, single, double func() (scorer, error)) (scorer, error) {
	if doc.Float() {
		return single()
	}
	return double()
}

func configError(format string, args ...any) error {
	return apperrors.NewConfigurationError(fmt.Sprintf(format, args...), nil)
}
