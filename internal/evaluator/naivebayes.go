package evaluator

import (
	"math"

	"github.com/ZanzyTHEbar/modelscore/internal/classification"
	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
	"github.com/ZanzyTHEbar/modelscore/internal/field"
	"github.com/ZanzyTHEbar/modelscore/internal/model"
	"github.com/ZanzyTHEbar/modelscore/internal/value"
	"gonum.org/v1/gonum/stat/distuv"
)

type naiveBayes[V value.Float] struct {
	doc     *model.Document
	body    *model.NaiveBayesModel
	factory value.Factory[V]
}

func newNaiveBayesScorer(doc *model.Document, reporting bool) (scorer, error) {
	return precision(doc,
		func() (scorer, error) { return newNaiveBayes[float32](doc, reporting) },
		func() (scorer, error) { return newNaiveBayes[float64](doc, reporting) },
	)
}

func newNaiveBayes[V value.Float](doc *model.Document, reporting bool) (*naiveBayes[V], error) {
	body := doc.NaiveBayes
	if body == nil {
		return nil, configError("naive Bayes model body is missing")
	}
	if len(body.Output) == 0 {
		return nil, configError("naive Bayes model has no target counts")
	}
	if !(body.Threshold > 0) {
		return nil, configError("naive Bayes threshold must be positive, got %v", body.Threshold)
	}

	categories := make(map[string]bool, len(body.Output))
	for _, tc := range body.Output {
		categories[tc.Category] = true
	}

	for _, input := range body.Inputs {
		for _, stat := range input.Stats {
			if !categories[stat.Category] {
				return nil, configError("field %q has statistics for unknown category %q", input.Field, stat.Category)
			}
			switch stat.Distribution.Kind {
			case model.Gaussian:
				if stat.Distribution.Variance <= 0 {
					return nil, configError("gaussian distribution of field %q needs a positive variance", input.Field)
				}
			case model.Poisson:
			default:
				return nil, apperrors.NewUnsupportedError("continuous distribution", stat.Distribution.Kind)
			}
		}
	}

	return &naiveBayes[V]{doc: doc, body: body, factory: value.NewFactory[V](reporting)}, nil
}

func (m *naiveBayes[V]) score(r field.Resolver) (any, error) {
	dist := classification.NewProbabilityDistribution[V]()
	values := dist.Values()

	// prior counts, moved to log scale
	for _, tc := range m.body.Output {
		if err := values.Put(tc.Category, m.factory.NewValue(tc.Count).Ln()); err != nil {
			return nil, err
		}
	}

	for i := range m.body.Inputs {
		input := &m.body.Inputs[i]

		observed := r.Resolve(input.Field)
		if observed == nil {
			continue
		}

		var err error
		if len(input.Stats) > 0 {
			err = m.addContinuous(values, input, observed)
		} else {
			m.addDiscrete(values, input, observed)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := values.NormalizeSoftMax(); err != nil {
		return nil, err
	}
	if err := dist.ComputeResult(m.doc.Target.DataType); err != nil {
		return nil, err
	}
	return dist, nil
}

func (m *naiveBayes[V]) addContinuous(values *classification.ValueMap[string, V], input *model.BayesInput, observed *field.Value) error {
	x, err := observed.Float64()
	if err != nil {
		return apperrors.NewConfigurationError("field "+input.Field+" is not numeric", err)
	}

	for _, stat := range input.Stats {
		likelihood := density(stat.Distribution, x)
		if likelihood < m.body.Threshold {
			likelihood = m.body.Threshold
		}
		v, _ := values.Get(stat.Category)
		v.Add(math.Log(likelihood))
	}
	return nil
}

// addDiscrete adds ln(count / row total) per category. Only an exact zero
// count is replaced by the threshold. A value without a pair-count row carries
// no evidence.
func (m *naiveBayes[V]) addDiscrete(values *classification.ValueMap[string, V], input *model.BayesInput, observed *field.Value) {
	var row *model.PairCount
	for i := range input.PairCounts {
		if observed.Equals(input.PairCounts[i].Value) {
			row = &input.PairCounts[i]
			break
		}
	}
	if row == nil {
		return
	}

	total := 0.0
	counts := make(map[string]float64, len(row.Counts))
	for _, tc := range row.Counts {
		total += tc.Count
		counts[tc.Category] = tc.Count
	}

	for _, category := range values.Keys() {
		likelihood := m.body.Threshold
		if count := counts[category]; count != 0 {
			likelihood = count / total
		}
		v, _ := values.Get(category)
		v.Add(math.Log(likelihood))
	}
}

func density(d model.Distribution, x float64) float64 {
	switch d.Kind {
	case model.Gaussian:
		return distuv.Normal{Mu: d.Mean, Sigma: math.Sqrt(d.Variance)}.Prob(x)
	default:
		return distuv.Poisson{Lambda: d.Mean}.Prob(x)
	}
}
