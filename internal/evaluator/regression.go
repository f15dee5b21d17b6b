package evaluator

import (
	"github.com/ZanzyTHEbar/modelscore/internal/classification"
	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
	"github.com/ZanzyTHEbar/modelscore/internal/field"
	"github.com/ZanzyTHEbar/modelscore/internal/model"
	"github.com/ZanzyTHEbar/modelscore/internal/value"
)

type regression[V value.Float] struct {
	doc     *model.Document
	body    *model.RegressionModel
	factory value.Factory[V]
}

func newRegressionScorer(doc *model.Document, reporting bool) (scorer, error) {
	return precision(doc,
		func() (scorer, error) { return newRegression[float32](doc, reporting) },
		func() (scorer, error) { return newRegression[float64](doc, reporting) },
	)
}

func newRegression[V value.Float](doc *model.Document, reporting bool) (*regression[V], error) {
	body := doc.Regression
	if body == nil {
		return nil, configError("regression model body is missing")
	}

	if doc.Target.Categorical() {
		if len(body.Tables) < 2 {
			return nil, configError("classification needs at least two regression tables, got %d", len(body.Tables))
		}
		for i := range body.Tables {
			if body.Tables[i].TargetCategory == "" {
				return nil, configError("regression table %d has no target category", i+1)
			}
		}
	} else if len(body.Tables) != 1 {
		return nil, configError("regression needs exactly one table, got %d", len(body.Tables))
	}

	return &regression[V]{doc: doc, body: body, factory: value.NewFactory[V](reporting)}, nil
}

func (m *regression[V]) method() model.Normalization {
	if m.body.Normalization == "" {
		return model.NormNone
	}
	return m.body.Normalization
}

func (m *regression[V]) score(r field.Resolver) (any, error) {
	if m.doc.Target.Categorical() {
		return m.classify(r)
	}

	result, err := m.evaluateTable(&m.body.Tables[0], r)
	if err != nil || result == nil {
		return nil, err
	}

	switch m.method() {
	case model.NormNone:
	case model.NormSoftMax, model.NormLogit:
		result.InverseLogit()
	case model.NormExp:
		result.Exp()
	default:
		if err := inverseLink(result, m.method()); err != nil {
			return nil, err
		}
	}

	return result.Float64(), nil
}

func (m *regression[V]) classify(r field.Resolver) (any, error) {
	dist := classification.NewProbabilityDistribution[V]()
	values := dist.Values()

	for i := range m.body.Tables {
		table := &m.body.Tables[i]
		v, err := m.evaluateTable(table, r)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, nil
		}
		if err := values.Put(table.TargetCategory, v); err != nil {
			return nil, err
		}
	}

	method := m.method()
	var err error
	switch {
	case m.doc.Target.OpType == field.Ordinal && isLink(method):
		err = normalizeOrdinal(values, method)
	case values.Len() == 2 && method != model.NormSoftMax && method != model.NormSimpleMax:
		err = normalizeBinomial(values, method)
	default:
		err = m.normalizeMultinomial(values, method)
	}
	if err != nil {
		return nil, err
	}

	if err := dist.ComputeResult(m.doc.Target.DataType); err != nil {
		return nil, err
	}
	return dist, nil
}

// evaluateTable returns nil when a numeric or interaction field is missing.
func (m *regression[V]) evaluateTable(table *model.RegressionTable, r field.Resolver) (*value.Value[V], error) {
	result := m.factory.Zero()

	if table.Intercept != 0 {
		result.Add(table.Intercept)
	}

	for i := range table.NumericPredictors {
		np := &table.NumericPredictors[i]
		x, ok, err := number(r, np.Field)
		if err != nil || !ok {
			return nil, err
		}
		result.AddPower(np.Coefficient, x, float64(np.ExponentOrDefault()))
	}

	// consecutive predictors on the same field form a group with at most one match
	predictors := table.CategoricalPredictors
	for start := 0; start < len(predictors); {
		end := start
		for end < len(predictors) && predictors[end].Field == predictors[start].Field {
			end++
		}
		group := predictors[start:end]
		start = end

		observed := r.Resolve(group[0].Field)
		if observed == nil {
			continue
		}

		matched := false
		for _, cp := range group {
			if !observed.Equals(cp.Value) {
				continue
			}
			if matched {
				return nil, configError("field %q matches more than one categorical predictor", cp.Field)
			}
			matched = true
			result.Add(cp.Coefficient)
		}
	}

	for _, term := range table.PredictorTerms {
		factors := make([]float64, len(term.Fields))
		for i, name := range term.Fields {
			x, ok, err := number(r, name)
			if err != nil || !ok {
				return nil, err
			}
			factors[i] = x
		}
		result.AddTerm(term.Coefficient, factors...)
	}

	return result, nil
}

// normalizeBinomial transforms the first value and derives the second as its
// complement, so the pair always sums to exactly one.
func normalizeBinomial[V value.Float](values *classification.ValueMap[string, V], method model.Normalization) error {
	entries := values.Entries()
	first, second := entries[0].Value, entries[1].Value

	if method == model.NormNone {
		first.Restrict(0, 1)
	} else if err := inverseLink(first, method); err != nil {
		return err
	}

	second.Residual(first)
	return nil
}

func (m *regression[V]) normalizeMultinomial(values *classification.ValueMap[string, V], method model.Normalization) error {
	entries := values.Entries()

	switch method {
	case model.NormNone:
		sum := value.New[V](0)
		for _, e := range entries[:len(entries)-1] {
			e.Value.Restrict(0, 1)
			sum.AddValue(e.Value)
		}
		entries[len(entries)-1].Value.Residual(sum)
		return nil
	case model.NormSoftMax:
		// A trailing predictor-free table makes the two-table soft-max a
		// binomial logit. This follows the reference scorer rather than PMML.
		last := &m.body.Tables[len(m.body.Tables)-1]
		if len(entries) == 2 && last.Default() {
			return normalizeBinomial(values, model.NormLogit)
		}
		return values.NormalizeSoftMax()
	case model.NormSimpleMax:
		return values.NormalizeSum()
	default:
		return apperrors.NewUnsupportedError("multinomial normalization", method)
	}
}

// normalizeOrdinal turns cumulative link values into per-category
// probabilities: each category minus the previous cumulative value, the last
// category taking the remainder.
func normalizeOrdinal[V value.Float](values *classification.ValueMap[string, V], method model.Normalization) error {
	entries := values.Entries()

	var previous *value.Value[V]
	for _, e := range entries[:len(entries)-1] {
		if err := inverseLink(e.Value, method); err != nil {
			return err
		}
		cumulative := e.Value.Copy()
		if previous != nil {
			e.Value.SubtractValue(previous)
		}
		previous = cumulative
	}

	entries[len(entries)-1].Value.Residual(previous)
	return nil
}

func isLink(method model.Normalization) bool {
	switch method {
	case model.NormLogit, model.NormProbit, model.NormCloglog, model.NormLoglog, model.NormCauchit:
		return true
	default:
		return false
	}
}

func inverseLink[V value.Float](v *value.Value[V], method model.Normalization) error {
	switch method {
	case model.NormLogit:
		v.InverseLogit()
	case model.NormProbit:
		v.InverseProbit()
	case model.NormCloglog:
		v.InverseCloglog()
	case model.NormLoglog:
		v.InverseLoglog()
	case model.NormCauchit:
		v.InverseCauchit()
	default:
		return apperrors.NewUnsupportedError("normalization", method)
	}
	return nil
}

// number resolves a field as float64; ok is false when it is missing
func number(r field.Resolver, name string) (float64, bool, error) {
	v := r.Resolve(name)
	if v == nil {
		return 0, false, nil
	}
	x, err := v.Float64()
	if err != nil {
		return 0, false, apperrors.NewConfigurationError("field "+name+" is not numeric", err)
	}
	return x, true, nil
}
