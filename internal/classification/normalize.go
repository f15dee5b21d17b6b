package classification

import (
	"math"

	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
	"github.com/ZanzyTHEbar/modelscore/internal/value"
)

// NormalizeSoftMax replaces every value v with exp(v) / sum(exp(v_i)). The
// maximum is subtracted before exponentiating so large log-scale inputs do not
// overflow; the ratios are unchanged. A map whose values are all -Inf has no
// distribution and yields an undefined-result error.
func (m *ValueMap[K, V]) NormalizeSoftMax() error {
	if len(m.keys) == 0 {
		return nil
	}

	_, maxValue, _ := m.Winner(Probability)
	shift := maxValue.Float64()
	if math.IsInf(shift, -1) || math.IsNaN(shift) {
		return apperrors.NewUndefinedResultError("soft-max over scores with no finite maximum")
	}

	for _, k := range m.keys {
		m.values[k].Subtract(shift).Exp()
	}
	return m.NormalizeSum()
}

// NormalizeSimpleMax divides every value by the maximum value
func (m *ValueMap[K, V]) NormalizeSimpleMax() error {
	if len(m.keys) == 0 {
		return nil
	}

	_, maxValue, _ := m.Winner(Probability)
	return m.divideAll(maxValue.Copy())
}

// NormalizeSum divides every value by the sum of all values
func (m *ValueMap[K, V]) NormalizeSum() error {
	if len(m.keys) == 0 {
		return nil
	}
	return m.divideAll(m.Sum())
}

func (m *ValueMap[K, V]) divideAll(denominator *value.Value[V]) error {
	for _, k := range m.keys {
		if _, err := m.values[k].DivideValue(denominator); err != nil {
			return err
		}
	}
	return nil
}
