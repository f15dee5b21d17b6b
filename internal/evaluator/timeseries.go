package evaluator

import (
	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
	"github.com/ZanzyTHEbar/modelscore/internal/field"
	"github.com/ZanzyTHEbar/modelscore/internal/model"
	"github.com/ZanzyTHEbar/modelscore/internal/value"
	"gonum.org/v1/gonum/mat"
)

const stateSpaceAlgorithm = "stateSpace"

// timeSeries forecasts y = F*x + c from a fixed state. The matrices are
// read-only after construction.
type timeSeries[V value.Float] struct {
	factory value.Factory[V]

	state       *mat.VecDense
	transition  *mat.Dense
	measurement *mat.Dense
	intercept   *mat.VecDense
}

func newTimeSeriesScorer(doc *model.Document, reporting bool) (scorer, error) {
	return precision(doc,
		func() (scorer, error) { return newTimeSeries[float32](doc, reporting) },
		func() (scorer, error) { return newTimeSeries[float64](doc, reporting) },
	)
}

func newTimeSeries[V value.Float](doc *model.Document, reporting bool) (*timeSeries[V], error) {
	body := doc.TimeSeries
	if body == nil {
		return nil, configError("time series model body is missing")
	}
	if body.Algorithm != stateSpaceAlgorithm {
		return nil, apperrors.NewUnsupportedError("time series algorithm", body.Algorithm)
	}
	ss := body.StateSpace
	if ss == nil {
		return nil, configError("state space model is missing")
	}

	n := len(ss.StateVector)
	if n == 0 {
		return nil, configError("state vector is empty")
	}

	measurement, err := denseMatrix("measurement", ss.MeasurementMatrix, 0, n)
	if err != nil {
		return nil, err
	}
	rows, _ := measurement.Dims()

	m := &timeSeries[V]{
		factory:     value.NewFactory[V](reporting),
		state:       mat.NewVecDense(n, append([]float64(nil), ss.StateVector...)),
		measurement: measurement,
	}

	if len(ss.TransitionMatrix) > 0 {
		if m.transition, err = denseMatrix("transition", ss.TransitionMatrix, n, n); err != nil {
			return nil, err
		}
	}

	if len(ss.InterceptVector) > 0 {
		if len(ss.InterceptVector) != rows {
			return nil, configError("intercept vector has %d elements, measurement matrix has %d rows", len(ss.InterceptVector), rows)
		}
		m.intercept = mat.NewVecDense(rows, append([]float64(nil), ss.InterceptVector...))
	}

	return m, nil
}

// denseMatrix builds a matrix from rows, checking its shape. A zero wantRows
// accepts any positive row count.
func denseMatrix(name string, data [][]float64, wantRows, wantCols int) (*mat.Dense, error) {
	if len(data) == 0 {
		return nil, configError("%s matrix is empty", name)
	}
	if wantRows != 0 && len(data) != wantRows {
		return nil, configError("%s matrix has %d rows, expected %d", name, len(data), wantRows)
	}

	flat := make([]float64, 0, len(data)*wantCols)
	for i, row := range data {
		if len(row) != wantCols {
			return nil, configError("%s matrix row %d has %d columns, expected %d", name, i+1, len(row), wantCols)
		}
		flat = append(flat, row...)
	}
	return mat.NewDense(len(data), wantCols, flat), nil
}

// score ignores the record: the one-step forecast depends on the model alone
func (m *timeSeries[V]) score(field.Resolver) (any, error) {
	forecast, err := m.Forecast(1)
	if err != nil {
		return nil, err
	}
	return forecast[0], nil
}

// Forecast returns the first measurement for steps 1..horizon. Step k > 1
// advances the state by the transition matrix k-1 times.
func (m *timeSeries[V]) Forecast(horizon int) ([]float64, error) {
	if horizon > 1 && m.transition == nil {
		return nil, configError("forecasting %d steps needs a transition matrix", horizon)
	}

	rows, _ := m.measurement.Dims()
	state := mat.VecDenseCopyOf(m.state)
	next := mat.NewVecDense(state.Len(), nil)
	y := mat.NewVecDense(rows, nil)

	forecast := make([]float64, horizon)
	for step := 0; step < horizon; step++ {
		if step > 0 {
			next.MulVec(m.transition, state)
			state.CopyVec(next)
		}

		y.MulVec(m.measurement, state)
		if m.intercept != nil {
			y.AddVec(y, m.intercept)
		}
		forecast[step] = m.factory.NewValue(y.AtVec(0)).Float64()
	}
	return forecast, nil
}
