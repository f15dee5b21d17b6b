package evaluator

import (
	"math"
	"math/bits"
	"strconv"
	"sync"

	"github.com/ZanzyTHEbar/modelscore/internal/classification"
	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
	"github.com/ZanzyTHEbar/modelscore/internal/field"
	"github.com/ZanzyTHEbar/modelscore/internal/model"
	"github.com/ZanzyTHEbar/modelscore/internal/value"
)

// bitset is a packed binary vector
type bitset []uint64

func newBitset(xs []float64) bitset {
	b := make(bitset, (len(xs)+63)/64)
	for i, x := range xs {
		if x != 0 {
			b[i/64] |= 1 << (i % 64)
		}
	}
	return b
}

// matchCounts returns the number of positions where both, only a, only b and
// neither are set, over the first n bits.
func matchCounts(a, b bitset, n int) (a11, a10, a01, a00 int) {
	for i := range a {
		both := a[i] & b[i]
		onlyA := a[i] &^ b[i]
		onlyB := b[i] &^ a[i]
		a11 += bits.OnesCount64(both)
		a10 += bits.OnesCount64(onlyA)
		a01 += bits.OnesCount64(onlyB)
	}
	a00 = n - a11 - a10 - a01
	return a11, a10, a01, a00
}

type clusterCenter struct {
	id     string
	center []float64
	bits   bitset
}

type clustering[V value.Float] struct {
	doc     *model.Document
	body    *model.ClusteringModel
	factory value.Factory[V]

	centersOnce sync.Once
	centers     []clusterCenter
}

func newClusteringScorer(doc *model.Document, reporting bool) (scorer, error) {
	return precision(doc,
		func() (scorer, error) { return newClustering[float32](doc, reporting) },
		func() (scorer, error) { return newClustering[float64](doc, reporting) },
	)
}

func newClustering[V value.Float](doc *model.Document, reporting bool) (*clustering[V], error) {
	body := doc.Clustering
	if body == nil {
		return nil, configError("clustering model body is missing")
	}

	switch body.Measure.Kind {
	case model.MeasureDistance:
		switch body.Measure.Metric {
		case model.Euclidean, model.SquaredEuclidean, model.CityBlock, model.Chebychev:
		case model.Minkowski:
			if body.Measure.P <= 0 {
				return nil, configError("minkowski distance needs a positive p")
			}
		default:
			return nil, apperrors.NewUnsupportedError("distance metric", body.Measure.Metric)
		}
	case model.MeasureSimilarity:
		switch body.Measure.Metric {
		case model.SimpleMatching, model.Jaccard, model.Tanimoto:
		case model.BinarySimilarity:
			if body.Measure.Binary == nil {
				return nil, configError("binary similarity needs its parameters")
			}
		default:
			return nil, apperrors.NewUnsupportedError("similarity metric", body.Measure.Metric)
		}
	default:
		return nil, apperrors.NewUnsupportedError("comparison measure", body.Measure.Kind)
	}

	for i, f := range body.Fields {
		if compareFunction(body, &body.Fields[i]) == model.GaussSim && f.Similarity == nil {
			return nil, configError("gaussSim on field %q needs a similarity scale", f.Field)
		}
	}
	for i, c := range body.Clusters {
		if len(c.Center) != len(body.Fields) {
			return nil, configError("cluster %d has %d center values for %d fields", i+1, len(c.Center), len(body.Fields))
		}
	}
	if n := len(body.MissingValueWeights); n != 0 && n != len(body.Fields) {
		return nil, configError("expected %d missing value weights, got %d", len(body.Fields), n)
	}

	return &clustering[V]{doc: doc, body: body, factory: value.NewFactory[V](reporting)}, nil
}

// clusterCenters resolves entity ids (declared id or 1-based position) and
// packs binary centers once per model
func (m *clustering[V]) clusterCenters() []clusterCenter {
	m.centersOnce.Do(func() {
		centers := make([]clusterCenter, len(m.body.Clusters))
		for i, c := range m.body.Clusters {
			id := c.ID
			if id == "" {
				id = strconv.Itoa(i + 1)
			}
			centers[i] = clusterCenter{id: id, center: c.Center, bits: newBitset(c.Center)}
		}
		m.centers = centers
	})
	return m.centers
}

func compareFunction(body *model.ClusteringModel, f *model.ClusteringField) model.CompareFunction {
	switch {
	case f.CompareFunction != "":
		return f.CompareFunction
	case body.Measure.CompareFunction != "":
		return body.Measure.CompareFunction
	default:
		return model.AbsDiff
	}
}

func (m *clustering[V]) score(r field.Resolver) (any, error) {
	xs := make([]float64, len(m.body.Fields))
	present := make([]bool, len(m.body.Fields))
	anyPresent := false
	for i, f := range m.body.Fields {
		x, ok, err := number(r, f.Field)
		if err != nil {
			return nil, err
		}
		xs[i], present[i] = x, ok
		anyPresent = anyPresent || ok
	}
	if !anyPresent {
		return nil, nil
	}

	var dist *classification.AffinityDistribution[V]
	if m.body.Measure.Kind == model.MeasureDistance {
		dist = classification.NewAffinityDistribution[V](classification.Distance)
		adjustment := m.adjustment(present)
		for _, c := range m.clusterCenters() {
			if err := dist.Put(c.id, m.distance(xs, present, c.center, adjustment)); err != nil {
				return nil, err
			}
		}
	} else {
		for _, ok := range present {
			if !ok {
				return nil, nil
			}
		}
		dist = classification.NewAffinityDistribution[V](classification.Similarity)
		input := newBitset(xs)
		for _, c := range m.clusterCenters() {
			v, err := m.similarity(input, c.bits)
			if err != nil {
				return nil, err
			}
			if err := dist.Put(c.id, v); err != nil {
				return nil, err
			}
		}
	}

	if err := dist.ComputeResult(m.doc.Target.DataType); err != nil {
		return nil, err
	}
	return dist, nil
}

// adjustment scales distances up when fields are missing: the sum of all
// weights over the sum of the weights of present fields
func (m *clustering[V]) adjustment(present []bool) float64 {
	weights := m.body.MissingValueWeights
	if len(weights) == 0 {
		weights = make([]float64, len(m.body.Fields))
		for i := range m.body.Fields {
			weights[i] = m.body.Fields[i].WeightOrDefault()
		}
	}

	all, observed := 0.0, 0.0
	for i, w := range weights {
		all += w
		if present[i] {
			observed += w
		}
	}
	if observed == 0 {
		return 1
	}
	return all / observed
}

func (m *clustering[V]) compare(f *model.ClusteringField, x, y float64) float64 {
	switch compareFunction(m.body, f) {
	case model.GaussSim:
		s := *f.Similarity
		return math.Exp(-math.Ln2 * (x - y) * (x - y) / (s * s))
	case model.Delta:
		if x == y {
			return 0
		}
		return 1
	case model.Equal:
		if x == y {
			return 1
		}
		return 0
	default:
		return math.Abs(x - y)
	}
}

func (m *clustering[V]) distance(xs []float64, present []bool, center []float64, adjustment float64) *value.Value[V] {
	metric := m.body.Measure.Metric

	if metric == model.Chebychev {
		worst := 0.0
		for i := range m.body.Fields {
			if !present[i] {
				continue
			}
			f := &m.body.Fields[i]
			worst = math.Max(worst, f.WeightOrDefault()*math.Abs(m.compare(f, xs[i], center[i])))
		}
		return m.factory.NewValue(worst)
	}

	exponent := 2.0
	switch metric {
	case model.CityBlock:
		exponent = 1
	case model.Minkowski:
		exponent = m.body.Measure.P
	}

	sum := m.factory.Zero()
	for i := range m.body.Fields {
		if !present[i] {
			continue
		}
		f := &m.body.Fields[i]
		sum.AddPower(f.WeightOrDefault(), math.Abs(m.compare(f, xs[i], center[i])), exponent)
	}
	if adjustment != 1 {
		sum.Multiply(adjustment)
	}

	switch metric {
	case model.Euclidean:
		sum.Power(0.5)
	case model.Minkowski:
		sum.Power(1 / exponent)
	}
	return sum
}

func (m *clustering[V]) similarity(input, center bitset) (*value.Value[V], error) {
	a11, a10, a01, a00 := matchCounts(input, center, len(m.body.Fields))
	n11, n10, n01, n00 := float64(a11), float64(a10), float64(a01), float64(a00)

	numerator, denominator := m.factory.Zero(), value.New[V](0)
	switch m.body.Measure.Metric {
	case model.SimpleMatching:
		numerator.Add(n11 + n00)
		denominator.Add(n11 + n10 + n01 + n00)
	case model.Jaccard:
		numerator.Add(n11)
		denominator.Add(n11 + n10 + n01)
	case model.Tanimoto:
		numerator.Add(n11 + n00)
		denominator.Add(n11 + 2*(n10+n01) + n00)
	default:
		p := m.body.Measure.Binary
		numerator.AddTerm(p.C11, n11).AddTerm(p.C10, n10).AddTerm(p.C01, n01).AddTerm(p.C00, n00)
		denominator.AddTerm(p.D11, n11).AddTerm(p.D10, n10).AddTerm(p.D01, n01).AddTerm(p.D00, n00)
	}

	return numerator.DivideValue(denominator)
}
