package evaluator

import (
	"fmt"
	"math"
	"slices"

	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
	"github.com/ZanzyTHEbar/modelscore/internal/field"
	"github.com/ZanzyTHEbar/modelscore/internal/model"
	"github.com/ZanzyTHEbar/modelscore/internal/value"
)

// Contributor is one reason code and the points it accounts for
type Contributor struct {
	Name         string  `json:"name"`
	Contribution float64 `json:"contribution"`
}

// ScoreResult is a scorecard prediction. Contributors are ranked by points,
// highest first, ties in declaration order.
type ScoreResult struct {
	Score        float64       `json:"score"`
	Contributors []Contributor `json:"contributors,omitempty"`
	report       *value.Report
}

// Report returns the audit trail of the score, or nil
func (s *ScoreResult) Report() *value.Report {
	return s.report
}

type scorecard[V value.Float] struct {
	doc     *model.Document
	body    *model.ScorecardModel
	factory value.Factory[V]
}

func newScorecardScorer(doc *model.Document, reporting bool) (scorer, error) {
	return precision(doc,
		func() (scorer, error) { return newScorecard[float32](doc, reporting) },
		func() (scorer, error) { return newScorecard[float64](doc, reporting) },
	)
}

func newScorecard[V value.Float](doc *model.Document, reporting bool) (*scorecard[V], error) {
	body := doc.Scorecard
	if body == nil {
		return nil, configError("scorecard model body is missing")
	}

	if body.ReasonCodes() {
		for _, c := range body.Characteristics {
			if c.BaselineScore == nil && body.BaselineScore == nil {
				return nil, configError("characteristic %q has no baseline score", c.Name)
			}
			for _, attr := range c.Attributes {
				if attr.ReasonCode == "" && c.ReasonCode == "" {
					return nil, configError("characteristic %q has an attribute without a reason code", c.Name)
				}
			}
		}
	}

	return &scorecard[V]{doc: doc, body: body, factory: value.NewFactory[V](reporting)}, nil
}

// reasonPoints accumulates points per reason code in first-seen order
type reasonPoints struct {
	codes  []string
	points map[string]float64
}

func (p *reasonPoints) add(code string, points float64) {
	if _, ok := p.points[code]; !ok {
		p.codes = append(p.codes, code)
	}
	p.points[code] += points
}

func (p *reasonPoints) ranked() []Contributor {
	contributors := make([]Contributor, len(p.codes))
	for i, code := range p.codes {
		contributors[i] = Contributor{Name: code, Contribution: p.points[code]}
	}
	// largest magnitude first, ties in declaration order
	slices.SortStableFunc(contributors, func(a, b Contributor) int {
		x, y := math.Abs(a.Contribution), math.Abs(b.Contribution)
		switch {
		case x > y:
			return -1
		case x < y:
			return 1
		default:
			return 0
		}
	})
	return contributors
}

func (m *scorecard[V]) score(r field.Resolver) (any, error) {
	total := m.factory.NewValue(m.body.InitialScore)
	useReasonCodes := m.body.ReasonCodes()
	reasons := &reasonPoints{points: make(map[string]float64)}

	for i := range m.body.Characteristics {
		c := &m.body.Characteristics[i]

		attr, err := firstMatch(c, r)
		if err != nil {
			return nil, err
		}
		if attr == nil {
			return nil, apperrors.NewUndefinedResultError(fmt.Sprintf("no attribute of characteristic %q matched", c.Name))
		}

		partial := attr.PartialScore
		if attr.ComputedScore != nil {
			x, ok, err := attr.ComputedScore.Number(r)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, nil
			}
			partial = x
		}
		total.Add(partial)

		if useReasonCodes {
			code := attr.ReasonCode
			if code == "" {
				code = c.ReasonCode
			}
			baseline := m.body.BaselineScore
			if c.BaselineScore != nil {
				baseline = c.BaselineScore
			}

			points := *baseline - partial
			if m.body.ReasonCodeAlgorithm == model.PointsAbove {
				points = partial - *baseline
			}
			reasons.add(code, points)
		}
	}

	result := &ScoreResult{Score: total.Float64(), report: total.Report()}
	if useReasonCodes {
		result.Contributors = reasons.ranked()
	}
	return result, nil
}

func firstMatch(c *model.Characteristic, r field.Resolver) (*model.Attribute, error) {
	for i := range c.Attributes {
		truth, err := c.Attributes[i].Predicate.Evaluate(r)
		if err != nil {
			return nil, err
		}
		if truth.IsTrue() {
			return &c.Attributes[i], nil
		}
	}
	return nil, nil
}
