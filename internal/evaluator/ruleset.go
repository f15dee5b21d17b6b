package evaluator

import (
	"strconv"
	"sync"

	"github.com/ZanzyTHEbar/modelscore/internal/classification"
	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
	"github.com/ZanzyTHEbar/modelscore/internal/field"
	"github.com/ZanzyTHEbar/modelscore/internal/model"
	"github.com/ZanzyTHEbar/modelscore/internal/value"
)

type ruleSet[V value.Float] struct {
	doc     *model.Document
	body    *model.RuleSetModel
	factory value.Factory[V]

	registryOnce sync.Once
	entityIDs    map[*model.Rule]string
}

func newRuleSetScorer(doc *model.Document, reporting bool) (scorer, error) {
	return precision(doc,
		func() (scorer, error) { return newRuleSet[float32](doc, reporting) },
		func() (scorer, error) { return newRuleSet[float64](doc, reporting) },
	)
}

func newRuleSet[V value.Float](doc *model.Document, reporting bool) (*ruleSet[V], error) {
	body := doc.RuleSet
	if body == nil {
		return nil, configError("rule set model body is missing")
	}
	if len(body.Criteria) == 0 {
		return nil, configError("rule set has no selection method")
	}
	switch body.Criteria[0] {
	case model.FirstHit, model.WeightedMax, model.WeightedSum:
	default:
		return nil, apperrors.NewUnsupportedError("rule selection method", body.Criteria[0])
	}

	return &ruleSet[V]{doc: doc, body: body, factory: value.NewFactory[V](reporting)}, nil
}

// registry maps simple rules to their entity ids: the declared id, or the
// 1-based position among simple rules in depth-first order.
func (m *ruleSet[V]) registry() map[*model.Rule]string {
	m.registryOnce.Do(func() {
		ids := make(map[*model.Rule]string)
		index := 0

		var walk func(rules []model.Rule)
		walk = func(rules []model.Rule) {
			for i := range rules {
				rule := &rules[i]
				if rule.Compound() {
					walk(rule.Rules)
					continue
				}
				index++
				id := rule.ID
				if id == "" {
					id = strconv.Itoa(index)
				}
				ids[rule] = id
			}
		}
		walk(m.body.Rules)

		m.entityIDs = ids
	})
	return m.entityIDs
}

// firedRules groups fired rules by score, keeping first-seen score order and
// arrival order within each score.
type firedRules struct {
	scores []string
	rules  map[string][]*model.Rule
	total  int
}

func (f *firedRules) add(rule *model.Rule) {
	if _, ok := f.rules[rule.Score]; !ok {
		f.scores = append(f.scores, rule.Score)
	}
	f.rules[rule.Score] = append(f.rules[rule.Score], rule)
	f.total++
}

func (m *ruleSet[V]) collect(rules []model.Rule, r field.Resolver, fired *firedRules) error {
	for i := range rules {
		rule := &rules[i]

		truth, err := rule.Predicate.Evaluate(r)
		if err != nil {
			return err
		}
		if !truth.IsTrue() {
			continue
		}

		if rule.Compound() {
			if err := m.collect(rule.Rules, r, fired); err != nil {
				return err
			}
			continue
		}
		fired.add(rule)
	}
	return nil
}

func (m *ruleSet[V]) score(r field.Resolver) (any, error) {
	fired := &firedRules{rules: make(map[string][]*model.Rule)}
	if err := m.collect(m.body.Rules, r, fired); err != nil {
		return nil, err
	}

	if fired.total == 0 {
		return m.defaultScore()
	}

	ids := m.registry()
	dist := classification.NewEntityClassification[V](classification.Confidence)
	// entity behind each score's value
	entities := make(map[string]*model.Rule, len(fired.scores))

	switch m.body.Criteria[0] {
	case model.FirstHit:
		for _, score := range fired.scores {
			rule := fired.rules[score][0]
			entities[score] = rule
			if err := dist.Put(score, m.factory.NewValue(rule.ConfidenceOrDefault())); err != nil {
				return nil, err
			}
		}

		first := fired.scores[0]
		dist.SetEntity(ids[entities[first]])
		if err := dist.ComputeResultFor(first, m.doc.Target.DataType); err != nil {
			return nil, err
		}
		return dist, nil

	case model.WeightedMax:
		for _, score := range fired.scores {
			best := fired.rules[score][0]
			for _, rule := range fired.rules[score][1:] {
				if rule.WeightOrDefault() > best.WeightOrDefault() {
					best = rule
				}
			}
			entities[score] = best
			if err := dist.Put(score, m.factory.NewValue(best.ConfidenceOrDefault())); err != nil {
				return nil, err
			}
		}

	case model.WeightedSum:
		// each score's weight sum is divided by the number of fired rules
		// across all scores, not just its own
		for _, score := range fired.scores {
			sum := m.factory.Zero()
			for _, rule := range fired.rules[score] {
				sum.Add(rule.WeightOrDefault())
			}
			if _, err := sum.Divide(float64(fired.total)); err != nil {
				return nil, err
			}
			entities[score] = fired.rules[score][0]
			if err := dist.Put(score, sum); err != nil {
				return nil, err
			}
		}
	}

	if err := dist.ComputeResult(m.doc.Target.DataType); err != nil {
		return nil, err
	}
	winner, _, _ := dist.Winner()
	dist.SetEntity(ids[entities[winner]])
	return dist, nil
}

func (m *ruleSet[V]) defaultScore() (any, error) {
	if m.body.DefaultScore == nil || m.body.DefaultConfidence == nil {
		return nil, configError("no rule fired and the rule set declares no default score and confidence")
	}

	dist := classification.NewEntityClassification[V](classification.Confidence)
	if err := dist.Put(*m.body.DefaultScore, m.factory.NewValue(*m.body.DefaultConfidence)); err != nil {
		return nil, err
	}
	if err := dist.ComputeResult(m.doc.Target.DataType); err != nil {
		return nil, err
	}
	return dist, nil
}
