package classification

import (
	"encoding/json"

	"github.com/ZanzyTHEbar/modelscore/internal/value"
)

// EntityClassification is a category distribution whose winner was produced
// by an entity, e.g. the rule that fired for the winning score.
type EntityClassification[V value.Float] struct {
	*Classification[V]
	entityID string
}

// NewEntityClassification creates an empty entity classification
func NewEntityClassification[V value.Float](t Type) *EntityClassification[V] {
	return &EntityClassification[V]{Classification: New[V](t)}
}

// SetEntity records the entity behind the winner
func (c *EntityClassification[V]) SetEntity(id string) {
	c.entityID = id
}

func (c *EntityClassification[V]) EntityID() string {
	return c.entityID
}

func (c *EntityClassification[V]) MarshalJSON() ([]byte, error) {
	return json.Marshal(Summarize(c))
}

// AffinityDistribution is keyed by entity id; the winner is the entity
type AffinityDistribution[V value.Float] struct {
	*Classification[V]
}

// NewAffinityDistribution creates a distance or similarity distribution
func NewAffinityDistribution[V value.Float](t Type) *AffinityDistribution[V] {
	return &AffinityDistribution[V]{Classification: New[V](t)}
}

func (d *AffinityDistribution[V]) EntityID() string {
	key, _, _ := d.Winner()
	return key
}

// Affinity returns the distance or similarity to the entity
func (d *AffinityDistribution[V]) Affinity(id string) (float64, bool) {
	return d.Get(id)
}

func (d *AffinityDistribution[V]) MarshalJSON() ([]byte, error) {
	return json.Marshal(Summarize(d))
}

// ProbabilityDistribution is a normalized distribution over categories
type ProbabilityDistribution[V value.Float] struct {
	*Classification[V]
}

func NewProbabilityDistribution[V value.Float]() *ProbabilityDistribution[V] {
	return &ProbabilityDistribution[V]{Classification: New[V](Probability)}
}

// Probability returns the probability of category, zero when absent
func (d *ProbabilityDistribution[V]) Probability(category string) float64 {
	p, _ := d.Get(category)
	return p
}
