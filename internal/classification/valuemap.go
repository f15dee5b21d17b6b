package classification

import (
	"fmt"
	"slices"

	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
	"github.com/ZanzyTHEbar/modelscore/internal/value"
)

// Entry is one key/value pair of a ValueMap
type Entry[K comparable, V value.Float] struct {
	Key   K
	Value *value.Value[V]
}

// ValueMap is an insertion-ordered mapping from keys to values. Order is
// significant: it breaks ties between equal values.
type ValueMap[K comparable, V value.Float] struct {
	keys   []K
	values map[K]*value.Value[V]
}

// NewValueMap creates an empty map
func NewValueMap[K comparable, V value.Float]() *ValueMap[K, V] {
	return &ValueMap[K, V]{values: make(map[K]*value.Value[V])}
}

// Put inserts a new key; an existing key is an error
func (m *ValueMap[K, V]) Put(key K, v *value.Value[V]) error {
	if _, ok := m.values[key]; ok {
		return apperrors.NewConfigurationError(fmt.Sprintf("duplicate key %v", key), nil)
	}
	m.keys = append(m.keys, key)
	m.values[key] = v
	return nil
}

// Replace sets the value of key, inserting it at the end when absent
func (m *ValueMap[K, V]) Replace(key K, v *value.Value[V]) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns the value stored under key
func (m *ValueMap[K, V]) Get(key K) (*value.Value[V], bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order
func (m *ValueMap[K, V]) Keys() []K {
	return slices.Clone(m.keys)
}

func (m *ValueMap[K, V]) Len() int {
	return len(m.keys)
}

// Entries returns the pairs in insertion order
func (m *ValueMap[K, V]) Entries() []Entry[K, V] {
	entries := make([]Entry[K, V], len(m.keys))
	for i, k := range m.keys {
		entries[i] = Entry[K, V]{Key: k, Value: m.values[k]}
	}
	return entries
}

// Winner returns the first key holding the minimum (distance) or maximum
// (every other type) value. Later equal values never replace an earlier winner.
func (m *ValueMap[K, V]) Winner(t Type) (K, *value.Value[V], bool) {
	var (
		winner K
		best   *value.Value[V]
	)
	for _, k := range m.keys {
		v := m.values[k]
		if best == nil || t.better(v, best) {
			winner, best = k, v
		}
	}
	return winner, best, best != nil
}

// Ranking returns the entries best first. Equal values keep insertion order.
func (m *ValueMap[K, V]) Ranking(t Type) []Entry[K, V] {
	entries := m.Entries()
	slices.SortStableFunc(entries, func(a, b Entry[K, V]) int {
		switch {
		case t.better(a.Value, b.Value):
			return -1
		case t.better(b.Value, a.Value):
			return 1
		default:
			return 0
		}
	})
	return entries
}

// Sum adds up every value into a fresh accumulator
func (m *ValueMap[K, V]) Sum() *value.Value[V] {
	sum := value.New[V](0)
	for _, k := range m.keys {
		sum.AddValue(m.values[k])
	}
	return sum
}
