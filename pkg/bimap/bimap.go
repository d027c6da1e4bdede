// Package bimap provides a one-to-one map that can be queried in both directions.
//
// Every key maps to exactly one value and every value to exactly one key.
// Putting a pair evicts any pair that shared its key or its value.
//
// Map is not safe for concurrent mutation.
package bimap

import "iter"

// Map is a bidirectional map between K and V.
type Map[K comparable, V comparable] struct {
	forward map[K]V
	reverse map[V]K
}

// New creates an empty Map.
func New[K comparable, V comparable]() *Map[K, V] {
	return &Map[K, V]{
		forward: make(map[K]V),
		reverse: make(map[V]K),
	}
}

// Put associates k with v, removing any previous association of either side.
func (m *Map[K, V]) Put(k K, v V) {
	if old, ok := m.forward[k]; ok {
		delete(m.reverse, old)
	}
	if old, ok := m.reverse[v]; ok {
		delete(m.forward, old)
	}
	m.forward[k] = v
	m.reverse[v] = k
}

// GetByKey returns the value associated with k.
func (m *Map[K, V]) GetByKey(k K) (V, bool) {
	v, ok := m.forward[k]
	return v, ok
}

// GetByValue returns the key associated with v.
func (m *Map[K, V]) GetByValue(v V) (K, bool) {
	k, ok := m.reverse[v]
	return k, ok
}

// DeleteByKey removes the pair keyed by k. It reports whether a pair was removed.
func (m *Map[K, V]) DeleteByKey(k K) bool {
	v, ok := m.forward[k]
	if !ok {
		return false
	}
	delete(m.forward, k)
	delete(m.reverse, v)
	return true
}

// DeleteByValue removes the pair holding v. It reports whether a pair was removed.
func (m *Map[K, V]) DeleteByValue(v V) bool {
	k, ok := m.reverse[v]
	if !ok {
		return false
	}
	delete(m.reverse, v)
	delete(m.forward, k)
	return true
}

// Len returns the number of pairs.
func (m *Map[K, V]) Len() int {
	return len(m.forward)
}

// All iterates over every pair in unspecified order.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for k, v := range m.forward {
			if !yield(k, v) {
				return
			}
		}
	}
}
