package txmap

import (
	"iter"

	"github.com/yndnr/statekeep/internal/core/domain"
	"github.com/yndnr/statekeep/pkg/optional"
)

// Map is a keyed store with snapshot support. See the package documentation.
//
// The zero Map is not usable; create one with New.
type Map[K comparable, V any] struct {
	base map[K]V

	// pages is ordered oldest to newest. The last element is current.
	pages   []*page[K, V]
	current *page[K, V]

	// gen is the generation of the most recently created snapshot.
	gen uint64
}

// New creates an empty Map.
func New[K comparable, V any]() *Map[K, V] {
	m := &Map[K, V]{base: make(map[K]V)}
	m.openPage()
	return m
}

func (m *Map[K, V]) openPage() {
	p := newPage[K, V]()
	m.pages = append(m.pages, p)
	m.current = p
}

// Lookup returns the current value for key, or None.
func (m *Map[K, V]) Lookup(key K) optional.Value[V] {
	if e, ok := m.current.entries[key]; ok {
		return e
	}
	for i := len(m.pages) - 2; i >= 0; i-- {
		if e, ok := m.pages[i].entries[key]; ok {
			return e
		}
	}
	v, ok := m.base[key]
	return optional.Of(v, ok)
}

// TryGet returns the value for key and whether it is present.
func (m *Map[K, V]) TryGet(key K) (V, bool) {
	return m.Lookup(key).Get()
}

// Get returns the value for key, or domain.ErrNotFound.
func (m *Map[K, V]) Get(key K) (V, error) {
	v, ok := m.TryGet(key)
	if !ok {
		return v, domain.ErrNotFound.WithDetailsf("key %v", key)
	}
	return v, nil
}

// ContainsKey reports whether key is present.
func (m *Map[K, V]) ContainsKey(key K) bool {
	return m.Lookup(key).IsSome()
}

// Set adds or replaces the value for key.
func (m *Map[K, V]) Set(key K, value V) {
	m.current.put(key, optional.Some(value))
}

// Add inserts key, failing with domain.ErrAlreadyExists if it is present.
func (m *Map[K, V]) Add(key K, value V) error {
	if m.ContainsKey(key) {
		return domain.ErrAlreadyExists.WithDetailsf("key %v", key)
	}
	m.Set(key, value)
	return nil
}

// Remove deletes key and reports whether it was present.
func (m *Map[K, V]) Remove(key K) bool {
	if !m.ContainsKey(key) {
		return false
	}
	m.current.put(key, optional.None[V]())
	return true
}

// Seed writes key directly into the committed view without recording an
// edit. It is meant for rebuilding a map from durable state on load.
func (m *Map[K, V]) Seed(key K, value V) {
	m.base[key] = value
}

// All iterates over the merged view in unspecified order.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		seen := make(map[K]struct{})
		for i := len(m.pages) - 1; i >= 0; i-- {
			for _, k := range m.pages[i].order {
				e, ok := m.pages[i].entries[k]
				if !ok {
					continue
				}
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}
				if v, ok := e.Get(); ok {
					if !yield(k, v) {
						return
					}
				}
			}
		}
		for k, v := range m.base {
			if _, dup := seen[k]; dup {
				continue
			}
			if !yield(k, v) {
				return
			}
		}
	}
}

// Len returns the number of keys in the merged view.
func (m *Map[K, V]) Len() int {
	n := 0
	for range m.All() {
		n++
	}
	return n
}

// PageCount returns the number of edit pages, including the current one.
func (m *Map[K, V]) PageCount() int {
	return len(m.pages)
}

// HasPendingEdits reports whether any page holds an edit that has not been
// committed.
func (m *Map[K, V]) HasPendingEdits() bool {
	for _, p := range m.pages {
		if len(p.entries) > 0 {
			return true
		}
	}
	return false
}

// CreateSnapshot seals edit pages into an immutable Snapshot and opens a new
// current page. A differential snapshot captures only the current page; a
// full snapshot captures every page not yet committed. Nothing is merged
// into the committed view until Snapshot.OnCommitted.
//
// Only one snapshot may be outstanding at a time.
func (m *Map[K, V]) CreateSnapshot(differential bool) *Snapshot[K, V] {
	var sealed []*page[K, V]
	if differential {
		sealed = []*page[K, V]{m.current}
	} else {
		sealed = append(sealed, m.pages...)
	}

	m.gen++
	s := &Snapshot[K, V]{
		m:            m,
		gen:          m.gen,
		differential: differential,
		pages:        sealed,
		edits:        reconcile(sealed),
	}
	m.openPage()
	return s
}

// reconcile keeps the last edit per key across pages, oldest to newest.
func reconcile[K comparable, V any](pages []*page[K, V]) []Edit[K, V] {
	latest := make(map[K]optional.Value[V])
	var keys []K
	for _, p := range pages {
		p.each(func(k K, e optional.Value[V]) {
			if _, ok := latest[k]; !ok {
				keys = append(keys, k)
			}
			latest[k] = e
		})
	}
	edits := make([]Edit[K, V], 0, len(keys))
	for _, k := range keys {
		edits = append(edits, entryEdit(k, latest[k]))
	}
	return edits
}

// commit folds the snapshot's pages into the committed view. Pages older
// than the snapshot that it did not capture lose the keys it superseded.
func (m *Map[K, V]) commit(s *Snapshot[K, V]) {
	captured := make(map[*page[K, V]]bool, len(s.pages))
	for _, p := range s.pages {
		captured[p] = true
		p.applyTo(m.base)
	}

	first := s.pages[0]
	older := true
	kept := m.pages[:0]
	for _, p := range m.pages {
		if p == first {
			older = false
		}
		if captured[p] {
			continue
		}
		if older {
			for _, e := range s.edits {
				p.forget(e.Key())
			}
		}
		kept = append(kept, p)
	}
	for i := len(kept); i < len(m.pages); i++ {
		m.pages[i] = nil
	}
	m.pages = kept
}
