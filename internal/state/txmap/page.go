package txmap

import "github.com/yndnr/statekeep/pkg/optional"

// page is one generation of edits. A None entry is a tombstone.
type page[K comparable, V any] struct {
	entries map[K]optional.Value[V]
	// order records keys in first-write order so replays are deterministic.
	order []K
}

func newPage[K comparable, V any]() *page[K, V] {
	return &page[K, V]{entries: make(map[K]optional.Value[V])}
}

func (p *page[K, V]) put(key K, entry optional.Value[V]) {
	if _, ok := p.entries[key]; !ok {
		p.order = append(p.order, key)
	}
	p.entries[key] = entry
}

func (p *page[K, V]) forget(key K) {
	delete(p.entries, key)
}

// each visits live entries in first-write order.
func (p *page[K, V]) each(fn func(key K, entry optional.Value[V])) {
	for _, k := range p.order {
		if e, ok := p.entries[k]; ok {
			fn(k, e)
		}
	}
}

func (p *page[K, V]) applyTo(base map[K]V) {
	p.each(func(k K, e optional.Value[V]) {
		if v, ok := e.Get(); ok {
			base[k] = v
		} else {
			delete(base, k)
		}
	})
}

func entryEdit[K comparable, V any](key K, e optional.Value[V]) Edit[K, V] {
	if v, ok := e.Get(); ok {
		return Upsert(key, v)
	}
	return Delete[K, V](key)
}
