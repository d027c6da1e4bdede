// Package cmap provides a concurrent map keyed by string, sharded by a
// murmur3 hash of the key.
//
// Each shard has its own RWMutex, so readers of one key never wait on
// writers of a key in another shard. Iteration locks one shard at a time
// and therefore does not see a consistent view of the whole map.
//
// Usage:
//
//	m := cmap.New[Entity]()
//	if !m.SetIfAbsent(id, e) {
//		// already registered
//	}
//	e, ok := m.Get(id)
package cmap
