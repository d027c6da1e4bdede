package txmap

import "github.com/yndnr/statekeep/internal/core/domain"

// Snapshot is an immutable capture of reconciled edits pending a durable
// commit. It holds at most one edit per key.
type Snapshot[K comparable, V any] struct {
	m            *Map[K, V]
	gen          uint64
	differential bool
	pages        []*page[K, V]
	edits        []Edit[K, V]
	committed    bool
}

// Generation returns the snapshot's position in creation order, starting at 1.
func (s *Snapshot[K, V]) Generation() uint64 { return s.gen }

// Differential reports whether only the newest page was captured.
func (s *Snapshot[K, V]) Differential() bool { return s.differential }

// Len returns the number of edits.
func (s *Snapshot[K, V]) Len() int { return len(s.edits) }

// Edits returns a copy of the reconciled edits.
func (s *Snapshot[K, V]) Edits() []Edit[K, V] {
	out := make([]Edit[K, V], len(s.edits))
	copy(out, s.edits)
	return out
}

// Accept replays every edit through v, stopping at the first error.
func (s *Snapshot[K, V]) Accept(v Visitor[K, V]) error {
	for _, e := range s.edits {
		if err := e.Dispatch(v); err != nil {
			return err
		}
	}
	return nil
}

// OnCommitted tells the map the snapshot's edits are durable so the sealed
// pages can be merged into the committed view. Call it only after the
// backing store confirmed the write.
//
// Committing a snapshot twice, or one that is not the most recently created
// snapshot, returns domain.ErrContractViolation and changes nothing.
func (s *Snapshot[K, V]) OnCommitted() error {
	if s.committed {
		return domain.ErrContractViolation.WithDetailsf("snapshot %d already committed", s.gen)
	}
	if s.gen != s.m.gen {
		return domain.ErrContractViolation.WithDetailsf("snapshot %d superseded by %d", s.gen, s.m.gen)
	}
	s.committed = true
	s.m.commit(s)
	return nil
}
