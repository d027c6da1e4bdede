package storage

import (
	"context"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/yndnr/statekeep/internal/core/domain"
	"github.com/yndnr/statekeep/pkg/crypto/adaptive"
)

// MemoryStore is a transient in-memory Store intended for tests and demos.
type MemoryStore struct {
	mu         sync.RWMutex
	categories map[string]map[string][]byte
	sealer     *sealer
	closed     bool
}

// NewMemoryStore returns an empty MemoryStore. c may be nil.
func NewMemoryStore(c adaptive.Cipher) *MemoryStore {
	return &MemoryStore{
		categories: make(map[string]map[string][]byte),
		sealer:     newSealer(c),
	}
}

func (s *MemoryStore) Engine() string { return EngineMemory }

func (s *MemoryStore) ListCategories(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrStoreClosed
	}
	return slices.Sorted(maps.Keys(s.categories)), nil
}

func (s *MemoryStore) ListKeys(ctx context.Context, category string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrStoreClosed
	}
	return slices.Sorted(maps.Keys(s.categories[category])), nil
}

func (s *MemoryStore) OpenItem(ctx context.Context, category, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	value, ok := s.categories[category][key]
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, domain.ErrStoreClosed
	}
	if !ok {
		return nil, domain.ErrItemNotFound.WithDetailsf("%s/%s", category, key)
	}
	plain, err := s.sealer.open(category, key, value)
	if err != nil {
		return nil, err
	}
	return itemReader(plain), nil
}

func (s *MemoryStore) Begin(kind CheckpointKind) (Writer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrStoreClosed
	}
	return newStagedWriter(kind, s.sealer, s.apply), nil
}

// apply works on a copy of the touched categories and swaps it in at the
// end, so a cancelled commit changes nothing.
func (s *MemoryStore) apply(ctx context.Context, ops []stagedOp, progress ProgressFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreClosed
	}

	next := make(map[string]map[string][]byte, len(s.categories))
	for c, items := range s.categories {
		next[c] = items
	}
	cloned := make(map[string]bool)
	bucket := func(category string, create bool) map[string][]byte {
		items, ok := next[category]
		if !ok {
			if !create {
				return nil
			}
			items = make(map[string][]byte)
			next[category] = items
			cloned[category] = true
			return items
		}
		if !cloned[category] {
			items = maps.Clone(items)
			next[category] = items
			cloned[category] = true
		}
		return items
	}

	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch op.typ {
		case opPut:
			bucket(op.category, true)[op.key] = op.value
		case opDelete:
			if items := bucket(op.category, false); items != nil {
				delete(items, op.key)
				if len(items) == 0 {
					delete(next, op.category)
				}
			}
		case opDeletePrefix:
			for c := range next {
				if strings.HasPrefix(c, op.category) {
					delete(next, c)
				}
			}
		}
		progress(i+1, len(ops))
	}

	s.categories = next
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.categories = nil
	return nil
}
