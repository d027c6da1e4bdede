package objspace

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/statekeep/internal/core/domain"
	"github.com/yndnr/statekeep/internal/storage"
	"github.com/yndnr/statekeep/pkg/cmap"
)

// NewID returns a fresh, time-ordered entity identifier.
func NewID() string {
	return ulid.Make().String()
}

// Space is the registry of live entities and the mediator of their
// persistence. Registry operations are safe for concurrent use; Save and
// OnSaved must follow the one-lifecycle-at-a-time contract.
type Space struct {
	kinds    *Kinds
	entities *cmap.Map[Entity]
	logger   *slog.Logger

	mu      sync.Mutex
	deleted map[string]deletion
	seq     uint64
	batch   *batch
}

// deletion is a partition removal awaiting the next Save. seq orders Delete
// calls; e is the entity that was unregistered.
type deletion struct {
	seq uint64
	e   Entity
}

// batch remembers what the last Save staged until OnSaved acknowledges it.
type batch struct {
	saved   []Entity
	deleted map[string]uint64
}

// SaveStats summarizes one Save.
type SaveStats struct {
	Saved   int
	Skipped int
	Deleted int
}

// Option configures a Space.
type Option func(*Space)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Space) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithShardCount sets the shard count of the entity registry.
func WithShardCount(n int) Option {
	return func(s *Space) {
		s.entities = cmap.NewWithShards[Entity](n)
	}
}

// New creates an empty Space resolving descriptors through kinds.
func New(kinds *Kinds, opts ...Option) *Space {
	s := &Space{
		kinds:    kinds,
		entities: cmap.New[Entity](),
		logger:   slog.Default(),
		deleted:  make(map[string]deletion),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kinds returns the registry used to resolve descriptors.
func (s *Space) Kinds() *Kinds { return s.kinds }

func validateID(id string) error {
	if id == "" || strings.ContainsAny(id, "/\x00") {
		return domain.ErrInvalidArgument.WithDetailsf("entity id %q must be non-empty without '/' or NUL", id)
	}
	return nil
}

// Add registers e under id.
//
// Re-adding the entity a pending Delete removed cancels that Delete. Adding
// a different entity keeps the old partition scheduled for removal and
// saves the new one after it. An entity whose deletion was already
// checkpointed comes back only as an entity that has never been saved.
//
// Returns domain.ErrAlreadyExists if id is taken and
// domain.ErrContractViolation while a checkpoint staging the deletion of id
// awaits OnSaved.
func (s *Space) Add(id string, e Entity) error {
	if err := validateID(id); err != nil {
		return err
	}
	if _, err := s.kinds.DescriptorOf(e); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkNotStaged(id); err != nil {
		return err
	}
	if !s.entities.SetIfAbsent(id, e) {
		return domain.ErrAlreadyExists.WithDetailsf("entity %s", id)
	}
	if d, ok := s.deleted[id]; ok && sameEntity(d.e, e) {
		delete(s.deleted, id)
	}
	return nil
}

// checkNotStaged refuses ids whose deletion is staged in an unacknowledged
// batch. Callers hold s.mu.
func (s *Space) checkNotStaged(id string) error {
	if s.batch == nil {
		return nil
	}
	if _, ok := s.batch.deleted[id]; ok {
		return domain.ErrContractViolation.WithDetailsf("deletion of entity %s is being checkpointed", id)
	}
	return nil
}

func sameEntity(a, b Entity) bool {
	if reflect.TypeOf(a) != reflect.TypeOf(b) || !reflect.ValueOf(a).Comparable() {
		return false
	}
	return a == b
}

// Get returns the entity registered under id.
// Returns domain.ErrNotFound if there is none.
func (s *Space) Get(id string) (Entity, error) {
	e, ok := s.entities.Get(id)
	if !ok {
		return nil, domain.ErrNotFound.WithDetailsf("entity %s", id)
	}
	return e, nil
}

// Delete unregisters id and schedules removal of its index entry and
// partition with the next Save.
// Returns domain.ErrNotFound if id is not registered.
func (s *Space) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities.Pop(id)
	if !ok {
		return domain.ErrNotFound.WithDetailsf("entity %s", id)
	}
	s.seq++
	s.deleted[id] = deletion{seq: s.seq, e: e}
	return nil
}

// IDs returns the registered ids in ascending order.
func (s *Space) IDs() []string {
	return s.entities.Keys()
}

// Len returns the number of registered entities.
func (s *Space) Len() int {
	return s.entities.Count()
}

// NeedsSave reports whether a Save would stage anything.
func (s *Space) NeedsSave() bool {
	s.mu.Lock()
	pending := len(s.deleted) > 0
	s.mu.Unlock()
	if pending {
		return true
	}
	for _, e := range s.entities.All() {
		if e.NeedsSave() {
			return true
		}
	}
	return false
}

type entry struct {
	id string
	e  Entity
}

func (s *Space) sorted() []entry {
	out := make([]entry, 0, s.entities.Count())
	for id, e := range s.entities.All() {
		out = append(out, entry{id, e})
	}
	slices.SortFunc(out, func(a, b entry) int { return cmp.Compare(a.id, b.id) })
	return out
}

// Save stages the registry into w: removals scheduled by Delete, then the
// descriptor and partition of every entity that needs saving. Entities that
// do not need saving are skipped. Save does not commit w.
//
// An entity's Save is expected to begin its own save lifecycle; the matching
// acknowledgement arrives through OnSaved. A failed Save forgets the batch,
// and the caller should roll back w.
func (s *Space) Save(ctx context.Context, w storage.Writer) (SaveStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.batch = nil
	b := &batch{deleted: make(map[string]uint64, len(s.deleted))}
	for id, d := range s.deleted {
		b.deleted[id] = d.seq
	}
	var stats SaveStats

	for _, id := range slices.Sorted(maps.Keys(b.deleted)) {
		if err := w.DeleteItem(ctx, IndexCategory, id); err != nil {
			return stats, fmt.Errorf("delete index entry %s: %w", id, err)
		}
		if err := w.DeleteCategories(ctx, ItemPrefix(id)); err != nil {
			return stats, fmt.Errorf("delete partition %s: %w", id, err)
		}
		stats.Deleted++
	}

	for _, en := range s.sorted() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		// A replaced entity is rewritten after its old partition is removed.
		_, replaced := b.deleted[en.id]
		if !replaced && !en.e.NeedsSave() {
			stats.Skipped++
			continue
		}
		if err := s.saveOne(ctx, w, en.id, en.e); err != nil {
			return stats, err
		}
		b.saved = append(b.saved, en.e)
		stats.Saved++
	}

	s.batch = b
	s.logger.Debug("object space staged",
		"checkpoint", w.ID(),
		"kind", w.Kind().String(),
		"saved", stats.Saved,
		"skipped", stats.Skipped,
		"deleted", stats.Deleted)
	return stats, nil
}

func (s *Space) saveOne(ctx context.Context, w storage.Writer, id string, e Entity) error {
	d, err := s.kinds.DescriptorOf(e)
	if err != nil {
		return fmt.Errorf("describe entity %s: %w", id, err)
	}
	data, err := d.Marshal()
	if err != nil {
		return fmt.Errorf("encode descriptor of %s: %w", id, err)
	}
	if err := storage.WriteItem(ctx, w, IndexCategory, id, data); err != nil {
		return fmt.Errorf("write index entry %s: %w", id, err)
	}
	if err := e.Save(ctx, NewPartitionWriter(w, id)); err != nil {
		return fmt.Errorf("save entity %s (%s): %w", id, d.Kind, err)
	}
	return nil
}

// OnSaved acknowledges the batch staged by the last Save. Call it only
// after the writer passed to that Save committed successfully. Without a
// staged batch it does nothing.
func (s *Space) OnSaved() {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.batch
	if b == nil {
		return
	}
	s.batch = nil

	for _, e := range b.saved {
		e.OnSaved()
	}
	for id, seq := range b.deleted {
		// A Delete issued after the Save stays scheduled.
		if s.deleted[id].seq == seq {
			delete(s.deleted, id)
		}
	}
}

// Load rebuilds every entity listed in the index of r and registers it,
// cancelling any pending Delete of a loaded id. Nothing is registered unless
// every entity loads.
//
// Returns domain.ErrUnknownKind if a descriptor names an unregistered kind,
// domain.ErrInvalidDescriptor for an index entry that is not a valid id,
// domain.ErrAlreadyExists if a loaded id is already registered and
// domain.ErrContractViolation while the deletion of a loaded id is being
// checkpointed.
func (s *Space) Load(ctx context.Context, r storage.Reader) (int, error) {
	ids, err := r.ListKeys(ctx, IndexCategory)
	if err != nil {
		return 0, fmt.Errorf("list index: %w", err)
	}

	loaded := make([]entry, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		e, err := s.loadOne(ctx, r, id)
		if err != nil {
			return 0, err
		}
		loaded = append(loaded, entry{id, e})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, en := range loaded {
		if err := s.checkNotStaged(en.id); err != nil {
			return 0, err
		}
		if s.entities.Has(en.id) {
			return 0, domain.ErrAlreadyExists.WithDetailsf("entity %s", en.id)
		}
	}
	for _, en := range loaded {
		s.entities.Set(en.id, en.e)
		delete(s.deleted, en.id)
	}

	s.logger.Debug("object space loaded", "entities", len(loaded))
	return len(loaded), nil
}

func (s *Space) loadOne(ctx context.Context, r storage.Reader, id string) (Entity, error) {
	if err := validateID(id); err != nil {
		return nil, domain.ErrInvalidDescriptor.WithDetailsf("index entry %q is not an entity id", id).WithCause(err)
	}
	data, err := storage.ReadItem(ctx, r, IndexCategory, id)
	if err != nil {
		return nil, fmt.Errorf("read index entry %s: %w", id, err)
	}
	d, err := UnmarshalDescriptor(data)
	if err != nil {
		return nil, fmt.Errorf("decode descriptor of %s: %w", id, err)
	}
	f, err := s.kinds.Resolve(d)
	if err != nil {
		return nil, fmt.Errorf("entity %s: %w", id, err)
	}
	e, err := f(id, d)
	if err != nil {
		return nil, fmt.Errorf("construct entity %s (%s): %w", id, d.Kind, err)
	}
	if err := e.Load(ctx, NewPartitionReader(r, id)); err != nil {
		return nil, fmt.Errorf("load entity %s (%s): %w", id, d.Kind, err)
	}
	return e, nil
}
