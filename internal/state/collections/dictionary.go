package collections

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/yndnr/statekeep/internal/core/domain"
	"github.com/yndnr/statekeep/internal/state/dirty"
	"github.com/yndnr/statekeep/internal/state/eventual"
	"github.com/yndnr/statekeep/internal/state/objspace"
	"github.com/yndnr/statekeep/internal/state/txmap"
	"github.com/yndnr/statekeep/internal/storage"
)

const dictionaryCategory = "entries"

// Dictionary maps string keys to values stored msgpack-encoded. Values are
// decoded only when read, with Lookup.
//
// A differential checkpoint writes the edits made since the previous Save;
// a full checkpoint writes every edit not yet acknowledged.
type Dictionary struct {
	mu      sync.Mutex
	entries *txmap.Map[string, *eventual.Object]
	tracker *dirty.Tracker
	pending *txmap.Snapshot[string, *eventual.Object]
}

// NewDictionary returns an empty dictionary that has never been saved.
func NewDictionary() *Dictionary {
	return &Dictionary{
		entries: txmap.New[string, *eventual.Object](),
		tracker: dirty.New(),
	}
}

func newDictionaryEntity(string, objspace.Descriptor) (objspace.Entity, error) {
	return NewDictionary(), nil
}

func validateKey(key string) error {
	if key == "" || strings.Contains(key, "\x00") {
		return domain.ErrInvalidArgument.WithDetailsf("dictionary key %q", key)
	}
	return nil
}

// Set stores v under key.
func (d *Dictionary) Set(key string, v any) error {
	if err := validateKey(key); err != nil {
		return err
	}
	data, err := encode(v)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries.Set(key, eventual.FromBytes(data))
	return nil
}

// Add stores v under key.
// Returns domain.ErrAlreadyExists if key is present.
func (d *Dictionary) Add(key string, v any) error {
	if err := validateKey(key); err != nil {
		return err
	}
	data, err := encode(v)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.entries.Add(key, eventual.FromBytes(data))
}

// Remove deletes key and reports whether it was present.
func (d *Dictionary) Remove(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.entries.Remove(key)
}

// Contains reports whether key is present.
func (d *Dictionary) Contains(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.entries.ContainsKey(key)
}

// Raw returns the encoded value of key.
// Returns domain.ErrNotFound if key is absent.
func (d *Dictionary) Raw(key string) (*eventual.Object, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.entries.Get(key)
}

// Len returns the number of keys.
func (d *Dictionary) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.entries.Len()
}

// Keys returns the keys in ascending order.
func (d *Dictionary) Keys() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	keys := make([]string, 0, d.entries.Len())
	for k := range d.entries.All() {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Lookup decodes the value stored under key as a T.
// Returns domain.ErrNotFound if key is absent.
func Lookup[T any](d *Dictionary, key string) (T, error) {
	obj, err := d.Raw(key)
	if err != nil {
		var zero T
		return zero, err
	}
	return eventual.DeserializeAs(obj, decoderFor[T]())
}

func (d *Dictionary) Kind() string { return KindDictionary }

func (d *Dictionary) NeedsSave() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tracker.NeedsSave() || d.entries.HasPendingEdits()
}

func (d *Dictionary) Save(ctx context.Context, w storage.Writer) error {
	d.mu.Lock()
	snap := d.entries.CreateSnapshot(w.Kind() == storage.KindDifferential)
	d.pending = snap
	d.tracker.BeginSave()
	d.mu.Unlock()

	return snap.Accept(txmap.VisitorFuncs[string, *eventual.Object]{
		OnAddOrUpdate: func(key string, obj *eventual.Object) error {
			return storage.WriteItem(ctx, w, dictionaryCategory, key, obj.Bytes())
		},
		OnDelete: func(key string) error {
			return w.DeleteItem(ctx, dictionaryCategory, key)
		},
	})
}

func (d *Dictionary) Load(ctx context.Context, r storage.Reader) error {
	keys, err := r.ListKeys(ctx, dictionaryCategory)
	if err != nil {
		return err
	}
	entries := txmap.New[string, *eventual.Object]()
	for _, key := range keys {
		rc, err := r.OpenItem(ctx, dictionaryCategory, key)
		if err != nil {
			return err
		}
		obj, err := eventual.FromReader(rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("read entry %q: %w", key, err)
		}
		entries.Seed(key, obj)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = entries
	d.tracker = dirty.Restored()
	d.pending = nil
	return nil
}

func (d *Dictionary) OnSaved() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tracker.OnSaveAcknowledged()
	if d.pending == nil {
		return
	}
	if err := d.pending.OnCommitted(); err != nil {
		// The edits stay in unmerged pages; the next Save writes them again.
		slog.Error("dictionary save acknowledgement rejected", "error", err)
		d.tracker.MarkChanged()
	}
	d.pending = nil
}
