package collections

import (
	"bytes"
	"context"
	"sync"

	"github.com/yndnr/statekeep/internal/state/dirty"
	"github.com/yndnr/statekeep/internal/state/objspace"
	"github.com/yndnr/statekeep/internal/storage"
)

const (
	counterCategory = "counter"
	counterKey      = "value"
)

// Counter is a persisted int64.
type Counter struct {
	mu      sync.Mutex
	value   int64
	tracker *dirty.Tracker
}

// NewCounter returns a counter that has never been saved.
func NewCounter(initial int64) *Counter {
	return &Counter{value: initial, tracker: dirty.New()}
}

func newCounterEntity(string, objspace.Descriptor) (objspace.Entity, error) {
	return NewCounter(0), nil
}

// Value returns the current value.
func (c *Counter) Value() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Add adds delta and returns the new value.
func (c *Counter) Add(delta int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value += delta
	c.tracker.MarkChanged()
	return c.value
}

// Set replaces the value.
func (c *Counter) Set(v int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v == c.value {
		return
	}
	c.value = v
	c.tracker.MarkChanged()
}

func (c *Counter) Kind() string { return KindCounter }

func (c *Counter) NeedsSave() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.NeedsSave()
}

// Save writes the value. A counter is always written whole, whatever the
// checkpoint kind.
func (c *Counter) Save(ctx context.Context, w storage.Writer) error {
	c.mu.Lock()
	v := c.value
	c.tracker.BeginSave()
	c.mu.Unlock()

	data, err := encode(v)
	if err != nil {
		return err
	}
	return storage.WriteItem(ctx, w, counterCategory, counterKey, data)
}

func (c *Counter) Load(ctx context.Context, r storage.Reader) error {
	data, err := storage.ReadItem(ctx, r, counterCategory, counterKey)
	if err != nil {
		return err
	}
	v, err := decoderFor[int64]()(bytes.NewReader(data))
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
	c.tracker = dirty.Restored()
	return nil
}

func (c *Counter) OnSaved() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracker.OnSaveAcknowledged()
}

// State returns the dirty-tracking state name, for diagnostics.
func (c *Counter) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.String()
}
