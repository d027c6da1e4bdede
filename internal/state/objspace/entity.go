package objspace

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/yndnr/statekeep/internal/core/domain"
	"github.com/yndnr/statekeep/internal/storage"
	"github.com/yndnr/statekeep/pkg/bimap"
)

// Entity is a unit of persisted state managed by a Space.
type Entity interface {
	// Kind names the registered kind used to rebuild the entity on load.
	Kind() string

	// NeedsSave reports whether the entity has state not yet acknowledged
	// as durable.
	NeedsSave() bool

	// Save writes the entity's state into its partition. w.Kind() tells
	// whether a full image or only the changes are expected.
	Save(ctx context.Context, w storage.Writer) error

	// Load restores the entity from its partition.
	Load(ctx context.Context, r storage.Reader) error

	// OnSaved acknowledges the last Save as durable.
	OnSaved()
}

// Parameterized is implemented by entities whose construction depends on
// parameters that must be persisted in their descriptor.
type Parameterized interface {
	Params() map[string]any
}

// Factory constructs an empty entity of a registered kind. Load is called on
// the result afterwards.
type Factory func(id string, d Descriptor) (Entity, error)

// Kinds maps kind names to factories and to the Go type that implements
// each kind. It is safe for concurrent use.
type Kinds struct {
	mu        sync.RWMutex
	factories map[string]Factory
	types     *bimap.Map[string, string] // kind <-> Go type name
}

// NewKinds returns an empty registry.
func NewKinds() *Kinds {
	return &Kinds{
		factories: make(map[string]Factory),
		types:     bimap.New[string, string](),
	}
}

// Register adds a kind. prototype is any value of the implementing type and
// is only inspected for its type.
//
// Registering a kind name or a Go type twice returns domain.ErrAlreadyExists.
func (k *Kinds) Register(kind string, prototype Entity, f Factory) error {
	if kind == "" || f == nil || prototype == nil {
		return domain.ErrInvalidArgument.WithDetails("kind, prototype and factory are required")
	}
	typeName := typeNameOf(prototype)

	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.factories[kind]; ok {
		return domain.ErrAlreadyExists.WithDetailsf("kind %q", kind)
	}
	if other, ok := k.types.GetByValue(typeName); ok {
		return domain.ErrAlreadyExists.WithDetailsf("type %s already registered as kind %q", typeName, other)
	}
	k.factories[kind] = f
	k.types.Put(kind, typeName)
	return nil
}

// MustRegister is like Register but panics on error.
func (k *Kinds) MustRegister(kind string, prototype Entity, f Factory) {
	if err := k.Register(kind, prototype, f); err != nil {
		panic(err)
	}
}

// Resolve returns the factory for d.Kind.
func (k *Kinds) Resolve(d Descriptor) (Factory, error) {
	k.mu.RLock()
	f, ok := k.factories[d.Kind]
	k.mu.RUnlock()
	if !ok {
		return nil, domain.ErrUnknownKind.WithDetailsf("kind %q", d.Kind)
	}
	return f, nil
}

// DescriptorOf builds the descriptor persisted for e. The kind e reports
// must be registered to e's Go type.
func (k *Kinds) DescriptorOf(e Entity) (Descriptor, error) {
	kind := e.Kind()
	typeName := typeNameOf(e)

	k.mu.RLock()
	registered, ok := k.types.GetByKey(kind)
	k.mu.RUnlock()
	if !ok {
		return Descriptor{}, domain.ErrUnknownKind.WithDetailsf("kind %q", kind)
	}
	if registered != typeName {
		return Descriptor{}, domain.ErrUnknownKind.WithDetailsf("kind %q is registered to %s, not %s", kind, registered, typeName)
	}

	d := Descriptor{Kind: kind}
	if p, ok := e.(Parameterized); ok {
		d.Params = p.Params()
	}
	return d, nil
}

// Names returns the registered kind names in ascending order.
func (k *Kinds) Names() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	names := make([]string, 0, len(k.factories))
	for name := range k.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// typeNameOf returns the package-qualified name, e.g.
// "*github.com/x/collections.Counter".
func typeNameOf(e Entity) string {
	t := reflect.TypeOf(e)
	stars := ""
	for t.Kind() == reflect.Pointer {
		stars += "*"
		t = t.Elem()
	}
	return fmt.Sprintf("%s%s.%s", stars, t.PkgPath(), t.Name())
}
