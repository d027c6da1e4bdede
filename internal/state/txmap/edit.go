package txmap

import "fmt"

// Op identifies the variant of an Edit.
type Op uint8

const (
	OpNone   Op = 0
	OpUpsert Op = 1
	OpDelete Op = 2
)

func (op Op) String() string {
	switch op {
	case OpNone:
		return "none"
	case OpUpsert:
		return "upsert"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("invalid op %d", int(op))
	}
}

// Edit describes one pending change to one key: either an upsert carrying
// the new value or a delete. Edits are immutable.
type Edit[K comparable, V any] struct {
	op    Op
	key   K
	value V
}

// Upsert returns an edit that adds or replaces key with value.
func Upsert[K comparable, V any](key K, value V) Edit[K, V] {
	return Edit[K, V]{op: OpUpsert, key: key, value: value}
}

// Delete returns an edit that removes key.
func Delete[K comparable, V any](key K) Edit[K, V] {
	return Edit[K, V]{op: OpDelete, key: key}
}

// Op returns the edit variant.
func (e Edit[K, V]) Op() Op { return e.op }

// Key returns the key the edit applies to.
func (e Edit[K, V]) Key() K { return e.key }

// Value returns the upserted value. ok is false for deletes.
func (e Edit[K, V]) Value() (value V, ok bool) {
	return e.value, e.op == OpUpsert
}

func (e Edit[K, V]) String() string {
	if e.op == OpUpsert {
		return fmt.Sprintf("upsert(%v, %v)", e.key, e.value)
	}
	return fmt.Sprintf("%s(%v)", e.op, e.key)
}

// Dispatch invokes exactly one visitor method for the edit and returns
// whatever that method returns.
//
// Dispatching the zero Edit panics.
func (e Edit[K, V]) Dispatch(v Visitor[K, V]) error {
	switch e.op {
	case OpUpsert:
		return v.AddOrUpdate(e.key, e.value)
	case OpDelete:
		return v.Delete(e.key)
	default:
		panic(fmt.Sprintf("txmap: dispatch of %s edit", e.op))
	}
}

// Visitor consumes edits. Implementations apply them to an in-memory mirror,
// write them to a checkpoint, merge them into another log, and so on.
type Visitor[K comparable, V any] interface {
	AddOrUpdate(key K, value V) error
	Delete(key K) error
}

// VisitorFuncs adapts a pair of functions to Visitor. A nil function
// accepts the edit and does nothing.
type VisitorFuncs[K comparable, V any] struct {
	OnAddOrUpdate func(key K, value V) error
	OnDelete      func(key K) error
}

func (f VisitorFuncs[K, V]) AddOrUpdate(key K, value V) error {
	if f.OnAddOrUpdate == nil {
		return nil
	}
	return f.OnAddOrUpdate(key, value)
}

func (f VisitorFuncs[K, V]) Delete(key K) error {
	if f.OnDelete == nil {
		return nil
	}
	return f.OnDelete(key)
}
