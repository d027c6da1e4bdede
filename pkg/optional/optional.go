// Package optional provides a value type that may or may not hold a value.
//
// It is used where the zero value of T is a legitimate value and cannot
// double as "absent", such as tombstones in an edit page.
package optional

import "fmt"

// Value holds either a T or nothing. The zero Value is None.
type Value[T any] struct {
	v  T
	ok bool
}

// Some returns a Value holding v.
func Some[T any](v T) Value[T] {
	return Value[T]{v: v, ok: true}
}

// None returns an empty Value.
func None[T any]() Value[T] {
	return Value[T]{}
}

// Of returns Some(v) when ok is true and None otherwise.
func Of[T any](v T, ok bool) Value[T] {
	if !ok {
		return None[T]()
	}
	return Some(v)
}

// IsSome reports whether the value is present.
func (o Value[T]) IsSome() bool { return o.ok }

// IsNone reports whether the value is absent.
func (o Value[T]) IsNone() bool { return !o.ok }

// Get returns the held value and whether it is present.
func (o Value[T]) Get() (T, bool) { return o.v, o.ok }

// MustGet returns the held value and panics if it is absent.
func (o Value[T]) MustGet() T {
	if !o.ok {
		panic("optional: MustGet on None")
	}
	return o.v
}

// OrElse returns the held value or def when absent.
func (o Value[T]) OrElse(def T) T {
	if o.ok {
		return o.v
	}
	return def
}

func (o Value[T]) String() string {
	if !o.ok {
		return "None"
	}
	return fmt.Sprintf("Some(%v)", o.v)
}
