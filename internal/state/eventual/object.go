// Package eventual defers deserialization of a stored payload until the
// caller knows the concrete type to decode it into.
//
// An Object buffers the raw bytes read from a checkpoint once and can then be
// decoded any number of times, each call producing a fresh value. Decoded
// values are never cached.
package eventual

import (
	"bytes"
	"fmt"
	"io"
)

// Object is an immutable raw payload awaiting deserialization.
type Object struct {
	payload []byte
}

// FromReader buffers the full content of r. The bytes are always copied, so
// the Object does not depend on r after FromReader returns.
func FromReader(r io.Reader) (*Object, error) {
	var payload []byte
	switch src := r.(type) {
	case *bytes.Buffer:
		// Drained, as a full Read would leave it.
		payload = bytes.Clone(src.Bytes())
		src.Reset()
	default:
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("eventual: read payload: %w", err)
		}
		payload = b
	}
	if payload == nil {
		payload = []byte{}
	}
	return &Object{payload: payload}, nil
}

// FromBytes copies b into a new Object.
func FromBytes(b []byte) *Object {
	payload := make([]byte, len(b))
	copy(payload, b)
	return &Object{payload: payload}
}

// Len returns the payload size in bytes.
func (o *Object) Len() int {
	return len(o.payload)
}

// Bytes returns a copy of the payload.
func (o *Object) Bytes() []byte {
	return bytes.Clone(o.payload)
}

// Reader returns a fresh reader over the payload.
func (o *Object) Reader() io.Reader {
	return bytes.NewReader(o.payload)
}

// DeserializeAs decodes the payload with fn over a fresh reader. Errors from
// fn are returned unchanged.
func DeserializeAs[T any](o *Object, fn func(r io.Reader) (T, error)) (T, error) {
	return fn(o.Reader())
}
