package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/statekeep/internal/core/domain"
)

// keySeparator joins category and key in engines with a flat key space.
// Neither part may contain it.
const keySeparator = "\x00"

type opType uint8

const (
	opPut opType = iota + 1
	opDelete
	opDeletePrefix
)

// stagedOp is one operation waiting for Commit. value is already sealed.
type stagedOp struct {
	typ      opType
	category string
	key      string
	value    []byte
}

// applyFunc applies staged operations inside one backend transaction.
type applyFunc func(ctx context.Context, ops []stagedOp, progress ProgressFunc) error

// stagedWriter implements Writer on top of an engine-specific applyFunc.
type stagedWriter struct {
	id     string
	kind   CheckpointKind
	sealer *sealer
	apply  applyFunc

	mu     sync.Mutex
	ops    []stagedOp
	closed bool
}

func newStagedWriter(kind CheckpointKind, s *sealer, apply applyFunc) *stagedWriter {
	return &stagedWriter{
		id:     ulid.Make().String(),
		kind:   kind,
		sealer: s,
		apply:  apply,
	}
}

func (w *stagedWriter) ID() string { return w.id }

func (w *stagedWriter) Kind() CheckpointKind { return w.kind }

func (w *stagedWriter) OpenItemForWrite(ctx context.Context, category, key string) (io.WriteCloser, error) {
	if err := validateAddress(category, key); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, domain.ErrWriterClosed
	}
	return &itemSink{w: w, category: category, key: key}, nil
}

func (w *stagedWriter) DeleteItem(ctx context.Context, category, key string) error {
	if err := validateAddress(category, key); err != nil {
		return err
	}
	return w.stage(stagedOp{typ: opDelete, category: category, key: key})
}

func (w *stagedWriter) DeleteCategories(ctx context.Context, prefix string) error {
	if prefix == "" {
		return domain.ErrInvalidArgument.WithDetails("empty category prefix")
	}
	return w.stage(stagedOp{typ: opDeletePrefix, category: prefix})
}

func (w *stagedWriter) stage(op stagedOp) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return domain.ErrWriterClosed
	}
	w.ops = append(w.ops, op)
	return nil
}

func (w *stagedWriter) Commit(ctx context.Context, progress ProgressFunc) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return domain.ErrWriterClosed
	}
	w.closed = true
	ops := w.ops
	w.ops = nil
	w.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if progress == nil {
		progress = func(int, int) {}
	}
	return w.apply(ctx, ops, progress)
}

func (w *stagedWriter) Rollback() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.ops = nil
	return nil
}

// itemSink buffers an item's content until Close stages it.
type itemSink struct {
	w        *stagedWriter
	category string
	key      string
	buf      bytes.Buffer
	done     bool
}

func (s *itemSink) Write(p []byte) (int, error) {
	if s.done {
		return 0, domain.ErrWriterClosed.WithDetailsf("item %s/%s already closed", s.category, s.key)
	}
	return s.buf.Write(p)
}

func (s *itemSink) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	value, err := s.w.sealer.seal(s.category, s.key, s.buf.Bytes())
	if err != nil {
		return err
	}
	return s.w.stage(stagedOp{typ: opPut, category: s.category, key: s.key, value: value})
}

func validateAddress(category, key string) error {
	if category == "" || key == "" {
		return domain.ErrInvalidArgument.WithDetailsf("empty category or key in %q/%q", category, key)
	}
	if strings.Contains(category, keySeparator) || strings.Contains(key, keySeparator) {
		return domain.ErrInvalidArgument.WithDetailsf("category/key %q/%q contains NUL", category, key)
	}
	return nil
}

func encodeKey(category, key string) []byte {
	return []byte(category + keySeparator + key)
}

func decodeKey(raw []byte) (category, key string, ok bool) {
	category, key, ok = strings.Cut(string(raw), keySeparator)
	return category, key, ok
}

// itemReader wraps an in-memory item value.
func itemReader(value []byte) io.ReadCloser {
	return io.NopCloser(bytes.NewReader(value))
}
