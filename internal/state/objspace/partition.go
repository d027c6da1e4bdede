package objspace

import (
	"context"
	"io"
	"strings"

	"github.com/yndnr/statekeep/internal/core/domain"
	"github.com/yndnr/statekeep/internal/storage"
)

const (
	// IndexCategory holds one descriptor per persisted entity, keyed by id.
	IndexCategory = "state/index"

	itemRoot = "state/item/"
)

// ItemPrefix returns the category prefix owning every category of entity id.
func ItemPrefix(id string) string {
	return itemRoot + id + "/"
}

// ItemCategory returns the shared category that entity id's category c maps to.
func ItemCategory(id, c string) string {
	return ItemPrefix(id) + c
}

// SplitItemCategory reverses ItemCategory.
func SplitItemCategory(category string) (id, c string, ok bool) {
	rest, ok := strings.CutPrefix(category, itemRoot)
	if !ok {
		return "", "", false
	}
	return strings.Cut(rest, "/")
}

// partitionReader scopes a shared reader to one entity.
type partitionReader struct {
	shared storage.Reader
	prefix string
}

// NewPartitionReader returns a reader that sees only entity id's categories.
// ListCategories is refused with domain.ErrNotSupported.
func NewPartitionReader(shared storage.Reader, id string) storage.Reader {
	return &partitionReader{shared: shared, prefix: ItemPrefix(id)}
}

func (r *partitionReader) ListCategories(ctx context.Context) ([]string, error) {
	return nil, domain.ErrNotSupported.WithDetails("listing categories of a partition")
}

func (r *partitionReader) ListKeys(ctx context.Context, category string) ([]string, error) {
	return r.shared.ListKeys(ctx, r.prefix+category)
}

func (r *partitionReader) OpenItem(ctx context.Context, category, key string) (io.ReadCloser, error) {
	return r.shared.OpenItem(ctx, r.prefix+category, key)
}

// partitionWriter scopes a shared writer to one entity.
type partitionWriter struct {
	shared storage.Writer
	prefix string
}

// NewPartitionWriter returns a writer that only reaches entity id's
// categories. Commit, Rollback and DeleteCategories are refused with
// domain.ErrNotSupported; only the owner of shared ends the checkpoint.
func NewPartitionWriter(shared storage.Writer, id string) storage.Writer {
	return &partitionWriter{shared: shared, prefix: ItemPrefix(id)}
}

func (w *partitionWriter) ID() string { return w.shared.ID() }

func (w *partitionWriter) Kind() storage.CheckpointKind { return w.shared.Kind() }

func (w *partitionWriter) OpenItemForWrite(ctx context.Context, category, key string) (io.WriteCloser, error) {
	return w.shared.OpenItemForWrite(ctx, w.prefix+category, key)
}

func (w *partitionWriter) DeleteItem(ctx context.Context, category, key string) error {
	return w.shared.DeleteItem(ctx, w.prefix+category, key)
}

func (w *partitionWriter) DeleteCategories(ctx context.Context, prefix string) error {
	return domain.ErrNotSupported.WithDetails("deleting categories from a partition")
}

func (w *partitionWriter) Commit(ctx context.Context, progress storage.ProgressFunc) error {
	return domain.ErrNotSupported.WithDetails("commit on a partition writer")
}

func (w *partitionWriter) Rollback() error {
	return domain.ErrNotSupported.WithDetails("rollback on a partition writer")
}
