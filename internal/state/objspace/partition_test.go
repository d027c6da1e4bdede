package objspace

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/yndnr/statekeep/internal/core/domain"
	"github.com/yndnr/statekeep/internal/storage"
)

func TestPartition_RewritesCategories(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore(nil)

	shared, _ := store.Begin(storage.KindFull)
	pw := NewPartitionWriter(shared, "e1")
	if pw.ID() != shared.ID() || pw.Kind() != storage.KindFull {
		t.Errorf("partition writer identity = %s/%s", pw.ID(), pw.Kind())
	}
	if err := storage.WriteItem(ctx, pw, "values", "k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := storage.WriteItem(ctx, pw, "values", "gone", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := pw.DeleteItem(ctx, "values", "gone"); err != nil {
		t.Fatal(err)
	}
	if err := shared.Commit(ctx, nil); err != nil {
		t.Fatal(err)
	}

	cats, _ := store.ListCategories(ctx)
	if !slices.Equal(cats, []string{"state/item/e1/values"}) {
		t.Errorf("shared categories = %v", cats)
	}

	pr := NewPartitionReader(store, "e1")
	got, err := storage.ReadItem(ctx, pr, "values", "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "v" {
		t.Errorf("got %q", got)
	}
	keys, _ := pr.ListKeys(ctx, "values")
	if !slices.Equal(keys, []string{"k"}) {
		t.Errorf("keys = %v", keys)
	}

	other := NewPartitionReader(store, "e2")
	if _, err := other.OpenItem(ctx, "values", "k"); !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("partition e2 saw e1's item: %v", err)
	}
}

func TestPartition_RefusesCheckpointScopeOperations(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore(nil)
	shared, _ := store.Begin(storage.KindDifferential)
	defer shared.Rollback()

	pw := NewPartitionWriter(shared, "e1")
	pr := NewPartitionReader(store, "e1")

	tests := []struct {
		name string
		call func() error
	}{
		{"commit", func() error { return pw.Commit(ctx, nil) }},
		{"rollback", pw.Rollback},
		{"delete categories", func() error { return pw.DeleteCategories(ctx, "x") }},
		{"list categories", func() error { _, err := pr.ListCategories(ctx); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, domain.ErrNotSupported) {
				t.Errorf("got %v, want ErrNotSupported", err)
			}
		})
	}

	// The shared writer is unaffected by the refused calls.
	if err := storage.WriteItem(ctx, pw, "c", "k", []byte("v")); err != nil {
		t.Errorf("partition writer unusable after refusals: %v", err)
	}
}

func TestItemCategory(t *testing.T) {
	if got := ItemCategory("e1", "C"); got != "state/item/e1/C" {
		t.Errorf("ItemCategory = %q", got)
	}
	if got := ItemPrefix("e1"); got != "state/item/e1/" {
		t.Errorf("ItemPrefix = %q", got)
	}

	id, c, ok := SplitItemCategory("state/item/e1/a/b")
	if !ok || id != "e1" || c != "a/b" {
		t.Errorf("SplitItemCategory = %q, %q, %v", id, c, ok)
	}
	if _, _, ok := SplitItemCategory("state/index"); ok {
		t.Error("index category split as an item category")
	}
}
