package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/statekeep/internal/cli/output"
	"github.com/yndnr/statekeep/internal/state/objspace"
	"github.com/yndnr/statekeep/internal/storage"
)

// InspectCommand returns the inspect command.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "list the categories of a store, or the items of one category",
		ArgsUsage: "[category]",
		Action:    inspectAction,
	}
}

// IndexCommand returns the index command.
func IndexCommand() *cli.Command {
	return &cli.Command{
		Name:   "index",
		Usage:  "list the entities recorded in a store",
		Action: indexAction,
	}
}

// GCCommand returns the gc command.
func GCCommand() *cli.Command {
	return &cli.Command{
		Name:   "gc",
		Usage:  "reclaim value log space (badger engine only)",
		Action: gcAction,
	}
}

type categoryRow struct {
	Category string `json:"category"`
	Items    int    `json:"items"`
}

type itemRow struct {
	Key  string `json:"key"`
	Size int    `json:"size"`
}

type indexRow struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	Params     map[string]any `json:"params,omitempty"`
	Categories []string       `json:"categories"`
}

func inspectAction(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	store, err := e.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := c.Context
	if category := c.Args().First(); category != "" {
		keys, err := store.ListKeys(ctx, category)
		if err != nil {
			return err
		}
		rows := make([]itemRow, 0, len(keys))
		for _, k := range keys {
			data, err := storage.ReadItem(ctx, store, category, k)
			if err != nil {
				return fmt.Errorf("read %s/%s: %w", category, k, err)
			}
			rows = append(rows, itemRow{Key: k, Size: len(data)})
		}
		return e.print(rows)
	}

	categories, err := store.ListCategories(ctx)
	if err != nil {
		return err
	}
	rows := make([]categoryRow, 0, len(categories))
	for _, cat := range categories {
		keys, err := store.ListKeys(ctx, cat)
		if err != nil {
			return err
		}
		rows = append(rows, categoryRow{Category: cat, Items: len(keys)})
	}
	return e.print(rows)
}

func indexAction(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	store, err := e.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := c.Context
	ids, err := store.ListKeys(ctx, objspace.IndexCategory)
	if err != nil {
		return err
	}
	categories, err := store.ListCategories(ctx)
	if err != nil {
		return err
	}

	partitions := make(map[string][]string)
	for _, cat := range categories {
		if id, sub, ok := objspace.SplitItemCategory(cat); ok {
			partitions[id] = append(partitions[id], sub)
		}
	}

	rows := make([]indexRow, 0, len(ids))
	for _, id := range ids {
		data, err := storage.ReadItem(ctx, store, objspace.IndexCategory, id)
		if err != nil {
			return fmt.Errorf("read descriptor %s: %w", id, err)
		}
		d, err := objspace.UnmarshalDescriptor(data)
		if err != nil {
			return fmt.Errorf("descriptor %s: %w", id, err)
		}
		rows = append(rows, indexRow{
			ID:         id,
			Kind:       d.Kind,
			Params:     d.Params,
			Categories: partitions[id],
		})
	}

	if _, ok := e.format.(output.TableFormatter); ok {
		return e.print(indexTable(rows))
	}
	return e.print(rows)
}

func indexTable(rows []indexRow) *output.Table {
	t := &output.Table{Headers: []string{"ID", "KIND", "PARAMS", "CATEGORIES"}}
	for _, r := range rows {
		params := "-"
		if len(r.Params) > 0 {
			params = objspace.Descriptor{Kind: r.Kind, Params: r.Params}.String()
			params = strings.TrimPrefix(params, r.Kind)
		}
		t.AddRow(r.ID, r.Kind, params, strconv.Itoa(len(r.Categories)))
	}
	return t
}

func gcAction(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	store, err := e.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	bs, ok := store.(*storage.BadgerStore)
	if !ok {
		return errors.New("gc is only supported by the badger engine")
	}
	rewritten, err := bs.GC(c.Context)
	if err != nil {
		return err
	}
	lsm, vlog := bs.Size()
	return e.print(struct {
		Rewritten    int   `json:"rewritten"`
		LSMBytes     int64 `json:"lsm_bytes"`
		ValueLogSize int64 `json:"value_log_bytes"`
	}{rewritten, lsm, vlog})
}
