package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/yndnr/statekeep/internal/core/domain"
)

// BoltStore implements Store on a single bbolt file with one top-level
// bucket per category.
type BoltStore struct {
	db     *bbolt.DB
	sealer *sealer
	logger *slog.Logger
}

// NewBoltStore opens (or creates) the bbolt file in cfg.Dir.
func NewBoltStore(cfg Config) (*BoltStore, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("bolt: dir is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bcfg := cfg.Bolt
	if bcfg.FileName == "" {
		bcfg.FileName = DefaultBoltConfig().FileName
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("bolt: create dir: %w", err)
	}

	bopt := &bbolt.Options{}
	*bopt = *bbolt.DefaultOptions
	bopt.Timeout = bcfg.Timeout
	bopt.FreelistType = bbolt.FreelistMapType
	if bcfg.NoSync {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
	}

	path := filepath.Join(cfg.Dir, bcfg.FileName)
	db, err := bbolt.Open(path, 0o600, bopt)
	if err != nil {
		return nil, fmt.Errorf("bolt: open %s: %w", path, err)
	}

	logger.Info("bolt store opened", "path", path, "sealed", cfg.Cipher != nil)
	return &BoltStore{db: db, sealer: newSealer(cfg.Cipher), logger: logger}, nil
}

func (s *BoltStore) Engine() string { return EngineBolt }

func (s *BoltStore) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, b *bbolt.Bucket) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if k, _ := b.Cursor().First(); k != nil {
				categories = append(categories, string(name))
			}
			return nil
		})
	})
	if err != nil {
		return nil, s.wrap(err)
	}
	return categories, nil
}

func (s *BoltStore) ListKeys(ctx context.Context, category string) ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(category))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, s.wrap(err)
	}
	return keys, nil
}

func (s *BoltStore) OpenItem(ctx context.Context, category, key string) (io.ReadCloser, error) {
	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(category))
		if b == nil {
			return domain.ErrItemNotFound.WithDetailsf("%s/%s", category, key)
		}
		v := b.Get([]byte(key))
		if v == nil {
			return domain.ErrItemNotFound.WithDetailsf("%s/%s", category, key)
		}
		// v is only valid for the life of the transaction.
		value = bytes.Clone(v)
		return nil
	})
	if err != nil {
		return nil, s.wrap(err)
	}

	plain, err := s.sealer.open(category, key, value)
	if err != nil {
		return nil, err
	}
	return itemReader(plain), nil
}

func (s *BoltStore) Begin(kind CheckpointKind) (Writer, error) {
	return newStagedWriter(kind, s.sealer, s.apply), nil
}

func (s *BoltStore) apply(ctx context.Context, ops []stagedOp, progress ProgressFunc) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		for i, op := range ops {
			if err := ctx.Err(); err != nil {
				return err
			}
			switch op.typ {
			case opPut:
				b, err := tx.CreateBucketIfNotExists([]byte(op.category))
				if err != nil {
					return err
				}
				if err := b.Put([]byte(op.key), op.value); err != nil {
					return err
				}
			case opDelete:
				b := tx.Bucket([]byte(op.category))
				if b == nil {
					break
				}
				if err := b.Delete([]byte(op.key)); err != nil {
					return err
				}
				if k, _ := b.Cursor().First(); k == nil {
					if err := tx.DeleteBucket([]byte(op.category)); err != nil {
						return err
					}
				}
			case opDeletePrefix:
				if err := deleteBuckets(tx, []byte(op.category)); err != nil {
					return err
				}
			}
			progress(i+1, len(ops))
		}
		return nil
	})
	return s.wrap(err)
}

// deleteBuckets drops every top-level bucket whose name starts with prefix.
func deleteBuckets(tx *bbolt.Tx, prefix []byte) error {
	var names [][]byte
	c := tx.Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		names = append(names, bytes.Clone(k))
	}
	for _, name := range names {
		if err := tx.DeleteBucket(name); err != nil {
			return err
		}
	}
	return nil
}

// wrap maps bbolt's closed-database error onto the domain error.
func (s *BoltStore) wrap(err error) error {
	if err == bbolt.ErrDatabaseNotOpen {
		return domain.ErrStoreClosed
	}
	return err
}

// Size returns the database file size in bytes.
func (s *BoltStore) Size() int64 {
	var size int64
	_ = s.db.View(func(tx *bbolt.Tx) error {
		size = tx.Size()
		return nil
	})
	return size
}

func (s *BoltStore) Close() error {
	s.logger.Info("closing bolt store")
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}
