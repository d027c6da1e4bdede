// Package storage provides the checkpoint stores statekeep persists into.
//
// A store is a partitioned key/value namespace: items are addressed by a
// category and a key, both strings. Reading goes through the Reader
// interface. Writing happens in checkpoints: Begin returns a Writer that
// stages item writes and deletes, and Commit applies all of them atomically
// in one backend transaction. A failed or abandoned checkpoint leaves the
// store untouched.
//
// Engines:
//
//   - memory: transient, for tests and demos
//   - badger: LSM-tree store (dgraph-io/badger), the default
//   - bolt:   B+tree store (bbolt), one bucket per category
//
// Every engine can seal item values with an AEAD cipher from
// pkg/crypto/adaptive; the category and key are bound as additional data so
// a sealed value cannot be moved to another item.
package storage
