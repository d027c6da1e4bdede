// Package collections provides the stock entity kinds persisted through an
// objspace.Space:
//
//   - counter: a single int64 (KindCounter)
//   - dictionary: string keys to msgpack-encoded values, decoded on demand
//     (KindDictionary)
//   - journal: an append-only sequence of msgpack-encoded records
//     (KindJournal)
//
// Register adds all three to a Kinds registry. Every collection is safe for
// concurrent use, so application goroutines may keep writing while a
// checkpoint saves it.
package collections

import "github.com/yndnr/statekeep/internal/state/objspace"

// Kind names.
const (
	KindCounter    = "counter"
	KindDictionary = "dictionary"
	KindJournal    = "journal"
)

// Register adds the counter, dictionary and journal kinds to k.
func Register(k *objspace.Kinds) error {
	if err := k.Register(KindCounter, &Counter{}, newCounterEntity); err != nil {
		return err
	}
	if err := k.Register(KindDictionary, &Dictionary{}, newDictionaryEntity); err != nil {
		return err
	}
	return k.Register(KindJournal, &Journal{}, newJournalEntity)
}
