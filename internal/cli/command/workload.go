package command

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/yndnr/statekeep/internal/core/domain"
	"github.com/yndnr/statekeep/internal/state/collections"
	"github.com/yndnr/statekeep/internal/state/objspace"
)

// Demo entity ids.
const (
	demoCounterID    = "demo-counter"
	demoDictionaryID = "demo-dictionary"
	demoJournalID    = "demo-journal"
)

// sample is the value stored in the demo dictionary.
type sample struct {
	Step uint64    `msgpack:"step"`
	At   time.Time `msgpack:"at"`
}

// event is the record appended to the demo journal.
type event struct {
	Step   uint64 `msgpack:"step"`
	Key    string `msgpack:"key"`
	Action string `msgpack:"action"`
}

// workload mutates a small fixed population of entities.
type workload struct {
	counter *collections.Counter
	dict    *collections.Dictionary
	journal *collections.Journal
	keys    int
	rng     *rand.Rand
}

// newWorkload attaches to the demo entities of space, creating those that
// were not recovered.
func newWorkload(space *objspace.Space, keys, retain int, seed uint64) (*workload, error) {
	if keys <= 0 {
		return nil, fmt.Errorf("key space must be positive, got %d", keys)
	}

	counter, err := getOrAdd(space, demoCounterID, func() *collections.Counter {
		return collections.NewCounter(0)
	})
	if err != nil {
		return nil, err
	}
	dict, err := getOrAdd(space, demoDictionaryID, collections.NewDictionary)
	if err != nil {
		return nil, err
	}
	journal, err := getOrAdd(space, demoJournalID, func() *collections.Journal {
		return collections.NewJournal(retain)
	})
	if err != nil {
		return nil, err
	}

	return &workload{
		counter: counter,
		dict:    dict,
		journal: journal,
		keys:    keys,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}, nil
}

func getOrAdd[T objspace.Entity](space *objspace.Space, id string, create func() T) (T, error) {
	var zero T
	e, err := space.Get(id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		v := create()
		if err := space.Add(id, v); err != nil {
			return zero, err
		}
		return v, nil
	case err != nil:
		return zero, err
	}

	v, ok := e.(T)
	if !ok {
		return zero, fmt.Errorf("entity %s is a %s, not the expected kind", id, e.Kind())
	}
	return v, nil
}

// Step applies one round of mutations and returns the step number.
func (w *workload) Step() (uint64, error) {
	step := uint64(w.counter.Add(1))
	key := fmt.Sprintf("k%04d", w.rng.IntN(w.keys))

	action := "set"
	if w.rng.IntN(4) == 0 {
		action = "remove"
		w.dict.Remove(key)
	} else if err := w.dict.Set(key, sample{Step: step, At: time.Now().UTC()}); err != nil {
		return step, err
	}

	if _, err := w.journal.Append(event{Step: step, Key: key, Action: action}); err != nil {
		return step, err
	}
	return step, nil
}
