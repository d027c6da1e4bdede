package collections

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/yndnr/statekeep/internal/core/domain"
	"github.com/yndnr/statekeep/internal/state/dirty"
	"github.com/yndnr/statekeep/internal/state/objspace"
	"github.com/yndnr/statekeep/internal/state/pagelog"
	"github.com/yndnr/statekeep/internal/storage"
)

const (
	journalCategory = "records"

	// retainParam caps how many records a journal keeps. Zero means no cap.
	retainParam = "retain"
)

// record is one appended entry. seq is 1-based and never reused.
type record struct {
	seq  uint64
	data []byte
}

// journalPage collects records appended between two saves.
type journalPage struct {
	records []record
}

// Journal is an append-only sequence of msgpack-encoded records. Each save
// writes only the records appended since the last acknowledged save, one
// item per record keyed by its zero-padded sequence number.
//
// With a retain limit the oldest records are trimmed from memory and from
// the store once more than that many exist.
type Journal struct {
	mu      sync.Mutex
	retain  int
	records []record
	nextSeq uint64
	pages   *pagelog.Log[*journalPage]
	tracker *dirty.Tracker

	// trimmed holds sequence numbers dropped by retention but not yet
	// deleted from the store.
	trimmed      []uint64
	trimInFlight int
}

// NewJournal returns an empty journal. retain <= 0 keeps every record.
func NewJournal(retain int) *Journal {
	return &Journal{
		retain:  max(retain, 0),
		nextSeq: 1,
		pages:   pagelog.New(func() *journalPage { return &journalPage{} }),
		tracker: dirty.New(),
	}
}

func newJournalEntity(_ string, d objspace.Descriptor) (objspace.Entity, error) {
	retain := 0
	if v, ok := d.Param(retainParam); ok {
		f, ok := v.(float64)
		if !ok || f < 0 {
			return nil, domain.ErrInvalidDescriptor.WithDetailsf("journal %s must be a non-negative number, got %v", retainParam, v)
		}
		retain = int(f)
	}
	return NewJournal(retain), nil
}

// Params records the retain limit in the journal's descriptor.
func (j *Journal) Params() map[string]any {
	if j.retain == 0 {
		return nil
	}
	return map[string]any{retainParam: j.retain}
}

// Append encodes v as a new record and returns its sequence number.
func (j *Journal) Append(v any) (uint64, error) {
	data, err := encode(v)
	if err != nil {
		return 0, err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	r := record{seq: j.nextSeq, data: data}
	j.nextSeq++
	j.records = append(j.records, r)
	p := j.pages.Current()
	p.records = append(p.records, r)
	j.tracker.MarkChanged()
	j.trim()
	return r.seq, nil
}

func (j *Journal) trim() {
	if j.retain == 0 || len(j.records) <= j.retain {
		return
	}
	drop := len(j.records) - j.retain
	for _, r := range j.records[:drop] {
		j.trimmed = append(j.trimmed, r.seq)
	}
	j.records = append(j.records[:0:0], j.records[drop:]...)
}

// Len returns the number of retained records.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.records)
}

// LastSeq returns the sequence number of the newest record, or 0.
func (j *Journal) LastSeq() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.nextSeq - 1
}

// ReadAt decodes the i-th retained record, oldest first, as a T.
func ReadAt[T any](j *Journal, i int) (T, error) {
	j.mu.Lock()
	if i < 0 || i >= len(j.records) {
		n := len(j.records)
		j.mu.Unlock()
		var zero T
		return zero, domain.ErrNotFound.WithDetailsf("record %d of %d", i, n)
	}
	data := j.records[i].data
	j.mu.Unlock()
	return decoderFor[T]()(bytes.NewReader(data))
}

func seqKey(seq uint64) string {
	return fmt.Sprintf("%020d", seq)
}

func (j *Journal) Kind() string { return KindJournal }

func (j *Journal) NeedsSave() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.tracker.NeedsSave() || len(j.trimmed) > 0
}

// Save writes every record of the sealed pages, including pages sealed by
// earlier saves that were never acknowledged, and deletes trimmed records.
func (j *Journal) Save(ctx context.Context, w storage.Writer) error {
	j.mu.Lock()
	sealed := j.pages.SealForSave()
	trimmed := append([]uint64(nil), j.trimmed...)
	j.trimInFlight = len(trimmed)
	j.tracker.BeginSave()
	j.mu.Unlock()

	dropped := make(map[uint64]bool, len(trimmed))
	for _, seq := range trimmed {
		dropped[seq] = true
		if err := w.DeleteItem(ctx, journalCategory, seqKey(seq)); err != nil {
			return err
		}
	}
	for _, p := range sealed {
		for _, r := range p.records {
			if dropped[r.seq] {
				continue
			}
			if err := storage.WriteItem(ctx, w, journalCategory, seqKey(r.seq), r.data); err != nil {
				return err
			}
		}
	}
	return nil
}

func (j *Journal) Load(ctx context.Context, r storage.Reader) error {
	keys, err := r.ListKeys(ctx, journalCategory)
	if err != nil {
		return err
	}
	records := make([]record, 0, len(keys))
	for _, key := range keys {
		seq, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return fmt.Errorf("journal record key %q: %w", key, err)
		}
		data, err := storage.ReadItem(ctx, r, journalCategory, key)
		if err != nil {
			return err
		}
		records = append(records, record{seq: seq, data: data})
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = records
	j.nextSeq = 1
	if n := len(records); n > 0 {
		j.nextSeq = records[n-1].seq + 1
	}
	j.pages = pagelog.New(func() *journalPage { return &journalPage{} })
	j.tracker = dirty.Restored()
	j.trimmed = nil
	j.trim()
	return nil
}

func (j *Journal) OnSaved() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.pages.OnSaveAcknowledged()
	j.trimmed = j.trimmed[j.trimInFlight:]
	j.trimInFlight = 0
	j.tracker.OnSaveAcknowledged()
}
