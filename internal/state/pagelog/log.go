// Package pagelog accumulates generations of edits ("pages") of a caller
// defined shape and prunes them once a save is acknowledged.
//
// Exactly one page is current at any time. SealForSave hands out every page
// for persisting and starts a new current page; OnSaveAcknowledged then drops
// everything except that newest page. If a save is never acknowledged, the
// sealed pages stay and the next SealForSave returns them again.
package pagelog

import (
	"iter"
	"sync/atomic"
)

// Log is an ordered sequence of pages, oldest to newest.
type Log[P any] struct {
	newPage func() P
	pages   []P

	// current mirrors pages[len(pages)-1] so writers can reach it without
	// touching the slice.
	current atomic.Pointer[P]
}

// New creates a Log holding one empty page made by newPage.
func New[P any](newPage func() P) *Log[P] {
	l := &Log[P]{newPage: newPage}
	l.open()
	return l
}

func (l *Log[P]) open() {
	p := l.newPage()
	l.pages = append(l.pages, p)
	l.current.Store(&p)
}

// Current returns the live page accepting new edits.
func (l *Log[P]) Current() P {
	return *l.current.Load()
}

// SealForSave returns every page from oldest to newest, the current page
// included, and then opens a fresh current page.
func (l *Log[P]) SealForSave() []P {
	sealed := make([]P, len(l.pages))
	copy(sealed, l.pages)
	l.open()
	return sealed
}

// OnSaveAcknowledged drops every page except the newest, which may already
// hold edits made after the seal.
//
// It must follow a SealForSave whose pages were durably written; calling it
// otherwise discards unsaved pages.
func (l *Log[P]) OnSaveAcknowledged() {
	n := len(l.pages)
	if n <= 1 {
		return
	}
	var zero P
	for i := 0; i < n-1; i++ {
		l.pages[i] = zero
	}
	l.pages = append(l.pages[:0], l.pages[n-1])
}

// Len returns the number of pages, the current page included.
func (l *Log[P]) Len() int {
	return len(l.pages)
}

// All iterates over the pages newest first, matching read precedence.
func (l *Log[P]) All() iter.Seq[P] {
	return func(yield func(P) bool) {
		for i := len(l.pages) - 1; i >= 0; i-- {
			if !yield(l.pages[i]) {
				return
			}
		}
	}
}
