// Package dirty tracks whether an entity's persistable state needs saving.
//
// A Tracker survives save attempts that are never acknowledged: a save that
// was started but not confirmed durable keeps NeedsSave true until a later
// save is acknowledged. Changes made while a save is in flight are recorded
// separately so they are not lost when that save is acknowledged.
//
// One save lifecycle (BeginSave, then OnSaveAcknowledged) may be outstanding
// at a time. The Tracker performs no locking.
package dirty

// Tracker holds the three facts that decide NeedsSave.
//
// The zero Tracker reports a clean state; use New for an entity that has
// never been saved.
type Tracker struct {
	neverSaved bool
	changed    bool
	pending    bool
}

// New returns a Tracker for state that has never been saved.
func New() *Tracker {
	return &Tracker{neverSaved: true}
}

// Restored returns a clean Tracker for state just loaded from a durable
// checkpoint.
func Restored() *Tracker {
	return &Tracker{}
}

// MarkChanged records a change to the tracked state.
func (t *Tracker) MarkChanged() {
	t.changed = true
}

// BeginSave records that a save of the current state has started.
func (t *Tracker) BeginSave() {
	t.neverSaved = false
	t.pending = true
	t.changed = false
}

// OnSaveAcknowledged records that the started save is durable.
func (t *Tracker) OnSaveAcknowledged() {
	t.pending = false
}

// NeedsSave reports whether the state was never saved, changed since the last
// BeginSave, or has a save that was not acknowledged yet.
func (t *Tracker) NeedsSave() bool {
	return t.neverSaved || t.changed || t.pending
}

// SavePending reports whether a save was started and not acknowledged.
func (t *Tracker) SavePending() bool {
	return t.pending
}

// String names the implicit state: new, dirty, save-pending or clean.
func (t *Tracker) String() string {
	switch {
	case t.neverSaved:
		return "new"
	case t.pending:
		return "save-pending"
	case t.changed:
		return "dirty"
	default:
		return "clean"
	}
}
