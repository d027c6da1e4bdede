package txmap

import (
	"errors"
	"testing"

	"github.com/yndnr/statekeep/internal/core/domain"
)

// mirror applies snapshot edits to a plain map, standing in for durable storage.
type mirror map[string]int

func (m mirror) AddOrUpdate(key string, value int) error {
	m[key] = value
	return nil
}

func (m mirror) Delete(key string) error {
	delete(m, key)
	return nil
}

func editsByKey(t *testing.T, s *Snapshot[string, int]) map[string]Edit[string, int] {
	t.Helper()
	out := make(map[string]Edit[string, int])
	for _, e := range s.Edits() {
		if _, dup := out[e.Key()]; dup {
			t.Fatalf("snapshot holds more than one edit for %q", e.Key())
		}
		out[e.Key()] = e
	}
	return out
}

func TestMap_BasicOperations(t *testing.T) {
	m := New[string, int]()

	if _, err := m.Get("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
	if err := m.Add("a", 1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := m.Add("a", 2); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("Add duplicate error = %v, want ErrAlreadyExists", err)
	}
	if v, err := m.Get("a"); err != nil || v != 1 {
		t.Errorf("Get(a) = %d, %v", v, err)
	}
	if !m.ContainsKey("a") {
		t.Error("ContainsKey(a) = false")
	}
	if !m.Remove("a") {
		t.Error("Remove(a) should report true")
	}
	if m.Remove("a") {
		t.Error("second Remove(a) should report false")
	}
	if _, ok := m.TryGet("a"); ok {
		t.Error("TryGet after Remove should miss")
	}
	if m.Len() != 0 {
		t.Errorf("Len = %d, want 0", m.Len())
	}
}

func TestMap_ReadPrecedence(t *testing.T) {
	m := New[string, int]()
	m.Set("k", 1)
	m.Set("k", 2)
	if v, _ := m.TryGet("k"); v != 2 {
		t.Fatalf("after two writes got %d, want 2", v)
	}

	s := m.CreateSnapshot(false)
	m.Set("k", 3)
	if v, _ := m.TryGet("k"); v != 3 {
		t.Fatalf("write after snapshot not visible: got %d", v)
	}

	if err := s.OnCommitted(); err != nil {
		t.Fatalf("OnCommitted: %v", err)
	}
	if v, _ := m.TryGet("k"); v != 3 {
		t.Errorf("after commit got %d, want 3", v)
	}

	s2 := m.CreateSnapshot(false)
	if err := s2.OnCommitted(); err != nil {
		t.Fatalf("OnCommitted: %v", err)
	}
	if v, _ := m.TryGet("k"); v != 3 {
		t.Errorf("after second commit got %d, want 3", v)
	}
}

func TestMap_FullSnapshotReconciles(t *testing.T) {
	m := New[string, int]()
	m.Set("K", 1)
	m.Remove("K")
	m.Set("K", 2)

	s := m.CreateSnapshot(false)
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
	e := s.Edits()[0]
	if v, ok := e.Value(); e.Op() != OpUpsert || e.Key() != "K" || !ok || v != 2 {
		t.Errorf("edit = %s, want upsert(K, 2)", e)
	}
}

func TestMap_ReconcileAcrossPages(t *testing.T) {
	m := New[string, int]()
	m.Set("a", 1)
	m.Set("b", 1)
	_ = m.CreateSnapshot(false) // discarded

	m.Remove("a")
	m.Set("c", 3)

	edits := editsByKey(t, m.CreateSnapshot(false))
	if len(edits) != 3 {
		t.Fatalf("edits = %v, want 3 keys", edits)
	}
	if edits["a"].Op() != OpDelete {
		t.Errorf("a: %s, want delete", edits["a"])
	}
	if v, _ := edits["b"].Value(); v != 1 {
		t.Errorf("b: %s, want upsert(b, 1)", edits["b"])
	}
	if v, _ := edits["c"].Value(); v != 3 {
		t.Errorf("c: %s, want upsert(c, 3)", edits["c"])
	}
}

func TestMap_DiscardThenResnapshot(t *testing.T) {
	m := New[string, int]()
	m.Set("x", 1)
	m.Set("y", 2)
	s1 := m.CreateSnapshot(false)
	s1Edits := editsByKey(t, s1)

	// s1 is discarded: the commit failed and OnCommitted is never called.
	m.Set("y", 20)
	m.Set("z", 30)

	s2 := m.CreateSnapshot(false)
	got := editsByKey(t, s2)
	for k := range s1Edits {
		if _, ok := got[k]; !ok {
			t.Errorf("edit for %q from discarded snapshot missing", k)
		}
	}
	want := mirror{"x": 1, "y": 20, "z": 30}
	durable := mirror{}
	if err := s2.Accept(durable); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	for k, v := range want {
		if durable[k] != v {
			t.Errorf("durable[%s] = %d, want %d", k, durable[k], v)
		}
	}

	if err := s2.OnCommitted(); err != nil {
		t.Fatalf("OnCommitted: %v", err)
	}
	if m.PageCount() != 1 {
		t.Errorf("PageCount = %d, want 1", m.PageCount())
	}
	if m.HasPendingEdits() {
		t.Error("no edits should be pending after commit")
	}
}

func TestMap_DifferentialSnapshot(t *testing.T) {
	m := New[string, int]()
	m.Set("a", 1)
	if err := m.CreateSnapshot(true).OnCommitted(); err != nil {
		t.Fatalf("OnCommitted: %v", err)
	}

	m.Set("b", 2)
	s := m.CreateSnapshot(true)
	edits := editsByKey(t, s)
	if len(edits) != 1 {
		t.Fatalf("differential snapshot = %v, want only b", edits)
	}
	if !s.Differential() {
		t.Error("Differential() = false")
	}
	if err := s.OnCommitted(); err != nil {
		t.Fatalf("OnCommitted: %v", err)
	}

	// A full snapshot taken now has nothing left to repeat.
	if n := m.CreateSnapshot(false).Len(); n != 0 {
		t.Errorf("full snapshot after commits has %d edits, want 0", n)
	}
	if m.Len() != 2 {
		t.Errorf("Len = %d, want 2", m.Len())
	}
}

func TestMap_DifferentialCommitAfterDiscard(t *testing.T) {
	m := New[string, int]()
	m.Set("a", 1)
	m.Set("b", 1)
	_ = m.CreateSnapshot(true) // discarded

	m.Set("b", 2)
	if err := m.CreateSnapshot(true).OnCommitted(); err != nil {
		t.Fatalf("OnCommitted: %v", err)
	}

	if v, _ := m.TryGet("b"); v != 2 {
		t.Errorf("b = %d, want 2 (newer committed write must win)", v)
	}

	// "a" was never durably written and must resurface; "b" was superseded.
	edits := editsByKey(t, m.CreateSnapshot(false))
	if len(edits) != 1 {
		t.Fatalf("edits = %v, want only a", edits)
	}
	if _, ok := edits["a"]; !ok {
		t.Error("uncommitted edit for a lost")
	}
}

func TestMap_SnapshotIsImmutable(t *testing.T) {
	m := New[string, int]()
	m.Set("a", 1)
	s := m.CreateSnapshot(false)
	m.Set("a", 2)
	m.Set("b", 3)

	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
	if v, _ := s.Edits()[0].Value(); v != 1 {
		t.Errorf("snapshot value changed to %d", v)
	}
}

func TestMap_CommitContract(t *testing.T) {
	m := New[string, int]()
	m.Set("a", 1)
	s1 := m.CreateSnapshot(false)
	s2 := m.CreateSnapshot(false)

	if err := s1.OnCommitted(); !errors.Is(err, domain.ErrContractViolation) {
		t.Errorf("out-of-order commit error = %v, want ErrContractViolation", err)
	}
	if err := s2.OnCommitted(); err != nil {
		t.Fatalf("OnCommitted: %v", err)
	}
	if err := s2.OnCommitted(); !errors.Is(err, domain.ErrContractViolation) {
		t.Errorf("double commit error = %v, want ErrContractViolation", err)
	}
	if s2.Generation() != 2 {
		t.Errorf("Generation = %d, want 2", s2.Generation())
	}
}

func TestMap_ScenarioAddSnapshotCommit(t *testing.T) {
	m := New[string, int]()
	if err := m.Add("x", 1); err != nil {
		t.Fatalf("Add: %v", err)
	}

	s := m.CreateSnapshot(false)
	v := &recordingVisitor{}
	if err := s.Accept(v); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if len(v.calls) != 1 || v.calls[0] != "upsert(x, 1)" {
		t.Fatalf("visitor saw %v", v.calls)
	}

	if err := s.OnCommitted(); err != nil {
		t.Fatalf("OnCommitted: %v", err)
	}
	if !m.ContainsKey("x") {
		t.Error("ContainsKey(x) = false after commit")
	}
}

func TestMap_AcceptStopsAtFirstError(t *testing.T) {
	m := New[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)
	s := m.CreateSnapshot(false)

	boom := errors.New("disk full")
	calls := 0
	err := s.Accept(VisitorFuncs[string, int]{
		OnAddOrUpdate: func(string, int) error {
			calls++
			return boom
		},
	})
	if !errors.Is(err, boom) {
		t.Errorf("Accept error = %v, want %v", err, boom)
	}
	if calls != 1 {
		t.Errorf("visitor called %d times, want 1", calls)
	}
}

func TestMap_SeedAndAll(t *testing.T) {
	m := New[string, int]()
	m.Seed("a", 1)
	m.Seed("b", 2)
	m.Set("b", 20)
	m.Remove("a")
	m.Set("c", 3)

	got := map[string]int{}
	for k, v := range m.All() {
		got[k] = v
	}
	if len(got) != 2 || got["b"] != 20 || got["c"] != 3 {
		t.Errorf("All = %v", got)
	}
	if m.Len() != 2 {
		t.Errorf("Len = %d, want 2", m.Len())
	}

	// Seeding records no edit, but removing a seeded key does.
	s := m.CreateSnapshot(false)
	if _, ok := editsByKey(t, s)["a"]; !ok {
		t.Error("removal of a seeded key should produce a delete edit")
	}
}
