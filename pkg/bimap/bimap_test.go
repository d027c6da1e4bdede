package bimap

import "testing"

func TestMap_PutAndLookup(t *testing.T) {
	m := New[string, int]()
	m.Put("a", 1)
	m.Put("b", 2)

	if v, ok := m.GetByKey("a"); !ok || v != 1 {
		t.Errorf("GetByKey(a) = %d, %v", v, ok)
	}
	if k, ok := m.GetByValue(2); !ok || k != "b" {
		t.Errorf("GetByValue(2) = %q, %v", k, ok)
	}
	if _, ok := m.GetByKey("zzz"); ok {
		t.Error("GetByKey on missing key should report false")
	}
	if m.Len() != 2 {
		t.Errorf("Len = %d, want 2", m.Len())
	}
}

func TestMap_PutEvictsBothSides(t *testing.T) {
	m := New[string, int]()
	m.Put("a", 1)
	m.Put("b", 2)

	// Rebinding "a" to 2 must evict both a->1 and b->2.
	m.Put("a", 2)

	if m.Len() != 1 {
		t.Fatalf("Len = %d, want 1", m.Len())
	}
	if _, ok := m.GetByValue(1); ok {
		t.Error("value 1 should be gone")
	}
	if _, ok := m.GetByKey("b"); ok {
		t.Error("key b should be gone")
	}
	if k, _ := m.GetByValue(2); k != "a" {
		t.Errorf("GetByValue(2) = %q, want a", k)
	}
}

func TestMap_Delete(t *testing.T) {
	m := New[string, int]()
	m.Put("a", 1)
	m.Put("b", 2)

	if !m.DeleteByKey("a") {
		t.Error("DeleteByKey(a) should report true")
	}
	if m.DeleteByKey("a") {
		t.Error("second DeleteByKey(a) should report false")
	}
	if _, ok := m.GetByValue(1); ok {
		t.Error("reverse entry should be removed with the key")
	}

	if !m.DeleteByValue(2) {
		t.Error("DeleteByValue(2) should report true")
	}
	if m.Len() != 0 {
		t.Errorf("Len = %d, want 0", m.Len())
	}
}

func TestMap_All(t *testing.T) {
	m := New[string, int]()
	m.Put("a", 1)
	m.Put("b", 2)
	m.Put("c", 3)

	sum := 0
	for k, v := range m.All() {
		if got, _ := m.GetByValue(v); got != k {
			t.Errorf("pair %q/%d not symmetric", k, v)
		}
		sum += v
	}
	if sum != 6 {
		t.Errorf("sum = %d, want 6", sum)
	}

	n := 0
	for range m.All() {
		n++
		break
	}
	if n != 1 {
		t.Error("All should stop when yield returns false")
	}
}
