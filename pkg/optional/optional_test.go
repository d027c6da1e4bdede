package optional

import "testing"

func TestValue_SomeAndNone(t *testing.T) {
	s := Some(0)
	if !s.IsSome() || s.IsNone() {
		t.Fatal("Some(0) should be present even though 0 is the zero value")
	}
	if v, ok := s.Get(); !ok || v != 0 {
		t.Fatalf("Get() = %d, %v", v, ok)
	}

	n := None[int]()
	if n.IsSome() || !n.IsNone() {
		t.Fatal("None should be absent")
	}
	if got := n.OrElse(7); got != 7 {
		t.Errorf("OrElse = %d, want 7", got)
	}

	var zero Value[string]
	if zero.IsSome() {
		t.Error("zero Value should be None")
	}
}

func TestValue_Of(t *testing.T) {
	if Of("a", false).IsSome() {
		t.Error("Of(_, false) should be None")
	}
	if v := Of("a", true).OrElse("b"); v != "a" {
		t.Errorf("Of(a, true).OrElse = %q", v)
	}
}

func TestValue_String(t *testing.T) {
	tests := []struct {
		name string
		v    Value[int]
		want string
	}{
		{"some", Some(3), "Some(3)"},
		{"none", None[int](), "None"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValue_MustGetPanicsOnNone(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustGet on None should panic")
		}
	}()
	None[int]().MustGet()
}
