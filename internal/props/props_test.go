package props_test

import (
	"testing"

	"github.com/dshills/persona/internal/props"
)

func TestSetGet(t *testing.T) {
	d := props.New()
	d.Set("title", "Hello")

	v, ok := d.Get("title")
	if !ok {
		t.Fatal("expected title to be present")
	}
	if v != "Hello" {
		t.Errorf("expected 'Hello', got %v", v)
	}
	if d.String("title") != "Hello" {
		t.Errorf("String() = %q, want 'Hello'", d.String("title"))
	}
}

func TestRevision(t *testing.T) {
	d := props.New()
	if d.Revision() != 0 {
		t.Fatalf("expected revision 0, got %d", d.Revision())
	}

	d.Set("a", 1)
	d.Set("a", 2)
	if d.Revision() != 2 {
		t.Errorf("expected revision 2 after two sets, got %d", d.Revision())
	}

	d.Delete("missing")
	if d.Revision() != 2 {
		t.Errorf("deleting a missing key should not bump revision, got %d", d.Revision())
	}

	d.Delete("a")
	if d.Revision() != 3 {
		t.Errorf("expected revision 3, got %d", d.Revision())
	}
}

func TestTypedGetters(t *testing.T) {
	d := props.FromMap(map[string]any{
		"i":   int64(7),
		"f":   float64(3),
		"b":   true,
		"str": 42,
	})

	if d.Int("i") != 7 {
		t.Errorf("Int(i) = %d, want 7", d.Int("i"))
	}
	if d.Int("f") != 3 {
		t.Errorf("Int(f) = %d, want 3", d.Int("f"))
	}
	if !d.Bool("b") {
		t.Error("Bool(b) = false, want true")
	}
	if d.String("str") != "" {
		t.Errorf("String on non-string should be empty, got %q", d.String("str"))
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	d := props.New()
	d.Set("k", "v")

	snap := d.Snapshot()
	snap["k"] = "changed"

	if d.String("k") != "v" {
		t.Error("mutating snapshot must not affect data")
	}
}

func TestKeysSorted(t *testing.T) {
	d := props.FromMap(map[string]any{"b": 1, "a": 2, "c": 3})
	keys := d.Keys()
	want := []string{"a", "b", "c"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("Keys() = %v, want %v", keys, want)
		}
	}
	if d.Format() != "a=2 b=1 c=3" {
		t.Errorf("Format() = %q", d.Format())
	}
}

func TestReplace(t *testing.T) {
	d := props.FromMap(map[string]any{"old": 1})
	d.Replace(map[string]any{"new": 2})

	if d.Has("old") {
		t.Error("expected old key to be gone")
	}
	if d.Int("new") != 2 {
		t.Errorf("expected new=2, got %d", d.Int("new"))
	}
}
