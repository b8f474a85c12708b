package depth

import (
	"errors"
	"testing"

	"github.com/starford/tessera/internal/apperr"
)

func li(d int, kind string) Entry { return Entry{Depth: d, Family: "list", Kind: kind} }

var para = Entry{}

func TestMaxAllowedDepth(t *testing.T) {
	m := Entries{li(0, "o"), li(1, "o"), li(0, "o"), para, li(0, "o")}
	tests := []struct{ i, want int }{
		{0, 0},
		{1, 1},
		{2, 2},
		{3, 0},
		{4, 0},
	}
	for _, tt := range tests {
		if got := MaxAllowedDepth(m, tt.i); got != tt.want {
			t.Errorf("MaxAllowedDepth(%d) = %d, want %d", tt.i, got, tt.want)
		}
	}
}

func TestMaxAllowedDepthZeroAtStart(t *testing.T) {
	for _, m := range []Entries{{li(5, "o")}, {para, li(0, "o")}, {}} {
		if got := MaxAllowedDepth(m, 0); got != 0 {
			t.Errorf("MaxAllowedDepth(0) = %d on %v", got, m)
		}
	}
}

func TestSiblingIndex(t *testing.T) {
	m := Entries{
		li(0, "o"), // 0
		li(0, "o"), // 1
		li(1, "u"), // 2 deeper, skipped
		li(2, "u"), // 3 deeper, skipped
		li(0, "o"), // 4
		li(1, "o"), // 5 first child of 4
		li(0, "u"), // 6 kind change
		li(0, "u"), // 7
	}
	tests := []struct {
		i, depth int
		kind     string
		want     int
	}{
		{0, 0, "o", 0},
		{4, 0, "o", 2},
		{5, 1, "o", 0},
		{7, 0, "u", 1},
		{6, 0, "u", 0},
	}
	for _, tt := range tests {
		if got := SiblingIndex(m, tt.i, tt.depth, tt.kind); got != tt.want {
			t.Errorf("SiblingIndex(%d,%d,%q) = %d, want %d", tt.i, tt.depth, tt.kind, got, tt.want)
		}
	}
}

func TestTargetDepth(t *testing.T) {
	m := Entries{li(0, "o"), li(0, "o"), li(1, "o")}
	if got := TargetDepth(m, 1, 5); got != 1 {
		t.Errorf("clamp: got %d, want 1", got)
	}
	if got := TargetDepth(m, 1, -2); got != 1 {
		t.Errorf("snap to next sibling depth: got %d, want 1", got)
	}
	if got := TargetDepth(Entries{para, li(0, "o")}, 1, 3); got != 0 {
		t.Errorf("different family: got %d, want 0", got)
	}
}

func TestProject(t *testing.T) {
	m := Entries{{Depth: 0}, {Depth: 1}, {Depth: 2}, {Depth: 3}, {Depth: 4}}
	out, first := Project(m, []int{4}, 1)
	if first != 2 {
		t.Fatalf("first = %d, want 2", first)
	}
	want := []int{0, 1, 4, 2, 3}
	for i, e := range out {
		if e.Depth != want[i] {
			t.Fatalf("projection = %v, want depths %v", out, want)
		}
	}
	if _, first := Project(m, []int{0, 1}, -1); first != 0 {
		t.Errorf("after -1: first = %d", first)
	}
	if _, first := Project(m, []int{0, 1}, 4); first != 3 {
		t.Errorf("after end: first = %d, want 3", first)
	}
}

func TestOfAndStrict(t *testing.T) {
	parents := map[string]string{
		"a": "",
		"b": "a",
		"c": "b",
		"d": "ghost",
		"e": "d",
		"x": "y",
		"y": "x",
	}
	tests := []struct {
		id     string
		want   int
		strict bool
	}{
		{"a", 0, true},
		{"c", 2, true},
		{"d", 0, false},
		{"e", 1, false},
	}
	for _, tt := range tests {
		if got := Of(parents, tt.id); got != tt.want {
			t.Errorf("Of(%s) = %d, want %d", tt.id, got, tt.want)
		}
		_, err := Strict(parents, tt.id)
		if tt.strict && err != nil {
			t.Errorf("Strict(%s) = %v", tt.id, err)
		}
		if !tt.strict && !errors.Is(err, apperr.ErrInvalidHierarchy) {
			t.Errorf("Strict(%s) = %v, want ErrInvalidHierarchy", tt.id, err)
		}
	}
	if _, err := Strict(parents, "x"); !errors.Is(err, apperr.ErrInvalidHierarchy) {
		t.Errorf("cycle: %v", err)
	}
	if d := Of(parents, "x"); d < 0 {
		t.Errorf("cycle depth = %d", d)
	}
}
