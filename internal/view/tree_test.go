package view

import (
	"reflect"
	"testing"
)

func TestTreePlacement(t *testing.T) {
	tr := NewTree()
	a, b, c := NewNode("a"), NewNode("b"), NewNode("c")

	tr.Append(a)
	tr.InsertAfter(a, c)
	tr.InsertBefore(c, b)
	if got := tr.Order(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("order = %v", got)
	}

	// Re-inserting an attached node moves it.
	tr.InsertBefore(a, c)
	if got := tr.Order(); !reflect.DeepEqual(got, []string{"c", "a", "b"}) {
		t.Fatalf("order after move = %v", got)
	}

	d := NewNode("d")
	tr.Replace(a, d)
	tr.Remove(b)
	if got := tr.Order(); !reflect.DeepEqual(got, []string{"c", "d"}) {
		t.Fatalf("order after replace/remove = %v", got)
	}
}

func TestNodeDepthAndAttrs(t *testing.T) {
	n := NewNode("x")
	NewTree().SetDepth(n, 2)
	if n.Depth() != 2 {
		t.Errorf("depth = %d, want 2", n.Depth())
	}
	n.SetAttr("selected", "true")
	if n.Attr("selected") != "true" {
		t.Error("attr not stored")
	}
	n.SetAttr("selected", "")
	if n.Attr("selected") != "" {
		t.Error("attr not cleared")
	}
}
