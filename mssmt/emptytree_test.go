package mssmt

import (
	"bytes"
	"testing"
)

func TestEmptyTreeShape(t *testing.T) {
	h := NewSHA256Hasher()
	e := NewEmptyTree(h)

	if e.Depth() != 8*h.Size() {
		t.Fatalf("depth = %d, want %d", e.Depth(), 8*h.Size())
	}
	if e.Hasher() != h {
		t.Fatal("expected EmptyTree to report the Hasher it was built with")
	}
}

func TestEmptyTreeLeafLevel(t *testing.T) {
	h := NewSHA256Hasher()
	e := NewEmptyTree(h)

	want := h.Hash(nil, putUint64(0))
	if !bytes.Equal(e.Hash(e.Depth()), want) {
		t.Fatalf("leaf-level empty hash = %x, want %x", e.Hash(e.Depth()), want)
	}
}

func TestEmptyTreeRecurrence(t *testing.T) {
	h := NewSHA256Hasher()
	e := NewEmptyTree(h)

	for d := e.Depth() - 1; d >= 0; d-- {
		child := e.Hash(d + 1)
		want := h.Hash(child, child, putUint64(0))
		if !bytes.Equal(e.Hash(d), want) {
			t.Fatalf("depth %d: got %x, want %x", d, e.Hash(d), want)
		}
	}
}

func TestEmptyTreeIsEmptyAt(t *testing.T) {
	h := NewSHA256Hasher()
	e := NewEmptyTree(h)

	if !e.IsEmptyAt(10, e.Hash(10)) {
		t.Fatal("expected IsEmptyAt to recognise the table's own value")
	}
	if e.IsEmptyAt(10, e.Hash(11)) {
		t.Fatal("expected IsEmptyAt to reject a value from a different depth")
	}
}
