package mssmt

import (
	"bytes"
	"testing"
)

func TestLeafHashFormula(t *testing.T) {
	h := NewSHA256Hasher()
	value := []byte("value")
	var sum uint64 = 7
	leaf := NewLeafNode(h, value, sum)

	want := h.Hash(value, putUint64(sum))
	if !bytes.Equal(leaf.NodeHash(), want) {
		t.Fatalf("leaf hash = %x, want %x", leaf.NodeHash(), want)
	}
	if leaf.NodeSum() != sum {
		t.Fatalf("leaf sum = %d, want %d", leaf.NodeSum(), sum)
	}
}

func TestEmptyLeaf(t *testing.T) {
	h := NewSHA256Hasher()
	e := EmptyLeaf(h)
	if !e.IsEmpty() {
		t.Fatal("expected EmptyLeaf to report IsEmpty")
	}
	if e.NodeSum() != 0 {
		t.Fatalf("expected zero sum, got %d", e.NodeSum())
	}
	want := h.Hash(nil, putUint64(0))
	if !bytes.Equal(e.NodeHash(), want) {
		t.Fatalf("empty leaf hash = %x, want %x", e.NodeHash(), want)
	}
}

func TestLeafNotEmpty(t *testing.T) {
	h := NewSHA256Hasher()
	l := NewLeafNode(h, []byte("x"), 0)
	if l.IsEmpty() {
		t.Fatal("a leaf with a non-nil value must not be empty even with sum 0")
	}
	l2 := NewLeafNode(h, nil, 1)
	if l2.IsEmpty() {
		t.Fatal("a leaf with a non-zero sum must not be empty even with no value")
	}
}

func TestBranchHashAndSumFormula(t *testing.T) {
	h := NewSHA256Hasher()
	left := NewLeafNode(h, []byte("left"), 3)
	right := NewLeafNode(h, []byte("right"), 4)

	b, err := NewBranch(h, left, right)
	if err != nil {
		t.Fatal(err)
	}
	if b.NodeSum() != 7 {
		t.Fatalf("branch sum = %d, want 7", b.NodeSum())
	}
	want := h.Hash(left.NodeHash(), right.NodeHash(), putUint64(7))
	if !bytes.Equal(b.NodeHash(), want) {
		t.Fatalf("branch hash = %x, want %x", b.NodeHash(), want)
	}
	if b.IsEmpty() {
		t.Fatal("a branch is never empty")
	}
}

func TestBranchSumOverflow(t *testing.T) {
	h := NewSHA256Hasher()
	left := NewLeafNode(h, []byte("left"), ^uint64(0))
	right := NewLeafNode(h, []byte("right"), 1)

	if _, err := NewBranch(h, left, right); err != ErrSumOverflow {
		t.Fatalf("expected ErrSumOverflow, got %v", err)
	}
}

func TestNewBranchFromHashesMatchesNewBranch(t *testing.T) {
	h := NewSHA256Hasher()
	left := NewLeafNode(h, []byte("left"), 3)
	right := NewLeafNode(h, []byte("right"), 4)

	viaNodes, err := NewBranch(h, left, right)
	if err != nil {
		t.Fatal(err)
	}
	viaHashes, err := NewBranchFromHashes(h, left.NodeHash(), right.NodeHash(), left.NodeSum(), right.NodeSum())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(viaNodes.NodeHash(), viaHashes.NodeHash()) {
		t.Fatalf("hash mismatch: %x vs %x", viaNodes.NodeHash(), viaHashes.NodeHash())
	}
	if viaNodes.NodeSum() != viaHashes.NodeSum() {
		t.Fatalf("sum mismatch: %d vs %d", viaNodes.NodeSum(), viaHashes.NodeSum())
	}
}

func TestCompactLeafAtFullDepthEqualsLeaf(t *testing.T) {
	h := NewSHA256Hasher()
	empty := NewEmptyTree(h)
	leaf := NewLeafNode(h, []byte("value"), 5)
	key := h.Hash([]byte("key"))

	c := NewCompactLeafNode(h, empty, key, empty.Depth(), leaf)
	if !bytes.Equal(c.NodeHash(), leaf.NodeHash()) {
		t.Fatalf("compact leaf at full depth should hash identically to its leaf: got %x, want %x",
			c.NodeHash(), leaf.NodeHash())
	}
	if c.NodeSum() != leaf.Sum {
		t.Fatalf("compact leaf sum = %d, want %d", c.NodeSum(), leaf.Sum)
	}
}

func TestCompactLeafFoldsOneLevel(t *testing.T) {
	h := NewSHA256Hasher()
	empty := NewEmptyTree(h)
	leaf := NewLeafNode(h, []byte("value"), 5)
	key := h.Hash([]byte("key"))
	depth := empty.Depth() - 1

	c := NewCompactLeafNode(h, empty, key, depth, leaf)

	siblingHash := empty.Hash(empty.Depth())
	var wantHash []byte
	var wantSum uint64
	if bitAt(key, depth) {
		wantSum = 0 + leaf.Sum
		wantHash = h.Hash(siblingHash, leaf.NodeHash(), putUint64(wantSum))
	} else {
		wantSum = leaf.Sum + 0
		wantHash = h.Hash(leaf.NodeHash(), siblingHash, putUint64(wantSum))
	}
	if !bytes.Equal(c.NodeHash(), wantHash) {
		t.Fatalf("folded hash = %x, want %x", c.NodeHash(), wantHash)
	}
	if c.NodeSum() != wantSum {
		t.Fatalf("folded sum = %d, want %d", c.NodeSum(), wantSum)
	}
}
