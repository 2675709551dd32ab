package mssmt

import (
	"testing"
)

func TestProofVerifyWrongShape(t *testing.T) {
	h := NewSHA256Hasher()
	p := &Proof{Siblings: make([]ProofSibling, 3)}
	key := h.Hash([]byte("key"))
	if err := p.Verify(h, key, EmptyLeaf(h), nil, 0); err != ErrProofShape {
		t.Fatalf("expected ErrProofShape, got %v", err)
	}
}

func TestProofVerifyWrongKeyLength(t *testing.T) {
	h := NewSHA256Hasher()
	empty := NewEmptyTree(h)
	p := &Proof{Siblings: make([]ProofSibling, empty.Depth())}
	if err := p.Verify(h, []byte("short"), EmptyLeaf(h), nil, 0); err != ErrKeyLength {
		t.Fatalf("expected ErrKeyLength, got %v", err)
	}
}

func TestProofCompressDecompressRoundTrip(t *testing.T) {
	h := NewSHA256Hasher()
	tree := NewFullTree(h, NewMemStore(h, nil), nil)

	aliceKey := testKey(h, "alice")
	aliceLeaf := NewLeafNode(h, []byte("100"), 100)
	if err := tree.Insert(aliceKey, aliceLeaf); err != nil {
		t.Fatal(err)
	}

	proof, err := tree.MerkleProof(aliceKey)
	if err != nil {
		t.Fatal(err)
	}
	empty := NewEmptyTree(h)
	compressed := proof.Compress(empty)

	// A single-entry tree has exactly one non-empty sibling chain: every
	// sibling along alice's own path to the root is an empty constant.
	if len(compressed.Siblings) != 0 {
		t.Fatalf("expected every sibling to compress away, got %d left", len(compressed.Siblings))
	}

	decompressed, err := compressed.Decompress(empty)
	if err != nil {
		t.Fatal(err)
	}
	if len(decompressed.Siblings) != len(proof.Siblings) {
		t.Fatalf("decompressed length %d, want %d", len(decompressed.Siblings), len(proof.Siblings))
	}
	for i := range proof.Siblings {
		if string(decompressed.Siblings[i].Hash) != string(proof.Siblings[i].Hash) {
			t.Fatalf("sibling %d hash mismatch after round trip", i)
		}
		if decompressed.Siblings[i].Sum != proof.Siblings[i].Sum {
			t.Fatalf("sibling %d sum mismatch after round trip", i)
		}
	}

	root, err := tree.Root()
	if err != nil {
		t.Fatal(err)
	}
	if err := decompressed.Verify(h, aliceKey, aliceLeaf, root.NodeHash(), root.NodeSum()); err != nil {
		t.Fatalf("decompressed proof failed to verify: %v", err)
	}
}

func TestCompressedProofDecompressWrongBitmapLength(t *testing.T) {
	h := NewSHA256Hasher()
	empty := NewEmptyTree(h)
	cp := &CompressedProof{Bitmap: make([]bool, 3)}
	if _, err := cp.Decompress(empty); err != ErrProofShape {
		t.Fatalf("expected ErrProofShape, got %v", err)
	}
}

func TestCompressedProofDecompressSiblingCountMismatch(t *testing.T) {
	h := NewSHA256Hasher()
	empty := NewEmptyTree(h)
	cp := &CompressedProof{
		Bitmap:   make([]bool, empty.Depth()), // all false: every slot claims a real sibling
		Siblings: nil,                         // but none are supplied
	}
	if _, err := cp.Decompress(empty); err != ErrProofShape {
		t.Fatalf("expected ErrProofShape, got %v", err)
	}
}

func TestProofVerifyRejectsTamperedRoot(t *testing.T) {
	h := NewSHA256Hasher()
	tree := NewFullTree(h, NewMemStore(h, nil), nil)
	key := testKey(h, "alice")
	leaf := NewLeafNode(h, []byte("100"), 100)
	if err := tree.Insert(key, leaf); err != nil {
		t.Fatal(err)
	}
	proof, err := tree.MerkleProof(key)
	if err != nil {
		t.Fatal(err)
	}
	root, err := tree.Root()
	if err != nil {
		t.Fatal(err)
	}
	if err := proof.Verify(h, key, leaf, root.NodeHash(), root.NodeSum()+1); err != ErrVerificationFailed {
		t.Fatalf("expected ErrVerificationFailed for a tampered sum, got %v", err)
	}
}
