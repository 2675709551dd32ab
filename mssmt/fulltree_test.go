package mssmt

import (
	"bytes"
	"testing"
)

func testKey(h Hasher, s string) []byte {
	return h.Hash([]byte(s))
}

func TestFullTreeEmptyRoot(t *testing.T) {
	h := NewSHA256Hasher()
	tree := NewFullTree(h, NewMemStore(h, nil), nil)

	root, err := tree.Root()
	if err != nil {
		t.Fatal(err)
	}
	empty := NewEmptyTree(h)
	if !bytes.Equal(root.NodeHash(), empty.Hash(0)) {
		t.Fatalf("empty tree root = %x, want %x", root.NodeHash(), empty.Hash(0))
	}
	if root.NodeSum() != 0 {
		t.Fatalf("empty tree sum = %d, want 0", root.NodeSum())
	}
}

func TestFullTreeInsertGet(t *testing.T) {
	h := NewSHA256Hasher()
	tree := NewFullTree(h, NewMemStore(h, nil), nil)
	key := testKey(h, "alice")
	leaf := NewLeafNode(h, []byte("100"), 100)

	if err := tree.Insert(key, leaf); err != nil {
		t.Fatal(err)
	}
	got, err := tree.Get(key)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.NodeHash(), leaf.NodeHash()) {
		t.Fatalf("got leaf hash %x, want %x", got.NodeHash(), leaf.NodeHash())
	}

	other := testKey(h, "bob")
	missing, err := tree.Get(other)
	if err != nil {
		t.Fatal(err)
	}
	if !missing.IsEmpty() {
		t.Fatal("expected an absent key to read back the empty leaf")
	}
}

func TestFullTreeSumAccumulates(t *testing.T) {
	h := NewSHA256Hasher()
	tree := NewFullTree(h, NewMemStore(h, nil), nil)

	entries := map[string]uint64{"alice": 10, "bob": 20, "carol": 30}
	var want uint64
	for k, sum := range entries {
		want += sum
		leaf := NewLeafNode(h, []byte(k), sum)
		if err := tree.Insert(testKey(h, k), leaf); err != nil {
			t.Fatal(err)
		}
	}
	root, err := tree.Root()
	if err != nil {
		t.Fatal(err)
	}
	if root.NodeSum() != want {
		t.Fatalf("root sum = %d, want %d", root.NodeSum(), want)
	}
}

func TestFullTreeDelete(t *testing.T) {
	h := NewSHA256Hasher()
	tree := NewFullTree(h, NewMemStore(h, nil), nil)
	key := testKey(h, "alice")
	leaf := NewLeafNode(h, []byte("100"), 100)

	if err := tree.Insert(key, leaf); err != nil {
		t.Fatal(err)
	}
	if err := tree.Delete(key); err != nil {
		t.Fatal(err)
	}

	got, err := tree.Get(key)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsEmpty() {
		t.Fatal("expected deleted key to read back empty")
	}

	root, err := tree.Root()
	if err != nil {
		t.Fatal(err)
	}
	empty := NewEmptyTree(h)
	if !bytes.Equal(root.NodeHash(), empty.Hash(0)) {
		t.Fatal("expected deleting the only entry to restore the empty root")
	}
}

func TestFullTreeDeleteAbsentIsNoop(t *testing.T) {
	h := NewSHA256Hasher()
	tree := NewFullTree(h, NewMemStore(h, nil), nil)
	key := testKey(h, "alice")
	if err := tree.Delete(key); err != nil {
		t.Fatal(err)
	}
}

func TestFullTreeInsertEmptyLeafDeletes(t *testing.T) {
	h := NewSHA256Hasher()
	tree := NewFullTree(h, NewMemStore(h, nil), nil)
	key := testKey(h, "alice")
	leaf := NewLeafNode(h, []byte("100"), 100)

	if err := tree.Insert(key, leaf); err != nil {
		t.Fatal(err)
	}
	if err := tree.Insert(key, EmptyLeaf(h)); err != nil {
		t.Fatal(err)
	}
	got, err := tree.Get(key)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsEmpty() {
		t.Fatal("inserting the empty leaf should delete the key")
	}
}

func TestFullTreeRejectsWrongKeyLength(t *testing.T) {
	h := NewSHA256Hasher()
	tree := NewFullTree(h, NewMemStore(h, nil), nil)
	if _, err := tree.Get([]byte("too short")); err != ErrKeyLength {
		t.Fatalf("expected ErrKeyLength, got %v", err)
	}
}

func TestFullTreeMerkleProofInclusionAndExclusion(t *testing.T) {
	h := NewSHA256Hasher()
	tree := NewFullTree(h, NewMemStore(h, nil), nil)

	aliceKey := testKey(h, "alice")
	aliceLeaf := NewLeafNode(h, []byte("100"), 100)
	if err := tree.Insert(aliceKey, aliceLeaf); err != nil {
		t.Fatal(err)
	}
	bobLeaf := NewLeafNode(h, []byte("50"), 50)
	if err := tree.Insert(testKey(h, "bob"), bobLeaf); err != nil {
		t.Fatal(err)
	}

	root, err := tree.Root()
	if err != nil {
		t.Fatal(err)
	}

	proof, err := tree.MerkleProof(aliceKey)
	if err != nil {
		t.Fatal(err)
	}
	if err := proof.Verify(h, aliceKey, aliceLeaf, root.NodeHash(), root.NodeSum()); err != nil {
		t.Fatalf("inclusion proof failed to verify: %v", err)
	}

	carolKey := testKey(h, "carol")
	exclusionProof, err := tree.MerkleProof(carolKey)
	if err != nil {
		t.Fatal(err)
	}
	if err := exclusionProof.Verify(h, carolKey, EmptyLeaf(h), root.NodeHash(), root.NodeSum()); err != nil {
		t.Fatalf("exclusion proof failed to verify: %v", err)
	}

	if err := proof.Verify(h, aliceKey, NewLeafNode(h, []byte("wrong"), 1), root.NodeHash(), root.NodeSum()); err == nil {
		t.Fatal("expected verification to fail against a tampered leaf")
	}
}
