package mssmt

import "bytes"

// EmptyTree holds the precomputed empty-subtree hash for every depth of a
// tree using a particular Hasher: EmptyTree.Hash(d) is the hash an entirely
// empty subtree would have if it were rooted at depth d. EmptyTree.Hash(0)
// is therefore the root hash of an empty tree.
//
// The table is built bottom-up once per NewEmptyTree call and is read-only
// afterwards, so one table is safe to share across trees using the same
// Hasher. The tree and MemStore constructors each build their own.
type EmptyTree struct {
	hasher Hasher
	depth  int
	hashes [][]byte
}

// NewEmptyTree builds the empty-subtree table for a tree of depth
// 8*h.Size() bits, one bit of key per tree level.
func NewEmptyTree(h Hasher) *EmptyTree {
	depth := 8 * h.Size()
	hashes := make([][]byte, depth+1)
	hashes[depth] = emptyLeafHash(h)
	for d := depth - 1; d >= 0; d-- {
		hashes[d] = h.Hash(hashes[d+1], hashes[d+1], putUint64(0))
	}
	return &EmptyTree{hasher: h, depth: depth, hashes: hashes}
}

// Hasher returns the Hasher this table was built with.
func (e *EmptyTree) Hasher() Hasher {
	return e.hasher
}

// Depth returns the tree's bit depth, D.
func (e *EmptyTree) Depth() int {
	return e.depth
}

// Hash returns the empty-subtree hash at depth d, 0 <= d <= D.
func (e *EmptyTree) Hash(d int) []byte {
	return e.hashes[d]
}

// IsEmptyAt reports whether hash is the canonical empty-subtree hash at
// depth d.
func (e *EmptyTree) IsEmptyAt(d int, hash []byte) bool {
	return bytes.Equal(hash, e.hashes[d])
}

// emptyLeafHash computes the canonical hash of the empty leaf: the leaf
// hash formula H(value || be64(sum)) applied to an empty value and a zero
// sum.
func emptyLeafHash(h Hasher) []byte {
	return h.Hash(nil, putUint64(0))
}
