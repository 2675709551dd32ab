package mssmt

import "github.com/coniks-sys/mssmt-go/mssmtlog"

// treeBase holds the state and small helpers both tree engines share: the
// hash function, its empty-subtree table, the backing store, and the
// logger structural changes are reported to.
type treeBase struct {
	hasher Hasher
	empty  *EmptyTree
	store  Store
	log    *mssmtlog.Logger
}

func (t *treeBase) keyLen() int {
	return t.empty.Depth() / 8
}

func (t *treeBase) checkKey(key []byte) error {
	if len(key) != t.keyLen() {
		return ErrKeyLength
	}
	return nil
}

// emptyNodeAt returns a Node whose hash is the empty-subtree constant for
// depth: the canonical empty leaf if depth is the tree's full depth, or a
// synthetic branch over the next depth's empty constant otherwise. Every
// "nothing here" position in either tree engine is represented by this
// node, never by the leaf-level empty leaf alone, so that its hash matches
// what a real branch at that depth would produce.
func (t *treeBase) emptyNodeAt(depth int) Node {
	if depth == t.empty.Depth() {
		return EmptyLeaf(t.hasher)
	}
	d1 := t.empty.Hash(depth + 1)
	return &BranchNode{
		LeftHash: d1, RightHash: d1,
		hash: t.empty.Hash(depth),
	}
}

func (t *treeBase) emptyRoot() *BranchNode {
	return t.emptyNodeAt(0).(*BranchNode)
}

func (t *treeBase) rootOrEmpty() (*BranchNode, error) {
	r, err := t.store.RootNode()
	if err != nil {
		return nil, err
	}
	if r != nil {
		return r, nil
	}
	return t.emptyRoot(), nil
}
