package mssmt

import (
	"bytes"
	"fmt"

	"github.com/coniks-sys/mssmt-go/mssmtlog"
)

// CompactTree is the tree engine that avoids materialising unary spines:
// any subtree that is empty except for a single leaf is represented by one
// CompactLeafNode instead of a chain of branches. It produces identical
// root hashes and sums to FullTree for the same set of entries.
type CompactTree struct {
	treeBase
}

var _ Tree = (*CompactTree)(nil)

// NewCompactTree constructs a compact tree over the given store using h as
// its hash function. A nil log discards every structural-change message,
// the same default leveldbstore.Open uses.
func NewCompactTree(h Hasher, store Store, log *mssmtlog.Logger) *CompactTree {
	if log == nil {
		log = mssmtlog.Noop()
	}
	return &CompactTree{treeBase{hasher: h, empty: NewEmptyTree(h), store: store, log: log}}
}

func (t *CompactTree) Root() (*BranchNode, error) {
	return t.rootOrEmpty()
}

func (t *CompactTree) Get(key []byte) (*LeafNode, error) {
	if err := t.checkKey(key); err != nil {
		return nil, err
	}
	root, err := t.rootOrEmpty()
	if err != nil {
		return nil, err
	}
	return t.getAt(0, root, key)
}

func (t *CompactTree) getAt(depth int, node Node, key []byte) (*LeafNode, error) {
	if t.empty.IsEmptyAt(depth, node.NodeHash()) {
		return EmptyLeaf(t.hasher), nil
	}
	switch n := node.(type) {
	case *CompactLeafNode:
		if bytes.Equal(n.Key, key) {
			return n.Leaf, nil
		}
		return EmptyLeaf(t.hasher), nil
	case *LeafNode:
		return n, nil
	case *BranchNode:
		left, right, err := t.store.Children(depth, n.NodeHash())
		if err != nil {
			return nil, err
		}
		if bitAt(key, depth) {
			return t.getAt(depth+1, right, key)
		}
		return t.getAt(depth+1, left, key)
	default:
		return nil, ErrInvalidTree
	}
}

// asRoot turns whatever node the recursive insert/delete produced for
// position 0 into a proper *BranchNode, since the store's root slot is
// always a branch. A fully collapsed tree of exactly one leaf is
// represented by pushing that leaf's compact form down to depth 1, with
// the other side of the root the empty constant for that depth.
func (t *CompactTree) asRoot(node Node) (*BranchNode, error) {
	if b, ok := node.(*BranchNode); ok {
		return b, nil
	}
	cl, ok := node.(*CompactLeafNode)
	if !ok {
		return nil, ErrInvalidTree
	}
	pushed := NewCompactLeafNode(t.hasher, t.empty, cl.Key, 1, cl.Leaf)
	if err := t.store.InsertCompactLeaf(pushed); err != nil {
		return nil, err
	}
	if string(pushed.NodeHash()) != string(cl.NodeHash()) {
		if err := t.store.DeleteCompactLeaf(cl.NodeHash()); err != nil {
			return nil, err
		}
	}
	emptySide := t.emptyNodeAt(1)
	var left, right Node
	if bitAt(cl.Key, 0) {
		left, right = emptySide, pushed
	} else {
		left, right = pushed, emptySide
	}
	root, err := NewBranch(t.hasher, left, right)
	if err != nil {
		return nil, err
	}
	if err := t.store.InsertBranch(root); err != nil {
		return nil, err
	}
	return root, nil
}

func (t *CompactTree) Insert(key []byte, leaf *LeafNode) error {
	if err := t.checkKey(key); err != nil {
		return err
	}
	if leaf.IsEmpty() {
		return t.Delete(key)
	}
	root, err := t.rootOrEmpty()
	if err != nil {
		return err
	}
	newNode, err := t.insertAt(0, root, key, leaf)
	if err != nil {
		return err
	}
	newRoot, err := t.asRoot(newNode)
	if err != nil {
		return err
	}
	return t.store.UpdateRoot(newRoot)
}

// insertAt inserts leaf at key into the subtree currently occupying
// position (depth, node), returning the node that should occupy that
// position afterwards.
func (t *CompactTree) insertAt(depth int, node Node, key []byte, leaf *LeafNode) (Node, error) {
	if t.empty.IsEmptyAt(depth, node.NodeHash()) {
		c := NewCompactLeafNode(t.hasher, t.empty, key, depth, leaf)
		if err := t.store.InsertCompactLeaf(c); err != nil {
			return nil, err
		}
		t.log.Debug("compact leaf created", "depth", depth, "hash", fmt.Sprintf("%x", c.NodeHash()))
		return c, nil
	}

	switch n := node.(type) {
	case *CompactLeafNode:
		return t.insertIntoCompactLeaf(depth, n, key, leaf)
	case *BranchNode:
		left, right, err := t.store.Children(depth, n.NodeHash())
		if err != nil {
			return nil, err
		}
		goRight := bitAt(key, depth)
		var child, sibling Node
		if goRight {
			child, sibling = right, left
		} else {
			child, sibling = left, right
		}
		newChild, err := t.insertAt(depth+1, child, key, leaf)
		if err != nil {
			return nil, err
		}
		var newLeft, newRight Node
		if goRight {
			newLeft, newRight = sibling, newChild
		} else {
			newLeft, newRight = newChild, sibling
		}
		newBranch, err := NewBranch(t.hasher, newLeft, newRight)
		if err != nil {
			return nil, err
		}
		if err := t.store.InsertBranch(newBranch); err != nil {
			return nil, err
		}
		t.log.Debug("branch materialised", "depth", depth, "hash", fmt.Sprintf("%x", newBranch.NodeHash()))
		if string(newBranch.NodeHash()) != string(n.NodeHash()) {
			if err := t.store.DeleteBranch(n.NodeHash()); err != nil {
				return nil, err
			}
		}
		return newBranch, nil
	default:
		return nil, ErrInvalidTree
	}
}

// insertIntoCompactLeaf handles inserting into a position currently held
// by a single compact leaf: either an overwrite of the same key, or a
// split that materialises branches down to the two keys' first differing
// bit.
func (t *CompactTree) insertIntoCompactLeaf(depth int, n *CompactLeafNode, key []byte, leaf *LeafNode) (Node, error) {
	if bytes.Equal(n.Key, key) {
		newC := NewCompactLeafNode(t.hasher, t.empty, key, depth, leaf)
		if err := t.store.InsertCompactLeaf(newC); err != nil {
			return nil, err
		}
		t.log.Debug("compact leaf created", "depth", depth, "hash", fmt.Sprintf("%x", newC.NodeHash()))
		if string(newC.NodeHash()) != string(n.NodeHash()) {
			if err := t.store.DeleteCompactLeaf(n.NodeHash()); err != nil {
				return nil, err
			}
		}
		return newC, nil
	}

	m := commonPrefixLen(n.Key, key)
	leafDepth := m + 1

	existing := NewCompactLeafNode(t.hasher, t.empty, n.Key, leafDepth, n.Leaf)
	fresh := NewCompactLeafNode(t.hasher, t.empty, key, leafDepth, leaf)
	if err := t.store.InsertCompactLeaf(existing); err != nil {
		return nil, err
	}
	t.log.Debug("compact leaf created", "depth", leafDepth, "hash", fmt.Sprintf("%x", existing.NodeHash()))
	if err := t.store.InsertCompactLeaf(fresh); err != nil {
		return nil, err
	}
	t.log.Debug("compact leaf created", "depth", leafDepth, "hash", fmt.Sprintf("%x", fresh.NodeHash()))
	if err := t.store.DeleteCompactLeaf(n.NodeHash()); err != nil {
		return nil, err
	}

	var left, right Node
	if bitAt(key, m) {
		left, right = existing, fresh
	} else {
		left, right = fresh, existing
	}
	current, err := NewBranch(t.hasher, left, right)
	if err != nil {
		return nil, err
	}
	if err := t.store.InsertBranch(current); err != nil {
		return nil, err
	}
	t.log.Debug("branch materialised", "depth", m, "hash", fmt.Sprintf("%x", current.NodeHash()))

	for d := m - 1; d >= depth; d-- {
		emptySide := t.emptyNodeAt(d + 1)
		var l, r Node
		if bitAt(key, d) {
			l, r = emptySide, current
		} else {
			l, r = current, emptySide
		}
		b, err := NewBranch(t.hasher, l, r)
		if err != nil {
			return nil, err
		}
		if err := t.store.InsertBranch(b); err != nil {
			return nil, err
		}
		t.log.Debug("branch materialised", "depth", d, "hash", fmt.Sprintf("%x", b.NodeHash()))
		current = b
	}
	return current, nil
}

func (t *CompactTree) Delete(key []byte) error {
	if err := t.checkKey(key); err != nil {
		return err
	}
	root, err := t.rootOrEmpty()
	if err != nil {
		return err
	}
	newNode, changed, err := t.deleteAt(0, root, key)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	newRoot, err := t.asRoot(newNode)
	if err != nil {
		return err
	}
	return t.store.UpdateRoot(newRoot)
}

// deleteAt removes key from the subtree at (depth, node), returning the
// node that should occupy that position afterwards and whether anything
// changed. A false changed return means key was not present below this
// position and the caller does not need to rewrite anything above it.
func (t *CompactTree) deleteAt(depth int, node Node, key []byte) (Node, bool, error) {
	if t.empty.IsEmptyAt(depth, node.NodeHash()) {
		return node, false, nil
	}

	switch n := node.(type) {
	case *CompactLeafNode:
		if !bytes.Equal(n.Key, key) {
			return node, false, nil
		}
		if err := t.store.DeleteCompactLeaf(n.NodeHash()); err != nil {
			return nil, false, err
		}
		return t.emptyNodeAt(depth), true, nil

	case *BranchNode:
		left, right, err := t.store.Children(depth, n.NodeHash())
		if err != nil {
			return nil, false, err
		}
		goRight := bitAt(key, depth)
		var child, sibling Node
		if goRight {
			child, sibling = right, left
		} else {
			child, sibling = left, right
		}
		newChild, changed, err := t.deleteAt(depth+1, child, key)
		if err != nil {
			return nil, false, err
		}
		if !changed {
			return node, false, nil
		}

		childEmpty := t.empty.IsEmptyAt(depth+1, newChild.NodeHash())
		siblingEmpty := t.empty.IsEmptyAt(depth+1, sibling.NodeHash())

		if childEmpty && siblingEmpty {
			if err := t.store.DeleteBranch(n.NodeHash()); err != nil {
				return nil, false, err
			}
			t.log.Debug("branch collapsed", "depth", depth, "hash", fmt.Sprintf("%x", n.NodeHash()))
			return t.emptyNodeAt(depth), true, nil
		}
		if childEmpty {
			if cl, ok := sibling.(*CompactLeafNode); ok {
				promoted, err := t.promoteCompactLeaf(depth, cl)
				if err != nil {
					return nil, false, err
				}
				if err := t.store.DeleteBranch(n.NodeHash()); err != nil {
					return nil, false, err
				}
				t.log.Debug("branch collapsed", "depth", depth, "hash", fmt.Sprintf("%x", n.NodeHash()))
				return promoted, true, nil
			}
		}
		if siblingEmpty {
			if cl, ok := newChild.(*CompactLeafNode); ok {
				promoted, err := t.promoteCompactLeaf(depth, cl)
				if err != nil {
					return nil, false, err
				}
				if err := t.store.DeleteBranch(n.NodeHash()); err != nil {
					return nil, false, err
				}
				t.log.Debug("branch collapsed", "depth", depth, "hash", fmt.Sprintf("%x", n.NodeHash()))
				return promoted, true, nil
			}
		}

		var newLeft, newRight Node
		if goRight {
			newLeft, newRight = sibling, newChild
		} else {
			newLeft, newRight = newChild, sibling
		}
		newBranch, err := NewBranch(t.hasher, newLeft, newRight)
		if err != nil {
			return nil, false, err
		}
		if err := t.store.InsertBranch(newBranch); err != nil {
			return nil, false, err
		}
		t.log.Debug("branch materialised", "depth", depth, "hash", fmt.Sprintf("%x", newBranch.NodeHash()))
		if err := t.store.DeleteBranch(n.NodeHash()); err != nil {
			return nil, false, err
		}
		return newBranch, true, nil

	default:
		return nil, false, ErrInvalidTree
	}
}

// promoteCompactLeaf re-wraps a compact leaf that now survives alone at a
// shallower depth, recomputing the effective hash/sum its new position
// implies.
func (t *CompactTree) promoteCompactLeaf(depth int, c *CompactLeafNode) (*CompactLeafNode, error) {
	promoted := NewCompactLeafNode(t.hasher, t.empty, c.Key, depth, c.Leaf)
	if err := t.store.InsertCompactLeaf(promoted); err != nil {
		return nil, err
	}
	t.log.Debug("compact leaf created", "depth", depth, "hash", fmt.Sprintf("%x", promoted.NodeHash()))
	if err := t.store.DeleteCompactLeaf(c.NodeHash()); err != nil {
		return nil, err
	}
	return promoted, nil
}

// MerkleProof generates a proof for key by descending the same way Get
// does, recording the sibling encountered at every depth. Where descent
// stops at an empty position, the remaining siblings are filled in from the
// empty-subtree table. Where it enters a CompactLeafNode, they are empty
// constants too, except at the depth where key first differs from the
// compact leaf's key: that sibling is the compact leaf's subtree. Either
// way the result matches what a full tree holding the same entries would
// produce.
func (t *CompactTree) MerkleProof(key []byte) (*Proof, error) {
	if err := t.checkKey(key); err != nil {
		return nil, err
	}
	root, err := t.rootOrEmpty()
	if err != nil {
		return nil, err
	}
	depthCount := t.empty.Depth()
	siblings := make([]ProofSibling, depthCount)
	if err := t.proveAt(0, root, key, siblings); err != nil {
		return nil, err
	}
	return &Proof{Siblings: siblings}, nil
}

func (t *CompactTree) proveAt(depth int, node Node, key []byte, siblings []ProofSibling) error {
	depthCount := t.empty.Depth()
	if t.empty.IsEmptyAt(depth, node.NodeHash()) {
		for d := depth; d < depthCount; d++ {
			s := t.emptyNodeAt(d + 1)
			siblings[depthCount-1-d] = ProofSibling{Hash: s.NodeHash(), Sum: s.NodeSum()}
		}
		return nil
	}

	switch n := node.(type) {
	case *CompactLeafNode:
		// n sits exactly where the full tree's single remaining leaf
		// in this subtree would: expand it back into the chain of
		// branches a full tree would have. Key and n.Key agree on
		// every bit before depth (that's how descent reached here);
		// they may agree further still, in which case key names this
		// very leaf (inclusion) and every remaining sibling is empty.
		// Otherwise they diverge at some bit m, and the sibling at
		// depth m is n's subtree folded up to m+1, with every other
		// remaining sibling empty.
		m := commonPrefixLen(n.Key, key)
		for d := depth; d < depthCount; d++ {
			switch {
			case d == m && m < depthCount:
				hash, sum := expandCompactLeaf(t.hasher, t.empty, n.Key, m+1, n.Leaf)
				siblings[depthCount-1-d] = ProofSibling{Hash: hash, Sum: sum}
			default:
				s := t.emptyNodeAt(d + 1)
				siblings[depthCount-1-d] = ProofSibling{Hash: s.NodeHash(), Sum: s.NodeSum()}
			}
		}
		return nil
	case *BranchNode:
		left, right, err := t.store.Children(depth, n.NodeHash())
		if err != nil {
			return err
		}
		var next, sibling Node
		if bitAt(key, depth) {
			next, sibling = right, left
		} else {
			next, sibling = left, right
		}
		siblings[depthCount-1-depth] = ProofSibling{Hash: sibling.NodeHash(), Sum: sibling.NodeSum()}
		return t.proveAt(depth+1, next, key, siblings)
	default:
		return ErrInvalidTree
	}
}
