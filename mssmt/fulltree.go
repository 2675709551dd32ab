package mssmt

import (
	"fmt"

	"github.com/coniks-sys/mssmt-go/mssmtlog"
)

// Tree is the common read/write surface both tree engines expose.
type Tree interface {
	// Root returns the tree's current root. An empty tree has a
	// synthetic root whose hash is the empty-subtree constant for
	// depth 0 and whose sum is zero.
	Root() (*BranchNode, error)

	// Get returns the leaf stored at key, or the canonical empty leaf
	// if key is absent.
	Get(key []byte) (*LeafNode, error)

	// Insert stores leaf at key, replacing any existing value.
	// Inserting the canonical empty leaf is equivalent to Delete.
	Insert(key []byte, leaf *LeafNode) error

	// Delete removes key. Deleting an absent key is a no-op.
	Delete(key []byte) error

	// MerkleProof generates an inclusion or exclusion proof for key.
	MerkleProof(key []byte) (*Proof, error)
}

// FullTree is the tree engine that materialises every branch on every
// insertion path, representing everything else implicitly via the
// empty-subtree table. It is the simplest of the two engines and the one
// the compact engine is checked against for equivalence.
type FullTree struct {
	treeBase
}

var _ Tree = (*FullTree)(nil)

// NewFullTree constructs a full tree over the given store using h as its
// hash function. store may already contain a root from a previous session.
// A nil log discards every structural-change message, the same default
// leveldbstore.Open uses.
func NewFullTree(h Hasher, store Store, log *mssmtlog.Logger) *FullTree {
	if log == nil {
		log = mssmtlog.Noop()
	}
	return &FullTree{treeBase{hasher: h, empty: NewEmptyTree(h), store: store, log: log}}
}

// children resolves the two children of node, which lives at depth.
func (t *FullTree) children(depth int, node Node) (Node, Node, error) {
	if t.empty.IsEmptyAt(depth, node.NodeHash()) {
		e := t.emptyNodeAt(depth + 1)
		return e, e, nil
	}
	branch, ok := node.(*BranchNode)
	if !ok {
		return nil, nil, ErrInvalidTree
	}
	return t.store.Children(depth, branch.NodeHash())
}

type fullFrame struct {
	sibling Node
	goRight bool
}

// descend walks from the root to depth D along key, returning the visited
// node at every depth (index 0 = root, index D = the leaf slot) and the
// sibling/direction recorded at each step.
func (t *FullTree) descend(key []byte) ([]Node, []fullFrame, error) {
	depthCount := t.empty.Depth()
	path := make([]Node, depthCount+1)
	frames := make([]fullFrame, depthCount)

	root, err := t.rootOrEmpty()
	if err != nil {
		return nil, nil, err
	}
	path[0] = root

	var current Node = root
	for depth := 0; depth < depthCount; depth++ {
		left, right, err := t.children(depth, current)
		if err != nil {
			return nil, nil, err
		}
		goRight := bitAt(key, depth)
		var next, sibling Node
		if goRight {
			next, sibling = right, left
		} else {
			next, sibling = left, right
		}
		frames[depth] = fullFrame{sibling: sibling, goRight: goRight}
		current = next
		path[depth+1] = current
	}
	return path, frames, nil
}

func (t *FullTree) Root() (*BranchNode, error) {
	return t.rootOrEmpty()
}

func (t *FullTree) Get(key []byte) (*LeafNode, error) {
	if err := t.checkKey(key); err != nil {
		return nil, err
	}
	path, _, err := t.descend(key)
	if err != nil {
		return nil, err
	}
	leaf, ok := path[len(path)-1].(*LeafNode)
	if !ok {
		return nil, ErrInvalidTree
	}
	return leaf, nil
}

func (t *FullTree) Insert(key []byte, leaf *LeafNode) error {
	if err := t.checkKey(key); err != nil {
		return err
	}
	if leaf.IsEmpty() {
		return t.Delete(key)
	}

	path, frames, err := t.descend(key)
	if err != nil {
		return err
	}
	depthCount := t.empty.Depth()

	if err := t.store.InsertLeaf(leaf); err != nil {
		return err
	}

	newBranches := make([]*BranchNode, depthCount)
	var child Node = leaf
	for d := depthCount - 1; d >= 0; d-- {
		fr := frames[d]
		var left, right Node
		if fr.goRight {
			left, right = fr.sibling, child
		} else {
			left, right = child, fr.sibling
		}
		branch, err := NewBranch(t.hasher, left, right)
		if err != nil {
			return err
		}
		if err := t.store.InsertBranch(branch); err != nil {
			return err
		}
		t.log.Debug("branch materialised", "depth", d, "hash", fmt.Sprintf("%x", branch.NodeHash()))
		newBranches[d] = branch
		child = branch
	}
	newRoot := child.(*BranchNode)
	if err := t.store.UpdateRoot(newRoot); err != nil {
		return err
	}

	if old, ok := path[len(path)-1].(*LeafNode); ok && !old.IsEmpty() &&
		string(old.NodeHash()) != string(leaf.NodeHash()) {
		if err := t.store.DeleteLeaf(old.NodeHash()); err != nil {
			return err
		}
	}
	t.cleanupPath(path, newBranches)
	return nil
}

func (t *FullTree) Delete(key []byte) error {
	if err := t.checkKey(key); err != nil {
		return err
	}
	path, frames, err := t.descend(key)
	if err != nil {
		return err
	}
	oldLeaf, ok := path[len(path)-1].(*LeafNode)
	if !ok {
		return ErrInvalidTree
	}
	if oldLeaf.IsEmpty() {
		return nil
	}

	depthCount := t.empty.Depth()
	newBranches := make([]*BranchNode, depthCount)
	var child Node = EmptyLeaf(t.hasher)
	for d := depthCount - 1; d >= 0; d-- {
		fr := frames[d]
		var left, right Node
		if fr.goRight {
			left, right = fr.sibling, child
		} else {
			left, right = child, fr.sibling
		}
		branch, err := NewBranch(t.hasher, left, right)
		if err != nil {
			return err
		}
		if !t.empty.IsEmptyAt(d, branch.NodeHash()) {
			if err := t.store.InsertBranch(branch); err != nil {
				return err
			}
			t.log.Debug("branch materialised", "depth", d, "hash", fmt.Sprintf("%x", branch.NodeHash()))
		} else {
			t.log.Debug("branch collapsed", "depth", d, "hash", fmt.Sprintf("%x", branch.NodeHash()))
		}
		newBranches[d] = branch
		child = branch
	}
	newRoot := child.(*BranchNode)
	if err := t.store.UpdateRoot(newRoot); err != nil {
		return err
	}

	if err := t.store.DeleteLeaf(oldLeaf.NodeHash()); err != nil {
		return err
	}
	t.cleanupPath(path, newBranches)
	return nil
}

// cleanupPath deletes the branches that occupied the insertion path before
// the mutation, now that the new spine has been committed, so replaced
// nodes do not linger in storage.
func (t *FullTree) cleanupPath(oldPath []Node, newBranches []*BranchNode) {
	for d := 0; d < len(newBranches); d++ {
		old, ok := oldPath[d].(*BranchNode)
		if !ok {
			continue
		}
		if string(old.NodeHash()) == string(newBranches[d].NodeHash()) {
			continue
		}
		t.store.DeleteBranch(old.NodeHash())
		t.log.Debug("branch collapsed", "depth", d, "hash", fmt.Sprintf("%x", old.NodeHash()))
	}
}

func (t *FullTree) MerkleProof(key []byte) (*Proof, error) {
	if err := t.checkKey(key); err != nil {
		return nil, err
	}
	_, frames, err := t.descend(key)
	if err != nil {
		return nil, err
	}
	depthCount := t.empty.Depth()
	siblings := make([]ProofSibling, depthCount)
	for d := 0; d < depthCount; d++ {
		s := frames[d].sibling
		siblings[depthCount-1-d] = ProofSibling{
			Hash: s.NodeHash(),
			Sum:  s.NodeSum(),
		}
	}
	return &Proof{Siblings: siblings}, nil
}
