package mssmt

import "bytes"

// Node is the common interface implemented by every node kind stored in a
// tree: leaves, branches and compact leaves. A node's hash and sum are
// computed eagerly at construction time, since a node's children are
// addressed by hash rather than held as live pointers.
type Node interface {
	// NodeHash returns this node's canonical digest.
	NodeHash() []byte

	// NodeSum returns the sum carried by this node: the leaf's own sum
	// for a leaf, or the sum of both children for a branch.
	NodeSum() uint64

	// IsEmpty reports whether this node is the canonical empty leaf.
	IsEmpty() bool
}

// LeafNode is a populated or empty leaf: a value together with the sum it
// contributes to the tree. The canonical empty leaf is represented by a
// LeafNode with a nil Value and a zero Sum; there is no separate empty-leaf
// type, since that node's hash is exactly the leaf-hash formula applied to
// an empty value.
type LeafNode struct {
	Value []byte
	Sum   uint64

	hash []byte
}

var _ Node = (*LeafNode)(nil)

// NewLeafNode constructs a leaf and computes its hash immediately.
func NewLeafNode(h Hasher, value []byte, sum uint64) *LeafNode {
	return &LeafNode{
		Value: value,
		Sum:   sum,
		hash:  h.Hash(value, putUint64(sum)),
	}
}

// EmptyLeaf returns the canonical empty leaf for h: a leaf with no value
// and a sum of zero.
func EmptyLeaf(h Hasher) *LeafNode {
	return NewLeafNode(h, nil, 0)
}

func (n *LeafNode) NodeHash() []byte { return n.hash }
func (n *LeafNode) NodeSum() uint64  { return n.Sum }
func (n *LeafNode) IsEmpty() bool    { return len(n.Value) == 0 && n.Sum == 0 }

// Copy returns a deep copy of n.
func (n *LeafNode) Copy() *LeafNode {
	return &LeafNode{
		Value: append([]byte(nil), n.Value...),
		Sum:   n.Sum,
		hash:  append([]byte(nil), n.hash...),
	}
}

// equalLeaf reports whether two leaves carry the same value and sum.
func equalLeaf(a, b *LeafNode) bool {
	return bytes.Equal(a.Value, b.Value) && a.Sum == b.Sum
}

// BranchNode is an interior node. It stores its children by hash and sum
// rather than by live pointer, since the engine always resolves children
// through the storage interface.
type BranchNode struct {
	LeftHash  []byte
	RightHash []byte
	LeftSum   uint64
	RightSum  uint64

	hash []byte
	sum  uint64
}

var _ Node = (*BranchNode)(nil)

// NewBranch combines two resolved children into a branch. It fails with
// ErrSumOverflow if the children's sums would overflow a uint64.
func NewBranch(h Hasher, left, right Node) (*BranchNode, error) {
	sum, err := addSum(left.NodeSum(), right.NodeSum())
	if err != nil {
		return nil, err
	}
	b := &BranchNode{
		LeftHash:  left.NodeHash(),
		RightHash: right.NodeHash(),
		LeftSum:   left.NodeSum(),
		RightSum:  right.NodeSum(),
		sum:       sum,
	}
	b.hash = h.Hash(b.LeftHash, b.RightHash, putUint64(sum))
	return b, nil
}

// NewBranchFromHashes reconstructs a branch directly from its children's
// already-known hashes and sums, recomputing its own hash. Storage
// backends that persist a branch's component fields rather than live Node
// values use this to rehydrate one without re-reading its children.
func NewBranchFromHashes(h Hasher, leftHash, rightHash []byte, leftSum, rightSum uint64) (*BranchNode, error) {
	sum, err := addSum(leftSum, rightSum)
	if err != nil {
		return nil, err
	}
	b := &BranchNode{
		LeftHash: leftHash, RightHash: rightHash,
		LeftSum: leftSum, RightSum: rightSum,
		sum: sum,
	}
	b.hash = h.Hash(leftHash, rightHash, putUint64(sum))
	return b, nil
}

func (b *BranchNode) NodeHash() []byte { return b.hash }
func (b *BranchNode) NodeSum() uint64  { return b.sum }
func (b *BranchNode) IsEmpty() bool    { return false }

// CompactLeafNode represents the single populated leaf of an otherwise
// empty subtree, avoiding the need to materialise the unary chain of
// branches between its own depth and the tree's full depth. Key is the
// full key of the underlying leaf; Depth is the depth at which this node
// sits (the depth of the branch slot it occupies).
type CompactLeafNode struct {
	Key   []byte
	Leaf  *LeafNode
	Depth int

	hash []byte
	sum  uint64
}

var _ Node = (*CompactLeafNode)(nil)

// NewCompactLeafNode builds a compact leaf and folds its effective hash
// and sum up from the tree's full depth to depth using the empty-subtree
// table empty, per the expansion rule: the sibling at every intervening
// depth is the empty constant for that depth, and the leaf is placed on
// the side its key bit selects.
func NewCompactLeafNode(h Hasher, empty *EmptyTree, key []byte, depth int, leaf *LeafNode) *CompactLeafNode {
	c := &CompactLeafNode{Key: key, Leaf: leaf, Depth: depth}
	c.hash, c.sum = expandCompactLeaf(h, empty, key, depth, leaf)
	return c
}

func (c *CompactLeafNode) NodeHash() []byte { return c.hash }
func (c *CompactLeafNode) NodeSum() uint64  { return c.sum }
func (c *CompactLeafNode) IsEmpty() bool    { return false }

// expandCompactLeaf conceptually expands a compact leaf back into the
// chain of branches the full tree would have between depth D and depth,
// and returns the hash and sum the node at depth would carry.
func expandCompactLeaf(h Hasher, empty *EmptyTree, key []byte, depth int, leaf *LeafNode) ([]byte, uint64) {
	curHash := leaf.NodeHash()
	curSum := leaf.Sum
	for i := empty.Depth() - 1; i >= depth; i-- {
		siblingHash := empty.Hash(i + 1)
		var leftHash, rightHash []byte
		var leftSum, rightSum uint64
		if bitAt(key, i) {
			leftHash, leftSum = siblingHash, 0
			rightHash, rightSum = curHash, curSum
		} else {
			leftHash, leftSum = curHash, curSum
			rightHash, rightSum = siblingHash, 0
		}
		curSum = leftSum + rightSum
		curHash = h.Hash(leftHash, rightHash, putUint64(curSum))
	}
	return curHash, curSum
}
