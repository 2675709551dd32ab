package mssmt

import (
	"fmt"
	"sync"

	"github.com/coniks-sys/mssmt-go/mssmtlog"
)

// Store is the persistence contract a tree engine requires from its
// backing storage. Every node is addressed by its own hash, so the store
// behaves like a content-addressed object store plus one mutable root
// pointer; it does not need to track tree topology itself.
//
// This interface is shaped after the storage trait this tree's design was
// modelled on, translated into Go's explicit-error idiom: lookups return
// ErrNodeNotFound instead of an optional, and every mutation returns an
// error instead of panicking.
type Store interface {
	// RootNode returns the current root, or (nil, nil) if the tree is
	// empty.
	RootNode() (*BranchNode, error)

	// Children resolves the two children of the branch identified by
	// nodeHash, which lives at depth. Each returned Node is a
	// *LeafNode, *BranchNode or *CompactLeafNode as appropriate; an
	// empty child is returned as a node whose hash is the empty-subtree
	// constant for depth+1: the canonical empty leaf at the tree's full
	// depth, an empty branch above it.
	Children(depth int, nodeHash []byte) (left, right Node, err error)

	// InsertLeaf, InsertBranch and InsertCompactLeaf persist a node.
	// All three are idempotent: inserting a node already present under
	// the same hash is a no-op.
	InsertLeaf(leaf *LeafNode) error
	InsertBranch(branch *BranchNode) error
	InsertCompactLeaf(c *CompactLeafNode) error

	// DeleteLeaf, DeleteBranch and DeleteCompactLeaf remove a node by
	// hash. Deleting an unknown hash is a no-op.
	DeleteLeaf(hash []byte) error
	DeleteBranch(hash []byte) error
	DeleteCompactLeaf(hash []byte) error

	// UpdateRoot sets the tree's current root.
	UpdateRoot(branch *BranchNode) error
}

// MemStore is an in-memory Store, the reference backend used by both tree
// engines' own test suites. It is safe for any number of concurrent
// readers, guarded by a sync.RWMutex.
type MemStore struct {
	mu sync.RWMutex

	hasher Hasher
	empty  *EmptyTree
	log    *mssmtlog.Logger

	root          *BranchNode
	branches      map[string]*BranchNode
	leaves        map[string]*LeafNode
	compactLeaves map[string]*CompactLeafNode
}

var _ Store = (*MemStore)(nil)

// NewMemStore constructs an empty in-memory store for the given hasher. A
// nil log discards every structural-change message, the same default
// leveldbstore.Open uses.
func NewMemStore(h Hasher, log *mssmtlog.Logger) *MemStore {
	if log == nil {
		log = mssmtlog.Noop()
	}
	return &MemStore{
		hasher:        h,
		empty:         NewEmptyTree(h),
		log:           log,
		branches:      make(map[string]*BranchNode),
		leaves:        make(map[string]*LeafNode),
		compactLeaves: make(map[string]*CompactLeafNode),
	}
}

func (s *MemStore) RootNode() (*BranchNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root, nil
}

func (s *MemStore) Children(depth int, nodeHash []byte) (Node, Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	branch, ok := s.branches[string(nodeHash)]
	if !ok {
		return nil, nil, ErrNodeNotFound
	}
	left, err := s.resolveLocked(depth+1, branch.LeftHash)
	if err != nil {
		return nil, nil, err
	}
	right, err := s.resolveLocked(depth+1, branch.RightHash)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

// resolveLocked resolves a child hash at depth into the Node it names. It
// must be called with s.mu held for reading.
func (s *MemStore) resolveLocked(depth int, hash []byte) (Node, error) {
	if s.empty.IsEmptyAt(depth, hash) {
		if depth == s.empty.Depth() {
			return EmptyLeaf(s.hasher), nil
		}
		child := s.empty.Hash(depth + 1)
		return NewBranchFromHashes(s.hasher, child, child, 0, 0)
	}
	if c, ok := s.compactLeaves[string(hash)]; ok {
		return c, nil
	}
	if depth == s.empty.Depth() {
		if l, ok := s.leaves[string(hash)]; ok {
			return l, nil
		}
		return nil, ErrNodeNotFound
	}
	if b, ok := s.branches[string(hash)]; ok {
		return b, nil
	}
	return nil, ErrNodeNotFound
}

func (s *MemStore) InsertLeaf(leaf *LeafNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaves[string(leaf.NodeHash())] = leaf
	return nil
}

func (s *MemStore) InsertBranch(branch *BranchNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.branches[string(branch.NodeHash())] = branch
	s.log.Debug("branch materialised", "hash", fmt.Sprintf("%x", branch.NodeHash()))
	return nil
}

func (s *MemStore) InsertCompactLeaf(c *CompactLeafNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compactLeaves[string(c.NodeHash())] = c
	s.log.Debug("compact leaf created", "depth", c.Depth, "hash", fmt.Sprintf("%x", c.NodeHash()))
	return nil
}

func (s *MemStore) DeleteLeaf(hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.leaves, string(hash))
	return nil
}

func (s *MemStore) DeleteBranch(hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.branches, string(hash))
	s.log.Debug("branch collapsed", "hash", fmt.Sprintf("%x", hash))
	return nil
}

func (s *MemStore) DeleteCompactLeaf(hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.compactLeaves, string(hash))
	return nil
}

func (s *MemStore) UpdateRoot(branch *BranchNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root = branch
	return nil
}
