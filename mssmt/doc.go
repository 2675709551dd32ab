// Package mssmt implements a Merkle Sum Sparse Merkle Tree: an authenticated
// key-value structure over a fixed-width binary key space that proves both
// membership/non-membership of a key and a running sum carried by every
// interior node.
//
// Two tree variants share the same node model and storage contract: FullTree
// materialises the conceptually complete binary tree down to the leaf depth,
// while CompactTree collapses unary subtrees into a single CompactLeaf node.
// Both produce identical root hashes and sums for the same set of entries.
package mssmt
