package mssmt

// ProofSibling is one entry of a Proof: the hash and sum of a node that
// sat beside the path from a leaf to the root.
type ProofSibling struct {
	Hash []byte
	Sum  uint64
}

// Proof is an inclusion or exclusion proof for a single key. Siblings has
// exactly one entry per bit of the tree's key (8*hasher.Size()), ordered
// leaf-adjacent first: Siblings[0] is the sibling of the leaf itself,
// Siblings[len-1] is the sibling of the root's child on the path.
type Proof struct {
	Siblings []ProofSibling
}

// Verify recomputes the root hash and sum this proof implies for key and
// claimedLeaf, and compares them against expectedRootHash/expectedRootSum.
// claimedLeaf may be the canonical empty leaf, in which case this is an
// exclusion proof.
func (p *Proof) Verify(h Hasher, key []byte, claimedLeaf *LeafNode, expectedRootHash []byte, expectedRootSum uint64) error {
	depthCount := 8 * h.Size()
	if len(key) != depthCount/8 {
		return ErrKeyLength
	}
	if len(p.Siblings) != depthCount {
		return ErrProofShape
	}

	curHash := claimedLeaf.NodeHash()
	curSum := claimedLeaf.Sum
	for i := 0; i < depthCount; i++ {
		depth := depthCount - 1 - i
		sib := p.Siblings[i]
		var leftHash, rightHash []byte
		var leftSum, rightSum uint64
		if bitAt(key, depth) {
			leftHash, leftSum = sib.Hash, sib.Sum
			rightHash, rightSum = curHash, curSum
		} else {
			leftHash, leftSum = curHash, curSum
			rightHash, rightSum = sib.Hash, sib.Sum
		}
		sum, err := addSum(leftSum, rightSum)
		if err != nil {
			return err
		}
		curSum = sum
		curHash = h.Hash(leftHash, rightHash, putUint64(sum))
	}

	if curSum != expectedRootSum {
		return ErrVerificationFailed
	}
	if string(curHash) != string(expectedRootHash) {
		return ErrVerificationFailed
	}
	return nil
}

// CompressedProof is the space-efficient encoding of a Proof: siblings
// equal to the empty-subtree constant for their depth are omitted and
// recorded only as a set bit in Bitmap.
type CompressedProof struct {
	// Bitmap has one bit per depth, leaf-adjacent first; a set bit
	// means the corresponding sibling was the empty constant for that
	// depth and was omitted from Siblings.
	Bitmap []bool

	// Siblings holds only the non-empty siblings, in the same relative
	// order they appear in the full proof.
	Siblings []ProofSibling
}

// Compress drops every sibling equal to the empty-subtree constant for its
// depth, recording its position in the bitmap instead.
func (p *Proof) Compress(empty *EmptyTree) *CompressedProof {
	depthCount := len(p.Siblings)
	cp := &CompressedProof{Bitmap: make([]bool, depthCount)}
	for i, sib := range p.Siblings {
		depth := depthCount - i // depth of the sibling itself: leaf-adjacent sibling lives at depth D
		if empty.IsEmptyAt(depth, sib.Hash) && sib.Sum == 0 {
			cp.Bitmap[i] = true
			continue
		}
		cp.Siblings = append(cp.Siblings, sib)
	}
	return cp
}

// Decompress reinserts the empty-subtree constant wherever the bitmap
// indicates, reconstructing a full Proof.
func (cp *CompressedProof) Decompress(empty *EmptyTree) (*Proof, error) {
	depthCount := empty.Depth()
	if len(cp.Bitmap) != depthCount {
		return nil, ErrProofShape
	}

	siblings := make([]ProofSibling, depthCount)
	next := 0
	for i, empty_ := range cp.Bitmap {
		depth := depthCount - i
		if empty_ {
			siblings[i] = ProofSibling{Hash: empty.Hash(depth), Sum: 0}
			continue
		}
		if next >= len(cp.Siblings) {
			return nil, ErrProofShape
		}
		siblings[i] = cp.Siblings[next]
		next++
	}
	if next != len(cp.Siblings) {
		return nil, ErrProofShape
	}
	return &Proof{Siblings: siblings}, nil
}
