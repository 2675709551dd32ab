package mssmt

import (
	"crypto/sha256"

	"golang.org/x/crypto/sha3"
)

// Hasher abstracts the fixed-output digest used to compute node hashes.
// The tree is parametric in the choice of hash; Size determines both the
// node-hash length and the key length (and therefore the tree's bit depth,
// 8*Size()).
//
// Hasher is an interface so a caller can substitute any fixed-output
// digest without recompiling the tree engine.
type Hasher interface {
	// Hash returns the digest of the concatenation of data.
	Hash(data ...[]byte) []byte

	// Size returns the digest length in bytes.
	Size() int
}

// sha256Hasher is the default Hasher, used unless a caller supplies its
// own.
type sha256Hasher struct{}

// NewSHA256Hasher returns a Hasher backed by crypto/sha256.
func NewSHA256Hasher() Hasher {
	return sha256Hasher{}
}

func (sha256Hasher) Hash(data ...[]byte) []byte {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

func (sha256Hasher) Size() int {
	return sha256.Size
}

// shake128Hasher is a fixed-output Hasher backed by the SHAKE128 XOF. It
// is offered as an alternative Hasher for callers that want a SHAKE-based
// digest rather than SHA-256.
type shake128Hasher struct {
	size int
}

// NewSHAKE128Hasher returns a Hasher backed by golang.org/x/crypto/sha3's
// SHAKE128, truncated to size bytes (32, matching NewSHA256Hasher's size,
// is the conventional choice).
func NewSHAKE128Hasher(size int) Hasher {
	return shake128Hasher{size: size}
}

func (h shake128Hasher) Hash(data ...[]byte) []byte {
	d := sha3.NewShake128()
	for _, b := range data {
		d.Write(b)
	}
	out := make([]byte, h.size)
	d.Read(out)
	return out
}

func (h shake128Hasher) Size() int {
	return h.size
}
