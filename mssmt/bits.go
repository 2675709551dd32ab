package mssmt

import "encoding/binary"

// bitAt returns the bit of key at the given offset, counting from the most
// significant bit of key[0] (offset 0) to the least significant bit of the
// last byte (offset 8*len(key)-1). true means the bit is set (go right at
// that depth), false means it is clear (go left).
func bitAt(key []byte, offset int) bool {
	byteIndex := offset / 8
	bitOfByte := uint(offset % 8)
	masked := key[byteIndex] & (1 << (7 - bitOfByte))
	return masked != 0
}

// commonPrefixLen returns the number of leading bits shared by a and b,
// both of length n bytes, capped at 8*n.
func commonPrefixLen(a, b []byte) int {
	maxBits := 8 * len(a)
	for i := 0; i < maxBits; i++ {
		if bitAt(a, i) != bitAt(b, i) {
			return i
		}
	}
	return maxBits
}

// putUint64 encodes sum as 8 big-endian bytes, per this tree's canonical
// hash preimage layout.
func putUint64(sum uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, sum)
	return buf
}
