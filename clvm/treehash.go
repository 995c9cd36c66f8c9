package clvm

import "crypto/sha256"

// Tree hashing is the content-addressing primitive shared with ledger-side
// verification: sha256(0x01 || atom) for atoms, sha256(0x02 || left || right)
// for pairs. It must stay bit-exact across implementations.

// AtomHash returns the tree hash of an atom.
func AtomHash(b []byte) [32]byte {
	h := sha256.New()
	h.Write([]byte{0x01})
	h.Write(b)
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// PairHash returns the tree hash of a pair from its components' hashes.
func PairHash(left, right [32]byte) [32]byte {
	h := sha256.New()
	h.Write([]byte{0x02})
	h.Write(left[:])
	h.Write(right[:])
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// TreeHash computes the tree hash of n.
func TreeHash(a *Allocator, n NodePtr) [32]byte {
	if !a.IsPair(n) {
		return AtomHash(a.AtomBytes(n))
	}
	return PairHash(TreeHash(a, a.Left(n)), TreeHash(a, a.Right(n)))
}
