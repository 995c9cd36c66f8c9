// Package merkle adds proof verification and a CLVM proof codec on top of
// the binary merkle trees used to commit to authorization sets.
package merkle

import (
	"bytes"

	"github.com/chain/txvm/crypto/sha3"
	"github.com/chain/txvm/protocol/merkle"

	"datalayer/clvm"
)

// AuditHash is one step of a membership proof.
type AuditHash = merkle.AuditHash

// Proof authenticates one item against a root.
type Proof []AuditHash

// Root returns the root over items, in order.
func Root(items [][]byte) [32]byte {
	return merkle.Root(items)
}

// ProofFor returns the proof for items[i].
func ProofFor(items [][]byte, i int) (Proof, error) {
	p, err := merkle.Proof(items, i)
	return Proof(p), err
}

// Verify folds proof over item and reports whether the result equals root.
// Any divergence between two parties' trees shows up here, so the fold must
// mirror Root's hashing exactly.
func Verify(root [32]byte, item []byte, proof Proof) bool {
	cur := leafHash(item)
	for _, ah := range proof {
		if ah.RightOperator {
			cur = interiorHash(cur, ah.Val)
		} else {
			cur = interiorHash(ah.Val, cur)
		}
	}
	return cur == root
}

func leafHash(item []byte) [32]byte {
	return sha3.Sum256(append([]byte{0x00}, item...))
}

func interiorHash(left, right [32]byte) [32]byte {
	var buf bytes.Buffer
	buf.WriteByte(0x01)
	buf.Write(left[:])
	buf.Write(right[:])
	return sha3.Sum256(buf.Bytes())
}

// EncodeProof represents a proof as a list of (side . hash) pairs, side 1
// meaning the audit hash sits on the right of the concatenation.
func EncodeProof(a *clvm.Allocator, proof Proof) clvm.NodePtr {
	entries := make([]clvm.NodePtr, 0, len(proof))
	for _, ah := range proof {
		side := a.Nil()
		if ah.RightOperator {
			side = a.Atom([]byte{0x01})
		}
		entries = append(entries, a.Pair(side, a.Atom(ah.Val[:])))
	}
	return a.NewList(entries...)
}

// DecodeProof is the inverse of EncodeProof.
func DecodeProof(a *clvm.Allocator, n clvm.NodePtr) (Proof, error) {
	entries, err := a.ListItems(n)
	if err != nil {
		return nil, err
	}
	proof := make(Proof, 0, len(entries))
	for _, e := range entries {
		if !a.IsPair(e) {
			return nil, clvm.ErrExpectedPair
		}
		if a.IsPair(a.Left(e)) || a.IsPair(a.Right(e)) {
			return nil, clvm.ErrExpectedAtom
		}
		hashBytes := a.AtomBytes(a.Right(e))
		if len(hashBytes) != 32 {
			return nil, clvm.ErrAtomTooLarge
		}
		var ah AuditHash
		copy(ah.Val[:], hashBytes)
		ah.RightOperator = len(a.AtomBytes(a.Left(e))) != 0
		proof = append(proof, ah)
	}
	return proof, nil
}
