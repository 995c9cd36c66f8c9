package datalayer

import (
	"bytes"
	"sort"

	"github.com/chain/txvm/errors"

	"datalayer/merkle"
	"datalayer/puzzles"
)

// DelegatedKind identifies a capability role in the authorization set.
type DelegatedKind uint8

const (
	KindAdmin  DelegatedKind = 1
	KindWriter DelegatedKind = 2
	KindOracle DelegatedKind = 3
)

// DelegatedPuzzle is one member of an object's authorization set. For admin
// and writer entries PuzzleHash is the wrapped inner puzzle's hash; for
// oracle entries it is the fee target and OracleFee the fixed fee.
type DelegatedPuzzle struct {
	Kind       DelegatedKind
	PuzzleHash Hash
	OracleFee  uint64
}

// AdminPuzzle authorizes full control short of replacing the singleton
// child directly.
func AdminPuzzle(innerPuzzleHash Hash) DelegatedPuzzle {
	return DelegatedPuzzle{Kind: KindAdmin, PuzzleHash: innerPuzzleHash}
}

// WriterPuzzle authorizes metadata updates only.
func WriterPuzzle(innerPuzzleHash Hash) DelegatedPuzzle {
	return DelegatedPuzzle{Kind: KindWriter, PuzzleHash: innerPuzzleHash}
}

// OraclePuzzle authorizes anyone to spend the object unchanged for a fixed
// fee paid to target.
func OraclePuzzle(target Hash, fee uint64) DelegatedPuzzle {
	return DelegatedPuzzle{Kind: KindOracle, PuzzleHash: target, OracleFee: fee}
}

// LeafHash is the authorization-set merkle leaf: the full puzzle hash of
// the role filter curried over the entry.
func (dp DelegatedPuzzle) LeafHash() (Hash, error) {
	switch dp.Kind {
	case KindAdmin:
		return puzzles.AdminPuzzleHash(dp.PuzzleHash), nil
	case KindWriter:
		return puzzles.WriterPuzzleHash(dp.PuzzleHash), nil
	case KindOracle:
		return puzzles.OraclePuzzleHash(dp.PuzzleHash, dp.OracleFee), nil
	default:
		return Hash{}, errors.New("unknown delegated puzzle kind")
	}
}

// MerkleTree is the commitment over an authorization set. Leaves are
// deduplicated and byte-ordered so that equal sets always produce equal
// roots, whatever order callers listed the entries in.
type MerkleTree struct {
	leaves [][]byte
}

// NewMerkleTree builds the commitment tree for set.
func NewMerkleTree(set []DelegatedPuzzle) (*MerkleTree, error) {
	leaves := make([][]byte, 0, len(set))
	for _, dp := range set {
		leaf, err := dp.LeafHash()
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, leaf[:])
	}
	sort.Slice(leaves, func(i, j int) bool { return bytes.Compare(leaves[i], leaves[j]) < 0 })
	dedup := leaves[:0]
	for i, l := range leaves {
		if i == 0 || !bytes.Equal(l, leaves[i-1]) {
			dedup = append(dedup, l)
		}
	}
	return &MerkleTree{leaves: dedup}, nil
}

// Root returns the set commitment. The empty set commits to the all-zero
// root.
func (t *MerkleTree) Root() Hash {
	if len(t.leaves) == 0 {
		return Hash{}
	}
	return merkle.Root(t.leaves)
}

// ProofFor produces the membership proof for one entry's leaf hash. It
// fails with ErrNotInAuthSet when the entry was not part of the set.
func (t *MerkleTree) ProofFor(leaf Hash) (merkle.Proof, error) {
	for i, l := range t.leaves {
		if bytes.Equal(l, leaf[:]) {
			p, err := merkle.ProofFor(t.leaves, i)
			return p, errors.Wrap(err, "generating membership proof")
		}
	}
	return nil, errors.Wrap(ErrNotInAuthSet, "generating membership proof")
}

// MerkleRoot computes the commitment for set without keeping the tree.
func MerkleRoot(set []DelegatedPuzzle) (Hash, error) {
	t, err := NewMerkleTree(set)
	if err != nil {
		return Hash{}, err
	}
	return t.Root(), nil
}
