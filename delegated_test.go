package datalayer

import (
	"testing"

	"github.com/chain/txvm/errors"

	"datalayer/merkle"
)

func TestMerkleSoundness(t *testing.T) {
	set := []DelegatedPuzzle{
		AdminPuzzle(hashOf(0x0a)),
		WriterPuzzle(hashOf(0x0b)),
		OraclePuzzle(hashOf(0x0c), 330),
	}
	tree, err := NewMerkleTree(set)
	if err != nil {
		t.Fatal(err)
	}
	root := tree.Root()

	for _, dp := range set {
		leaf, err := dp.LeafHash()
		if err != nil {
			t.Fatal(err)
		}
		proof, err := tree.ProofFor(leaf)
		if err != nil {
			t.Fatal(err)
		}
		if !merkle.Verify(root, leaf[:], proof) {
			t.Errorf("proof for kind %d does not verify", dp.Kind)
		}
	}

	outsider, err := AdminPuzzle(hashOf(0xee)).LeafHash()
	if err != nil {
		t.Fatal(err)
	}
	_, err = tree.ProofFor(outsider)
	if errors.Root(err) != ErrNotInAuthSet {
		t.Errorf("got %v, want %v", err, ErrNotInAuthSet)
	}

	// A member's proof must not verify an outsider either.
	memberLeaf, err := set[0].LeafHash()
	if err != nil {
		t.Fatal(err)
	}
	proof, err := tree.ProofFor(memberLeaf)
	if err != nil {
		t.Fatal(err)
	}
	if merkle.Verify(root, outsider[:], proof) {
		t.Error("outsider verified with a member's proof")
	}
}

func TestMerkleRootOrderIndependence(t *testing.T) {
	a := AdminPuzzle(hashOf(0x0a))
	b := WriterPuzzle(hashOf(0x0b))
	c := OraclePuzzle(hashOf(0x0c), 2)

	r1, err := MerkleRoot([]DelegatedPuzzle{a, b, c})
	if err != nil {
		t.Fatal(err)
	}
	r2, err := MerkleRoot([]DelegatedPuzzle{c, a, b})
	if err != nil {
		t.Fatal(err)
	}
	if r1 != r2 {
		t.Errorf("roots differ across orderings: %x vs %x", r1, r2)
	}

	r3, err := MerkleRoot([]DelegatedPuzzle{a, b, c, a})
	if err != nil {
		t.Fatal(err)
	}
	if r1 != r3 {
		t.Errorf("duplicate entry changed the root: %x vs %x", r1, r3)
	}
}

func TestEmptySetRoot(t *testing.T) {
	root, err := MerkleRoot(nil)
	if err != nil {
		t.Fatal(err)
	}
	if root != (Hash{}) {
		t.Errorf("empty set root = %x, want zero", root)
	}
}
