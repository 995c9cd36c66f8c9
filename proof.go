package datalayer

import (
	"github.com/chain/txvm/errors"

	"datalayer/clvm"
)

// Proof is the evidence that a coin is a legitimate successor in an
// identity-preserving singleton chain.
type Proof interface {
	encodeProof(a *clvm.Allocator) clvm.NodePtr
}

// EveProof marks the first coin after launch: only the launcher's parent
// and amount exist to point back to.
type EveProof struct {
	ParentParentCoinInfo Hash
	ParentAmount         uint64
}

// LineageProof links a coin to its predecessor singleton.
type LineageProof struct {
	ParentParentCoinInfo  Hash
	ParentInnerPuzzleHash Hash
	ParentAmount          uint64
}

func (p EveProof) encodeProof(a *clvm.Allocator) clvm.NodePtr {
	return a.NewList(a.Atom(p.ParentParentCoinInfo[:]), a.Uint64Atom(p.ParentAmount))
}

func (p LineageProof) encodeProof(a *clvm.Allocator) clvm.NodePtr {
	return a.NewList(
		a.Atom(p.ParentParentCoinInfo[:]),
		a.Atom(p.ParentInnerPuzzleHash[:]),
		a.Uint64Atom(p.ParentAmount),
	)
}

// decodeProof distinguishes the two proof forms by arity.
func decodeProof(a *clvm.Allocator, n clvm.NodePtr) (Proof, error) {
	items, err := a.ListItems(n)
	if err != nil {
		return nil, errors.Wrap(err, "decoding lineage proof")
	}
	switch len(items) {
	case 2:
		var p EveProof
		if err := copyHashAtom(a, items[0], &p.ParentParentCoinInfo); err != nil {
			return nil, errors.Wrap(err, "decoding eve proof")
		}
		p.ParentAmount, err = clvm.Uint64FromAtom(a.AtomBytes(items[1]))
		if err != nil {
			return nil, errors.Wrap(err, "decoding eve proof amount")
		}
		return p, nil
	case 3:
		var p LineageProof
		if err := copyHashAtom(a, items[0], &p.ParentParentCoinInfo); err != nil {
			return nil, errors.Wrap(err, "decoding lineage proof")
		}
		if err := copyHashAtom(a, items[1], &p.ParentInnerPuzzleHash); err != nil {
			return nil, errors.Wrap(err, "decoding lineage proof inner hash")
		}
		p.ParentAmount, err = clvm.Uint64FromAtom(a.AtomBytes(items[2]))
		if err != nil {
			return nil, errors.Wrap(err, "decoding lineage proof amount")
		}
		return p, nil
	default:
		return nil, errors.New("lineage proof has unexpected arity")
	}
}

func copyHashAtom(a *clvm.Allocator, n clvm.NodePtr, out *Hash) error {
	if a.IsPair(n) {
		return clvm.ErrExpectedAtom
	}
	b := a.AtomBytes(n)
	if len(b) != 32 {
		return clvm.ErrAtomTooLarge
	}
	copy(out[:], b)
	return nil
}
