package datalayer

import (
	"bytes"

	"github.com/chain/txvm/errors"

	"datalayer/clvm"
	"datalayer/merkle"
	"datalayer/puzzles"
)

// The layer types pair a construct direction (curry the well-known program
// over this layer's commitments) with a parse direction (match a revealed
// puzzle against the program and recover the commitments). Parse returns
// ok=false when the puzzle simply is not this layer; a structural error
// means it matched the program but the curried arguments are malformed.

// SingletonLayer is the outermost layer: it pins the object's identity to
// its launcher coin and enforces the odd-amount continuity rule.
type SingletonLayer struct {
	LauncherID  Hash
	InnerPuzzle clvm.NodePtr
}

func (l SingletonLayer) Construct(a *clvm.Allocator) clvm.NodePtr {
	return puzzles.CurrySingleton(a, l.LauncherID, l.InnerPuzzle)
}

// ParseSingletonLayer matches puzzle against the singleton top layer.
func ParseSingletonLayer(a *clvm.Allocator, puzzle clvm.NodePtr) (SingletonLayer, bool, error) {
	args, ok := uncurryMod(a, puzzle, puzzles.SingletonModHash)
	if !ok {
		return SingletonLayer{}, false, nil
	}
	if len(args) != 2 {
		return SingletonLayer{}, false, errors.Wrap(ErrNonStandardLayer, "singleton layer arity")
	}
	st := args[0]
	if !a.IsPair(st) || a.IsPair(a.Left(st)) || !a.IsPair(a.Right(st)) {
		return SingletonLayer{}, false, errors.Wrap(ErrNonStandardLayer, "singleton struct shape")
	}
	if !bytes.Equal(a.AtomBytes(a.Left(st)), puzzles.SingletonModHash[:]) {
		return SingletonLayer{}, false, errors.Wrap(ErrNonStandardLayer, "singleton struct mod hash")
	}
	launcher, launcherPH := a.Left(a.Right(st)), a.Right(a.Right(st))
	if a.IsPair(launcher) || a.IsPair(launcherPH) {
		return SingletonLayer{}, false, errors.Wrap(ErrNonStandardLayer, "singleton struct shape")
	}
	if !bytes.Equal(a.AtomBytes(launcherPH), puzzles.LauncherPuzzleHash[:]) {
		return SingletonLayer{}, false, errors.Wrap(ErrNonStandardLayer, "singleton struct launcher puzzle hash")
	}
	var l SingletonLayer
	if err := copyHashAtom(a, launcher, &l.LauncherID); err != nil {
		return SingletonLayer{}, false, errors.Wrap(ErrNonStandardLayer, "singleton launcher id")
	}
	l.InnerPuzzle = args[1]
	return l, true, nil
}

// SingletonSolution wraps an inner solution with the lineage evidence the
// top layer checks.
type SingletonSolution struct {
	Proof         Proof
	Amount        uint64
	InnerSolution clvm.NodePtr
}

func (s SingletonSolution) Encode(a *clvm.Allocator) clvm.NodePtr {
	return a.NewList(s.Proof.encodeProof(a), a.Uint64Atom(s.Amount), s.InnerSolution)
}

func parseSingletonSolution(a *clvm.Allocator, n clvm.NodePtr) (SingletonSolution, error) {
	items, err := a.ListItems(n)
	if err != nil || len(items) != 3 {
		return SingletonSolution{}, errors.New("malformed singleton solution")
	}
	proof, err := decodeProof(a, items[0])
	if err != nil {
		return SingletonSolution{}, err
	}
	amount, err := clvm.Uint64FromAtom(a.AtomBytes(items[1]))
	if err != nil {
		return SingletonSolution{}, errors.Wrap(err, "singleton solution amount")
	}
	return SingletonSolution{Proof: proof, Amount: amount, InnerSolution: items[2]}, nil
}

// StateLayer commits to the object's metadata and to the updater program
// allowed to evolve it.
type StateLayer struct {
	Metadata            clvm.NodePtr
	MetadataUpdaterHash Hash
	InnerPuzzle         clvm.NodePtr
}

func (l StateLayer) Construct(a *clvm.Allocator) clvm.NodePtr {
	return puzzles.CurryState(a, l.Metadata, l.MetadataUpdaterHash, l.InnerPuzzle)
}

// ParseStateLayer matches puzzle against the state layer.
func ParseStateLayer(a *clvm.Allocator, puzzle clvm.NodePtr) (StateLayer, bool, error) {
	args, ok := uncurryMod(a, puzzle, puzzles.StateModHash)
	if !ok {
		return StateLayer{}, false, nil
	}
	if len(args) != 4 {
		return StateLayer{}, false, errors.Wrap(ErrNonStandardLayer, "state layer arity")
	}
	if !bytes.Equal(a.AtomBytes(args[0]), puzzles.StateModHash[:]) {
		return StateLayer{}, false, errors.Wrap(ErrNonStandardLayer, "state layer self hash")
	}
	var l StateLayer
	l.Metadata = args[1]
	if err := copyHashAtom(a, args[2], &l.MetadataUpdaterHash); err != nil {
		return StateLayer{}, false, errors.Wrap(ErrNonStandardLayer, "state layer updater hash")
	}
	l.InnerPuzzle = args[3]
	return l, true, nil
}

// StateSolution is a one-element list carrying the inner solution.
func StateSolution(a *clvm.Allocator, innerSolution clvm.NodePtr) clvm.NodePtr {
	return a.NewList(innerSolution)
}

func parseStateSolution(a *clvm.Allocator, n clvm.NodePtr) (clvm.NodePtr, error) {
	items, err := a.ListItems(n)
	if err != nil || len(items) != 1 {
		return 0, errors.New("malformed state layer solution")
	}
	return items[0], nil
}

// DelegationLayer commits to the owner and to the merkle root of the
// authorization set.
type DelegationLayer struct {
	LauncherID      Hash
	OwnerPuzzleHash Hash
	MerkleRoot      Hash
}

func (l DelegationLayer) Construct(a *clvm.Allocator) clvm.NodePtr {
	return puzzles.CurryDelegation(a, l.LauncherID, l.OwnerPuzzleHash, l.MerkleRoot)
}

func (l DelegationLayer) PuzzleHash() Hash {
	return puzzles.DelegationPuzzleHash(l.LauncherID, l.OwnerPuzzleHash, l.MerkleRoot)
}

// ParseDelegationLayer matches puzzle against the delegation layer.
func ParseDelegationLayer(a *clvm.Allocator, puzzle clvm.NodePtr) (DelegationLayer, bool, error) {
	args, ok := uncurryMod(a, puzzle, puzzles.DelegationModHash)
	if !ok {
		return DelegationLayer{}, false, nil
	}
	if len(args) != 3 {
		return DelegationLayer{}, false, errors.Wrap(ErrNonStandardLayer, "delegation layer arity")
	}
	var l DelegationLayer
	for i, dst := range []*Hash{&l.LauncherID, &l.OwnerPuzzleHash, &l.MerkleRoot} {
		if err := copyHashAtom(a, args[i], dst); err != nil {
			return DelegationLayer{}, false, errors.Wrap(ErrNonStandardLayer, "delegation layer argument")
		}
	}
	return l, true, nil
}

// DelegationSolution reveals a member of the authorization set together
// with its membership proof and its own solution.
type DelegationSolution struct {
	MerkleProof merkle.Proof
	Reveal      clvm.NodePtr
	Solution    clvm.NodePtr
}

func (s DelegationSolution) Encode(a *clvm.Allocator) clvm.NodePtr {
	return a.NewList(merkle.EncodeProof(a, s.MerkleProof), s.Reveal, s.Solution)
}

func parseDelegationSolution(a *clvm.Allocator, n clvm.NodePtr) (DelegationSolution, error) {
	items, err := a.ListItems(n)
	if err != nil || len(items) != 3 {
		return DelegationSolution{}, errors.New("malformed delegation layer solution")
	}
	proof, err := merkle.DecodeProof(a, items[0])
	if err != nil {
		return DelegationSolution{}, errors.Wrap(err, "delegation layer merkle proof")
	}
	return DelegationSolution{MerkleProof: proof, Reveal: items[1], Solution: items[2]}, nil
}

// uncurryMod uncurries puzzle and reports whether its mod is the program
// with the given tree hash.
func uncurryMod(a *clvm.Allocator, puzzle clvm.NodePtr, modHash Hash) ([]clvm.NodePtr, bool) {
	mod, args, ok := clvm.Uncurry(a, puzzle)
	if !ok || a.IsPair(mod) {
		return nil, false
	}
	if clvm.AtomHash(a.AtomBytes(mod)) != modHash {
		return nil, false
	}
	return args, true
}
