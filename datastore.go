package datalayer

import (
	"github.com/chain/txvm/errors"

	"datalayer/clvm"
	"datalayer/conditions"
	"datalayer/merkle"
	"datalayer/puzzles"
)

// MetadataUpdaterHash is the updater program every store commits to. The
// updater accepts any metadata replacement the spender's inner puzzle
// authorizes, so the commitment never changes across updates.
var MetadataUpdaterHash = puzzles.MetadataUpdaterModHash

// Info is the logical, chain-independent state of a store. LauncherID is
// permanent; everything else can change on each spend.
type Info[M Metadata] struct {
	LauncherID       Hash
	Metadata         M
	OwnerPuzzleHash  Hash
	DelegatedPuzzles []DelegatedPuzzle
}

// InnerPuzzleHash is the hash of the state layer's inner puzzle: the
// delegation layer when an authorization set exists, the bare owner puzzle
// otherwise.
func (info Info[M]) InnerPuzzleHash() (Hash, error) {
	if len(info.DelegatedPuzzles) == 0 {
		return info.OwnerPuzzleHash, nil
	}
	root, err := MerkleRoot(info.DelegatedPuzzles)
	if err != nil {
		return Hash{}, err
	}
	return puzzles.DelegationPuzzleHash(info.LauncherID, info.OwnerPuzzleHash, root), nil
}

// DataStore is the live handle to a layered singleton object. Coin is
// always the current unspent representative of the chain named by
// Info.LauncherID, and Proof validates Coin's lineage from its immediate
// predecessor.
type DataStore[M Metadata] struct {
	Coin  Coin
	Proof Proof
	Info  Info[M]
}

// FullPuzzleHash recomputes Coin.PuzzleHash from Info. The two must agree;
// a handle where they differ was built from stale state.
func (ds *DataStore[M]) FullPuzzleHash(a *clvm.Allocator) (Hash, error) {
	metaHash, err := MetadataHash(a, ds.Info.Metadata)
	if err != nil {
		return Hash{}, err
	}
	innerHash, err := ds.Info.InnerPuzzleHash()
	if err != nil {
		return Hash{}, err
	}
	stateHash := puzzles.StatePuzzleHash(metaHash, MetadataUpdaterHash, innerHash)
	return puzzles.SingletonPuzzleHash(ds.Info.LauncherID, stateHash), nil
}

// Spend composes the full puzzle stack around inner, serializes the result
// against the store's current coin, and records it in ctx. When the store
// carries an authorization set, inner must be one of its members: the
// delegation layer's solution carries the membership proof for inner's
// puzzle alongside the reveal itself.
func (ds *DataStore[M]) Spend(ctx *SpendContext, inner Spend) (CoinSpend, error) {
	a := ctx.Alloc

	metadataNode, err := ds.Info.Metadata.EncodeCLVM(a)
	if err != nil {
		return CoinSpend{}, errors.Wrap(err, "encoding metadata")
	}

	stateInnerPuzzle, stateInnerSolution := inner.Puzzle, inner.Solution
	if len(ds.Info.DelegatedPuzzles) > 0 {
		tree, err := NewMerkleTree(ds.Info.DelegatedPuzzles)
		if err != nil {
			return CoinSpend{}, err
		}
		// The owner spends through the delegation layer with no proof; any
		// other inner puzzle must be a member of the authorization set.
		leaf := clvm.TreeHash(a, inner.Puzzle)
		var proof merkle.Proof
		if leaf != ds.Info.OwnerPuzzleHash {
			proof, err = tree.ProofFor(leaf)
			if err != nil {
				return CoinSpend{}, err
			}
		}
		layer := DelegationLayer{
			LauncherID:      ds.Info.LauncherID,
			OwnerPuzzleHash: ds.Info.OwnerPuzzleHash,
			MerkleRoot:      tree.Root(),
		}
		stateInnerPuzzle = layer.Construct(a)
		stateInnerSolution = DelegationSolution{
			MerkleProof: proof,
			Reveal:      inner.Puzzle,
			Solution:    inner.Solution,
		}.Encode(a)
	}

	statePuzzle := StateLayer{
		Metadata:            metadataNode,
		MetadataUpdaterHash: MetadataUpdaterHash,
		InnerPuzzle:         stateInnerPuzzle,
	}.Construct(a)

	fullPuzzle := SingletonLayer{LauncherID: ds.Info.LauncherID, InnerPuzzle: statePuzzle}.Construct(a)
	fullSolution := SingletonSolution{
		Proof:         ds.Proof,
		Amount:        ds.Coin.Amount,
		InnerSolution: StateSolution(a, stateInnerSolution),
	}.Encode(a)

	puzzleBytes, err := clvm.Serialize(a, fullPuzzle)
	if err != nil {
		return CoinSpend{}, errors.Wrap(err, "serializing puzzle reveal")
	}
	solutionBytes, err := clvm.Serialize(a, fullSolution)
	if err != nil {
		return CoinSpend{}, errors.Wrap(err, "serializing solution")
	}
	cs := CoinSpend{Coin: ds.Coin, PuzzleReveal: puzzleBytes, Solution: solutionBytes}
	ctx.Insert(cs)
	return cs, nil
}

// OwnerCreateCoinCondition builds the continuity CreateCoin an owner's
// delegated program must emit: the successor's state-inner puzzle hash with
// amount 1. With hintUpdated the memos carry the full recreation manifest;
// otherwise just the launcher id hint.
func OwnerCreateCoinCondition(launcherID, newOwnerPuzzleHash Hash, newDelegated []DelegatedPuzzle, hintUpdated bool) (conditions.CreateCoin, error) {
	successor := newOwnerPuzzleHash
	if len(newDelegated) > 0 {
		root, err := MerkleRoot(newDelegated)
		if err != nil {
			return conditions.CreateCoin{}, err
		}
		successor = puzzles.DelegationPuzzleHash(launcherID, newOwnerPuzzleHash, root)
	}
	memos := [][]byte{launcherID[:]}
	if hintUpdated {
		memos = RecreationMemos(launcherID, newOwnerPuzzleHash, newDelegated)
	}
	return conditions.CreateCoin{PuzzleHash: successor, Amount: 1, Memos: memos}, nil
}

// NewMetadataCondition builds the state-layer instruction that replaces the
// committed metadata via the default updater.
func NewMetadataCondition(a *clvm.Allocator, newMetadata Metadata) (conditions.NewMetadata, error) {
	node, err := newMetadata.EncodeCLVM(a)
	if err != nil {
		return conditions.NewMetadata{}, errors.Wrap(err, "encoding new metadata")
	}
	// Updater solution shape: ((new_metadata new_updater_hash) conditions...).
	head := a.NewList(node, a.Atom(MetadataUpdaterHash[:]))
	return conditions.NewMetadata{
		UpdaterReveal:   puzzles.MetadataUpdaterPuzzle(a),
		UpdaterSolution: a.NewList(head),
	}, nil
}

// FromSpend reconstructs the successor store state from a recorded spend.
// It returns (nil, nil) when the spent coin does not belong to the layered
// singleton protocol at all. priorDelegated is the caller's knowledge of
// the authorization set before the spend; it is consulted only when the
// chain's own effects do not determine the successor set.
func FromSpend[M any, PM interface {
	*M
	Metadata
}](ctx *SpendContext, cs CoinSpend, priorDelegated []DelegatedPuzzle) (*DataStore[PM], error) {
	if cs.Coin.PuzzleHash == puzzles.LauncherPuzzleHash {
		return fromLauncherSpend[M, PM](ctx, cs)
	}
	return fromSingletonSpend[M, PM](ctx, cs, priorDelegated)
}

// fromLauncherSpend handles the eve creation: the launcher's solution
// declares the eve puzzle hash and amount plus a key/value list naming the
// metadata and inner puzzle hash, with optional manifest memos after them.
func fromLauncherSpend[M any, PM interface {
	*M
	Metadata
}](ctx *SpendContext, cs CoinSpend) (*DataStore[PM], error) {
	a := ctx.Alloc
	launcherID := cs.Coin.ID()

	solution, err := clvm.Deserialize(a, cs.Solution)
	if err != nil {
		return nil, errors.Wrap(err, "deserializing launcher solution")
	}
	parts, err := a.ListItems(solution)
	if err != nil || len(parts) != 3 {
		return nil, errors.New("malformed launcher solution")
	}
	var evePuzzleHash Hash
	if err := copyHashAtom(a, parts[0], &evePuzzleHash); err != nil {
		return nil, errors.Wrap(err, "launcher solution puzzle hash")
	}
	amount, err := clvm.Uint64FromAtom(a.AtomBytes(parts[1]))
	if err != nil {
		return nil, errors.Wrap(err, "launcher solution amount")
	}

	kv, err := a.ListItems(parts[2])
	if err != nil {
		return nil, errors.Wrap(err, "launcher key/value list")
	}
	if len(kv) < 2 {
		return nil, errors.Wrap(ErrMissingMemo, "launcher key/value list")
	}
	metadata, err := decodeMetadataNode[M, PM](a, kv[0])
	if err != nil {
		return nil, err
	}
	var innerPuzzleHash Hash
	if err := copyHashAtom(a, kv[1], &innerPuzzleHash); err != nil {
		return nil, errors.Wrap(ErrInvalidMemo, "launcher inner puzzle hash")
	}

	// The launcher id is never sent on a launch, only implied; seed the
	// manifest with it as if it were.
	memos := [][]byte{launcherID[:]}
	for _, n := range kv[2:] {
		if a.IsPair(n) {
			return nil, errors.Wrap(ErrInvalidMemo, "launcher memo is not an atom")
		}
		memos = append(memos, a.AtomBytes(n))
	}
	owner, set, err := decodeManifest(launcherID, innerPuzzleHash, memos)
	if err != nil {
		return nil, err
	}

	return &DataStore[PM]{
		Coin: Coin{ParentCoinInfo: launcherID, PuzzleHash: evePuzzleHash, Amount: amount},
		Proof: EveProof{
			ParentParentCoinInfo: cs.Coin.ParentCoinInfo,
			ParentAmount:         cs.Coin.Amount,
		},
		Info: Info[PM]{
			LauncherID:       launcherID,
			Metadata:         metadata,
			OwnerPuzzleHash:  owner,
			DelegatedPuzzles: set,
		},
	}, nil
}

// fromSingletonSpend handles the common case: probe the revealed puzzle for
// the singleton and state layers, re-run the state layer's inner puzzle,
// and classify its effects into the successor state.
func fromSingletonSpend[M any, PM interface {
	*M
	Metadata
}](ctx *SpendContext, cs CoinSpend, priorDelegated []DelegatedPuzzle) (*DataStore[PM], error) {
	a := ctx.Alloc

	puzzle, err := clvm.Deserialize(a, cs.PuzzleReveal)
	if err != nil {
		return nil, errors.Wrap(err, "deserializing puzzle reveal")
	}
	singleton, ok, err := ParseSingletonLayer(a, puzzle)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	state, ok, err := ParseStateLayer(a, singleton.InnerPuzzle)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	launcherID := singleton.LauncherID

	solution, err := clvm.Deserialize(a, cs.Solution)
	if err != nil {
		return nil, errors.Wrap(err, "deserializing solution")
	}
	singletonSolution, err := parseSingletonSolution(a, solution)
	if err != nil {
		return nil, err
	}
	innerSolution, err := parseStateSolution(a, singletonSolution.InnerSolution)
	if err != nil {
		return nil, err
	}

	out, err := ctx.Run(state.InnerPuzzle, innerSolution)
	if err != nil {
		return nil, errors.Wrap(err, "running state-layer inner puzzle")
	}
	conds, err := conditions.ParseList(a, out)
	if err != nil {
		return nil, errors.Wrap(err, "classifying state-layer conditions")
	}

	oddCreate, ok := findOddCreateCoin(conds)
	if !ok {
		return nil, errors.Wrap(ErrMissingChild, "state-layer inner puzzle")
	}

	// Metadata carries over unless an update instruction replaced it.
	metadata, err := decodeMetadataNode[M, PM](a, state.Metadata)
	if err != nil {
		return nil, err
	}
	for _, c := range conds {
		if nm, ok := c.(conditions.NewMetadata); ok {
			metadata, err = metadataFromCondition[M, PM](a, nm)
			if err != nil {
				return nil, err
			}
			break
		}
	}

	info, err := successorInfo[PM](ctx, launcherID, state, innerSolution, metadata, oddCreate, priorDelegated)
	if err != nil {
		return nil, err
	}

	metaHash, err := MetadataHash(a, metadata)
	if err != nil {
		return nil, err
	}
	stateHash := puzzles.StatePuzzleHash(metaHash, state.MetadataUpdaterHash, oddCreate.PuzzleHash)
	fullHash := puzzles.SingletonPuzzleHash(launcherID, stateHash)
	parentInner := clvm.TreeHash(a, singleton.InnerPuzzle)

	return &DataStore[PM]{
		Coin: Coin{ParentCoinInfo: cs.Coin.ID(), PuzzleHash: fullHash, Amount: oddCreate.Amount},
		Proof: LineageProof{
			ParentParentCoinInfo:  cs.Coin.ParentCoinInfo,
			ParentInnerPuzzleHash: parentInner,
			ParentAmount:          cs.Coin.Amount,
		},
		Info: info,
	}, nil
}

// successorInfo determines the successor's owner and authorization set. A
// full manifest in the continuity coin's memos supersedes everything else;
// failing that the current inner puzzle is probed for a delegation layer
// and, when one is found, its inner run is replayed and classified.
func successorInfo[PM Metadata](
	ctx *SpendContext,
	launcherID Hash,
	state StateLayer,
	innerSolution clvm.NodePtr,
	metadata PM,
	oddCreate conditions.CreateCoin,
	priorDelegated []DelegatedPuzzle,
) (Info[PM], error) {
	a := ctx.Alloc
	info := Info[PM]{LauncherID: launcherID, Metadata: metadata}

	if len(oddCreate.Memos) > 2 {
		owner, set, err := decodeManifest(launcherID, oddCreate.PuzzleHash, oddCreate.Memos)
		if err != nil {
			return Info[PM]{}, err
		}
		info.OwnerPuzzleHash = owner
		info.DelegatedPuzzles = set
		return info, nil
	}

	layer, ok, err := ParseDelegationLayer(a, state.InnerPuzzle)
	if err != nil {
		return Info[PM]{}, err
	}
	if !ok {
		// No delegation layer: the successor's inner puzzle is the owner.
		info.OwnerPuzzleHash = oddCreate.PuzzleHash
		return info, nil
	}

	delegationSolution, err := parseDelegationSolution(a, innerSolution)
	if err != nil {
		return Info[PM]{}, err
	}
	out, err := ctx.Run(delegationSolution.Reveal, delegationSolution.Solution)
	if err != nil {
		return Info[PM]{}, errors.Wrap(err, "running delegated puzzle")
	}
	conds, err := conditions.ParseList(a, out)
	if err != nil {
		return Info[PM]{}, errors.Wrap(err, "classifying delegated conditions")
	}

	for _, c := range conds {
		if nmr, ok := c.(conditions.NewMerkleRoot); ok {
			owner, set, err := decodeManifest(launcherID, layer.OwnerPuzzleHash, nmr.Memos)
			if err != nil {
				return Info[PM]{}, err
			}
			info.OwnerPuzzleHash = owner
			info.DelegatedPuzzles = set
			return info, nil
		}
	}

	innerCreate, ok := findOddCreateCoin(conds)
	switch {
	case !ok:
		// The delegation layer synthesized the recreation itself. The chain
		// carries no successor manifest here, so the caller's prior
		// knowledge of the set is authoritative.
		info.OwnerPuzzleHash = layer.OwnerPuzzleHash
		info.DelegatedPuzzles = priorDelegated
	case innerCreate.PuzzleHash == layer.PuzzleHash():
		// Set-preserving no-op recreation.
		info.OwnerPuzzleHash = layer.OwnerPuzzleHash
		info.DelegatedPuzzles = priorDelegated
	default:
		// The delegated puzzle exited the delegation layer entirely.
		info.OwnerPuzzleHash = innerCreate.PuzzleHash
	}
	return info, nil
}

// decodeMetadataNode decodes metadata in the current structured format,
// falling back to the legacy bare-root-hash form when the outer structure
// is an atom where a pair was required.
func decodeMetadataNode[M any, PM interface {
	*M
	Metadata
}](a *clvm.Allocator, n clvm.NodePtr) (PM, error) {
	m := PM(new(M))
	err := m.DecodeCLVM(a, n)
	if err == nil {
		return m, nil
	}
	if errors.Root(err) != clvm.ErrExpectedPair {
		return nil, errors.Wrap(err, "decoding metadata")
	}
	var root Hash
	if cerr := copyHashAtom(a, n, &root); cerr != nil {
		return nil, errors.Wrap(err, "decoding metadata")
	}
	m = PM(new(M))
	m.SetRootHashOnly(root)
	return m, nil
}

// metadataFromCondition extracts the replacement metadata declared by an
// update instruction. Solution shape: ((new_metadata new_updater_hash) ...).
func metadataFromCondition[M any, PM interface {
	*M
	Metadata
}](a *clvm.Allocator, nm conditions.NewMetadata) (PM, error) {
	parts, err := a.ListItems(nm.UpdaterSolution)
	if err != nil || len(parts) == 0 {
		return nil, errors.New("malformed metadata updater solution")
	}
	head, err := a.ListItems(parts[0])
	if err != nil || len(head) < 1 {
		return nil, errors.New("malformed metadata updater solution")
	}
	return decodeMetadataNode[M, PM](a, head[0])
}

func findOddCreateCoin(conds []conditions.Condition) (conditions.CreateCoin, bool) {
	for _, c := range conds {
		if cc, ok := c.(conditions.CreateCoin); ok && cc.Amount%2 == 1 {
			return cc, true
		}
	}
	return conditions.CreateCoin{}, false
}
