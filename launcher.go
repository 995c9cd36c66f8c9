package datalayer

import (
	"github.com/chain/txvm/errors"

	"datalayer/clvm"
	"datalayer/conditions"
	"datalayer/puzzles"
)

// Launcher is the single-use coin whose spend mints the eve instance of a
// store. Its puzzle hash is a well-known constant, which is what lets
// observers find object births without any index.
type Launcher struct {
	Coin Coin
}

// NewLauncher places a launcher coin under parent. The amount should be odd
// so the eve coin satisfies the continuity rule.
func NewLauncher(parentCoinID Hash, amount uint64) *Launcher {
	return &Launcher{Coin: Coin{
		ParentCoinInfo: parentCoinID,
		PuzzleHash:     puzzles.LauncherPuzzleHash,
		Amount:         amount,
	}}
}

// MintDataStore spends the launcher, committing metadata, owner, and
// authorization set into the eve store. It records the launcher spend in
// ctx and returns the eve handle together with the conditions the parent
// coin's spend must emit: creating the launcher coin itself and asserting
// the launch announcement, which ties the parent spend to exactly this
// launch.
func MintDataStore[M Metadata](
	ctx *SpendContext,
	l *Launcher,
	metadata M,
	ownerPuzzleHash Hash,
	delegated []DelegatedPuzzle,
) (*DataStore[M], []conditions.Condition, error) {
	a := ctx.Alloc
	launcherID := l.Coin.ID()

	info := Info[M]{
		LauncherID:       launcherID,
		Metadata:         metadata,
		OwnerPuzzleHash:  ownerPuzzleHash,
		DelegatedPuzzles: delegated,
	}
	innerHash, err := info.InnerPuzzleHash()
	if err != nil {
		return nil, nil, err
	}
	metaHash, err := MetadataHash(a, metadata)
	if err != nil {
		return nil, nil, err
	}
	stateHash := puzzles.StatePuzzleHash(metaHash, MetadataUpdaterHash, innerHash)
	fullHash := puzzles.SingletonPuzzleHash(launcherID, stateHash)

	metadataNode, err := metadata.EncodeCLVM(a)
	if err != nil {
		return nil, nil, errors.Wrap(err, "encoding metadata")
	}
	// Key/value list: metadata, state-inner puzzle hash, then the manifest
	// memos minus the launcher id, which a launch never sends.
	kvItems := []clvm.NodePtr{metadataNode, a.Atom(innerHash[:])}
	for _, m := range RecreationMemos(launcherID, ownerPuzzleHash, delegated)[1:] {
		kvItems = append(kvItems, a.Atom(m))
	}
	launcherSolution := a.NewList(a.Atom(fullHash[:]), a.Uint64Atom(l.Coin.Amount), a.NewList(kvItems...))

	err = ctx.SpendCoin(l.Coin, Spend{
		Puzzle:   puzzles.LauncherPuzzle(a),
		Solution: launcherSolution,
	})
	if err != nil {
		return nil, nil, err
	}

	// The launcher announces the tree hash of its own solution; the parent
	// spend asserts it so the two cannot be pulled apart.
	msg := clvm.TreeHash(a, launcherSolution)
	parentConds := []conditions.Condition{
		conditions.CreateCoin{PuzzleHash: puzzles.LauncherPuzzleHash, Amount: l.Coin.Amount},
		conditions.AssertCoinAnnouncement{AnnouncementID: AnnouncementID(launcherID, msg[:])},
	}

	eve := &DataStore[M]{
		Coin: Coin{ParentCoinInfo: launcherID, PuzzleHash: fullHash, Amount: l.Coin.Amount},
		Proof: EveProof{
			ParentParentCoinInfo: l.Coin.ParentCoinInfo,
			ParentAmount:         l.Coin.Amount,
		},
		Info: info,
	}
	return eve, parentConds, nil
}
