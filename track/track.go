// Package track follows recorded coin spends, reconstructs store state from
// each one, persists the result, and fans updates out to any number of
// subscribers.
package track

import (
	"context"
	"log"
	"sync"

	"github.com/bobg/multichan"
	"github.com/chain/txvm/errors"

	"datalayer"
	"datalayer/clvm"
	"datalayer/puzzles"
	"datalayer/store"
)

// Update is one reconstructed state transition.
type Update struct {
	LauncherID datalayer.Hash
	Spend      datalayer.CoinSpend
	Store      *datalayer.DataStore[*datalayer.StoreMetadata]
}

// Tracker consumes spends and maintains heads. A nil db disables
// persistence; subscribers still get every update.
type Tracker struct {
	db *store.Store
	w  *multichan.W

	mu   sync.Mutex
	sets map[datalayer.Hash][]datalayer.DelegatedPuzzle
}

// NewTracker returns a tracker writing through db.
func NewTracker(db *store.Store) *Tracker {
	return &Tracker{
		db:   db,
		w:    multichan.New((*Update)(nil)),
		sets: make(map[datalayer.Hash][]datalayer.DelegatedPuzzle),
	}
}

// Reader subscribes to updates. Each reader sees every update written after
// it subscribed.
func (t *Tracker) Reader() *multichan.R {
	return t.w.Reader()
}

// Close ends the update stream.
func (t *Tracker) Close() {
	t.w.Close()
}

// ProcessSpend reconstructs the successor state from cs. It returns
// (nil, nil) for spends that do not belong to the protocol; those produce
// no update. Reconstruction uses the tracker's remembered authorization set
// for the object as the prior-knowledge fallback.
func (t *Tracker) ProcessSpend(ctx context.Context, cs datalayer.CoinSpend) (*datalayer.DataStore[*datalayer.StoreMetadata], error) {
	var prior []datalayer.DelegatedPuzzle
	if cs.Coin.PuzzleHash != puzzles.LauncherPuzzleHash {
		prior = t.priorSetFor(cs)
	}

	ctxSpend := datalayer.NewSpendContext()
	ds, err := datalayer.FromSpend[datalayer.StoreMetadata](ctxSpend, cs, prior)
	if err != nil {
		return nil, errors.Wrap(err, "reconstructing state from spend")
	}
	if ds == nil {
		return nil, nil
	}

	t.mu.Lock()
	t.sets[ds.Info.LauncherID] = ds.Info.DelegatedPuzzles
	t.mu.Unlock()

	if t.db != nil {
		err = t.db.AddSpend(ctx, ds.Info.LauncherID, cs)
		if err != nil {
			return nil, err
		}
		err = t.db.PutHead(ctx, store.Head{
			LauncherID:      ds.Info.LauncherID,
			Coin:            ds.Coin,
			OwnerPuzzleHash: ds.Info.OwnerPuzzleHash,
			RootHash:        ds.Info.Metadata.RootHash(),
			Manifest:        datalayer.RecreationMemos(ds.Info.LauncherID, ds.Info.OwnerPuzzleHash, ds.Info.DelegatedPuzzles),
		})
		if err != nil {
			return nil, err
		}
	}

	t.w.Write(&Update{LauncherID: ds.Info.LauncherID, Spend: cs, Store: ds})
	return ds, nil
}

// Run consumes spends from in until it closes or ctx ends. Reconstruction
// errors are logged and skipped; storage errors end the run.
func (t *Tracker) Run(ctx context.Context, in <-chan datalayer.CoinSpend) error {
	defer log.Print("tracker exiting")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cs, ok := <-in:
			if !ok {
				return nil
			}
			_, err := t.ProcessSpend(ctx, cs)
			if err != nil {
				root := errors.Root(err)
				if puzzles.IsEvalError(root) || isProtocolErr(root) {
					log.Printf("skipping spend of coin %x: %s", cs.Coin.ID(), err)
					continue
				}
				return err
			}
		}
	}
}

// Restore reloads remembered authorization sets from stored heads, so a
// restarted tracker keeps reconstructing set-preserving spends correctly.
func (t *Tracker) Restore(ctx context.Context) error {
	if t.db == nil {
		return nil
	}
	return t.db.Heads(ctx, func(h store.Head) error {
		set, err := h.DelegatedPuzzles()
		if err != nil {
			return err
		}
		t.mu.Lock()
		t.sets[h.LauncherID] = set
		t.mu.Unlock()
		return nil
	})
}

// priorSetFor recovers the lineage's launcher id from the puzzle reveal and
// returns the remembered authorization set for it, if any.
func (t *Tracker) priorSetFor(cs datalayer.CoinSpend) []datalayer.DelegatedPuzzle {
	a := clvm.NewAllocator()
	puzzle, err := clvm.Deserialize(a, cs.PuzzleReveal)
	if err != nil {
		return nil
	}
	layer, ok, err := datalayer.ParseSingletonLayer(a, puzzle)
	if err != nil || !ok {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sets[layer.LauncherID]
}

func isProtocolErr(err error) bool {
	switch err {
	case datalayer.ErrMissingChild, datalayer.ErrMissingMemo, datalayer.ErrInvalidMemo, datalayer.ErrNonStandardLayer:
		return true
	}
	return false
}
