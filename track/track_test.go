package track

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"datalayer"
	"datalayer/clvm"
	"datalayer/puzzles"
	"datalayer/store"
)

func hashOf(b byte) datalayer.Hash {
	var h datalayer.Hash
	for i := range h {
		h[i] = b
	}
	return h
}

func testTracker(t *testing.T) (*Tracker, *store.Store) {
	t.Helper()
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s/testdb", t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	st, err := store.New(db)
	if err != nil {
		t.Fatal(err)
	}
	return NewTracker(st), st
}

func TestTrackerLifecycle(t *testing.T) {
	ctx := context.Background()
	tr, st := testTracker(t)
	defer tr.Close()
	r := tr.Reader()

	sctx := datalayer.NewSpendContext()
	ownerPH := puzzles.StandardPuzzleHash(make([]byte, 32))
	target := hashOf(0x0c)
	set := []datalayer.DelegatedPuzzle{
		datalayer.AdminPuzzle(hashOf(0x0a)),
		datalayer.OraclePuzzle(target, 2),
	}
	launcher := datalayer.NewLauncher(hashOf(0x11), 1)
	meta := &datalayer.StoreMetadata{RootHashValue: hashOf(0x42)}
	eve, _, err := datalayer.MintDataStore(sctx, launcher, meta, ownerPH, set)
	if err != nil {
		t.Fatal(err)
	}
	launcherSpend := sctx.Take()[0]

	ds, err := tr.ProcessSpend(ctx, launcherSpend)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ds, eve) {
		t.Fatalf("got %s, want %s", spew.Sdump(ds), spew.Sdump(eve))
	}
	got, ok := r.Read(ctx)
	if !ok {
		t.Fatal("update stream closed early")
	}
	if u := got.(*Update); u.LauncherID != eve.Info.LauncherID {
		t.Errorf("update names launcher %x, want %x", u.LauncherID, eve.Info.LauncherID)
	}

	// An oracle spend carries no manifest; reconstruction leans on the
	// tracker's remembered set from the launch.
	inner := datalayer.Spend{Puzzle: puzzles.CurryOracle(sctx.Alloc, target, 2), Solution: sctx.Alloc.Nil()}
	cs, err := eve.Spend(sctx, inner)
	if err != nil {
		t.Fatal(err)
	}
	ds2, err := tr.ProcessSpend(ctx, cs)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ds2.Info.DelegatedPuzzles, set) {
		t.Fatalf("got set %s, want %s", spew.Sdump(ds2.Info.DelegatedPuzzles), spew.Sdump(set))
	}

	head, err := st.Head(ctx, eve.Info.LauncherID)
	if err != nil {
		t.Fatal(err)
	}
	if head.Coin != ds2.Coin {
		t.Errorf("head coin %s, want %s", spew.Sdump(head.Coin), spew.Sdump(ds2.Coin))
	}
	if _, ok := r.Read(ctx); !ok {
		t.Fatal("missing update for the oracle spend")
	}
}

func TestTrackerIgnoresForeignSpends(t *testing.T) {
	ctx := context.Background()
	tr, st := testTracker(t)
	defer tr.Close()

	sctx := datalayer.NewSpendContext()
	a := sctx.Alloc
	revealBytes, err := clvm.Serialize(a, puzzles.Quote(a, a.Nil()))
	if err != nil {
		t.Fatal(err)
	}
	solutionBytes, err := clvm.Serialize(a, a.Nil())
	if err != nil {
		t.Fatal(err)
	}
	cs := datalayer.CoinSpend{
		Coin:         datalayer.Coin{ParentCoinInfo: hashOf(0x01), PuzzleHash: hashOf(0x02), Amount: 4},
		PuzzleReveal: revealBytes,
		Solution:     solutionBytes,
	}

	ds, err := tr.ProcessSpend(ctx, cs)
	if err != nil {
		t.Fatal(err)
	}
	if ds != nil {
		t.Fatalf("got %s, want nil for a foreign spend", spew.Sdump(ds))
	}

	var n int
	err = st.Heads(ctx, func(store.Head) error { n++; return nil })
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("foreign spend produced %d heads, want none", n)
	}
}

func TestTrackerRestore(t *testing.T) {
	ctx := context.Background()
	tr, st := testTracker(t)
	defer tr.Close()

	sctx := datalayer.NewSpendContext()
	ownerPH := puzzles.StandardPuzzleHash(make([]byte, 32))
	target := hashOf(0x0c)
	set := []datalayer.DelegatedPuzzle{datalayer.OraclePuzzle(target, 2)}
	launcher := datalayer.NewLauncher(hashOf(0x11), 1)
	meta := &datalayer.StoreMetadata{RootHashValue: hashOf(0x42)}
	eve, _, err := datalayer.MintDataStore(sctx, launcher, meta, ownerPH, set)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = tr.ProcessSpend(ctx, sctx.Take()[0]); err != nil {
		t.Fatal(err)
	}

	// A fresh tracker over the same database recovers the set from the
	// stored head and keeps reconstructing manifest-free spends.
	tr2 := NewTracker(st)
	defer tr2.Close()
	if err = tr2.Restore(ctx); err != nil {
		t.Fatal(err)
	}
	inner := datalayer.Spend{Puzzle: puzzles.CurryOracle(sctx.Alloc, target, 2), Solution: sctx.Alloc.Nil()}
	cs, err := eve.Spend(sctx, inner)
	if err != nil {
		t.Fatal(err)
	}
	ds, err := tr2.ProcessSpend(ctx, cs)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ds.Info.DelegatedPuzzles, set) {
		t.Fatalf("got set %s, want %s", spew.Sdump(ds.Info.DelegatedPuzzles), spew.Sdump(set))
	}
}
