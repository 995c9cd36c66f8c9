package store

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"testing"

	"github.com/chain/txvm/errors"
	"github.com/davecgh/go-spew/spew"

	"datalayer"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s/testdb", t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	s, err := New(db)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func hashOf(b byte) datalayer.Hash {
	var h datalayer.Hash
	for i := range h {
		h[i] = b
	}
	return h
}

func TestSpendRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	launcherID := hashOf(0x01)

	cs := datalayer.CoinSpend{
		Coin:         datalayer.Coin{ParentCoinInfo: hashOf(0x02), PuzzleHash: hashOf(0x03), Amount: 1},
		PuzzleReveal: []byte{0x80},
		Solution:     []byte{0xff, 0x01, 0x80},
	}
	if err := s.AddSpend(ctx, launcherID, cs); err != nil {
		t.Fatal(err)
	}
	// Re-adding the same spend is a no-op, not an error.
	if err := s.AddSpend(ctx, launcherID, cs); err != nil {
		t.Fatal(err)
	}

	got, err := s.Spend(ctx, cs.Coin.ID())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, cs) {
		t.Fatalf("got %s, want %s", spew.Sdump(got), spew.Sdump(cs))
	}

	_, err = s.Spend(ctx, hashOf(0xee))
	if errors.Root(err) != ErrNotFound {
		t.Errorf("got %v, want %v", err, ErrNotFound)
	}
}

func TestSpendsForLauncher(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	launcherID := hashOf(0x01)

	var want []datalayer.CoinSpend
	for i := byte(0); i < 3; i++ {
		cs := datalayer.CoinSpend{
			Coin:         datalayer.Coin{ParentCoinInfo: hashOf(0x10 + i), PuzzleHash: hashOf(0x03), Amount: 1},
			PuzzleReveal: []byte{0x80},
			Solution:     []byte{0x80},
		}
		if err := s.AddSpend(ctx, launcherID, cs); err != nil {
			t.Fatal(err)
		}
		want = append(want, cs)
	}
	// A spend for a different object must not show up.
	other := datalayer.CoinSpend{
		Coin:         datalayer.Coin{ParentCoinInfo: hashOf(0x40), PuzzleHash: hashOf(0x03), Amount: 1},
		PuzzleReveal: []byte{0x80},
		Solution:     []byte{0x80},
	}
	if err := s.AddSpend(ctx, hashOf(0x02), other); err != nil {
		t.Fatal(err)
	}

	var got []datalayer.CoinSpend
	err := s.SpendsForLauncher(ctx, launcherID, func(cs datalayer.CoinSpend) error {
		got = append(got, cs)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %s, want %s", spew.Sdump(got), spew.Sdump(want))
	}
}

func TestHeadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	launcherID := hashOf(0x01)
	owner := hashOf(0x04)

	set := []datalayer.DelegatedPuzzle{
		datalayer.AdminPuzzle(hashOf(0x0a)),
		datalayer.OraclePuzzle(hashOf(0x0c), 330),
	}
	h := Head{
		LauncherID:      launcherID,
		Coin:            datalayer.Coin{ParentCoinInfo: hashOf(0x02), PuzzleHash: hashOf(0x03), Amount: 1},
		OwnerPuzzleHash: owner,
		RootHash:        hashOf(0x05),
		Manifest:        datalayer.RecreationMemos(launcherID, owner, set),
	}
	if err := s.PutHead(ctx, h); err != nil {
		t.Fatal(err)
	}

	got, err := s.Head(ctx, launcherID)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, h) {
		t.Fatalf("got %s, want %s", spew.Sdump(got), spew.Sdump(h))
	}
	gotSet, err := got.DelegatedPuzzles()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(gotSet, set) {
		t.Fatalf("got set %s, want %s", spew.Sdump(gotSet), spew.Sdump(set))
	}

	// Upsert replaces.
	h.Coin.ParentCoinInfo = hashOf(0x06)
	if err := s.PutHead(ctx, h); err != nil {
		t.Fatal(err)
	}
	got, err = s.Head(ctx, launcherID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Coin.ParentCoinInfo != hashOf(0x06) {
		t.Errorf("upsert did not replace head coin")
	}

	_, err = s.Head(ctx, hashOf(0xee))
	if errors.Root(err) != ErrNotFound {
		t.Errorf("got %v, want %v", err, ErrNotFound)
	}
}

func TestHeadsIteration(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	for i := byte(1); i <= 3; i++ {
		launcherID := hashOf(i)
		h := Head{
			LauncherID:      launcherID,
			Coin:            datalayer.Coin{ParentCoinInfo: hashOf(0x10 + i), PuzzleHash: hashOf(0x03), Amount: 1},
			OwnerPuzzleHash: hashOf(0x04),
			RootHash:        hashOf(0x05),
			Manifest:        datalayer.RecreationMemos(launcherID, hashOf(0x04), nil),
		}
		if err := s.PutHead(ctx, h); err != nil {
			t.Fatal(err)
		}
	}

	var n int
	err := s.Heads(ctx, func(h Head) error {
		n++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("got %d heads, want 3", n)
	}
}
