// Package store persists spend records and the current head of each tracked
// object in sqlite. Spends are append-only history keyed by coin id; heads
// are the latest reconstructed state keyed by launcher id.
package store

import (
	"context"
	"database/sql"

	"github.com/bobg/sqlutil"
	"github.com/chain/txvm/errors"
	_ "github.com/mattn/go-sqlite3"

	"datalayer"
	"datalayer/clvm"
)

// ErrNotFound reports a missing row; callers distinguish "never seen" from
// real storage failures through it.
var ErrNotFound = errors.New("not found")

// Store wraps the database handle. Safe for concurrent use to the extent
// the underlying *sql.DB is.
type Store struct {
	db *sql.DB
}

// New ensures the schema exists and returns a Store over db.
func New(db *sql.DB) (*Store, error) {
	_, err := db.Exec(schema)
	if err != nil {
		return nil, errors.Wrap(err, "creating db schema")
	}
	return &Store{db: db}, nil
}

// AddSpend records a coin spend under launcherID. A zero launcherID is
// allowed for spends not (yet) attributed to an object.
func (s *Store) AddSpend(ctx context.Context, launcherID datalayer.Hash, cs datalayer.CoinSpend) error {
	coinID := cs.Coin.ID()
	const q = `INSERT OR IGNORE INTO spends
		(coin_id, parent_coin_info, puzzle_hash, amount, puzzle_reveal, solution, launcher_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.db.ExecContext(ctx, q,
		coinID[:], cs.Coin.ParentCoinInfo[:], cs.Coin.PuzzleHash[:], cs.Coin.Amount,
		cs.PuzzleReveal, cs.Solution, launcherID[:])
	return errors.Wrapf(err, "inserting spend of coin %x", coinID[:])
}

// Spend loads one spend by the spent coin's id.
func (s *Store) Spend(ctx context.Context, coinID datalayer.Hash) (datalayer.CoinSpend, error) {
	const q = `SELECT parent_coin_info, puzzle_hash, amount, puzzle_reveal, solution
		FROM spends WHERE coin_id = $1`
	var (
		parent, puzzleHash []byte
		cs                 datalayer.CoinSpend
	)
	err := s.db.QueryRowContext(ctx, q, coinID[:]).Scan(
		&parent, &puzzleHash, &cs.Coin.Amount, &cs.PuzzleReveal, &cs.Solution)
	if err == sql.ErrNoRows {
		return datalayer.CoinSpend{}, errors.Wrapf(ErrNotFound, "spend of coin %x", coinID[:])
	}
	if err != nil {
		return datalayer.CoinSpend{}, errors.Wrapf(err, "reading spend of coin %x", coinID[:])
	}
	copy(cs.Coin.ParentCoinInfo[:], parent)
	copy(cs.Coin.PuzzleHash[:], puzzleHash)
	return cs, nil
}

// SpendsForLauncher streams every recorded spend attributed to launcherID,
// in insertion order, to f.
func (s *Store) SpendsForLauncher(ctx context.Context, launcherID datalayer.Hash, f func(datalayer.CoinSpend) error) error {
	const q = `SELECT parent_coin_info, puzzle_hash, amount, puzzle_reveal, solution
		FROM spends WHERE launcher_id = $1 ORDER BY rowid`
	return sqlutil.ForQueryRows(ctx, s.db, q, launcherID[:],
		func(parent, puzzleHash []byte, amount uint64, reveal, solution []byte) error {
			var cs datalayer.CoinSpend
			copy(cs.Coin.ParentCoinInfo[:], parent)
			copy(cs.Coin.PuzzleHash[:], puzzleHash)
			cs.Coin.Amount = amount
			cs.PuzzleReveal = reveal
			cs.Solution = solution
			return f(cs)
		})
}

// Head is the flattened current state of one object. The authorization set
// rides in Manifest, the object's own recreation-memo encoding, so the row
// format never diverges from the wire format.
type Head struct {
	LauncherID      datalayer.Hash
	Coin            datalayer.Coin
	OwnerPuzzleHash datalayer.Hash
	RootHash        datalayer.Hash
	Manifest        [][]byte
}

// DelegatedPuzzles decodes the head's authorization set from its manifest.
func (h Head) DelegatedPuzzles() ([]datalayer.DelegatedPuzzle, error) {
	_, set, err := datalayer.DecodeRecreationMemos(h.LauncherID, h.OwnerPuzzleHash, h.Manifest)
	return set, errors.Wrap(err, "decoding head manifest")
}

// PutHead upserts the current head for h.LauncherID.
func (s *Store) PutHead(ctx context.Context, h Head) error {
	manifest, err := encodeManifestBlob(h.Manifest)
	if err != nil {
		return errors.Wrapf(err, "encoding manifest for head %x", h.LauncherID[:])
	}
	const q = `INSERT OR REPLACE INTO heads
		(launcher_id, parent_coin_info, puzzle_hash, amount, owner_puzzle_hash, root_hash, manifest)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = s.db.ExecContext(ctx, q,
		h.LauncherID[:], h.Coin.ParentCoinInfo[:], h.Coin.PuzzleHash[:], h.Coin.Amount,
		h.OwnerPuzzleHash[:], h.RootHash[:], manifest)
	return errors.Wrapf(err, "upserting head %x", h.LauncherID[:])
}

// Head loads the current head for launcherID.
func (s *Store) Head(ctx context.Context, launcherID datalayer.Hash) (Head, error) {
	const q = `SELECT parent_coin_info, puzzle_hash, amount, owner_puzzle_hash, root_hash, manifest
		FROM heads WHERE launcher_id = $1`
	var (
		parent, puzzleHash, owner, rootHash, manifest []byte
		h                                             Head
	)
	err := s.db.QueryRowContext(ctx, q, launcherID[:]).Scan(
		&parent, &puzzleHash, &h.Coin.Amount, &owner, &rootHash, &manifest)
	if err == sql.ErrNoRows {
		return Head{}, errors.Wrapf(ErrNotFound, "head %x", launcherID[:])
	}
	if err != nil {
		return Head{}, errors.Wrapf(err, "reading head %x", launcherID[:])
	}
	h.LauncherID = launcherID
	copy(h.Coin.ParentCoinInfo[:], parent)
	copy(h.Coin.PuzzleHash[:], puzzleHash)
	copy(h.OwnerPuzzleHash[:], owner)
	copy(h.RootHash[:], rootHash)
	h.Manifest, err = decodeManifestBlob(manifest)
	return h, errors.Wrapf(err, "decoding manifest for head %x", launcherID[:])
}

// Heads streams every stored head to f.
func (s *Store) Heads(ctx context.Context, f func(Head) error) error {
	const q = `SELECT launcher_id, parent_coin_info, puzzle_hash, amount, owner_puzzle_hash, root_hash, manifest
		FROM heads ORDER BY launcher_id`
	return sqlutil.ForQueryRows(ctx, s.db, q,
		func(launcherID, parent, puzzleHash []byte, amount uint64, owner, rootHash, manifest []byte) error {
			var h Head
			copy(h.LauncherID[:], launcherID)
			copy(h.Coin.ParentCoinInfo[:], parent)
			copy(h.Coin.PuzzleHash[:], puzzleHash)
			h.Coin.Amount = amount
			copy(h.OwnerPuzzleHash[:], owner)
			copy(h.RootHash[:], rootHash)
			var err error
			h.Manifest, err = decodeManifestBlob(manifest)
			if err != nil {
				return errors.Wrapf(err, "decoding manifest for head %x", launcherID)
			}
			return f(h)
		})
}

// The manifest blob is the canonical serialization of the memo list, so a
// stored head round-trips byte-exactly with the wire form.
func encodeManifestBlob(memos [][]byte) ([]byte, error) {
	a := clvm.NewAllocator()
	items := make([]clvm.NodePtr, len(memos))
	for i, m := range memos {
		items[i] = a.Atom(m)
	}
	return clvm.Serialize(a, a.NewList(items...))
}

func decodeManifestBlob(blob []byte) ([][]byte, error) {
	a := clvm.NewAllocator()
	n, err := clvm.Deserialize(a, blob)
	if err != nil {
		return nil, err
	}
	items, err := a.ListItems(n)
	if err != nil {
		return nil, err
	}
	memos := make([][]byte, 0, len(items))
	for _, item := range items {
		if a.IsPair(item) {
			return nil, clvm.ErrExpectedAtom
		}
		memos = append(memos, a.AtomBytes(item))
	}
	return memos, nil
}
