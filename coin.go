// Package datalayer is a client-side driver for layered singleton objects:
// long-lived mutable on-chain objects represented by a stack of puzzle
// layers (singleton identity, versioned metadata, capability-gated
// delegation). The forward path composes the layers into a coin spend; the
// reverse path re-executes a recorded spend and rebuilds the object state
// its effects committed to.
package datalayer

import (
	"crypto/sha256"

	"datalayer/clvm"
)

// Hash is a 32-byte content address.
type Hash = [32]byte

// Coin is one value cell of the ledger. Its identity is the hash of these
// three fields; it is either unspent or spent exactly once.
type Coin struct {
	ParentCoinInfo Hash
	PuzzleHash     Hash
	Amount         uint64
}

// ID returns the coin id: sha256 over parent id, puzzle hash, and the
// amount in its minimal atom encoding.
func (c Coin) ID() Hash {
	h := sha256.New()
	h.Write(c.ParentCoinInfo[:])
	h.Write(c.PuzzleHash[:])
	h.Write(clvm.AtomFromUint64(c.Amount))
	var out Hash
	h.Sum(out[:0])
	return out
}

// CoinSpend is the immutable record of spending a coin: the revealed puzzle
// and the solution it ran with, in canonical serialization. Byte-exact
// serialization is a ledger compatibility requirement.
type CoinSpend struct {
	Coin         Coin
	PuzzleReveal []byte
	Solution     []byte
}

// AnnouncementID derives the assertable id of a coin announcement.
func AnnouncementID(coinID Hash, message []byte) Hash {
	h := sha256.New()
	h.Write(coinID[:])
	h.Write(message)
	var out Hash
	h.Sum(out[:0])
	return out
}
