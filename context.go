package datalayer

import (
	"github.com/chain/txvm/crypto/ed25519"
	"github.com/chain/txvm/errors"

	"datalayer/clvm"
	"datalayer/conditions"
	"datalayer/puzzles"
)

// Spend is a puzzle reveal paired with the solution to run it with, before
// serialization pins them to a coin.
type Spend struct {
	Puzzle   clvm.NodePtr
	Solution clvm.NodePtr
}

// SpendContext owns the allocator, the execution facade, and the coin
// spends accumulated while building a transaction. It is not safe for
// concurrent use; one context per transaction under construction.
type SpendContext struct {
	Alloc   *clvm.Allocator
	Runner  puzzles.Runner
	MaxCost int64

	spends []CoinSpend
}

// NewSpendContext returns a context backed by the reference dialect and the
// standard cost ceiling.
func NewSpendContext() *SpendContext {
	return &SpendContext{
		Alloc:   clvm.NewAllocator(),
		Runner:  puzzles.Reference{},
		MaxCost: puzzles.DefaultMaxCost,
	}
}

// Run executes puzzle against solution under the context's cost ceiling.
func (ctx *SpendContext) Run(puzzle, solution clvm.NodePtr) (clvm.NodePtr, error) {
	return ctx.Runner.Run(ctx.Alloc, puzzle, solution, ctx.MaxCost)
}

// Insert records a finished coin spend.
func (ctx *SpendContext) Insert(cs CoinSpend) {
	ctx.spends = append(ctx.spends, cs)
}

// Take removes and returns the accumulated coin spends.
func (ctx *SpendContext) Take() []CoinSpend {
	out := ctx.spends
	ctx.spends = nil
	return out
}

// SpendCoin serializes spend against coin and records the result.
func (ctx *SpendContext) SpendCoin(coin Coin, spend Spend) error {
	puzzle, err := clvm.Serialize(ctx.Alloc, spend.Puzzle)
	if err != nil {
		return errors.Wrap(err, "serializing puzzle reveal")
	}
	solution, err := clvm.Serialize(ctx.Alloc, spend.Solution)
	if err != nil {
		return errors.Wrap(err, "serializing solution")
	}
	ctx.Insert(CoinSpend{Coin: coin, PuzzleReveal: puzzle, Solution: solution})
	return nil
}

// StandardSpend builds a standard-puzzle spend for pub emitting conds: the
// conditions become a quoted delegated program, which the on-chain puzzle
// commits to with an AGG_SIG_ME over its tree hash.
func (ctx *SpendContext) StandardSpend(pub ed25519.PublicKey, conds []conditions.Condition) (Spend, error) {
	a := ctx.Alloc
	encoded, err := conditions.EncodeList(a, conds)
	if err != nil {
		return Spend{}, errors.Wrap(err, "encoding conditions")
	}
	delegated := puzzles.Quote(a, encoded)
	return Spend{
		Puzzle:   puzzles.CurryStandard(a, pub),
		Solution: puzzles.StandardSolution(a, delegated, a.Nil()),
	}, nil
}
