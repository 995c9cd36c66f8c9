// Package conditions models the effects a puzzle run emits. Conditions are
// the only channel through which a spend communicates intent; reconstruction
// works entirely by classifying them.
package conditions

import (
	"github.com/chain/txvm/crypto/ed25519"
	"github.com/chain/txvm/errors"

	"datalayer/clvm"
)

// Condition opcodes. Negative opcodes are protocol extensions understood by
// specific layers rather than by the ledger itself.
const (
	OpAggSigMe                 = 50
	OpCreateCoin               = 51
	OpReserveFee               = 52
	OpCreateCoinAnnouncement   = 60
	OpAssertCoinAnnouncement   = 61
	OpCreatePuzzleAnnouncement = 62
	OpAssertPuzzleAnnouncement = 63
	OpNewMerkleRoot            = -13
	OpNewMetadata              = -24
)

// Condition is one emitted effect.
type Condition interface {
	// Encode allocates the condition's list form.
	Encode(a *clvm.Allocator) (clvm.NodePtr, error)
}

// CreateCoin creates a successor coin. An odd amount marks the singleton
// continuity signal.
type CreateCoin struct {
	PuzzleHash [32]byte
	Amount     uint64
	Memos      [][]byte
}

// AggSigMe requires a signature by Pubkey over Message.
type AggSigMe struct {
	Pubkey  ed25519.PublicKey
	Message []byte
}

// ReserveFee reserves part of the spent value as a fee.
type ReserveFee struct {
	Amount uint64
}

// CreateCoinAnnouncement announces from the spent coin.
type CreateCoinAnnouncement struct {
	Message []byte
}

// AssertCoinAnnouncement asserts a coin announcement by its id,
// sha256(coin_id || message).
type AssertCoinAnnouncement struct {
	AnnouncementID [32]byte
}

// CreatePuzzleAnnouncement announces from the spent puzzle hash.
type CreatePuzzleAnnouncement struct {
	Message []byte
}

// AssertPuzzleAnnouncement asserts a puzzle announcement by its id,
// sha256(puzzle_hash || message).
type AssertPuzzleAnnouncement struct {
	AnnouncementID [32]byte
}

// NewMerkleRoot replaces a delegation layer's authorization-set commitment.
// Memos carry the recreation manifest for the successor.
type NewMerkleRoot struct {
	NewRoot [32]byte
	Memos   [][]byte
}

// NewMetadata instructs the state layer to derive new metadata by running
// the committed updater with the given reveal and solution.
type NewMetadata struct {
	UpdaterReveal   clvm.NodePtr
	UpdaterSolution clvm.NodePtr
}

// Other is a condition this driver does not interpret, preserved verbatim.
type Other struct {
	Node clvm.NodePtr
}

func (c CreateCoin) Encode(a *clvm.Allocator) (clvm.NodePtr, error) {
	items := []clvm.NodePtr{
		a.IntAtom(OpCreateCoin),
		a.Atom(c.PuzzleHash[:]),
		a.Uint64Atom(c.Amount),
	}
	if len(c.Memos) > 0 {
		memos := make([]clvm.NodePtr, len(c.Memos))
		for i, m := range c.Memos {
			memos[i] = a.Atom(m)
		}
		items = append(items, a.NewList(memos...))
	}
	return a.NewList(items...), nil
}

func (c AggSigMe) Encode(a *clvm.Allocator) (clvm.NodePtr, error) {
	return a.NewList(a.IntAtom(OpAggSigMe), a.Atom(c.Pubkey), a.Atom(c.Message)), nil
}

func (c ReserveFee) Encode(a *clvm.Allocator) (clvm.NodePtr, error) {
	return a.NewList(a.IntAtom(OpReserveFee), a.Uint64Atom(c.Amount)), nil
}

func (c CreateCoinAnnouncement) Encode(a *clvm.Allocator) (clvm.NodePtr, error) {
	return a.NewList(a.IntAtom(OpCreateCoinAnnouncement), a.Atom(c.Message)), nil
}

func (c AssertCoinAnnouncement) Encode(a *clvm.Allocator) (clvm.NodePtr, error) {
	return a.NewList(a.IntAtom(OpAssertCoinAnnouncement), a.Atom(c.AnnouncementID[:])), nil
}

func (c CreatePuzzleAnnouncement) Encode(a *clvm.Allocator) (clvm.NodePtr, error) {
	return a.NewList(a.IntAtom(OpCreatePuzzleAnnouncement), a.Atom(c.Message)), nil
}

func (c AssertPuzzleAnnouncement) Encode(a *clvm.Allocator) (clvm.NodePtr, error) {
	return a.NewList(a.IntAtom(OpAssertPuzzleAnnouncement), a.Atom(c.AnnouncementID[:])), nil
}

func (c NewMerkleRoot) Encode(a *clvm.Allocator) (clvm.NodePtr, error) {
	items := []clvm.NodePtr{a.IntAtom(OpNewMerkleRoot), a.Atom(c.NewRoot[:])}
	for _, m := range c.Memos {
		items = append(items, a.Atom(m))
	}
	return a.NewList(items...), nil
}

func (c NewMetadata) Encode(a *clvm.Allocator) (clvm.NodePtr, error) {
	return a.NewList(a.IntAtom(OpNewMetadata), c.UpdaterReveal, c.UpdaterSolution), nil
}

func (c Other) Encode(a *clvm.Allocator) (clvm.NodePtr, error) {
	return c.Node, nil
}

// EncodeList allocates the list form of conds.
func EncodeList(a *clvm.Allocator, conds []Condition) (clvm.NodePtr, error) {
	nodes := make([]clvm.NodePtr, len(conds))
	for i, c := range conds {
		n, err := c.Encode(a)
		if err != nil {
			return 0, err
		}
		nodes[i] = n
	}
	return a.NewList(nodes...), nil
}

// Parse classifies one condition node. Unknown opcodes and shapes this
// driver does not interpret come back as Other.
func Parse(a *clvm.Allocator, n clvm.NodePtr) (Condition, error) {
	items, err := a.ListItems(n)
	if err != nil || len(items) == 0 || a.IsPair(items[0]) {
		return Other{Node: n}, nil
	}
	op, err := clvm.IntFromAtom(a.AtomBytes(items[0]))
	if err != nil {
		return Other{Node: n}, nil
	}
	switch op {
	case OpCreateCoin:
		if len(items) < 3 {
			return nil, errors.New("malformed CREATE_COIN condition")
		}
		var c CreateCoin
		if err := atom32(a, items[1], &c.PuzzleHash); err != nil {
			return nil, errors.Wrap(err, "CREATE_COIN puzzle hash")
		}
		c.Amount, err = clvm.Uint64FromAtom(a.AtomBytes(items[2]))
		if err != nil {
			return nil, errors.Wrap(err, "CREATE_COIN amount")
		}
		if len(items) > 3 {
			memoNodes, err := a.ListItems(items[3])
			if err != nil {
				return nil, errors.Wrap(err, "CREATE_COIN memos")
			}
			for _, m := range memoNodes {
				if a.IsPair(m) {
					return nil, clvm.ErrExpectedAtom
				}
				c.Memos = append(c.Memos, a.AtomBytes(m))
			}
		}
		return c, nil
	case OpAggSigMe:
		if len(items) != 3 || a.IsPair(items[1]) || a.IsPair(items[2]) {
			return nil, errors.New("malformed AGG_SIG_ME condition")
		}
		return AggSigMe{
			Pubkey:  ed25519.PublicKey(a.AtomBytes(items[1])),
			Message: a.AtomBytes(items[2]),
		}, nil
	case OpReserveFee:
		if len(items) != 2 || a.IsPair(items[1]) {
			return nil, errors.New("malformed RESERVE_FEE condition")
		}
		amount, err := clvm.Uint64FromAtom(a.AtomBytes(items[1]))
		if err != nil {
			return nil, errors.Wrap(err, "RESERVE_FEE amount")
		}
		return ReserveFee{Amount: amount}, nil
	case OpCreateCoinAnnouncement:
		if len(items) != 2 || a.IsPair(items[1]) {
			return nil, errors.New("malformed coin announcement")
		}
		return CreateCoinAnnouncement{Message: a.AtomBytes(items[1])}, nil
	case OpAssertCoinAnnouncement:
		var c AssertCoinAnnouncement
		if len(items) != 2 {
			return nil, errors.New("malformed coin announcement assertion")
		}
		if err := atom32(a, items[1], &c.AnnouncementID); err != nil {
			return nil, err
		}
		return c, nil
	case OpCreatePuzzleAnnouncement:
		if len(items) != 2 || a.IsPair(items[1]) {
			return nil, errors.New("malformed puzzle announcement")
		}
		return CreatePuzzleAnnouncement{Message: a.AtomBytes(items[1])}, nil
	case OpAssertPuzzleAnnouncement:
		var c AssertPuzzleAnnouncement
		if len(items) != 2 {
			return nil, errors.New("malformed puzzle announcement assertion")
		}
		if err := atom32(a, items[1], &c.AnnouncementID); err != nil {
			return nil, err
		}
		return c, nil
	case OpNewMerkleRoot:
		if len(items) < 2 {
			return nil, errors.New("malformed merkle root condition")
		}
		var c NewMerkleRoot
		if err := atom32(a, items[1], &c.NewRoot); err != nil {
			return nil, errors.Wrap(err, "merkle root condition")
		}
		for _, m := range items[2:] {
			if a.IsPair(m) {
				return nil, clvm.ErrExpectedAtom
			}
			c.Memos = append(c.Memos, a.AtomBytes(m))
		}
		return c, nil
	case OpNewMetadata:
		if len(items) != 3 {
			return nil, errors.New("malformed metadata update condition")
		}
		return NewMetadata{UpdaterReveal: items[1], UpdaterSolution: items[2]}, nil
	default:
		return Other{Node: n}, nil
	}
}

// ParseList classifies every condition in a puzzle run's output.
func ParseList(a *clvm.Allocator, n clvm.NodePtr) ([]Condition, error) {
	nodes, err := a.ListItems(n)
	if err != nil {
		return nil, errors.Wrap(err, "conditions output")
	}
	conds := make([]Condition, 0, len(nodes))
	for _, node := range nodes {
		c, err := Parse(a, node)
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	return conds, nil
}

func atom32(a *clvm.Allocator, n clvm.NodePtr, out *[32]byte) error {
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
