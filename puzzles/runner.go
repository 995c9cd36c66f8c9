package puzzles

import (
	"bytes"

	"github.com/chain/txvm/errors"

	"datalayer/clvm"
	"datalayer/conditions"
	"datalayer/merkle"
)

// Runner is the puzzle execution facade: run a program against a solution
// under a cost ceiling, yielding the emitted output value. Implementations
// must be deterministic and must never retry with a larger budget on their
// own.
type Runner interface {
	Run(a *clvm.Allocator, puzzle, solution clvm.NodePtr, maxCost int64) (clvm.NodePtr, error)
}

// DefaultMaxCost is the standard execution budget.
const DefaultMaxCost = 11_000_000_000

// EvalError is the failure class for program execution, including cost
// exhaustion. It is terminal for the call; retrying with a larger budget is
// a caller policy decision.
type EvalError string

func (e EvalError) Error() string { return "eval: " + string(e) }

// IsEvalError reports whether err's root cause is an execution failure.
func IsEvalError(err error) bool {
	_, ok := errors.Root(err).(EvalError)
	return ok
}

// Reference is a Runner for the reference dialect: it executes quoted
// condition lists and the well-known puzzle programs natively, dispatching
// on program tree hashes. It implements exactly what the driver needs to
// re-derive object state from spends; arbitrary programs fail with
// EvalError.
type Reference struct{}

const (
	costBase      = 1_000
	costPerOutput = 1_800
	costSignature = 1_200_000
)

func (Reference) Run(a *clvm.Allocator, puzzle, solution clvm.NodePtr, maxCost int64) (clvm.NodePtr, error) {
	r := &refRun{a: a, budget: maxCost}
	return r.run(puzzle, solution)
}

type refRun struct {
	a      *clvm.Allocator
	spent  int64
	budget int64
}

func (r *refRun) charge(cost int64) error {
	r.spent += cost
	if r.spent > r.budget {
		return EvalError("cost exceeded")
	}
	return nil
}

func (r *refRun) run(puzzle, solution clvm.NodePtr) (clvm.NodePtr, error) {
	if err := r.charge(costBase); err != nil {
		return 0, err
	}
	a := r.a

	// A quoted program returns its body no matter the solution.
	if a.IsPair(puzzle) && !a.IsPair(a.Left(puzzle)) &&
		bytes.Equal(a.AtomBytes(a.Left(puzzle)), []byte{0x01}) {
		return r.chargeOutput(a.Right(puzzle))
	}

	mod, args, ok := clvm.Uncurry(a, puzzle)
	if !ok || a.IsPair(mod) {
		return 0, EvalError("unknown program")
	}
	switch clvm.AtomHash(a.AtomBytes(mod)) {
	case StandardModHash:
		return r.runStandard(args, solution)
	case AdminFilterModHash:
		return r.runFilter(args, solution, false)
	case WriterFilterModHash:
		return r.runFilter(args, solution, true)
	case OracleModHash:
		return r.runOracle(args)
	case DelegationModHash:
		return r.runDelegation(puzzle, args, solution)
	default:
		return 0, EvalError("unknown program")
	}
}

func (r *refRun) chargeOutput(out clvm.NodePtr) (clvm.NodePtr, error) {
	n := out
	for r.a.IsPair(n) {
		if err := r.charge(costPerOutput); err != nil {
			return 0, err
		}
		n = r.a.Right(n)
	}
	return out, nil
}

// runStandard executes the spend-authorization puzzle: reveal a delegated
// program, commit to it with an AGG_SIG_ME over its tree hash, and emit its
// conditions.
func (r *refRun) runStandard(args []clvm.NodePtr, solution clvm.NodePtr) (clvm.NodePtr, error) {
	a := r.a
	if len(args) != 1 || a.IsPair(args[0]) {
		return 0, EvalError("standard puzzle: malformed curried arguments")
	}
	if err := r.charge(costSignature); err != nil {
		return 0, err
	}
	parts, err := a.ListItems(solution)
	if err != nil || len(parts) != 2 {
		return 0, EvalError("standard puzzle: malformed solution")
	}
	delegated, delegatedSolution := parts[0], parts[1]

	out, err := r.run(delegated, delegatedSolution)
	if err != nil {
		return 0, err
	}
	msg := clvm.TreeHash(a, delegated)
	aggSig := a.NewList(a.IntAtom(conditions.OpAggSigMe), args[0], a.Atom(msg[:]))
	return a.Pair(aggSig, out), nil
}

// runFilter executes a role filter around the wrapped puzzle. The admin
// filter is a pure marker, distinguishing the admin leaf from a raw owner
// reveal; the writer filter additionally rejects conditions that would
// change ownership or the authorization set.
func (r *refRun) runFilter(args []clvm.NodePtr, solution clvm.NodePtr, writer bool) (clvm.NodePtr, error) {
	if len(args) != 1 {
		return 0, EvalError("filter: malformed curried arguments")
	}
	out, err := r.run(args[0], solution)
	if err != nil {
		return 0, err
	}
	if !writer {
		return out, nil
	}
	conds, err := conditions.ParseList(r.a, out)
	if err != nil {
		return 0, EvalError("filter: unreadable conditions")
	}
	for _, c := range conds {
		switch c := c.(type) {
		case conditions.CreateCoin:
			if c.Amount%2 == 1 {
				return 0, EvalError("filter: writer may not recreate the singleton")
			}
		case conditions.NewMerkleRoot:
			return 0, EvalError("filter: writer may not change the authorization set")
		}
	}
	return out, nil
}

// runOracle emits the oracle's fixed effects: pay the fee to the committed
// target and announce "$" so third parties can assert the spend happened.
func (r *refRun) runOracle(args []clvm.NodePtr) (clvm.NodePtr, error) {
	a := r.a
	if len(args) != 2 || a.IsPair(args[0]) || a.IsPair(args[1]) {
		return 0, EvalError("oracle: malformed curried arguments")
	}
	target := a.AtomBytes(args[0])
	if len(target) != 32 {
		return 0, EvalError("oracle: malformed target hash")
	}
	payment := a.NewList(a.IntAtom(conditions.OpCreateCoin), args[0], args[1])
	announce := a.NewList(a.IntAtom(conditions.OpCreatePuzzleAnnouncement), a.Atom([]byte("$")))
	return r.chargeOutput(a.NewList(payment, announce))
}

// runDelegation executes the delegation layer: prove the revealed inner
// puzzle belongs to the committed authorization set, run it, and make sure
// the singleton is recreated. A merkle-root update becomes a recreation of
// the re-curried layer; with no odd CreateCoin from the inner run the layer
// recreates itself unchanged.
func (r *refRun) runDelegation(self clvm.NodePtr, args []clvm.NodePtr, solution clvm.NodePtr) (clvm.NodePtr, error) {
	a := r.a
	if len(args) != 3 {
		return 0, EvalError("delegation layer: malformed curried arguments")
	}
	var launcherID, ownerHash, root [32]byte
	for i, dst := range []*[32]byte{&launcherID, &ownerHash, &root} {
		b := a.AtomBytes(args[i])
		if a.IsPair(args[i]) || len(b) != 32 {
			return 0, EvalError("delegation layer: malformed curried arguments")
		}
		copy(dst[:], b)
	}

	parts, err := a.ListItems(solution)
	if err != nil || len(parts) != 3 {
		return 0, EvalError("delegation layer: malformed solution")
	}
	proof, err := merkle.DecodeProof(a, parts[0])
	if err != nil {
		return 0, EvalError("delegation layer: malformed merkle proof")
	}
	reveal, revealSolution := parts[1], parts[2]

	// The owner's own puzzle is always authorized, proof or no proof;
	// everything else must prove membership in the committed set.
	leaf := clvm.TreeHash(a, reveal)
	if leaf != ownerHash && !merkle.Verify(root, leaf[:], proof) {
		return 0, EvalError("delegation layer: revealed puzzle not in authorization set")
	}

	out, err := r.run(reveal, revealSolution)
	if err != nil {
		return 0, err
	}
	conds, err := conditions.ParseList(a, out)
	if err != nil {
		return 0, EvalError("delegation layer: unreadable conditions")
	}

	var (
		passthrough []conditions.Condition
		newRoot     *conditions.NewMerkleRoot
		oddCreate   bool
	)
	for _, c := range conds {
		switch c := c.(type) {
		case conditions.NewMerkleRoot:
			newRoot = &c
			continue
		case conditions.CreateCoin:
			if c.Amount%2 == 1 {
				oddCreate = true
			}
		}
		passthrough = append(passthrough, c)
	}

	switch {
	case newRoot != nil:
		successor := DelegationPuzzleHash(launcherID, ownerHash, newRoot.NewRoot)
		passthrough = append(passthrough, conditions.CreateCoin{
			PuzzleHash: successor,
			Amount:     1,
			Memos:      newRoot.Memos,
		})
	case !oddCreate:
		selfHash := clvm.TreeHash(a, self)
		passthrough = append(passthrough, conditions.CreateCoin{
			PuzzleHash: selfHash,
			Amount:     1,
			Memos:      [][]byte{launcherID[:]},
		})
	}

	rebuilt, err := conditions.EncodeList(a, passthrough)
	if err != nil {
		return 0, errors.Wrap(err, "delegation layer: rebuilding conditions")
	}
	return r.chargeOutput(rebuilt)
}
