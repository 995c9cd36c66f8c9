package clvm

// Curried puzzles have the fixed shape (a (q . mod) env) where env is a
// chain (c (q . arg) rest) terminated by the whole-environment reference 1.
// Parsing is the structural inverse; a shape mismatch is reported with
// ok=false, not an error, so callers can probe layer by layer.

var (
	opQuote = []byte{0x01}
	opApply = []byte{0x02}
	opCons  = []byte{0x04}
)

// Curry builds the puzzle mod curried with args.
func Curry(a *Allocator, mod NodePtr, args ...NodePtr) NodePtr {
	env := a.Atom(opQuote) // the environment reference, atom 1
	for i := len(args) - 1; i >= 0; i-- {
		quoted := a.Pair(a.Atom(opQuote), args[i])
		env = a.NewList(a.Atom(opCons), quoted, env)
	}
	return a.NewList(a.Atom(opApply), a.Pair(a.Atom(opQuote), mod), env)
}

// Uncurry matches n against the curried shape, returning the mod and the
// curried arguments. ok is false when n is not a curried puzzle.
func Uncurry(a *Allocator, n NodePtr) (mod NodePtr, args []NodePtr, ok bool) {
	items, err := a.ListItems(n)
	if err != nil || len(items) != 3 {
		return 0, nil, false
	}
	if a.IsPair(items[0]) || string(a.AtomBytes(items[0])) != string(opApply) {
		return 0, nil, false
	}
	quotedMod := items[1]
	if !a.IsPair(quotedMod) || a.IsPair(a.Left(quotedMod)) ||
		string(a.AtomBytes(a.Left(quotedMod))) != string(opQuote) {
		return 0, nil, false
	}
	mod = a.Right(quotedMod)

	env := items[2]
	for {
		if !a.IsPair(env) {
			if string(a.AtomBytes(env)) != string(opQuote) {
				return 0, nil, false
			}
			return mod, args, true
		}
		link, err := a.ListItems(env)
		if err != nil || len(link) != 3 {
			return 0, nil, false
		}
		if a.IsPair(link[0]) || string(a.AtomBytes(link[0])) != string(opCons) {
			return 0, nil, false
		}
		quoted := link[1]
		if !a.IsPair(quoted) || a.IsPair(a.Left(quoted)) ||
			string(a.AtomBytes(a.Left(quoted))) != string(opQuote) {
			return 0, nil, false
		}
		args = append(args, a.Right(quoted))
		env = link[2]
	}
}

// CurriedTreeHash computes the tree hash of Curry(mod, args...) from
// component hashes alone, without allocating.
func CurriedTreeHash(modHash [32]byte, argHashes ...[32]byte) [32]byte {
	var (
		one   = AtomHash(opQuote)
		apply = AtomHash(opApply)
		cons  = AtomHash(opCons)
		nilh  = AtomHash(nil)
	)
	env := one
	for i := len(argHashes) - 1; i >= 0; i-- {
		quoted := PairHash(one, argHashes[i])
		env = PairHash(cons, PairHash(quoted, PairHash(env, nilh)))
	}
	return PairHash(apply, PairHash(PairHash(one, modHash), PairHash(env, nilh)))
}
