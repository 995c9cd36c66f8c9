// Package clvm implements the value model shared by puzzles and solutions:
// an arena of atoms and pairs, content addressing by tree hash, currying,
// and the canonical byte serialization.
package clvm

// NodePtr references a node inside an Allocator. Pointers are only
// meaningful within the allocator that produced them.
type NodePtr int32

type nodeKind uint8

const (
	kindAtom nodeKind = iota
	kindPair
)

type node struct {
	kind  nodeKind
	atom  []byte
	left  NodePtr
	right NodePtr
}

// Allocator is an arena of CLVM values. It is owned by a single call chain
// and is not safe for concurrent use.
type Allocator struct {
	nodes []node
}

// NewAllocator returns an arena seeded with the nil atom at pointer 0.
func NewAllocator() *Allocator {
	return &Allocator{nodes: []node{{kind: kindAtom}}}
}

// Nil returns the empty atom.
func (a *Allocator) Nil() NodePtr { return 0 }

// Atom allocates an atom holding b. The bytes are copied.
func (a *Allocator) Atom(b []byte) NodePtr {
	if len(b) == 0 {
		return 0
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	a.nodes = append(a.nodes, node{kind: kindAtom, atom: cp})
	return NodePtr(len(a.nodes) - 1)
}

// Pair allocates a cons cell.
func (a *Allocator) Pair(left, right NodePtr) NodePtr {
	a.nodes = append(a.nodes, node{kind: kindPair, left: left, right: right})
	return NodePtr(len(a.nodes) - 1)
}

// IsPair reports whether n is a cons cell.
func (a *Allocator) IsPair(n NodePtr) bool { return a.nodes[n].kind == kindPair }

// AtomBytes returns the contents of an atom. It returns nil for pairs;
// callers that have not checked IsPair must not distinguish nil from the
// empty atom.
func (a *Allocator) AtomBytes(n NodePtr) []byte {
	if a.nodes[n].kind != kindAtom {
		return nil
	}
	return a.nodes[n].atom
}

// Left returns the first element of a cons cell.
func (a *Allocator) Left(n NodePtr) NodePtr { return a.nodes[n].left }

// Right returns the rest of a cons cell.
func (a *Allocator) Right(n NodePtr) NodePtr { return a.nodes[n].right }

// IntAtom allocates an atom holding the minimal signed encoding of v.
func (a *Allocator) IntAtom(v int64) NodePtr { return a.Atom(AtomFromInt(v)) }

// Uint64Atom allocates an atom holding the minimal signed encoding of v.
func (a *Allocator) Uint64Atom(v uint64) NodePtr { return a.Atom(AtomFromUint64(v)) }

// NewList allocates a proper list of the given items.
func (a *Allocator) NewList(items ...NodePtr) NodePtr {
	n := a.Nil()
	for i := len(items) - 1; i >= 0; i-- {
		n = a.Pair(items[i], n)
	}
	return n
}

// ListItems walks a proper list, returning its elements. It returns
// ErrExpectedPair when n is an atom where a pair was required, and
// ErrImproperList when the list does not terminate in nil.
func (a *Allocator) ListItems(n NodePtr) ([]NodePtr, error) {
	if !a.IsPair(n) {
		if len(a.AtomBytes(n)) == 0 {
			return nil, nil
		}
		return nil, ErrExpectedPair
	}
	var items []NodePtr
	for a.IsPair(n) {
		items = append(items, a.Left(n))
		n = a.Right(n)
	}
	if len(a.AtomBytes(n)) != 0 {
		return nil, ErrImproperList
	}
	return items, nil
}

// Equal reports whether two values have identical structure and contents.
func (a *Allocator) Equal(x, y NodePtr) bool {
	if x == y {
		return true
	}
	if a.IsPair(x) != a.IsPair(y) {
		return false
	}
	if a.IsPair(x) {
		return a.Equal(a.Left(x), a.Left(y)) && a.Equal(a.Right(x), a.Right(y))
	}
	return string(a.AtomBytes(x)) == string(a.AtomBytes(y))
}
