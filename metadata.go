package datalayer

import (
	"bytes"

	"github.com/chain/txvm/errors"

	"datalayer/clvm"
)

// Metadata is the versioned payload committed by the state layer. The zero
// value of an implementation must be decodable into.
type Metadata interface {
	// EncodeCLVM allocates the canonical value form of the metadata.
	EncodeCLVM(a *clvm.Allocator) (clvm.NodePtr, error)

	// DecodeCLVM replaces the receiver's contents from n. It must return
	// clvm.ErrExpectedPair (possibly wrapped) when n's outer structure is an
	// atom where the format requires a pair, so callers can fall back to
	// older formats.
	DecodeCLVM(a *clvm.Allocator, n clvm.NodePtr) error

	// RootHash returns the content commitment the object tracks.
	RootHash() Hash

	// SetRootHashOnly resets the receiver to carry just a root hash, the
	// shape older objects used before structured metadata existed.
	SetRootHashOnly(root Hash)
}

// Store metadata keys. Single-byte keys keep the committed value small.
var (
	keyRootHash    = []byte("h")
	keyLabel       = []byte("l")
	keyDescription = []byte("d")
	keyByteSize    = []byte("s")
)

// StoreMetadata is the standard metadata payload: a merkle root over the
// store contents plus optional human-readable fields. Unknown keys survive
// a decode/encode round trip so that newer writers' fields are not
// destroyed by older code.
type StoreMetadata struct {
	RootHashValue Hash
	Label         string
	Description   string
	ByteSize      uint64

	// extra holds key/value pairs this version does not interpret, in
	// original order.
	extra []kvPair
}

type kvPair struct {
	key   []byte
	value []byte
}

func (m *StoreMetadata) RootHash() Hash { return m.RootHashValue }

func (m *StoreMetadata) SetRootHashOnly(root Hash) {
	*m = StoreMetadata{RootHashValue: root}
}

// EncodeCLVM writes the metadata as a list of (key . value) pairs. The root
// hash always comes first, which also makes the first list element a pair,
// the structural marker that distinguishes this format from a bare root
// hash atom.
func (m *StoreMetadata) EncodeCLVM(a *clvm.Allocator) (clvm.NodePtr, error) {
	var items []clvm.NodePtr
	items = append(items, a.Pair(a.Atom(keyRootHash), a.Atom(m.RootHashValue[:])))
	if m.Label != "" {
		items = append(items, a.Pair(a.Atom(keyLabel), a.Atom([]byte(m.Label))))
	}
	if m.Description != "" {
		items = append(items, a.Pair(a.Atom(keyDescription), a.Atom([]byte(m.Description))))
	}
	if m.ByteSize != 0 {
		items = append(items, a.Pair(a.Atom(keyByteSize), a.Uint64Atom(m.ByteSize)))
	}
	for _, kv := range m.extra {
		items = append(items, a.Pair(a.Atom(kv.key), a.Atom(kv.value)))
	}
	return a.NewList(items...), nil
}

func (m *StoreMetadata) DecodeCLVM(a *clvm.Allocator, n clvm.NodePtr) error {
	items, err := a.ListItems(n)
	if err != nil {
		return errors.Wrap(err, "decoding store metadata")
	}
	if len(items) == 0 {
		return errors.Wrap(clvm.ErrExpectedPair, "decoding store metadata")
	}
	decoded := StoreMetadata{}
	var sawRoot bool
	for _, item := range items {
		if !a.IsPair(item) {
			return errors.Wrap(clvm.ErrExpectedPair, "decoding store metadata entry")
		}
		key, value := a.Left(item), a.Right(item)
		if a.IsPair(key) || a.IsPair(value) {
			return errors.Wrap(clvm.ErrExpectedAtom, "decoding store metadata entry")
		}
		kb, vb := a.AtomBytes(key), a.AtomBytes(value)
		switch {
		case bytes.Equal(kb, keyRootHash):
			if len(vb) != 32 {
				return errors.New("store metadata root hash is not 32 bytes")
			}
			copy(decoded.RootHashValue[:], vb)
			sawRoot = true
		case bytes.Equal(kb, keyLabel):
			decoded.Label = string(vb)
		case bytes.Equal(kb, keyDescription):
			decoded.Description = string(vb)
		case bytes.Equal(kb, keyByteSize):
			decoded.ByteSize, err = clvm.Uint64FromAtom(vb)
			if err != nil {
				return errors.Wrap(err, "store metadata byte size")
			}
		default:
			kc := make([]byte, len(kb))
			copy(kc, kb)
			vc := make([]byte, len(vb))
			copy(vc, vb)
			decoded.extra = append(decoded.extra, kvPair{key: kc, value: vc})
		}
	}
	if !sawRoot {
		return errors.New("store metadata has no root hash")
	}
	*m = decoded
	return nil
}

// MetadataHash computes the tree hash of m's encoded form.
func MetadataHash(a *clvm.Allocator, m Metadata) (Hash, error) {
	n, err := m.EncodeCLVM(a)
	if err != nil {
		return Hash{}, errors.Wrap(err, "encoding metadata")
	}
	return clvm.TreeHash(a, n), nil
}
