package datalayer

import (
	"reflect"
	"testing"

	"github.com/chain/txvm/errors"
	"github.com/davecgh/go-spew/spew"

	"datalayer/clvm"
)

func TestStoreMetadataRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		meta *StoreMetadata
	}{
		{name: "root only", meta: &StoreMetadata{RootHashValue: hashOf(0x42)}},
		{name: "all fields", meta: &StoreMetadata{
			RootHashValue: hashOf(0x42),
			Label:         "my store",
			Description:   "a store of things",
			ByteSize:      4096,
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a := clvm.NewAllocator()
			n, err := c.meta.EncodeCLVM(a)
			if err != nil {
				t.Fatal(err)
			}
			got := new(StoreMetadata)
			if err := got.DecodeCLVM(a, n); err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, c.meta) {
				t.Fatalf("got %s, want %s", spew.Sdump(got), spew.Sdump(c.meta))
			}
		})
	}
}

func TestStoreMetadataPreservesUnknownKeys(t *testing.T) {
	a := clvm.NewAllocator()
	root := hashOf(0x42)

	// A newer writer's extra field must survive decode and re-encode.
	n := a.NewList(
		a.Pair(a.Atom([]byte("h")), a.Atom(root[:])),
		a.Pair(a.Atom([]byte("z")), a.Atom([]byte("future field"))),
	)
	m := new(StoreMetadata)
	if err := m.DecodeCLVM(a, n); err != nil {
		t.Fatal(err)
	}
	if m.RootHashValue != root {
		t.Errorf("got root %x, want %x", m.RootHashValue, root)
	}

	reencoded, err := m.EncodeCLVM(a)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Equal(n, reencoded) {
		t.Error("unknown key lost in a decode/encode round trip")
	}
}

func TestStoreMetadataDecodeFailures(t *testing.T) {
	a := clvm.NewAllocator()
	root := hashOf(0x42)

	// A bare atom is the legacy shape; its signature failure is
	// ErrExpectedPair so callers can fall back.
	err := new(StoreMetadata).DecodeCLVM(a, a.Atom(root[:]))
	if errors.Root(err) != clvm.ErrExpectedPair {
		t.Errorf("bare atom: got %v, want %v", err, clvm.ErrExpectedPair)
	}

	// Missing root hash is a hard error, not a format fallback.
	n := a.NewList(a.Pair(a.Atom([]byte("l")), a.Atom([]byte("label"))))
	err = new(StoreMetadata).DecodeCLVM(a, n)
	if err == nil || errors.Root(err) == clvm.ErrExpectedPair {
		t.Errorf("missing root hash: got %v, want a hard error", err)
	}

	// Short root hash.
	n = a.NewList(a.Pair(a.Atom([]byte("h")), a.Atom(root[:16])))
	if err = new(StoreMetadata).DecodeCLVM(a, n); err == nil {
		t.Error("short root hash: got nil, want error")
	}
}

func TestMetadataHashTracksContent(t *testing.T) {
	a := clvm.NewAllocator()
	m1 := &StoreMetadata{RootHashValue: hashOf(0x42), Label: "x"}
	m2 := &StoreMetadata{RootHashValue: hashOf(0x42), Label: "y"}

	h1, err := MetadataHash(a, m1)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := MetadataHash(a, m2)
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Error("different metadata hashed identically")
	}
}
