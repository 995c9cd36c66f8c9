package clvm

import (
	"bytes"
	"testing"
)

func TestIntAtomRoundTrip(t *testing.T) {
	cases := []struct {
		v    int64
		want []byte
	}{
		{0, []byte{}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x00, 0x80}},
		{255, []byte{0x00, 0xff}},
		{256, []byte{0x01, 0x00}},
		{-1, []byte{0xff}},
		{-128, []byte{0x80}},
		{-129, []byte{0xff, 0x7f}},
		{32767, []byte{0x7f, 0xff}},
		{-32768, []byte{0x80, 0x00}},
	}
	for _, c := range cases {
		got := AtomFromInt(c.v)
		if !bytes.Equal(got, c.want) {
			t.Errorf("AtomFromInt(%d) = %x, want %x", c.v, got, c.want)
		}
		back, err := IntFromAtom(got)
		if err != nil {
			t.Fatalf("IntFromAtom(%x): %s", got, err)
		}
		if back != c.v {
			t.Errorf("IntFromAtom(AtomFromInt(%d)) = %d", c.v, back)
		}
	}
}

func TestUint64Atom(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 255, 1000, 1 << 32, 1<<63 + 5} {
		got := AtomFromUint64(v)
		back, err := Uint64FromAtom(got)
		if err != nil {
			t.Fatalf("Uint64FromAtom(%x): %s", got, err)
		}
		if back != v {
			t.Errorf("round trip of %d came back %d", v, back)
		}
	}
	if got := AtomFromUint64(128); !bytes.Equal(got, []byte{0x00, 0x80}) {
		t.Errorf("AtomFromUint64(128) = %x, want 0080", got)
	}
	if _, err := Uint64FromAtom([]byte{0xff}); err == nil {
		t.Error("negative atom decoded as uint64")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	a := NewAllocator()
	long := make([]byte, 300)
	for i := range long {
		long[i] = byte(i)
	}
	values := []NodePtr{
		a.Nil(),
		a.Atom([]byte{0x05}),
		a.Atom([]byte{0x80}),
		a.Atom([]byte("hello")),
		a.Atom(long),
		a.Pair(a.Atom([]byte{1}), a.Atom([]byte{2})),
		a.NewList(a.Atom([]byte("x")), a.Nil(), a.IntAtom(-300)),
	}
	for _, v := range values {
		bits, err := Serialize(a, v)
		if err != nil {
			t.Fatal(err)
		}
		back, err := Deserialize(a, bits)
		if err != nil {
			t.Fatalf("deserializing %x: %s", bits, err)
		}
		if !a.Equal(v, back) {
			t.Errorf("round trip changed value, encoding %x", bits)
		}
	}
}

func TestSerializeKnownBytes(t *testing.T) {
	a := NewAllocator()
	bits, err := Serialize(a, a.Nil())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(bits, []byte{0x80}) {
		t.Errorf("nil serializes to %x, want 80", bits)
	}
	bits, err = Serialize(a, a.Pair(a.Atom([]byte{1}), a.Nil()))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(bits, []byte{0xff, 0x01, 0x80}) {
		t.Errorf("(1 . nil) serializes to %x, want ff0180", bits)
	}
}

func TestDeserializeTruncated(t *testing.T) {
	a := NewAllocator()
	for _, bits := range [][]byte{{0xff, 0x01}, {0x85, 0x01}, {0xff}, {}} {
		if _, err := Deserialize(a, bits); err == nil {
			t.Errorf("deserializing %x did not fail", bits)
		}
	}
}

func TestCurryUncurry(t *testing.T) {
	a := NewAllocator()
	mod := a.Atom([]byte("some-program"))
	arg1 := a.Atom([]byte("first"))
	arg2 := a.Pair(a.Atom([]byte{1}), a.Atom([]byte{2}))

	curried := Curry(a, mod, arg1, arg2)
	gotMod, gotArgs, ok := Uncurry(a, curried)
	if !ok {
		t.Fatal("Uncurry failed on curried puzzle")
	}
	if !a.Equal(gotMod, mod) {
		t.Error("mod mismatch")
	}
	if len(gotArgs) != 2 || !a.Equal(gotArgs[0], arg1) || !a.Equal(gotArgs[1], arg2) {
		t.Error("args mismatch")
	}

	if _, _, ok := Uncurry(a, mod); ok {
		t.Error("Uncurry matched a bare atom")
	}
	if _, _, ok := Uncurry(a, a.NewList(mod, arg1)); ok {
		t.Error("Uncurry matched a non-curried list")
	}
}

func TestCurriedTreeHash(t *testing.T) {
	a := NewAllocator()
	mod := a.Atom([]byte("some-program"))
	arg1 := a.Atom([]byte("first"))
	arg2 := a.NewList(a.Atom([]byte("x")), a.Atom([]byte("y")))

	want := TreeHash(a, Curry(a, mod, arg1, arg2))
	got := CurriedTreeHash(TreeHash(a, mod), TreeHash(a, arg1), TreeHash(a, arg2))
	if got != want {
		t.Errorf("CurriedTreeHash = %x, want %x", got, want)
	}

	want = TreeHash(a, Curry(a, mod))
	if got := CurriedTreeHash(TreeHash(a, mod)); got != want {
		t.Errorf("zero-arg CurriedTreeHash = %x, want %x", got, want)
	}
}

func TestListItems(t *testing.T) {
	a := NewAllocator()
	items, err := a.ListItems(a.Nil())
	if err != nil || len(items) != 0 {
		t.Fatalf("nil list: items %d err %v", len(items), err)
	}
	if _, err := a.ListItems(a.Atom([]byte{7})); err != ErrExpectedPair {
		t.Errorf("atom gave %v, want ErrExpectedPair", err)
	}
	improper := a.Pair(a.Atom([]byte{1}), a.Atom([]byte{2}))
	if _, err := a.ListItems(improper); err != ErrImproperList {
		t.Errorf("improper list gave %v, want ErrImproperList", err)
	}
}
