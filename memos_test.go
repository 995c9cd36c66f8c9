package datalayer

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/chain/txvm/errors"
)

func TestRecreationMemosRoundTrip(t *testing.T) {
	launcherID := hashOf(0x01)
	owner := hashOf(0x02)

	cases := []struct {
		name string
		set  []DelegatedPuzzle
	}{
		{name: "empty set"},
		{name: "admin", set: []DelegatedPuzzle{AdminPuzzle(hashOf(0x0a))}},
		{name: "writer", set: []DelegatedPuzzle{WriterPuzzle(hashOf(0x0b))}},
		{name: "oracle zero fee", set: []DelegatedPuzzle{OraclePuzzle(hashOf(0x0c), 0)}},
		{name: "oracle sign-bit fee", set: []DelegatedPuzzle{OraclePuzzle(hashOf(0x0c), 128)}},
		{name: "mixed", set: []DelegatedPuzzle{
			AdminPuzzle(hashOf(0x0a)),
			WriterPuzzle(hashOf(0x0b)),
			OraclePuzzle(hashOf(0x0c), 330),
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			memos := RecreationMemos(launcherID, owner, c.set)
			gotOwner, gotSet, err := DecodeRecreationMemos(launcherID, hashOf(0xff), memos)
			if err != nil {
				t.Fatal(err)
			}
			if gotOwner != owner {
				t.Errorf("got owner %x, want %x", gotOwner, owner)
			}
			if !reflect.DeepEqual(gotSet, c.set) {
				t.Errorf("got set %v, want %v", gotSet, c.set)
			}
		})
	}
}

func TestOracleFeeEncoding(t *testing.T) {
	launcherID := hashOf(0x01)

	memos := RecreationMemos(launcherID, hashOf(0x02), []DelegatedPuzzle{OraclePuzzle(hashOf(0x03), 0)})
	if fee := memos[len(memos)-1]; len(fee) != 0 {
		t.Errorf("zero fee encoded as %x, want empty", fee)
	}

	memos = RecreationMemos(launcherID, hashOf(0x02), []DelegatedPuzzle{OraclePuzzle(hashOf(0x03), 128)})
	if fee := memos[len(memos)-1]; !bytes.Equal(fee, []byte{0x00, 0x80}) {
		t.Errorf("fee 128 encoded as %x, want 0080", fee)
	}
}

func TestDecodeLegacyTwoMemoForm(t *testing.T) {
	launcherID := hashOf(0x01)
	owner := hashOf(0x02)

	gotOwner, gotSet, err := DecodeRecreationMemos(launcherID, hashOf(0xff), [][]byte{launcherID[:], owner[:]})
	if err != nil {
		t.Fatal(err)
	}
	if gotOwner != owner {
		t.Errorf("got owner %x, want %x", gotOwner, owner)
	}
	if len(gotSet) != 0 {
		t.Errorf("got %d delegated puzzles, want none", len(gotSet))
	}
}

func TestDecodeManifestFallbackOwner(t *testing.T) {
	launcherID := hashOf(0x01)
	fallback := hashOf(0xff)

	owner, set, err := DecodeRecreationMemos(launcherID, fallback, [][]byte{launcherID[:]})
	if err != nil {
		t.Fatal(err)
	}
	if owner != fallback {
		t.Errorf("got owner %x, want fallback %x", owner, fallback)
	}
	if len(set) != 0 {
		t.Errorf("got %d delegated puzzles, want none", len(set))
	}
}

func TestDecodeManifestErrors(t *testing.T) {
	launcherID := hashOf(0x01)
	other := hashOf(0x09)
	owner := hashOf(0x02)
	oracle := hashOf(0x03)

	cases := []struct {
		name  string
		memos [][]byte
		want  error
	}{
		{name: "no memos", memos: nil, want: ErrMissingMemo},
		{name: "wrong launcher", memos: [][]byte{other[:], owner[:]}, want: ErrInvalidMemo},
		{name: "short owner hash", memos: [][]byte{launcherID[:], owner[:16]}, want: ErrInvalidMemo},
		{name: "entry without hash", memos: [][]byte{launcherID[:], owner[:], {0x01}}, want: ErrMissingMemo},
		{name: "oracle without fee", memos: [][]byte{launcherID[:], owner[:], {0x03}, oracle[:]}, want: ErrMissingMemo},
		{name: "unknown tag", memos: [][]byte{launcherID[:], owner[:], {0x07}, oracle[:]}, want: ErrInvalidMemo},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, _, err := DecodeRecreationMemos(launcherID, hashOf(0xff), c.memos)
			if errors.Root(err) != c.want {
				t.Errorf("got %v, want %v", err, c.want)
			}
		})
	}
}

func hashOf(b byte) Hash {
	var h Hash
	for i := range h {
		h[i] = b
	}
	return h
}
