package datalayer

import (
	"bytes"

	"github.com/chain/txvm/errors"

	"datalayer/clvm"
)

// The recreation manifest travels in the generic hint channel of a
// CreateCoin effect: an ordered list of opaque byte strings. Wire layout is
// [launcher_id, owner_puzzle_hash, (role_tag, hash[, fee])...]; a legacy
// two-memo form carries no authorization entries. Only the current form is
// ever written; both must decode indefinitely.

// RecreationMemos encodes the manifest, launcher id first. Oracle fees use
// the minimal signed integer encoding, so a zero fee is the empty string.
func RecreationMemos(launcherID, ownerPuzzleHash Hash, set []DelegatedPuzzle) [][]byte {
	memos := [][]byte{launcherID[:], ownerPuzzleHash[:]}
	for _, dp := range set {
		dp := dp
		memos = append(memos, clvm.AtomFromUint64(uint64(dp.Kind)), dp.PuzzleHash[:])
		if dp.Kind == KindOracle {
			memos = append(memos, clvm.AtomFromUint64(dp.OracleFee))
		}
	}
	return memos
}

// DecodeRecreationMemos decodes a manifest back into owner and
// authorization set. See decodeManifest for the fallback rules.
func DecodeRecreationMemos(launcherID, fallbackOwner Hash, memos [][]byte) (Hash, []DelegatedPuzzle, error) {
	return decodeManifest(launcherID, fallbackOwner, memos)
}

// decodeManifest decodes a recreation manifest. The first memo must name
// launcherID; with nothing after it the owner falls back to fallbackOwner
// (the state layer's inner puzzle hash) and the set is empty.
func decodeManifest(launcherID, fallbackOwner Hash, memos [][]byte) (Hash, []DelegatedPuzzle, error) {
	if len(memos) == 0 {
		return Hash{}, nil, errors.Wrap(ErrMissingMemo, "manifest has no launcher id")
	}
	if !bytes.Equal(memos[0], launcherID[:]) {
		return Hash{}, nil, errors.Wrap(ErrInvalidMemo, "manifest names a different launcher")
	}
	memos = memos[1:]
	if len(memos) == 0 {
		return fallbackOwner, nil, nil
	}
	var owner Hash
	if len(memos[0]) != 32 {
		return Hash{}, nil, errors.Wrap(ErrInvalidMemo, "owner puzzle hash is not 32 bytes")
	}
	copy(owner[:], memos[0])
	memos = memos[1:]

	var set []DelegatedPuzzle
	for len(memos) > 0 {
		dp, rest, err := decodeDelegated(memos)
		if err != nil {
			return Hash{}, nil, err
		}
		set = append(set, dp)
		memos = rest
	}
	return owner, set, nil
}

// decodeDelegated consumes one authorization entry from the memo queue.
func decodeDelegated(memos [][]byte) (DelegatedPuzzle, [][]byte, error) {
	tag, err := clvm.Uint64FromAtom(memos[0])
	if err != nil {
		return DelegatedPuzzle{}, nil, errors.Wrap(ErrInvalidMemo, "authorization entry tag")
	}
	if len(memos) < 2 {
		return DelegatedPuzzle{}, nil, errors.Wrap(ErrMissingMemo, "authorization entry has no puzzle hash")
	}
	var hash Hash
	if len(memos[1]) != 32 {
		return DelegatedPuzzle{}, nil, errors.Wrap(ErrInvalidMemo, "authorization entry puzzle hash is not 32 bytes")
	}
	copy(hash[:], memos[1])

	switch DelegatedKind(tag) {
	case KindAdmin:
		return AdminPuzzle(hash), memos[2:], nil
	case KindWriter:
		return WriterPuzzle(hash), memos[2:], nil
	case KindOracle:
		if len(memos) < 3 {
			return DelegatedPuzzle{}, nil, errors.Wrap(ErrMissingMemo, "oracle entry has no fee")
		}
		fee, err := clvm.Uint64FromAtom(memos[2])
		if err != nil {
			return DelegatedPuzzle{}, nil, errors.Wrap(ErrInvalidMemo, "oracle entry fee")
		}
		return OraclePuzzle(hash, fee), memos[3:], nil
	default:
		return DelegatedPuzzle{}, nil, errors.Wrap(ErrInvalidMemo, "unknown authorization entry tag")
	}
}
