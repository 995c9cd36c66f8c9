package datalayer

import "github.com/chain/txvm/errors"

// Reconstruction failures. A spend that structurally does not belong to the
// protocol is reported as a nil object, never as one of these; these mean
// the spend claims to be a layered singleton and violates an invariant.
// Compare through errors.Root, values arrive wrapped with context.
var (
	// ErrMissingChild: the spend emitted no odd-amount CreateCoin, so there
	// is no successor singleton to hand back.
	ErrMissingChild = errors.New("spend does not recreate the singleton")

	// ErrMissingMemo: the hint list ended where a field was required.
	ErrMissingMemo = errors.New("missing memo")

	// ErrInvalidMemo: a hint was present but malformed, or the manifest
	// names a different launcher.
	ErrInvalidMemo = errors.New("invalid memo")

	// ErrNonStandardLayer: a layer matched a known mod but its curried
	// arguments do not have the required shape.
	ErrNonStandardLayer = errors.New("non-standard layer")

	// ErrNotInAuthSet: a spend tried to exercise a delegated puzzle that is
	// not a member of the object's authorization set.
	ErrNotInAuthSet = errors.New("puzzle not in authorization set")
)
