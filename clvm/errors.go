package clvm

import "errors"

var (
	// ErrExpectedPair is returned when a pair was required and an atom was
	// found. Memo-format fallback decisions key off this value specifically.
	ErrExpectedPair = errors.New("expected pair")

	// ErrExpectedAtom is returned when an atom was required and a pair was
	// found.
	ErrExpectedAtom = errors.New("expected atom")

	// ErrImproperList is returned when a list does not terminate in nil.
	ErrImproperList = errors.New("improper list")

	// ErrAtomTooLarge is returned when an atom does not fit the requested
	// integer width.
	ErrAtomTooLarge = errors.New("atom too large")
)
