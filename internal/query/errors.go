package query

import "errors"

var (
	// ErrFuzzyDistanceTooLarge is returned when a FuzzyQuery requests an
	// edit distance above MaxFuzzyDistance.
	ErrFuzzyDistanceTooLarge = errors.New("query: fuzzy max distance exceeds limit")
	// ErrFuzzyTermTooShort is returned when a FuzzyQuery's term is too
	// short to fuzzy-match meaningfully at its requested distance.
	ErrFuzzyTermTooShort = errors.New("query: fuzzy term too short for requested distance")
)
