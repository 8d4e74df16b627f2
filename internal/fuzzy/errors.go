package fuzzy

import "errors"

// Construction-time argument errors. No resources are allocated before
// these are returned.
var (
	ErrInvalidSMin      = errors.New("fuzzy: s_min must be in [0, 1)")
	ErrInvalidPrefixLen = errors.New("fuzzy: prefixLen must be >= 0")
	ErrInvalidKMax      = errors.New("fuzzy: K_MAX must be >= 0")
)

// ErrDistanceTooLarge is returned by the automaton ladder when asked to
// build past its K_MAX; callers fall back to LinearFuzzyMatcher. It is a
// design-level signal, not a failure.
var ErrDistanceTooLarge = errors.New("fuzzy: edit distance exceeds K_MAX")
