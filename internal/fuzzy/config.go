package fuzzy

// DefaultKMax is the implementation ceiling on automaton edit distance.
// State count in the parametric DFA grows roughly with |W|·k, and
// determinization cost is superlinear in that, so K_MAX is kept small.
const DefaultKMax = 2

// SimilarityConfig is the immutable threshold configuration shared by every
// matcher in a single enumerator's lifetime.
type SimilarityConfig struct {
	SMin  float64 // s_min ∈ [0,1); terms must have similarity strictly greater
	Scale float64 // 1 / (1 - s_min), precomputed
	KMax  int     // implementation ceiling on automaton edit distance
}

// NewSimilarityConfig validates and builds a SimilarityConfig.
// sMin must be in [0,1), otherwise ErrInvalidSMin is returned; KMax is
// always DefaultKMax. To disable the automaton ladder entirely, use
// NewSimilarityConfigWithKMax(sMin, 0).
func NewSimilarityConfig(sMin float64) (SimilarityConfig, error) {
	return NewSimilarityConfigWithKMax(sMin, DefaultKMax)
}

// NewSimilarityConfigWithKMax is NewSimilarityConfig with an explicit K_MAX,
// for callers (tests, benchmarks) that want to force the linear fallback
// path or a tighter/looser automaton ceiling.
func NewSimilarityConfigWithKMax(sMin float64, kMax int) (SimilarityConfig, error) {
	if sMin < 0 || sMin >= 1 {
		return SimilarityConfig{}, ErrInvalidSMin
	}
	if kMax < 0 {
		return SimilarityConfig{}, ErrInvalidKMax
	}
	return SimilarityConfig{
		SMin:  sMin,
		Scale: 1 / (1 - sMin),
		KMax:  kMax,
	}, nil
}

// Boost converts a similarity score into the normalized boost in (0,1].
// Callers must already have checked sim > SMin; Boost does not re-check.
func (c SimilarityConfig) Boost(sim float64) float64 {
	return (sim - c.SMin) * c.Scale
}

// MaxBoostAt returns the boost of a term at exactly edit distance k against
// a pattern of length patternLen — the best boost any term at that distance
// could ever achieve. Used by AdaptiveFuzzyEnumerator.adapt to decide
// whether the competitive floor has made edit budget k entirely
// non-competitive.
func (c SimilarityConfig) MaxBoostAt(k, patternLen int) float64 {
	if patternLen == 0 {
		if k == 0 {
			return 1
		}
		return -1 // unreachable boost; any k>0 against an empty pattern can't match
	}
	sim := 1 - float64(k)/float64(patternLen)
	return (sim - c.SMin) * c.Scale
}
