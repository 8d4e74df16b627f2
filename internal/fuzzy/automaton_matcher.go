package fuzzy

import "bytes"

// AutomatonFuzzyMatcher wraps an AutomatonTermCursor driven by A[k], the
// prefixed ladder automaton for the current edit budget. For each visited
// term it finds the smallest accepting edit distance and converts that
// into a similarity/boost pair. The boost formula and "ascending i,
// smallest wins" structure are grounded on the real bluge FuzzySearcher
// (see DESIGN.md): boostFromDistance there computes
// 1 - editDistance/minTermLen from the smallest automaton in a descending
// ladder that still contains the term; this is the same computation run
// ascending instead, since here R[i] for increasing i is checked in order
// and the first (smallest) accepting i wins.
type AutomatonFuzzyMatcher struct {
	pattern Pattern
	config  SimilarityConfig
	k       int
	ladder  *Ladder
	cursor  *AutomatonTermCursor

	resumeKey    []byte
	resumeKeySet bool

	boost float64
}

// NewAutomatonFuzzyMatcher builds a matcher for edit budget k against cur,
// reusing/extending ladder as needed. When hasResume is true, the first
// NextSeekTerm call returns resumeKey instead of the pattern's prefix —
// used after an adaptive swap to resume strictly past the triggering key.
func NewAutomatonFuzzyMatcher(cur TermCursor, pattern Pattern, config SimilarityConfig, ladder *Ladder, k int, resumeKey []byte, hasResume bool) (*AutomatonFuzzyMatcher, error) {
	automaton, err := ladder.At(k)
	if err != nil {
		return nil, err
	}
	m := &AutomatonFuzzyMatcher{
		pattern:      pattern,
		config:       config,
		k:            k,
		ladder:       ladder,
		resumeKey:    resumeKey,
		resumeKeySet: hasResume,
	}
	m.cursor = NewAutomatonTermCursor(cur, automaton, m, pattern.PrefixBytes())
	return m, nil
}

// Next advances to the next accepted term.
func (m *AutomatonFuzzyMatcher) Next() (term []byte, end bool, err error) {
	return m.cursor.NextAccepted()
}

// Boost returns the boost computed for the most recently returned term.
func (m *AutomatonFuzzyMatcher) Boost() float64 { return m.boost }

// Accept implements MatchCapability.
func (m *AutomatonFuzzyMatcher) Accept(term []byte) (AcceptStatus, error) {
	if bytes.Equal(term, m.pattern.Bytes()) {
		m.boost = 1.0
		return AcceptYesAndSeek, nil
	}

	that := []rune(string(term))
	wLen := m.pattern.Len()

	for i := 1; i <= m.k; i++ {
		r, err := m.ladder.At(i)
		if err != nil {
			return AcceptNo, err
		}
		if !r.Accept(that) {
			continue
		}
		denom := len(that)
		if wLen < denom {
			denom = wLen
		}
		if denom == 0 {
			return AcceptNoAndSeek, nil
		}
		sim := 1 - float64(i)/float64(denom)
		if sim > m.config.SMin {
			m.boost = m.config.Boost(sim)
			return AcceptYesAndSeek, nil
		}
		return AcceptNoAndSeek, nil
	}
	return AcceptNoAndSeek, nil
}

// NextSeekTerm implements MatchCapability: the first call after a
// fresh (post-swap) matcher returns the resume key; every later call
// defers to AutomatonTermCursor's own DFA-guided skip.
func (m *AutomatonFuzzyMatcher) NextSeekTerm(prev []byte) (key []byte, ok bool) {
	if prev == nil && m.resumeKeySet {
		m.resumeKeySet = false
		return m.resumeKey, true
	}
	return nil, false
}
