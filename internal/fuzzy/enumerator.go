package fuzzy

import "log/slog"

// backingMatcher is the shape both AutomatonFuzzyMatcher and
// LinearFuzzyMatcher present to AdaptiveFuzzyEnumerator, letting it swap
// between them without caring which is underneath.
type backingMatcher interface {
	Next() (term []byte, end bool, err error)
	Boost() float64
}

// CompetitiveFloor is the shared, observable competitive-boost threshold a
// consumer (typically a top-K collector) raises as it fills up. It is not
// safe for concurrent use from multiple goroutines — like the rest of this
// package, it is meant to be driven by the same goroutine that pulls from
// AdaptiveFuzzyEnumerator between calls to Next.
type CompetitiveFloor struct {
	value float64
}

// Set raises (or lowers) the floor. Callers normally only raise it.
func (f *CompetitiveFloor) Set(v float64) { f.value = v }

// Get returns the current floor value.
func (f *CompetitiveFloor) Get() float64 { return f.value }

// AdaptiveFuzzyEnumerator is the outward-facing fuzzy term enumerator.
// It starts on whichever of LINEAR/AUTOMATON(k0) the pattern's
// initial edit budget calls for, and tightens k — swapping to a smaller
// automaton, or from LINEAR into the automaton ladder — each time the
// attached CompetitiveFloor rises enough to make the current budget
// provably non-competitive.
type AdaptiveFuzzyEnumerator struct {
	cur     TermCursor
	pattern Pattern
	config  SimilarityConfig
	ladder  *Ladder
	floor   *CompetitiveFloor
	logger  *slog.Logger

	k       int // current nominal edit budget; > config.KMax means LINEAR
	backing backingMatcher

	lastTerm      []byte
	lastTermSet   bool
	lastFloorSeen float64
}

// NewAdaptiveFuzzyEnumerator builds an enumerator over cur for the pattern
// (field, text) with the given required prefix length, similarity
// configuration, and (optionally nil) shared competitive floor. logger may
// be nil, in which case slog.Default() is used; it is consulted only at
// construction and at each adaptive backing-matcher swap, matching
// internal/snapshot.Manager's construction/generation-transition logging.
func NewAdaptiveFuzzyEnumerator(cur TermCursor, field, text string, prefixLen int, config SimilarityConfig, floor *CompetitiveFloor, logger *slog.Logger) (*AdaptiveFuzzyEnumerator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if prefixLen < 0 {
		return nil, ErrInvalidPrefixLen
	}
	pattern := NewPattern(field, text, prefixLen)
	ladder := NewLadder(pattern.PrefixRunes(), pattern.SuffixRunes(), config.KMax)

	e := &AdaptiveFuzzyEnumerator{
		cur:     cur,
		pattern: pattern,
		config:  config,
		ladder:  ladder,
		floor:   floor,
		logger:  logger,
	}
	if floor != nil {
		e.lastFloorSeen = floor.Get()
	}

	// The epsilon keeps floor() exact when (1-SMin)·|W| is an integer that
	// float64 lands just below (e.g. 0.2·5 = 0.9999999999999998).
	k0 := int((1-config.SMin)*float64(pattern.Len()) + 1e-9)
	if k0 > config.KMax {
		e.k = k0
		e.backing = NewLinearFuzzyMatcher(cur, pattern, config)
		logger.Debug("fuzzy enumerator starting in linear mode",
			"field", field, "k0", k0, "kMax", config.KMax)
		return e, nil
	}

	m, err := NewAutomatonFuzzyMatcher(cur, pattern, config, ladder, k0, nil, false)
	if err != nil {
		return nil, err
	}
	e.k = k0
	e.backing = m
	logger.Debug("fuzzy enumerator starting in automaton mode",
		"field", field, "k0", k0, "kMax", config.KMax)
	return e, nil
}

// Next returns the next accepted term and its boost, or end=true once the
// underlying range is exhausted.
func (e *AdaptiveFuzzyEnumerator) Next() (term []byte, boost float64, end bool, err error) {
	term, end, err = e.backing.Next()
	if err != nil || end {
		return nil, 0, end, err
	}
	boost = e.backing.Boost()

	if cap(e.lastTerm) < len(term) {
		e.lastTerm = make([]byte, len(term))
	} else {
		e.lastTerm = e.lastTerm[:len(term)]
	}
	copy(e.lastTerm, term)
	e.lastTermSet = true

	if err := e.adapt(); err != nil {
		return nil, 0, false, err
	}
	return term, boost, false, nil
}

// K returns the enumerator's current nominal edit budget (for tests and
// diagnostics); a value greater than config.KMax means LINEAR mode.
func (e *AdaptiveFuzzyEnumerator) K() int { return e.k }

// Term returns the most recently emitted term, valid until the next call
// to Next.
func (e *AdaptiveFuzzyEnumerator) Term() []byte {
	if !e.lastTermSet {
		return nil
	}
	return e.lastTerm
}

// Boost returns the boost of the most recently emitted term.
func (e *AdaptiveFuzzyEnumerator) Boost() float64 { return e.backing.Boost() }

// DocFreq passes through the underlying cursor's document frequency for
// the current term.
func (e *AdaptiveFuzzyEnumerator) DocFreq() int64 { return e.cur.DocFreq() }

// Ord passes through the underlying cursor's ordinal for the current term.
func (e *AdaptiveFuzzyEnumerator) Ord() int64 { return e.cur.Ord() }

// adapt re-reads the competitive floor and, if it rose since last seen,
// shrinks k as far as MaxBoostAt proves non-competitive, swapping in a
// fresh AutomatonFuzzyMatcher (crossing from LINEAR into the ladder, or
// from one automaton rung to a smaller one) resumed strictly past the
// last emitted term.
func (e *AdaptiveFuzzyEnumerator) adapt() error {
	if e.floor == nil {
		return nil
	}
	beta := e.floor.Get()
	if beta <= e.lastFloorSeen {
		return nil
	}
	e.lastFloorSeen = beta

	patternLen := e.pattern.Len()
	newK := e.k
	for newK > 0 && e.config.MaxBoostAt(newK, patternLen) <= beta {
		newK--
	}
	if newK == e.k {
		return nil
	}
	oldK := e.k
	e.k = newK
	if newK > e.config.KMax {
		// Still beyond the ladder's ceiling: stay on the linear matcher,
		// just with the tightened budget recorded.
		return nil
	}

	if !e.lastTermSet {
		return nil
	}
	resumeKey := immediateSuccessor(e.lastTerm)
	m, err := NewAutomatonFuzzyMatcher(e.cur, e.pattern, e.config, e.ladder, newK, resumeKey, true)
	if err != nil {
		return err
	}
	e.backing = m
	e.logger.Debug("fuzzy enumerator swapped backing matcher",
		"old_k", oldK, "new_k", newK, "floor", beta, "resume_key", string(resumeKey))
	return nil
}

// immediateSuccessor returns the smallest byte string strictly greater
// than term (term followed by a 0x00 byte), used to resume a freshly
// swapped-in matcher strictly past the last term the old one emitted.
func immediateSuccessor(term []byte) []byte {
	return append(append([]byte{}, term...), 0x00)
}
