package fuzzy

// Ladder is the lazily built, exactly-once-per-enumerator sequence
// A[0..k] = concat(literal(Wp), Lev_i(Ws)). Each A[i] doubles as
// its own runnable matcher R[i] (PrefixedAutomaton implements both
// RuneAutomaton and RunnableMatcher). Built entries are cached, so
// building up to k and later up to k' > k reuses A[0..k] unchanged —
// building the ladder is idempotent.
type Ladder struct {
	prefix []rune
	suffix []rune
	kMax   int
	built  []*PrefixedAutomaton
}

// NewLadder creates an empty ladder capable of building automata for any
// edit budget in [0, kMax].
func NewLadder(prefix, suffix []rune, kMax int) *Ladder {
	return &Ladder{
		prefix: prefix,
		suffix: suffix,
		kMax:   kMax,
		built:  make([]*PrefixedAutomaton, kMax+1),
	}
}

// At returns A[k] (building it if this is the first request), or
// ErrDistanceTooLarge if k exceeds the ladder's K_MAX.
func (l *Ladder) At(k int) (*PrefixedAutomaton, error) {
	if k < 0 || k > l.kMax {
		return nil, ErrDistanceTooLarge
	}
	if l.built[k] != nil {
		return l.built[k], nil
	}
	lev, err := newLevenshteinDFA(l.suffix, k)
	if err != nil {
		return nil, err
	}
	a := newPrefixedAutomaton(l.prefix, lev)
	l.built[k] = a
	return a, nil
}

// KMax returns the ladder's edit-distance ceiling.
func (l *Ladder) KMax() int { return l.kMax }
