package fuzzy

import "bytes"

// typicalLongest bounds the precomputed maxDistance(m) cache: a small
// cache of maxDistance(m) for m below this length is precomputed, and
// larger m computes on demand.
const typicalLongest = 19

// LinearFuzzyMatcher is the fallback path used once the initial edit
// budget exceeds the automaton ladder's K_MAX. It scans the
// literal-prefix sub-range directly and runs a banded Levenshtein DP with
// row-monotone early abort, instead of building a (k > K_MAX)-sized DFA.
type LinearFuzzyMatcher struct {
	pattern Pattern
	config  SimilarityConfig

	prefixBytes []byte
	suffix      []rune // Ws
	n           int    // len(Ws)
	l           int    // L

	dp           [][]int // first dim fixed at n+1; second dim grows on demand
	maxDistCache []int

	cur     TermCursor
	started bool
	boost   float64
}

// NewLinearFuzzyMatcher builds a matcher scanning cur's literal-prefix
// sub-range for pattern under config.
func NewLinearFuzzyMatcher(cur TermCursor, pattern Pattern, config SimilarityConfig) *LinearFuzzyMatcher {
	n := len(pattern.SuffixRunes())
	m := &LinearFuzzyMatcher{
		pattern:     pattern,
		config:      config,
		prefixBytes: pattern.PrefixBytes(),
		suffix:      pattern.SuffixRunes(),
		n:           n,
		l:           pattern.PrefixLen(),
		cur:         cur,
		dp:          make([][]int, n+1),
	}
	for i := range m.dp {
		m.dp[i] = make([]int, typicalLongest+1)
	}
	m.maxDistCache = make([]int, typicalLongest)
	for mm := range m.maxDistCache {
		m.maxDistCache[mm] = m.computeMaxDistance(mm)
	}
	return m
}

func (m *LinearFuzzyMatcher) computeMaxDistance(candidateLen int) int {
	minNM := m.n
	if candidateLen < minNM {
		minNM = candidateLen
	}
	return int((1 - m.config.SMin) * float64(minNM+m.l))
}

func (m *LinearFuzzyMatcher) maxDistance(candidateLen int) int {
	if candidateLen < len(m.maxDistCache) {
		return m.maxDistCache[candidateLen]
	}
	return m.computeMaxDistance(candidateLen)
}

func (m *LinearFuzzyMatcher) ensureCols(cols int) {
	if len(m.dp[0]) >= cols+1 {
		return
	}
	for i := range m.dp {
		grown := make([]int, cols+1)
		copy(grown, m.dp[i])
		m.dp[i] = grown
	}
}

// similarity computes sim(T̂, W), given y = T̂[L:].
func (m *LinearFuzzyMatcher) similarity(y []rune) float64 {
	n := m.n
	mm := len(y)

	if n == 0 {
		if m.l == 0 {
			return 0
		}
		return 1 - float64(mm)/float64(m.l)
	}
	if mm == 0 {
		if m.l == 0 {
			return 0
		}
		return 1 - float64(n)/float64(m.l)
	}

	maxDist := m.maxDistance(mm)
	diff := mm - n
	if diff < 0 {
		diff = -diff
	}
	if maxDist < diff {
		return 0
	}

	m.ensureCols(mm)
	dp := m.dp
	x := m.suffix

	for j := 0; j <= mm; j++ {
		dp[0][j] = j
	}
	for i := 1; i <= n; i++ {
		dp[i][0] = i
		rowMin := dp[i][0]
		for j := 1; j <= mm; j++ {
			cost := 0
			if x[i-1] != y[j-1] {
				cost = 1
			}
			v := dp[i-1][j] + 1 // deletion
			if ins := dp[i][j-1] + 1; ins < v {
				v = ins
			}
			if sub := dp[i-1][j-1] + cost; sub < v {
				v = sub
			}
			dp[i][j] = v
			if v < rowMin {
				rowMin = v
			}
		}
		if i > maxDist && rowMin > maxDist {
			return 0
		}
	}
	minNM := n
	if mm < minNM {
		minNM = mm
	}
	return 1 - float64(dp[n][mm])/float64(m.l+minNM)
}

// accept implements the accept(T) contract.
func (m *LinearFuzzyMatcher) accept(term []byte) AcceptStatus {
	if !bytes.HasPrefix(term, m.prefixBytes) {
		return AcceptEnd
	}
	that := []rune(string(term))
	y := that[m.l:]
	sim := m.similarity(y)
	if sim > m.config.SMin {
		m.boost = m.config.Boost(sim)
		return AcceptYes
	}
	return AcceptNo
}

// Next advances to the next accepted term, satisfying the same
// next()/term()/boost() shape as AutomatonFuzzyMatcher so
// AdaptiveFuzzyEnumerator can treat both uniformly.
func (m *LinearFuzzyMatcher) Next() (term []byte, end bool, err error) {
	for {
		if !m.started {
			m.started = true
			res, err := m.cur.Seek(m.prefixBytes)
			if err != nil {
				return nil, false, err
			}
			if res == SeekEnd {
				return nil, true, nil
			}
		} else {
			ok, err := m.cur.Next()
			if err != nil {
				return nil, false, err
			}
			if !ok {
				return nil, true, nil
			}
		}

		term = append([]byte(nil), m.cur.Term()...)
		switch m.accept(term) {
		case AcceptYes:
			return term, false, nil
		case AcceptEnd:
			return nil, true, nil
		default: // AcceptNo
		}
	}
}

// Boost returns the boost computed for the most recently returned term.
func (m *LinearFuzzyMatcher) Boost() float64 { return m.boost }
