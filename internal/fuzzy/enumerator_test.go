package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAdaptiveFuzzyEnumerator_SelectsAutomatonMode(t *testing.T) {
	cur := newFakeCursor("helloworld")
	config, err := NewSimilarityConfigWithKMax(0.8, 5)
	require.NoError(t, err)
	e, err := NewAdaptiveFuzzyEnumerator(cur, "title", "helloworld", 0, config, nil, nil)
	require.NoError(t, err)
	// k0 = (1-0.8)*10 = 2, within KMax=5 -> automaton mode.
	require.Equal(t, 2, e.K())
}

func TestNewAdaptiveFuzzyEnumerator_SelectsLinearMode(t *testing.T) {
	cur := newFakeCursor("helloworld")
	config, err := NewSimilarityConfigWithKMax(0.1, 1)
	require.NoError(t, err)
	e, err := NewAdaptiveFuzzyEnumerator(cur, "title", "helloworld", 0, config, nil, nil)
	require.NoError(t, err)
	// k0 = (1-0.1)*10 = 9, exceeds KMax=1 -> linear mode.
	require.Equal(t, 9, e.K())
}

func TestNewAdaptiveFuzzyEnumerator_RejectsNegativePrefixLen(t *testing.T) {
	cur := newFakeCursor("hello")
	config, err := NewSimilarityConfig(0.5)
	require.NoError(t, err)
	_, err = NewAdaptiveFuzzyEnumerator(cur, "title", "hello", -1, config, nil, nil)
	require.ErrorIs(t, err, ErrInvalidPrefixLen)
}

func TestAdaptiveFuzzyEnumerator_ShrinksKAsFloorRises(t *testing.T) {
	cur := newFakeCursor("hello", "jello", "zzzzz")
	config, err := NewSimilarityConfigWithKMax(0.4, 3)
	require.NoError(t, err)
	floor := &CompetitiveFloor{}
	e, err := NewAdaptiveFuzzyEnumerator(cur, "title", "hello", 0, config, floor, nil)
	require.NoError(t, err)
	require.Equal(t, 3, e.K())

	term, boost, end, err := e.Next()
	require.NoError(t, err)
	require.False(t, end)
	require.Equal(t, "hello", string(term))
	require.Equal(t, "hello", string(e.Term()))
	require.Equal(t, boost, e.Boost())
	require.Equal(t, int64(1), e.DocFreq(), "DocFreq should pass through the underlying cursor")
	require.Equal(t, 3, e.K(), "K() should not shrink before the floor changes")

	// Raise the floor enough to make k=3 and k=2 both non-competitive
	// (MaxBoostAt(3,5)=0, MaxBoostAt(2,5)=0.333) but not k=1 (0.667).
	floor.Set(0.5)

	term, _, end, err = e.Next()
	require.NoError(t, err)
	require.False(t, end)
	require.Equal(t, "jello", string(term))
	require.Equal(t, 1, e.K(), "K() should shrink from 3 to 1 once the floor makes k=3 and k=2 non-competitive")

	// The swapped-in matcher resumes strictly past "jello"; "zzzzz" is far
	// outside any remaining budget, so enumeration should simply end.
	_, _, end, err = e.Next()
	require.NoError(t, err)
	require.True(t, end, "expected enumeration to end after the shrink, found no more competitive terms")
}

func TestAdaptiveFuzzyEnumerator_FloorNeverRisingKeepsK(t *testing.T) {
	cur := newFakeCursor("hello", "hallo", "mellow")
	config, err := NewSimilarityConfigWithKMax(0.4, 3)
	require.NoError(t, err)
	floor := &CompetitiveFloor{}
	e, err := NewAdaptiveFuzzyEnumerator(cur, "title", "hello", 0, config, floor, nil)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, _, end, err := e.Next()
		require.NoError(t, err)
		if end {
			break
		}
	}
	require.Equal(t, 3, e.K(), "floor never rose, budget should not shrink")
}

func TestAdaptiveFuzzyEnumerator_SwapsFromLinearToAutomatonAsFloorRises(t *testing.T) {
	cur := newFakeCursor("hello", "jello", "zzzzz")
	config, err := NewSimilarityConfigWithKMax(0.1, 1)
	require.NoError(t, err)
	floor := &CompetitiveFloor{}
	e, err := NewAdaptiveFuzzyEnumerator(cur, "title", "hello", 0, config, floor, nil)
	require.NoError(t, err)
	// k0 = (1-0.1)*5 = 4.5 -> 4, exceeds KMax=1 -> starts in linear mode.
	require.Greater(t, e.K(), config.KMax, "fixture must start in linear mode")

	term, _, end, err := e.Next()
	require.NoError(t, err)
	require.False(t, end)
	require.Equal(t, "hello", string(term))
	require.Greater(t, e.K(), config.KMax, "still linear mode before the floor changes")

	// MaxBoostAt(2,5)=0.556 <= 0.6 < MaxBoostAt(1,5)=0.778, so this raise
	// shrinks the budget down to k=1, inside the automaton ladder's KMax.
	floor.Set(0.6)

	term, _, end, err = e.Next()
	require.NoError(t, err)
	require.False(t, end)
	require.Equal(t, "jello", string(term), "still drawn from the linear matcher mid-call")
	require.LessOrEqual(t, e.K(), config.KMax, "should have swapped into automaton mode")

	// The swapped-in automaton matcher resumes strictly past "jello"; at
	// k=1, "zzzzz" is far outside budget, so enumeration should just end.
	_, _, end, err = e.Next()
	require.NoError(t, err)
	require.True(t, end, "expected enumeration to end after the swap, found no more competitive terms")
}

// drainEnumerator pulls every emission out of e, pairing terms with boosts.
func drainEnumerator(t *testing.T, e *AdaptiveFuzzyEnumerator) ([]string, []float64) {
	t.Helper()
	var terms []string
	var boosts []float64
	for {
		term, boost, end, err := e.Next()
		require.NoError(t, err)
		if end {
			return terms, boosts
		}
		terms = append(terms, string(term))
		boosts = append(boosts, boost)
	}
}

func TestAdaptiveFuzzyEnumerator_EmissionSetOrderAndBoost(t *testing.T) {
	cur := newFakeCursor("foobar", "foobaz", "foobart", "fxxxxx", "foo")
	config, err := NewSimilarityConfig(0.5)
	require.NoError(t, err)
	e, err := NewAdaptiveFuzzyEnumerator(cur, "title", "foobar", 0, config, nil, nil)
	require.NoError(t, err)

	terms, boosts := drainEnumerator(t, e)
	require.Equal(t, []string{"foobar", "foobart", "foobaz"}, terms)
	require.InDelta(t, 1.0, boosts[0], 1e-9)
	// "foobart" and "foobaz" are both one edit away: sim = 1 - 1/6.
	require.InDelta(t, (1-1.0/6-0.5)*2, boosts[1], 1e-9)
	require.InDelta(t, (1-1.0/6-0.5)*2, boosts[2], 1e-9)
}

func TestAdaptiveFuzzyEnumerator_RequiredPrefixAndStrictThreshold(t *testing.T) {
	cur := newFakeCursor("help", "hello", "hellos", "help!", "world")
	config, err := NewSimilarityConfig(0.8)
	require.NoError(t, err)
	e, err := NewAdaptiveFuzzyEnumerator(cur, "title", "hello", 2, config, nil, nil)
	require.NoError(t, err)
	// k0 = (1-0.8)*5 = 1, within the default ladder ceiling.
	require.Equal(t, 1, e.K())

	terms, boosts := drainEnumerator(t, e)
	// "hellos" sits at exactly sim = 0.8; the threshold is strict, so only
	// the exact match survives.
	require.Equal(t, []string{"hello"}, terms)
	require.InDelta(t, 1.0, boosts[0], 1e-9)
}

func TestAdaptiveFuzzyEnumerator_LongPatternLinearRejectsDistantTerm(t *testing.T) {
	cur := newFakeCursor("abcdefghijklmnop", "zzzzzzzzzzzzzzzz")
	config, err := NewSimilarityConfig(0.5)
	require.NoError(t, err)
	e, err := NewAdaptiveFuzzyEnumerator(cur, "title", "abcdefghijklmnop", 0, config, nil, nil)
	require.NoError(t, err)
	// k0 = 8, far beyond the ladder's ceiling: the linear DP path engages.
	require.Greater(t, e.K(), config.KMax)

	terms, _ := drainEnumerator(t, e)
	require.Equal(t, []string{"abcdefghijklmnop"}, terms)
}

func TestAdaptiveFuzzyEnumerator_TranspositionCountsAsTwoEdits(t *testing.T) {
	cur := newFakeCursor("abcd", "abdc")
	config, err := NewSimilarityConfig(0.6)
	require.NoError(t, err)
	e, err := NewAdaptiveFuzzyEnumerator(cur, "title", "abcd", 0, config, nil, nil)
	require.NoError(t, err)

	terms, _ := drainEnumerator(t, e)
	// "abdc" is a swap of adjacent characters: two edits under
	// insert/delete/substitute, so sim = 0.5 and it must not be emitted.
	require.Equal(t, []string{"abcd"}, terms)
}

func TestAdaptiveFuzzyEnumerator_EmptyPatternEmitsOnlyEmptyTerm(t *testing.T) {
	cur := newFakeCursor("", "a", "b")
	config, err := NewSimilarityConfig(0.5)
	require.NoError(t, err)
	e, err := NewAdaptiveFuzzyEnumerator(cur, "title", "", 0, config, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 0, e.K())

	terms, boosts := drainEnumerator(t, e)
	require.Equal(t, []string{""}, terms)
	require.InDelta(t, 1.0, boosts[0], 1e-9)
}

func TestAdaptiveFuzzyEnumerator_LinearBudgetTightensWithoutSwap(t *testing.T) {
	cur := newFakeCursor("programmers", "programming")
	config, err := NewSimilarityConfigWithKMax(0.3, 2)
	require.NoError(t, err)
	floor := &CompetitiveFloor{}
	e, err := NewAdaptiveFuzzyEnumerator(cur, "title", "programming", 0, config, floor, nil)
	require.NoError(t, err)
	// k0 = (1-0.3)*11 = 7, far above KMax=2: linear mode.
	require.Equal(t, 7, e.K())

	term, _, end, err := e.Next()
	require.NoError(t, err)
	require.False(t, end)
	require.Equal(t, "programmers", string(term))

	// MaxBoostAt(5,11)=0.35 <= 0.4 < MaxBoostAt(4,11)=0.48: the budget
	// tightens to 4, which is still beyond the ladder, so the backing
	// matcher stays linear — but K() must report the tightened budget.
	floor.Set(0.4)

	term, _, end, err = e.Next()
	require.NoError(t, err)
	require.False(t, end)
	require.Equal(t, "programming", string(term))
	require.Equal(t, 4, e.K(), "K() should report the tightened budget even while parked in linear mode")
	require.Greater(t, e.K(), config.KMax, "still linear: no automaton matcher exists for k=4")
}

func TestAdaptiveFuzzyEnumerator_NilFloorNeverAdapts(t *testing.T) {
	cur := newFakeCursor("hello", "jello")
	config, err := NewSimilarityConfigWithKMax(0.4, 3)
	require.NoError(t, err)
	e, err := NewAdaptiveFuzzyEnumerator(cur, "title", "hello", 0, config, nil, nil)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, _, end, err := e.Next()
		require.NoError(t, err)
		if end {
			break
		}
	}
	require.Equal(t, 3, e.K(), "nil floor must never trigger adapt")
}
