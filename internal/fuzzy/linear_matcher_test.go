package fuzzy

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func TestLinearFuzzyMatcher_EmitsWithinThreshold(t *testing.T) {
	cur := newFakeCursor("hel", "hella", "hello", "helloo", "help", "world")
	pattern := NewPattern("title", "hello", 0)
	config, err := NewSimilarityConfigWithKMax(0.5, 0)
	require.NoError(t, err)

	m := NewLinearFuzzyMatcher(cur, pattern, config)
	got, err := drain(m)
	require.NoError(t, err)

	want := []string{"hella", "hello", "helloo"}
	if diff := cmp.Diff(want, got, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Errorf("emitted terms mismatch (-want +got):\n%s", diff)
	}
}

func TestLinearFuzzyMatcher_StopsAtPrefixBoundary(t *testing.T) {
	// With a literal prefix "he", only "he*" terms are in-range; "world"
	// must never even be visited/considered.
	cur := newFakeCursor("he", "hello", "help", "world", "zzz")
	pattern := NewPattern("title", "hello", 2) // L=2, Wp="he", Ws="llo"
	config, err := NewSimilarityConfigWithKMax(0.3, 0)
	require.NoError(t, err)

	m := NewLinearFuzzyMatcher(cur, pattern, config)
	got, err := drain(m)
	require.NoError(t, err)
	require.NotContains(t, got, "world")
	require.NotContains(t, got, "zzz")
}

func TestLinearFuzzyMatcher_BoostForExactMatch(t *testing.T) {
	cur := newFakeCursor("cat")
	pattern := NewPattern("title", "cat", 0)
	config, err := NewSimilarityConfigWithKMax(0.1, 0)
	require.NoError(t, err)

	m := NewLinearFuzzyMatcher(cur, pattern, config)
	term, end, err := m.Next()
	require.NoError(t, err)
	require.False(t, end)
	require.Equal(t, "cat", string(term))
	require.InDelta(t, 1.0, m.Boost(), 1e-9)
}

func TestLinearFuzzyMatcher_EmptySuffixPattern(t *testing.T) {
	// L == |W|: the whole pattern is a mandatory literal prefix, Ws is empty.
	cur := newFakeCursor("cat", "cats", "catalog")
	pattern := NewPattern("title", "cat", 10) // clamps to L=3
	config, err := NewSimilarityConfigWithKMax(0.1, 0)
	require.NoError(t, err)

	m := NewLinearFuzzyMatcher(cur, pattern, config)
	term, end, err := m.Next()
	require.NoError(t, err)
	require.False(t, end)
	require.Equal(t, "cat", string(term))
}
