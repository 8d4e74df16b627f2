package engine

import (
	"container/heap"
	"log/slog"

	"lexisearch/internal/fuzzy"
	"lexisearch/internal/query"
)

// fuzzyExactSMin is used in place of s_min=1 (rejected by
// fuzzy.NewSimilarityConfig, which requires s_min < 1) when a FuzzyQuery
// asks for MaxDistance<=0. It forces the ladder's initial edit budget k0
// to 0 for any realistic term length, so only exact matches are emitted —
// the same effect MaxDistance=0 has in Lucene-family fuzzy queries.
const fuzzyExactSMin = 1 - 1e-9

// RunFuzzyQuery expands fq against cur, invoking onMatch once per accepted
// term with its boost. It gives query.FuzzyQuery — previously a dead AST
// node with no executor — and the similarity-threshold conversion a real
// caller, adapting a fuzzy.SimilarityConfig from fq's MaxDistance the way
// bluge-family fuzzy queries derive a similarity floor from an edit-distance
// budget: s_min = 1 - maxDistance/termLength.
//
// onMatch is called while the underlying AdaptiveFuzzyEnumerator is still
// running, not after collecting every match into a slice, so a caller that
// threads floor through a BoostFloor (via floor.Set(boostWindow.Observe(boost))
// between calls) gets the adaptive narrowing: once the best-boosts-seen
// window fills and its minimum rises past what a given edit distance could
// ever score, the enumerator swaps to a tighter automaton or drops out of
// LINEAR mode. The floor must stay on the same (0,1] boost scale
// AdaptiveFuzzyEnumerator.adapt compares it against — feeding it a
// document-level score from an unrelated scale (e.g. BM25Scorer.Score,
// unbounded) would make the floor look competitive-exhausted after the
// very first hit.
//
// logger may be nil, in which case slog.Default() is used; it is passed
// straight through to fuzzy.NewAdaptiveFuzzyEnumerator, which logs
// construction and adaptive backing-matcher swaps at Debug.
func RunFuzzyQuery(cur fuzzy.TermCursor, fq *query.FuzzyQuery, floor *fuzzy.CompetitiveFloor, ctx *ExecutionContext, logger *slog.Logger, onMatch func(term []byte, boost float32) error) error {
	if err := fq.Validate(); err != nil {
		return err
	}

	termLen := len([]rune(fq.Term))

	sMin := 0.0
	switch {
	case termLen == 0:
		sMin = 0
	case fq.MaxDistance <= 0:
		sMin = fuzzyExactSMin
	default:
		sMin = 1 - float64(fq.MaxDistance)/float64(termLen)
		if sMin < 0 {
			sMin = 0
		}
	}

	config, err := fuzzy.NewSimilarityConfig(sMin)
	if err != nil {
		return err
	}

	enumerator, err := fuzzy.NewAdaptiveFuzzyEnumerator(cur, fq.Field, fq.Term, fq.PrefixLength, config, floor, logger)
	if err != nil {
		return err
	}

	boost := fq.Boost
	if boost == 0 {
		boost = 1
	}

	expanded := 0
	for {
		if err := ctx.CheckLimits(); err != nil {
			return err
		}
		if expanded >= query.MaxFuzzyExpansion {
			return nil
		}
		term, sim, end, err := enumerator.Next()
		if err != nil {
			return err
		}
		if end {
			return nil
		}
		ctx.TermsMatched++
		expanded++
		if err := onMatch(term, boost*float32(sim)); err != nil {
			return err
		}
	}
}

// BoostFloor tracks the capacity best fuzzy-match boosts observed so far,
// on the same (0,1] scale RunFuzzyQuery's onMatch reports boosts in. Its
// shape mirrors scoreHeap (collector.go): a bounded min-heap where the
// root is always the worst of the best-so-far. Unlike TopKCollector, which
// ranks whole documents by a scorer-specific score, BoostFloor ranks the
// fuzzy term boosts directly, so its minimum can be fed straight into
// fuzzy.CompetitiveFloor without any scale conversion.
type BoostFloor struct {
	capacity int
	h        boostHeap
}

// NewBoostFloor creates a BoostFloor that tracks the best capacity boosts.
// capacity <= 0 defaults to 10, matching NewTopKCollector's convention.
func NewBoostFloor(capacity int) *BoostFloor {
	if capacity <= 0 {
		capacity = 10
	}
	return &BoostFloor{capacity: capacity, h: make(boostHeap, 0, capacity)}
}

// Observe records a newly emitted boost and returns the current floor
// value: 0 until capacity boosts have been observed (nothing is
// non-competitive yet), and the smallest of the capacity-best boosts seen
// so far from then on.
func (b *BoostFloor) Observe(boost float32) float64 {
	if b.h.Len() < b.capacity {
		heap.Push(&b.h, boost)
	} else if boost > b.h[0] {
		b.h[0] = boost
		heap.Fix(&b.h, 0)
	}
	if b.h.Len() < b.capacity {
		return 0
	}
	return float64(b.h[0])
}

// boostHeap is a min-heap of float32 boosts.
type boostHeap []float32

func (h boostHeap) Len() int            { return len(h) }
func (h boostHeap) Less(i, j int) bool   { return h[i] < h[j] }
func (h boostHeap) Swap(i, j int)        { h[i], h[j] = h[j], h[i] }
func (h *boostHeap) Push(x any)          { *h = append(*h, x.(float32)) }
func (h *boostHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
