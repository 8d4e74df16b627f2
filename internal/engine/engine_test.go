package engine

import (
	"testing"
	"time"
)

func drainDocs(t *testing.T, it PostingsIterator) []uint32 {
	t.Helper()
	var docs []uint32
	for it.Next() {
		docs = append(docs, it.DocID())
	}
	return docs
}

func expectDocs(t *testing.T, got, want []uint32) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d docs (%v), want %d (%v)", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("doc[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestSlicePostingsIterator_WalksInOrder(t *testing.T) {
	it := NewSlicePostingsIterator([]uint32{1, 3, 5, 7}, []uint32{2, 1, 3, 1})
	expectDocs(t, drainDocs(t, it), []uint32{1, 3, 5, 7})
}

func TestSlicePostingsIterator_AdvanceSkipsAndStops(t *testing.T) {
	it := NewSlicePostingsIterator([]uint32{1, 3, 5, 7, 9}, nil)

	if !it.Advance(4) {
		t.Fatal("Advance(4) should land on a doc >= 4")
	}
	if it.DocID() != 5 {
		t.Errorf("DocID = %d, want 5", it.DocID())
	}

	if !it.Advance(7) {
		t.Fatal("Advance(7) should land on doc 7")
	}
	if it.DocID() != 7 {
		t.Errorf("DocID = %d, want 7", it.DocID())
	}

	if it.Advance(100) {
		t.Error("Advance past the end should report false")
	}
}

func TestSlicePostingsIterator_EmptyList(t *testing.T) {
	it := NewSlicePostingsIterator(nil, nil)
	if it.Next() {
		t.Error("iterator over an empty list should be exhausted immediately")
	}
}

func TestSlicePostingsIterator_FrequenciesTrackPosition(t *testing.T) {
	it := NewSlicePostingsIterator([]uint32{1, 2}, []uint32{5, 10})
	it.Next()
	if it.Freq() != 5 {
		t.Errorf("Freq = %d, want 5", it.Freq())
	}
	it.Next()
	if it.Freq() != 10 {
		t.Errorf("Freq = %d, want 10", it.Freq())
	}
}

func TestSlicePostingsIterator_CostCountsRemaining(t *testing.T) {
	it := NewSlicePostingsIterator([]uint32{1, 2, 3, 4, 5}, nil)
	it.Next()
	if it.Cost() != 4 {
		t.Errorf("Cost after one step = %d, want 4", it.Cost())
	}
}

func TestConjunction_IntersectsTwoLists(t *testing.T) {
	a := NewSlicePostingsIterator([]uint32{1, 2, 3, 5, 7}, nil)
	b := NewSlicePostingsIterator([]uint32{2, 3, 4, 5, 8}, nil)

	conj := NewConjunctionIterator([]PostingsIterator{a, b})
	expectDocs(t, drainDocs(t, conj), []uint32{2, 3, 5})
}

func TestConjunction_DisjointListsYieldNothing(t *testing.T) {
	a := NewSlicePostingsIterator([]uint32{1, 3, 5}, nil)
	b := NewSlicePostingsIterator([]uint32{2, 4, 6}, nil)

	conj := NewConjunctionIterator([]PostingsIterator{a, b})
	if conj.Next() {
		t.Error("disjoint lists must intersect to nothing")
	}
}

func TestConjunction_ThreeLists(t *testing.T) {
	a := NewSlicePostingsIterator([]uint32{1, 2, 3, 4, 5}, nil)
	b := NewSlicePostingsIterator([]uint32{2, 3, 5}, nil)
	c := NewSlicePostingsIterator([]uint32{3, 5, 7}, nil)

	conj := NewConjunctionIterator([]PostingsIterator{a, b, c})
	expectDocs(t, drainDocs(t, conj), []uint32{3, 5})
}

func TestConjunction_Advance(t *testing.T) {
	a := NewSlicePostingsIterator([]uint32{1, 3, 5, 7, 9}, nil)
	b := NewSlicePostingsIterator([]uint32{1, 3, 5, 7, 9}, nil)

	conj := NewConjunctionIterator([]PostingsIterator{a, b})
	if !conj.Advance(5) {
		t.Fatal("Advance(5) should succeed")
	}
	if conj.DocID() != 5 {
		t.Errorf("DocID = %d, want 5", conj.DocID())
	}
}

func TestDisjunction_MergesInDocOrder(t *testing.T) {
	a := NewSlicePostingsIterator([]uint32{1, 3, 5}, nil)
	b := NewSlicePostingsIterator([]uint32{2, 3, 6}, nil)

	disj := NewDisjunctionIterator([]PostingsIterator{a, b})
	expectDocs(t, drainDocs(t, disj), []uint32{1, 2, 3, 5, 6})
}

func TestDisjunction_EmitsSharedDocsOnce(t *testing.T) {
	a := NewSlicePostingsIterator([]uint32{1, 2, 3}, nil)
	b := NewSlicePostingsIterator([]uint32{1, 2, 3}, nil)

	disj := NewDisjunctionIterator([]PostingsIterator{a, b})
	expectDocs(t, drainDocs(t, disj), []uint32{1, 2, 3})
}

func TestDisjunction_NoChildren(t *testing.T) {
	disj := NewDisjunctionIterator(nil)
	if disj.Next() {
		t.Error("a childless union should be exhausted immediately")
	}
}

func TestDisjunction_Advance(t *testing.T) {
	a := NewSlicePostingsIterator([]uint32{1, 5, 10}, nil)
	b := NewSlicePostingsIterator([]uint32{3, 7, 10}, nil)

	disj := NewDisjunctionIterator([]PostingsIterator{a, b})
	if !disj.Advance(6) {
		t.Fatal("Advance(6) should succeed")
	}
	if disj.DocID() != 7 {
		t.Errorf("DocID = %d, want 7", disj.DocID())
	}
}

func TestTopKCollector_KeepsTheBestK(t *testing.T) {
	c := NewTopKCollector(3)

	c.Collect(1, 1.0)
	c.Collect(2, 3.0)
	c.Collect(3, 2.0)
	c.Collect(4, 5.0)
	c.Collect(5, 4.0)

	results := c.Results()
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	wantScores := []float32{5.0, 4.0, 3.0}
	for i, r := range results {
		if r.Score != wantScores[i] {
			t.Errorf("result[%d].Score = %f, want %f", i, r.Score, wantScores[i])
		}
	}
}

func TestTopKCollector_UnderfilledReturnsAll(t *testing.T) {
	c := NewTopKCollector(10)
	c.Collect(1, 1.0)
	c.Collect(2, 2.0)

	if got := len(c.Results()); got != 2 {
		t.Fatalf("expected 2 results, got %d", got)
	}
}

func TestTopKCollector_NothingCollected(t *testing.T) {
	c := NewTopKCollector(10)
	if got := len(c.Results()); got != 0 {
		t.Errorf("expected 0 results, got %d", got)
	}
}

func TestTopKCollector_MinScoreTracksTheFloor(t *testing.T) {
	c := NewTopKCollector(2)
	c.Collect(1, 5.0)
	if c.MinScore() != 0 {
		t.Errorf("MinScore before the collector fills = %f, want 0", c.MinScore())
	}

	c.Collect(2, 3.0)
	if c.MinScore() != 3.0 {
		t.Errorf("MinScore = %f, want 3.0", c.MinScore())
	}

	// A stronger hit evicts the weakest and raises the floor.
	c.Collect(3, 10.0)
	if c.MinScore() != 5.0 {
		t.Errorf("MinScore after eviction = %f, want 5.0", c.MinScore())
	}
}

func TestExecutionContext_StateBudget(t *testing.T) {
	ctx := NewExecutionContext(time.Minute, 5, 1000)
	ctx.StatesVisited = 5
	if err := ctx.CheckLimits(); err != ErrStateLimitExceeded {
		t.Errorf("expected ErrStateLimitExceeded, got %v", err)
	}
}

func TestExecutionContext_TermBudget(t *testing.T) {
	ctx := NewExecutionContext(time.Minute, 10000, 5)
	ctx.TermsMatched = 5
	if err := ctx.CheckLimits(); err != ErrMatchLimitExceeded {
		t.Errorf("expected ErrMatchLimitExceeded, got %v", err)
	}
}

func TestExecutionContext_WithinBudgets(t *testing.T) {
	ctx := NewExecutionContext(time.Minute, 10000, 1000)
	ctx.StatesVisited = 1
	ctx.TermsMatched = 1
	if err := ctx.CheckLimits(); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestExecutionContext_DeadlineFires(t *testing.T) {
	ctx := NewExecutionContext(1*time.Nanosecond, 10000, 1000)
	time.Sleep(time.Millisecond)
	// Land on the amortized time-check boundary.
	ctx.checkCounter = ctx.checkInterval - 1
	if err := ctx.CheckLimits(); err != ErrQueryTimeout {
		t.Errorf("expected ErrQueryTimeout, got %v", err)
	}
}
