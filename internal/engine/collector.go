package engine

import "container/heap"

// ScoredDoc pairs a document with its relevance score.
type ScoredDoc struct {
	DocID uint32
	Score float32
}

// TopKCollector keeps the K best-scoring documents seen so far in a
// bounded min-heap; the heap root is always the weakest retained hit, so
// a candidate either beats it and replaces it or is dropped in O(1).
type TopKCollector struct {
	k        int
	h        scoreHeap
	minScore float32
}

// NewTopKCollector builds a collector holding at most k documents
// (k <= 0 falls back to 10).
func NewTopKCollector(k int) *TopKCollector {
	if k <= 0 {
		k = 10
	}
	return &TopKCollector{
		k: k,
		h: make(scoreHeap, 0, k),
	}
}

// Collect offers one scored document to the collector.
func (c *TopKCollector) Collect(docID uint32, score float32) {
	if c.h.Len() < c.k {
		heap.Push(&c.h, ScoredDoc{DocID: docID, Score: score})
		if c.h.Len() == c.k {
			c.minScore = c.h[0].Score
		}
	} else if score > c.minScore {
		c.h[0] = ScoredDoc{DocID: docID, Score: score}
		heap.Fix(&c.h, 0)
		c.minScore = c.h[0].Score
	}
}

// MinScore is the weakest retained score once the collector is full, and
// 0 before that — i.e. the score a new candidate must beat to matter.
func (c *TopKCollector) MinScore() float32 {
	return c.minScore
}

// Len is how many documents are currently retained.
func (c *TopKCollector) Len() int {
	return c.h.Len()
}

// Results drains the collector, returning hits sorted best-first.
func (c *TopKCollector) Results() []ScoredDoc {
	result := make([]ScoredDoc, c.h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&c.h).(ScoredDoc)
	}
	return result
}

// scoreHeap is a min-heap of ScoredDoc ordered by score.
type scoreHeap []ScoredDoc

func (h scoreHeap) Len() int            { return len(h) }
func (h scoreHeap) Less(i, j int) bool   { return h[i].Score < h[j].Score }
func (h scoreHeap) Swap(i, j int)        { h[i], h[j] = h[j], h[i] }
func (h *scoreHeap) Push(x any)          { *h = append(*h, x.(ScoredDoc)) }
func (h *scoreHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
