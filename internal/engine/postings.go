package engine

// PostingsIterator walks one term's postings in ascending document order.
type PostingsIterator interface {
	// Next advances one document; false means exhausted.
	Next() bool

	// DocID is the current document. Valid only after a true Next/Advance.
	DocID() uint32

	// Freq is the term's frequency within the current document.
	Freq() uint32

	// Advance jumps to the first document >= target; false means none left.
	Advance(target uint32) bool

	// Cost estimates how many documents remain, for lead selection.
	Cost() int64
}

// SlicePostingsIterator is the trivial in-memory PostingsIterator: two
// parallel slices, no compression, used for freshly buffered (uncommitted)
// postings and in tests.
type SlicePostingsIterator struct {
	docIDs []uint32
	freqs  []uint32
	pos    int
}

// NewSlicePostingsIterator wraps docIDs (sorted ascending) and their
// parallel freqs. A nil freqs defaults every frequency to 1.
func NewSlicePostingsIterator(docIDs, freqs []uint32) *SlicePostingsIterator {
	return &SlicePostingsIterator{
		docIDs: docIDs,
		freqs:  freqs,
		pos:    -1,
	}
}

func (it *SlicePostingsIterator) Next() bool {
	it.pos++
	return it.pos < len(it.docIDs)
}

func (it *SlicePostingsIterator) DocID() uint32 {
	return it.docIDs[it.pos]
}

func (it *SlicePostingsIterator) Freq() uint32 {
	if it.freqs == nil || it.pos >= len(it.freqs) {
		return 1
	}
	return it.freqs[it.pos]
}

func (it *SlicePostingsIterator) Advance(target uint32) bool {
	if it.pos >= 0 && it.pos < len(it.docIDs) && it.docIDs[it.pos] >= target {
		return true
	}
	for it.pos+1 < len(it.docIDs) {
		it.pos++
		if it.docIDs[it.pos] >= target {
			return true
		}
	}
	it.pos = len(it.docIDs)
	return false
}

func (it *SlicePostingsIterator) Cost() int64 {
	remaining := len(it.docIDs) - it.pos - 1
	if remaining < 0 {
		return 0
	}
	return int64(remaining)
}
