package index

import (
	"bytes"
	"errors"
	"sort"

	"lexisearch/internal/fuzzy"
)

// ErrTermsNotSorted is returned by NewInMemoryTermCursor when the supplied
// terms are not in strictly increasing byte-lexicographic order.
var ErrTermsNotSorted = errors.New("index: terms must be sorted and unique")

// InMemoryTermCursor is a simple in-memory fuzzy.TermCursor backed by
// slices, the same idiom as engine.SlicePostingsIterator applied to a
// sorted term dictionary rather than a postings list. It is the concrete
// stand-in for the term dictionary/index reader the fuzzy package only
// consumes, used by the surrounding query engine and by fuzzy's own tests.
type InMemoryTermCursor struct {
	terms   [][]byte
	docFreq []int64
	pos     int // -1 before the first Seek
}

// NewInMemoryTermCursor builds a cursor over terms, which must already be
// sorted ascending and unique. docFreq, if non-nil, must be the same
// length as terms.
func NewInMemoryTermCursor(terms [][]byte, docFreq []int64) (*InMemoryTermCursor, error) {
	for i := 1; i < len(terms); i++ {
		if bytes.Compare(terms[i-1], terms[i]) >= 0 {
			return nil, ErrTermsNotSorted
		}
	}
	return &InMemoryTermCursor{
		terms:   terms,
		docFreq: docFreq,
		pos:     -1,
	}, nil
}

// Seek advances to the first term >= key.
func (c *InMemoryTermCursor) Seek(key []byte) (fuzzy.SeekResult, error) {
	idx := sort.Search(len(c.terms), func(i int) bool {
		return bytes.Compare(c.terms[i], key) >= 0
	})
	c.pos = idx
	if idx >= len(c.terms) {
		return fuzzy.SeekEnd, nil
	}
	if bytes.Equal(c.terms[idx], key) {
		return fuzzy.SeekFoundExact, nil
	}
	return fuzzy.SeekFoundGreater, nil
}

// Next advances one position. Returns false at end of stream.
func (c *InMemoryTermCursor) Next() (bool, error) {
	c.pos++
	return c.pos < len(c.terms), nil
}

// Term returns the bytes at the current position.
func (c *InMemoryTermCursor) Term() []byte {
	return c.terms[c.pos]
}

// DocFreq passes through the current term's document frequency.
func (c *InMemoryTermCursor) DocFreq() int64 {
	if c.docFreq == nil || c.pos >= len(c.docFreq) {
		return 0
	}
	return c.docFreq[c.pos]
}

// Ord returns the current term's ordinal position.
func (c *InMemoryTermCursor) Ord() int64 {
	return int64(c.pos)
}
