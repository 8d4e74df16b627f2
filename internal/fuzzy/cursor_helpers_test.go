package fuzzy

import (
	"bytes"
	"sort"
)

// fakeCursor is a minimal in-memory TermCursor for exercising the fuzzy
// package's matchers without depending on internal/index (which itself
// depends on this package).
type fakeCursor struct {
	terms [][]byte
	pos   int
}

func newFakeCursor(terms ...string) *fakeCursor {
	sorted := append([]string(nil), terms...)
	sort.Strings(sorted)
	b := make([][]byte, len(sorted))
	for i, s := range sorted {
		b[i] = []byte(s)
	}
	return &fakeCursor{terms: b, pos: -1}
}

func (c *fakeCursor) Seek(key []byte) (SeekResult, error) {
	idx := sort.Search(len(c.terms), func(i int) bool {
		return bytes.Compare(c.terms[i], key) >= 0
	})
	c.pos = idx
	if idx >= len(c.terms) {
		return SeekEnd, nil
	}
	if bytes.Equal(c.terms[idx], key) {
		return SeekFoundExact, nil
	}
	return SeekFoundGreater, nil
}

func (c *fakeCursor) Next() (bool, error) {
	c.pos++
	return c.pos < len(c.terms), nil
}

func (c *fakeCursor) Term() []byte  { return c.terms[c.pos] }
func (c *fakeCursor) DocFreq() int64 { return 1 }
func (c *fakeCursor) Ord() int64     { return int64(c.pos) }

// drain pulls every term out of a backingMatcher, returning them in the
// order emitted.
func drain(m backingMatcher) ([]string, error) {
	var out []string
	for {
		term, end, err := m.Next()
		if err != nil {
			return out, err
		}
		if end {
			return out, nil
		}
		out = append(out, string(term))
	}
}
