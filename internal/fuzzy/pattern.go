// Package fuzzy implements the pattern-parameterized Levenshtein matching
// engine behind fuzzy term expansion: a DFA ladder for small edit budgets,
// a fail-fast DP fallback for larger ones, and an adaptive enumerator that
// tightens the ladder as a consumer's competitive-boost floor rises.
//
// The package never touches the term dictionary, query execution, or
// storage directly — it consumes a TermCursor contract (see term_cursor.go)
// and exposes emitted terms with their boosts through AdaptiveFuzzyEnumerator.
package fuzzy

import "unicode/utf8"

// Pattern is the immutable query term and the prefix constraint every
// accepted term must satisfy.
type Pattern struct {
	Field string
	Text  string // original UTF-8 pattern text, W

	w      []rune // W as a Unicode scalar sequence
	prefix []rune // Wp = W[0:L)
	suffix []rune // Ws = W[L:|W|)
	l      int    // L = min(prefixLen, |W|)
}

// NewPattern builds a Pattern, deriving the effective prefix length L,
// prefix Wp, and suffix Ws from text and the requested prefixLen.
//
// prefixLen < 0 is rejected by NewAdaptiveFuzzyEnumerator
// (ErrInvalidPrefixLen); NewPattern itself clamps prefixLen into [0,|W|].
func NewPattern(field, text string, prefixLen int) Pattern {
	w := []rune(text)
	l := prefixLen
	if l > len(w) {
		l = len(w)
	}
	if l < 0 {
		l = 0
	}
	p := Pattern{
		Field: field,
		Text:  text,
		w:     w,
		l:     l,
	}
	p.prefix = append([]rune(nil), w[:l]...)
	p.suffix = append([]rune(nil), w[l:]...)
	return p
}

// Runes returns W as a Unicode scalar sequence.
func (p Pattern) Runes() []rune { return p.w }

// PrefixRunes returns Wp, the mandatory literal prefix.
func (p Pattern) PrefixRunes() []rune { return p.prefix }

// SuffixRunes returns Ws = W[L:], the portion subject to edit-distance matching.
func (p Pattern) SuffixRunes() []rune { return p.suffix }

// PrefixLen returns L, the effective (clamped) prefix length.
func (p Pattern) PrefixLen() int { return p.l }

// Len returns |W| in Unicode scalar values.
func (p Pattern) Len() int { return len(p.w) }

// PrefixBytes returns the UTF-8 encoding of Wp — the byte prefix every
// candidate term must start with to be considered at all.
func (p Pattern) PrefixBytes() []byte {
	buf := make([]byte, 0, len(p.prefix)*utf8.UTFMax)
	for _, r := range p.prefix {
		buf = utf8.AppendRune(buf, r)
	}
	return buf
}

// Bytes returns the UTF-8 encoding of the full pattern text W.
func (p Pattern) Bytes() []byte {
	return []byte(p.Text)
}
