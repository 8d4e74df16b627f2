package fuzzy

// SeekResult classifies the outcome of TermCursor.Seek, mirroring the
// three-way index-reader contract this package borrows from.
type SeekResult int

const (
	// SeekFoundExact means the cursor is now positioned exactly at key.
	SeekFoundExact SeekResult = iota
	// SeekFoundGreater means key was absent; the cursor is positioned at
	// the smallest indexed term strictly greater than key.
	SeekFoundGreater
	// SeekEnd means no indexed term is >= key.
	SeekEnd
)

// TermCursor is the borrowed contract consumed from the index reader: a
// sorted cursor over a single field's term dictionary, seekable by
// byte-lexicographic key. It is explicitly NOT implemented by this
// package — the term dictionary/index reader is a collaborator owned
// elsewhere — only consumed. internal/index.InMemoryTermCursor is the
// concrete stand-in used by the surrounding application and by this
// package's tests.
type TermCursor interface {
	// Seek advances to the first term >= key.
	Seek(key []byte) (SeekResult, error)
	// Next advances one position. Returns false at end of stream.
	Next() (bool, error)
	// Term returns the bytes at the current position. Valid only after a
	// Seek/Next that returned a non-end position.
	Term() []byte
	// DocFreq passes through the current term's document frequency.
	DocFreq() int64
	// Ord passes through the current term's ordinal position.
	Ord() int64
}

// AcceptStatus is the verdict AutomatonFuzzyMatcher/LinearFuzzyMatcher
// attach to a candidate term, driving both emission and cursor advancement.
type AcceptStatus int

const (
	// AcceptYes: the term is accepted; do not seek, continue sequentially.
	AcceptYes AcceptStatus = iota
	// AcceptYesAndSeek: the term is accepted; advance past it via seek
	// (NextSeekTerm's key when it offers one, else the DFA-guided skip)
	// rather than a linear Next.
	AcceptYesAndSeek
	// AcceptNo: the term is rejected; continue sequentially.
	AcceptNo
	// AcceptNoAndSeek: the term is rejected; advance past it via seek
	// rather than a linear Next (the DFA-guided skip).
	AcceptNoAndSeek
	// AcceptEnd: the scan has left the range this matcher cares about
	// (e.g. the literal-prefix sub-range for LinearFuzzyMatcher).
	AcceptEnd
)

// MatchCapability is the subclass-hook contract AutomatonTermCursor
// consumes, re-expressed as an explicit matcher capability rather than a
// polymorphic cursor with subclass hooks. AutomatonFuzzyMatcher is the
// sole implementation.
type MatchCapability interface {
	// Accept classifies the current candidate term.
	Accept(term []byte) (AcceptStatus, error)
	// NextSeekTerm returns the key AutomatonTermCursor should seek to
	// before pulling the next candidate, or ok=false to defer to the
	// automaton-guided skip computed from prev.
	NextSeekTerm(prev []byte) (key []byte, ok bool)
}
