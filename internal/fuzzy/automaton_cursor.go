package fuzzy

import "unicode/utf8"

// AutomatonTermCursor walks a TermCursor in lockstep with a structural
// RuneAutomaton, skipping ranges the automaton proves cannot match rather
// than visiting every term. Classification of each visited
// candidate — and any seek hint once the candidate is accepted/rejected —
// is delegated to a MatchCapability.
type AutomatonTermCursor struct {
	cur        TermCursor
	automaton  RuneAutomaton
	cap        MatchCapability
	rangeStart []byte // initial seek target (UTF-8 prefix of the pattern)

	started    bool
	lastStatus AcceptStatus
}

// NewAutomatonTermCursor builds a cursor over cur, guided by automaton,
// classifying candidates with capability. rangeStart is the byte key to
// seek to before the very first pull, when the capability offers no
// resume key of its own.
func NewAutomatonTermCursor(cur TermCursor, automaton RuneAutomaton, capability MatchCapability, rangeStart []byte) *AutomatonTermCursor {
	return &AutomatonTermCursor{
		cur:        cur,
		automaton:  automaton,
		cap:        capability,
		rangeStart: rangeStart,
	}
}

// NextAccepted returns the next term accepted by the capability, or
// end=true once the underlying cursor or the automaton's reachable range
// is exhausted.
func (c *AutomatonTermCursor) NextAccepted() (term []byte, end bool, err error) {
	for {
		if !c.started {
			c.started = true
			if key, ok := c.cap.NextSeekTerm(nil); ok {
				if ended, err := c.seek(key); ended || err != nil {
					return nil, ended, err
				}
			} else if ended, err := c.seek(c.rangeStart); ended || err != nil {
				return nil, ended, err
			}
		} else {
			switch c.lastStatus {
			case AcceptYes, AcceptNo:
				ok, err := c.cur.Next()
				if err != nil {
					return nil, false, err
				}
				if !ok {
					return nil, true, nil
				}
			case AcceptYesAndSeek, AcceptNoAndSeek:
				key, ok := c.cap.NextSeekTerm(c.cur.Term())
				if !ok {
					var atEnd bool
					key, atEnd = c.computeSeekTarget(c.cur.Term())
					if atEnd {
						return nil, true, nil
					}
				}
				if ended, err := c.seek(key); ended || err != nil {
					return nil, ended, err
				}
			}
		}

		term := append([]byte(nil), c.cur.Term()...)
		status, err := c.cap.Accept(term)
		if err != nil {
			return nil, false, err
		}
		c.lastStatus = status
		switch status {
		case AcceptYes, AcceptYesAndSeek:
			return term, false, nil
		case AcceptEnd:
			return nil, true, nil
		default: // AcceptNo, AcceptNoAndSeek: loop again
		}
	}
}

// seek positions the underlying cursor at the first term >= key, reporting
// end-of-stream when none exists.
func (c *AutomatonTermCursor) seek(key []byte) (end bool, err error) {
	res, err := c.cur.Seek(key)
	if err != nil {
		return false, err
	}
	return res == SeekEnd, nil
}

// computeSeekTarget finds the smallest byte key greater than term that
// could still reach an automaton accept state. All runes outside the
// automaton's distinguished alphabet take the same transition from any
// state (levenshtein_dfa.go's "any other rune" column), so checking the
// distinguished runes above the dead point plus one representative
// "other" rune is conclusive.
//
// atEnd=true means no byte string greater than term can possibly exist
// (the prefix-successor computation overflowed), so enumeration is over.
func (c *AutomatonTermCursor) computeSeekTarget(term []byte) (key []byte, atEnd bool) {
	runes := []rune(string(term))

	state := c.automaton.Start()
	matched := 0
	for matched < len(runes) {
		next := c.automaton.Step(state, runes[matched])
		if next == DeadRuneState {
			break
		}
		state = next
		matched++
	}

	if matched == len(runes) {
		// Automaton survived every rune of the term, so a longer key may
		// still match. The smallest string strictly greater than term is
		// term+0x00.
		return append(append([]byte{}, term...), 0x00), false
	}

	if next, ok := c.nextLiveRune(state, runes[matched]); ok {
		out := encodeRunes(runes[:matched])
		return utf8.AppendRune(out, next), false
	}
	succ := prefixSuccessor(encodeRunes(runes[:matched]))
	if succ == nil {
		return nil, true
	}
	return succ, false
}

// nextLiveRune returns the smallest rune strictly greater than after whose
// transition from state is not dead, or ok=false if every such rune is dead.
func (c *AutomatonTermCursor) nextLiveRune(state RuneState, after rune) (next rune, ok bool) {
	relevant := c.automaton.RelevantRunes()

	// Smallest undistinguished rune > after: every undistinguished rune
	// shares one transition, so testing this one tests them all. Surrogate
	// code points never occur in decoded terms, step over them.
	other := after + 1
	for i := 0; ; {
		if other >= 0xD800 && other <= 0xDFFF {
			other = 0xE000
		}
		for i < len(relevant) && relevant[i] < other {
			i++
		}
		if i < len(relevant) && relevant[i] == other {
			other++
			i++
			continue
		}
		break
	}

	best := rune(-1)
	if other <= utf8.MaxRune && c.automaton.Step(state, other) != DeadRuneState {
		best = other
	}
	for _, r := range relevant {
		if r <= after {
			continue
		}
		if best >= 0 && r >= best {
			break
		}
		if c.automaton.Step(state, r) != DeadRuneState {
			best = r
			break
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

func encodeRunes(rs []rune) []byte {
	buf := make([]byte, 0, len(rs)*utf8.UTFMax)
	for _, r := range rs {
		buf = utf8.AppendRune(buf, r)
	}
	return buf
}

// prefixSuccessor returns the smallest byte string strictly greater than
// every string having prefix as a proper prefix, or nil if no such finite
// string exists (prefix is all 0xFF bytes, or empty).
func prefixSuccessor(prefix []byte) []byte {
	out := append([]byte(nil), prefix...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] < 0xFF {
			out[i]++
			return out[:i+1]
		}
	}
	return nil
}
