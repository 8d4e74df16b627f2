// Package automaton holds the byte-level DFAs that drive term expansion
// against the byte-lexicographic term dictionary: prefix and wildcard
// matching. Rune-level fuzzy matching lives in internal/fuzzy, which
// follows the same Start/Step/IsAccept/CanMatch shape over runes.
package automaton

// State is a state in a deterministic finite automaton over bytes.
type State uint32

// DeadState is the sink: no accepting state is reachable from it.
const DeadState State = 0

// Automaton is the contract every expansion DFA satisfies. Non-trivial
// term expansion runs as an automaton-guided walk of the term dictionary,
// never as a per-term regex match.
//
// Implementations are deterministic (one transition per state/byte pair),
// finite, and free of ε-transitions after construction.
type Automaton interface {
	// Start returns the initial state.
	Start() State

	// Step returns the successor for one input byte, or DeadState.
	Step(state State, b byte) State

	// IsAccept reports whether state is accepting.
	IsAccept(state State) bool

	// CanMatch reports whether any accepting state is still reachable —
	// the pruning question the dictionary walk asks before descending.
	CanMatch(state State) bool
}
