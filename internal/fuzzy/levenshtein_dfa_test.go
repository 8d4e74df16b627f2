package fuzzy

import "testing"

func TestLevenshteinDFA_ExactMatch(t *testing.T) {
	dfa, err := newLevenshteinDFA([]rune("hello"), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !dfa.Accept([]rune("hello")) {
		t.Error("should accept exact match (0 edits)")
	}
}

func TestLevenshteinDFA_Substitution(t *testing.T) {
	dfa, err := newLevenshteinDFA([]rune("hello"), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !dfa.Accept([]rune("hallo")) {
		t.Error("should accept 1 substitution")
	}
}

func TestLevenshteinDFA_Insertion(t *testing.T) {
	dfa, err := newLevenshteinDFA([]rune("hello"), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !dfa.Accept([]rune("helloo")) {
		t.Error("should accept 1 insertion at end")
	}
}

func TestLevenshteinDFA_Deletion(t *testing.T) {
	dfa, err := newLevenshteinDFA([]rune("hello"), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !dfa.Accept([]rune("hllo")) {
		t.Error("should accept 1 deletion")
	}
}

func TestLevenshteinDFA_Rejects(t *testing.T) {
	dfa, err := newLevenshteinDFA([]rune("hello"), 1)
	if err != nil {
		t.Fatal(err)
	}
	if dfa.Accept([]rune("world")) {
		t.Error("should reject 'world' (5 edits)")
	}
}

func TestLevenshteinDFA_Distance0(t *testing.T) {
	dfa, err := newLevenshteinDFA([]rune("cat"), 0)
	if err != nil {
		t.Fatal(err)
	}
	if !dfa.Accept([]rune("cat")) {
		t.Error("should accept exact match with distance 0")
	}
	if dfa.Accept([]rune("bat")) {
		t.Error("should reject 1 edit with distance 0")
	}
}

func TestLevenshteinDFA_Distance2(t *testing.T) {
	dfa, err := newLevenshteinDFA([]rune("kitten"), 2)
	if err != nil {
		t.Fatal(err)
	}
	// kitten -> sitting is the textbook distance-3 example.
	if dfa.Accept([]rune("sitting")) {
		t.Error("'sitting' is 3 edits from 'kitten', should be rejected at k=2")
	}
	if !dfa.Accept([]rune("sittin")) {
		t.Error("'sittin' is 2 edits from 'kitten' (k<->s, e<->i), should be accepted at k=2")
	}
}

func TestLevenshteinDFA_UnicodeRunes(t *testing.T) {
	dfa, err := newLevenshteinDFA([]rune("café"), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !dfa.Accept([]rune("cafe")) {
		t.Error("should accept 1 substitution over a multi-byte rune")
	}
}

func TestLevenshteinDFA_CanMatch(t *testing.T) {
	dfa, err := newLevenshteinDFA([]rune("ab"), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !dfa.CanMatch(dfa.Start()) {
		t.Error("start state should CanMatch")
	}
	if dfa.CanMatch(DeadRuneState) {
		t.Error("dead state should not CanMatch")
	}
}

func TestPrefixedAutomaton_RequiresLiteralPrefix(t *testing.T) {
	lev, err := newLevenshteinDFA([]rune("lo"), 1)
	if err != nil {
		t.Fatal(err)
	}
	a := newPrefixedAutomaton([]rune("hel"), lev)

	if !a.Accept([]rune("hello")) {
		t.Error("should accept prefix + exact suffix")
	}
	if !a.Accept([]rune("helo")) {
		t.Error("should accept prefix + 1-edit suffix (suffix 'o' is 1 deletion from 'lo')")
	}
	if a.Accept([]rune("world")) {
		t.Error("should reject a term that doesn't start with the literal prefix")
	}
	if a.Accept([]rune("help")) {
		t.Error("'help' has suffix 'p', which is 2 edits from 'lo' at k=1")
	}
}

func TestPrefixedAutomaton_EmptyPrefix(t *testing.T) {
	lev, err := newLevenshteinDFA([]rune("cat"), 1)
	if err != nil {
		t.Fatal(err)
	}
	a := newPrefixedAutomaton(nil, lev)
	if !a.Accept([]rune("bat")) {
		t.Error("empty literal prefix should behave exactly like the wrapped Levenshtein DFA")
	}
}
