package analysis

// KeywordAnalyzer indexes the whole field value as one verbatim token —
// for identifiers, tags, and other fields that must match exactly.
type KeywordAnalyzer struct{}

// NewKeywordAnalyzer returns a KeywordAnalyzer.
func NewKeywordAnalyzer() *KeywordAnalyzer {
	return &KeywordAnalyzer{}
}

// Analyze emits the input unchanged as a single token (none for empty input).
func (a *KeywordAnalyzer) Analyze(_ string, text string) []Token {
	if text == "" {
		return nil
	}
	return []Token{
		{
			Term:      text,
			Position:  0,
			StartByte: 0,
			EndByte:   len(text),
		},
	}
}
