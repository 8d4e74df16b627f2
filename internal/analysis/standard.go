package analysis

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// StandardAnalyzer splits on anything that is not a letter, digit, or
// underscore, and lowercases what remains. The default for text fields.
type StandardAnalyzer struct{}

// NewStandardAnalyzer returns a StandardAnalyzer.
func NewStandardAnalyzer() *StandardAnalyzer {
	return &StandardAnalyzer{}
}

// Analyze scans text rune by rune, emitting each maximal word run as a
// lowercased token with its byte span.
func (a *StandardAnalyzer) Analyze(_ string, text string) []Token {
	var tokens []Token
	pos := 0
	i := 0

	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !isWordRune(r) {
			i += size
			continue
		}

		start := i
		for i < len(text) {
			r, size = utf8.DecodeRuneInString(text[i:])
			if !isWordRune(r) {
				break
			}
			i += size
		}

		term := strings.ToLower(text[start:i])
		if term != "" {
			tokens = append(tokens, Token{
				Term:      term,
				Position:  pos,
				StartByte: start,
				EndByte:   i,
			})
			pos++
		}
	}

	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
