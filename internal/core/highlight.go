package core

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Highlighter matches message text against the account's own nick and its
// configured highlight words.
type Highlighter struct {
	words []string
}

// NewHighlighter folds and keeps the non-empty words.
func NewHighlighter(words []string) *Highlighter {
	h := &Highlighter{}
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w != "" {
			h.words = append(h.words, FoldNick(w))
		}
	}
	return h
}

// Match reports whether text mentions nick or any highlight word as a whole
// word.
func (h *Highlighter) Match(text, nick string) bool {
	folded := FoldNick(text)
	if nick != "" && containsWord(folded, FoldNick(nick)) {
		return true
	}
	if h == nil {
		return false
	}
	for _, w := range h.words {
		if containsWord(folded, w) {
			return true
		}
	}
	return false
}

func containsWord(text, word string) bool {
	for start := 0; start <= len(text)-len(word); {
		i := strings.Index(text[start:], word)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(word)
		if boundaryBefore(text, i) && boundaryAfter(text, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		start = i + size
	}
	return false
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
