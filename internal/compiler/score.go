package compiler

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var qualityKeywords = []string{
	"highly detailed",
	"sharp focus",
	"professional",
	"masterpiece",
	"cinematic",
	"high dynamic range",
	"8k",
}

// score rates a compiled prompt from 0 to 100.
func score(text, subject string, warnings, filters int) int {
	s := 100
	s -= 5 * warnings

	if strings.TrimSpace(subject) == "" {
		s -= 15
	}

	n := utf8.RuneCountInString(text)
	if n < 100 {
		s -= 10
	}
	if n > 1500 {
		s -= 5
	}

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) > 0 {
		unique := make(map[string]struct{}, len(words))
		for _, w := range words {
			unique[w] = struct{}{}
		}
		if float64(len(unique))/float64(len(words)) < 0.5 {
			s -= 10
		}
	}

	lower := strings.ToLower(text)
	for _, kw := range qualityKeywords {
		if strings.Contains(lower, kw) {
			s += 5
			break
		}
	}

	s += min(2*filters, 10)

	return max(0, min(100, s))
}
