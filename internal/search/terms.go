// Package search derives the search tokens stored on a post.
package search

import (
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"the": {}, "be": {}, "to": {}, "is": {}, "of": {},
	"and": {}, "or": {}, "a": {}, "in": {}, "it": {},
}

func isSeparator(r rune) bool {
	switch r {
	case '.', ',', '?', '!', '#':
		return true
	}
	return unicode.IsSpace(r)
}

// Terms splits description on whitespace and . , ? ! #, lower-cases every token
// and drops empty tokens and stop words. Order and duplicates are kept.
func Terms(description string) []string {
	terms := []string{}
	for _, f := range strings.FieldsFunc(description, isSeparator) {
		t := strings.ToLower(f)
		if _, stop := stopWords[t]; stop {
			continue
		}
		terms = append(terms, t)
	}
	return terms
}

// Normalize turns user input into the token searched for, "" when there is nothing to search
func Normalize(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}
