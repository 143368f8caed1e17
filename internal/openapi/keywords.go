package openapi

import (
	"regexp"
	"strings"
)

// maxKeywords caps the keyword set per fragment to keep metadata small.
const maxKeywords = 16

// stopWords are dropped during tokenization; they carry no retrieval signal.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {}, "from": {}, "is": {}, "are": {}, "was": {},
	"this": {}, "that": {}, "all": {}, "new": {}, "api": {},
}

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// Tokenize normalizes free text into an ordered, deduplicated token list:
// camelCase is split, everything is lower-cased, stop words and tokens
// shorter than 3 characters are dropped.
func Tokenize(text string) []string {
	text = camelBoundary.ReplaceAllString(text, "$1 $2")
	words := tokenPattern.FindAllString(strings.ToLower(text), -1)

	seen := make(map[string]struct{}, len(words))
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) < 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		tokens = append(tokens, w)
	}

	return tokens
}

// KeywordSet derives a fragment's keyword set from its descriptive texts,
// capped at maxKeywords. Order follows first appearance, so the derivation
// is deterministic for a fixed input.
func KeywordSet(texts ...string) []string {
	keywords := Tokenize(strings.Join(texts, " "))
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	return keywords
}
