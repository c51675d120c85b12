package memory

import "regexp"

// wordRe extracts maximal runs of word characters; everything else is a
// separator. \w in RE2 is [0-9A-Za-z_].
var wordRe = regexp.MustCompile(`\w+`)

// minTokenLen drops tokens too short to be useful search terms.
const minTokenLen = 3

// stopwords are common English words excluded from indexing and queries.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "has": {}, "his": {}, "how": {},
	"its": {}, "who": {}, "did": {}, "get": {}, "him": {}, "this": {},
	"that": {}, "with": {}, "from": {}, "they": {}, "been": {},
	"have": {}, "were": {}, "their": {}, "what": {}, "when": {},
	"will": {}, "would": {}, "there": {}, "which": {}, "your": {},
	"them": {}, "then": {}, "than": {}, "some": {}, "into": {},
}

// Tokenize splits text into word tokens, dropping stopwords and tokens
// shorter than three characters. Lowercases unless caseSensitive. Indexing
// and query parsing share this function so term matching stays symmetric.
func Tokenize(text string, caseSensitive bool) []string {
	var tokens []string
	for _, tok := range wordRe.FindAllString(text, -1) {
		if len(tok) < minTokenLen {
			continue
		}
		lower := toLowerASCII(tok)
		if _, stop := stopwords[lower]; stop {
			continue
		}
		if caseSensitive {
			tokens = append(tokens, tok)
		} else {
			tokens = append(tokens, lower)
		}
	}
	return tokens
}

// toLowerASCII lowercases A-Z only; tokens are \w runs so that covers them.
func toLowerASCII(s string) string {
	b := []byte(s)
	changed := false
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
			changed = true
		}
	}
	if !changed {
		return s
	}
	return string(b)
}
