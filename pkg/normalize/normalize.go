// Package normalize canonicalises raw word tokens and decides which tokens are
// plausible spelling words.
package normalize

import (
	"regexp"
	"sort"
	"strings"
)

const (
	MinWordLength = 1
	MaxWordLength = 30

	// A run of this many identical letters is an OCR noise signature.
	maxRepeatRun = 4
)

var wordShape = regexp.MustCompile(`^[a-z\-']+$`)

// denylist holds URL fragments, file-format residue and short function words
// that show up in documents but are never practice words.
var denylist = map[string]struct{}{
	"www": {}, "http": {}, "https": {}, "com": {}, "org": {}, "net": {}, "edu": {}, "gov": {},
	"pdf": {}, "doc": {}, "docx": {}, "html": {}, "htm": {}, "txt": {},
	"the": {}, "and": {}, "or": {}, "but": {}, "nor": {}, "of": {}, "to": {}, "in": {},
	"on": {}, "at": {}, "by": {}, "for": {}, "from": {}, "with": {}, "is": {}, "are": {},
	"was": {}, "an": {}, "as": {}, "be": {}, "it": {},
}

// Normalize lowercases raw and strips surrounding whitespace.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// IsValidWord reports whether an already normalized candidate looks like a
// real word: 1..30 characters from [a-z'-], not denylisted, no run of four
// identical letters, and single letters limited to "a" and "i".
func IsValidWord(candidate string) bool {
	n := len(candidate)
	if n < MinWordLength || n > MaxWordLength {
		return false
	}
	if !wordShape.MatchString(candidate) {
		return false
	}
	if n == 1 {
		return candidate == "a" || candidate == "i"
	}
	if _, denied := denylist[candidate]; denied {
		return false
	}
	return !hasRepeatRun(candidate, maxRepeatRun)
}

func hasRepeatRun(s string, limit int) bool {
	run := 1
	for i := 1; i < len(s); i++ {
		if s[i] == s[i-1] {
			run++
			if run >= limit {
				return true
			}
			continue
		}
		run = 1
	}
	return false
}

// CleanToken normalizes a tokenizer match and trims punctuation that can
// only be line-break or quote residue.
func CleanToken(token string) string {
	return strings.Trim(Normalize(token), "-'")
}

// CleanWords normalizes, validates, deduplicates and sorts tokens.
func CleanWords(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	words := make([]string, 0, len(tokens))
	for _, t := range tokens {
		w := CleanToken(t)
		if !IsValidWord(w) {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}
