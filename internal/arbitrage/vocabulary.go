package arbitrage

import (
	"regexp"
	"strings"
)

// wordSet matches vocabulary entries as whole tokens in lowercase text, so
// "eth" does not match "whether" and "50k" does not match "150k" or "3.50k".
type wordSet struct {
	patterns []*regexp.Regexp
}

func newWordSet(words []string) wordSet {
	ws := wordSet{}
	for _, w := range lowerAll(words) {
		ws.patterns = append(ws.patterns, tokenPattern(w))
	}
	return ws
}

// tokenPattern anchors each edge of word that is a word character. A number
// preceded by '.' or ',' is part of a larger number and does not match.
func tokenPattern(word string) *regexp.Regexp {
	var b strings.Builder
	switch {
	case '0' <= word[0] && word[0] <= '9':
		b.WriteString(`(?:^|[^\w.,])`)
	case isWordByte(word[0]):
		b.WriteString(`(?:^|\W)`)
	}
	b.WriteString(regexp.QuoteMeta(word))
	if isWordByte(word[len(word)-1]) {
		b.WriteString(`(?:\W|$)`)
	}
	return regexp.MustCompile(b.String())
}

func isWordByte(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// Any reports whether s contains any entry.
func (ws wordSet) Any(s string) bool {
	for _, re := range ws.patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// Shared reports whether a and b both contain the same entry.
func (ws wordSet) Shared(a, b string) bool {
	for _, re := range ws.patterns {
		if re.MatchString(a) && re.MatchString(b) {
			return true
		}
	}
	return false
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}
