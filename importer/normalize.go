package importer

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinTokenLength is the shortest token kept in a token set. Shorter tokens
// stay in the canonical text and therefore in the signature
const MinTokenLength = 3

var turkishFold = strings.NewReplacer(
	"ı", "i", "İ", "I",
	"ğ", "g", "Ğ", "G",
	"ü", "u", "Ü", "U",
	"ş", "s", "Ş", "S",
	"ö", "o", "Ö", "O",
	"ç", "c", "Ç", "C",
)

// TokenSet is a set of canonical tokens
type TokenSet map[string]struct{}

// Len returns the number of tokens in the set
func (t TokenSet) Len() int { return len(t) }

// Has reports whether tok is in the set
func (t TokenSet) Has(tok string) bool {
	_, ok := t[tok]
	return ok
}

// Sorted returns the tokens in lexical order
func (t TokenSet) Sorted() []string {
	out := make([]string, 0, len(t))
	for tok := range t {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// Normalized is the canonical form of a piece of question text
type Normalized struct {
	Canonical string
	Tokens    TokenSet
}

// Normalize returns the canonical text of s and its token set
func Normalize(s string) Normalized {
	canonical := Canonical(s)
	return Normalized{Canonical: canonical, Tokens: tokenize(canonical)}
}

// Canonical folds Turkish letters to ASCII, decomposes and strips combining
// marks, lower-cases, and collapses every run of non [a-z0-9] into one space.
// Decomposition is NFKD so compatibility forms fold too: "²" reads as "2"
// and "ﬁ" as "fi"
func Canonical(s string) string {
	if s == "" {
		return ""
	}
	folded := turkishFold.Replace(s)
	stripper := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	decomposed, _, err := transform.String(stripper, folded)
	if err != nil {
		decomposed = folded
	}
	decomposed = strings.ToLower(decomposed)

	var b strings.Builder
	b.Grow(len(decomposed))
	pendingSpace := false
	for i := 0; i < len(decomposed); i++ {
		c := decomposed[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteByte(c)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

func tokenize(canonical string) TokenSet {
	set := make(TokenSet)
	for _, tok := range strings.Fields(canonical) {
		if len(tok) >= MinTokenLength {
			set[tok] = struct{}{}
		}
	}
	return set
}
