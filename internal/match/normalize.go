package match

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	urlExpr  = regexp.MustCompile(`https?://\S+`)
	yearExpr = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

// noiseDelimiters cut community text at the point where the headline ends
// and boilerplate begins (bullet lists, arrows, promo tails).
var noiseDelimiters = []string{
	"•", "●", "▪", "➡", "→", "⬇", "↓", "|", " #", " - ", " – ", " — ",
	"check out", "full details", "read more", "don't miss", "tap the link",
}

// stopwords are generic words and the product's own name; they carry no
// signal for telling one announcement from another.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "this": {},
	"that": {}, "are": {}, "our": {}, "your": {}, "you": {}, "all": {},
	"will": {}, "has": {}, "have": {}, "been": {}, "its": {}, "into": {},
	"more": {}, "now": {}, "get": {}, "can": {}, "out": {},
	"pokemon": {}, "pokémon": {}, "pokego": {}, "pokemongo": {}, "game": {},
}

// normalize lowercases, strips embedded URLs, replaces punctuation, symbols
// and emoji with spaces, and collapses whitespace. Purely rune-class based,
// no locale dependence.
func normalize(s string) string {
	s = strings.ToLower(s)
	s = urlExpr.ReplaceAllString(s, " ")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// cleanCommunity truncates community text at the first noise delimiter to
// approximate just the headline portion, then normalizes.
func cleanCommunity(s string) string {
	lower := strings.ToLower(s)
	cut := len(s)
	for _, delim := range noiseDelimiters {
		if idx := strings.Index(lower, delim); idx >= 0 && idx < cut {
			cut = idx
		}
	}
	return normalize(s[:cut])
}

// tokenize splits normalized text into signal tokens: whitespace split,
// dropping short tokens, stopwords, and bare year numbers (years are
// compared separately).
func tokenize(normalized string) []string {
	var tokens []string
	for _, tok := range strings.Fields(normalized) {
		if len([]rune(tok)) <= 2 {
			continue
		}
		if _, ok := stopwords[tok]; ok {
			continue
		}
		if isYearToken(tok) {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

func isYearToken(tok string) bool {
	if len(tok) != 4 {
		return false
	}
	for _, r := range tok {
		if r < '0' || r > '9' {
			return false
		}
	}
	return strings.HasPrefix(tok, "19") || strings.HasPrefix(tok, "20")
}

// years extracts the distinct 4-digit years mentioned in a text.
func years(s string) map[string]struct{} {
	found := map[string]struct{}{}
	for _, y := range yearExpr.FindAllString(s, -1) {
		found[y] = struct{}{}
	}
	return found
}

// slugTokens derives tokens from an article URL's trailing slug, split on
// hyphens, with the same short-token and year filtering as tokenize.
func slugTokens(articleURL string) []string {
	trimmed := articleURL
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	trimmed = strings.TrimRight(trimmed, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return nil
	}
	slug := trimmed[idx+1:]

	var tokens []string
	for _, tok := range strings.Split(strings.ToLower(slug), "-") {
		if len(tok) <= 2 || isYearToken(tok) {
			continue
		}
		if _, ok := stopwords[tok]; ok {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// jaccard computes token-set similarity; empty-vs-empty is 0, not 1, so
// two contentless texts never look identical.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
