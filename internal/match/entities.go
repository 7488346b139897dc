package match

import (
	"strings"
	"unicode"
)

// nonEntities are generic announcement words that look like proper nouns in
// headlines (title case) but name no specific subject.
var nonEntities = map[string]struct{}{
	"community": {}, "event": {}, "events": {}, "raid": {}, "raids": {},
	"battle": {}, "league": {}, "season": {}, "spotlight": {}, "hour": {},
	"research": {}, "breakthrough": {}, "celebrate": {}, "update": {},
	"updates": {}, "news": {}, "week": {}, "weekend": {}, "trainers": {},
	"featured": {}, "bonus": {}, "bonuses": {}, "shiny": {}, "shadow": {},
	"mega": {}, "legendary": {}, "special": {}, "ticket": {}, "tickets": {},
	"promo": {}, "january": {}, "february": {}, "march": {}, "april": {},
	"june": {}, "july": {}, "august": {}, "september": {}, "october": {},
	"november": {}, "december": {}, "lunar": {}, "year": {}, "new": {},
	"increased": {}, "odds": {}, "details": {}, "live": {},
}

// entities extracts proper-noun-like tokens from raw (un-normalized) text:
// capitalized words of length >= 4 that are neither stopwords nor generic
// event vocabulary. Returned lowercased for comparison.
func entities(raw string) map[string]struct{} {
	found := map[string]struct{}{}
	for _, field := range strings.Fields(urlExpr.ReplaceAllString(raw, " ")) {
		word := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r)
		})
		if !isEntityWord(word) {
			continue
		}
		found[strings.ToLower(word)] = struct{}{}
	}
	return found
}

func isEntityWord(word string) bool {
	runes := []rune(word)
	if len(runes) < 4 || !unicode.IsUpper(runes[0]) {
		return false
	}
	for _, r := range runes[1:] {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	lower := strings.ToLower(word)
	if _, ok := stopwords[lower]; ok {
		return false
	}
	_, generic := nonEntities[lower]
	return !generic
}
