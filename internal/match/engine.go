package match

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/agext/levenshtein"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// DefaultThreshold is the minimum combined score for accepting a match.
const DefaultThreshold = 0.38

// Signal weights and bonus caps. The weighted base always lands in [0,1];
// bonuses and penalties are additive and the final score is clamped.
const (
	weightTokens = 0.55
	weightTitle  = 0.35
	weightSlug   = 0.10

	keywordBonusEach = 0.04
	keywordBonusCap  = 0.12
	phraseBonus      = 0.08
	prefixBonus      = 0.10
	prefixRunes      = 30
	yearBonus        = 0.03
	entityBonusEach  = 0.05
	entityBonusCap   = 0.10
	entityPenalty    = 0.12
)

// domainKeywords is a small curated list of recurring announcement terms;
// sharing one on both sides is weak but useful evidence.
var domainKeywords = []string{
	"raid", "raids", "community", "spotlight", "shiny", "shadow", "mega",
	"hatch", "egg", "eggs", "rocket", "research", "battle", "league",
	"fest", "safari", "showcase", "incense", "lure", "dynamax", "gigantamax",
}

// eventPhrases are recurring event names; a verbatim appearance on both
// sides is strong evidence even when little else overlaps.
var eventPhrases = []string{
	"community day", "raid day", "raid hour", "spotlight hour",
	"go battle league", "go fest", "go tour", "research breakthrough",
	"hatch day", "max monday", "season of",
}

// articleURLExpr recognizes literal links to official article pages inside
// community text.
var articleURLExpr = regexp.MustCompile(`https?://[\w.-]+/news/[A-Za-z0-9_-]+`)

// Engine scores community posts against official candidates. It is
// stateless and deterministic: identical input yields identical output.
type Engine struct {
	threshold float64
	resolver  ports.ArticleResolver
	logger    *slog.Logger
}

var _ ports.Matcher = (*Engine)(nil)

// NewEngine builds an engine. A non-positive threshold falls back to the
// default; resolver may be nil to disable off-window direct-link lookups.
func NewEngine(threshold float64, resolver ports.ArticleResolver, logger *slog.Logger) *Engine {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Engine{threshold: threshold, resolver: resolver, logger: logger}
}

// Match returns the best candidate at or above the threshold, or nil when
// none clears it. A nil result is a valid outcome, not an error.
func (e *Engine) Match(ctx context.Context, post domain.CommunityPost, candidates []domain.OfficialArticle) (*domain.MatchResult, error) {
	raw := post.Title + " " + post.Description

	if direct := e.matchDirect(ctx, raw, candidates); direct != nil {
		return direct, nil
	}

	bestIdx := -1
	bestScore := 0.0
	var bestBreakdown domain.ScoreBreakdown
	for i, art := range candidates {
		score, breakdown := scoreArticle(post, art)
		// Strict comparison keeps the earliest candidate on ties.
		if bestIdx < 0 || score > bestScore {
			bestIdx = i
			bestScore = score
			bestBreakdown = breakdown
		}
	}

	if bestIdx < 0 || bestScore < e.threshold {
		e.debugMiss(post, candidates)
		return nil, nil
	}

	return &domain.MatchResult{
		OfficialURL: candidates[bestIdx].URL,
		Score:       bestScore,
		Reason:      domain.ReasonHeuristic,
		Breakdown:   bestBreakdown,
	}, nil
}

// Explain scores every candidate regardless of threshold and returns the
// top n, highest first. Ties keep candidate-list order.
func (e *Engine) Explain(post domain.CommunityPost, candidates []domain.OfficialArticle, n int) []domain.MatchResult {
	results := make([]domain.MatchResult, 0, len(candidates))
	for _, art := range candidates {
		score, breakdown := scoreArticle(post, art)
		results = append(results, domain.MatchResult{
			OfficialURL: art.URL,
			Score:       score,
			Reason:      domain.ReasonHeuristic,
			Breakdown:   breakdown,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if n > 0 && len(results) > n {
		results = results[:n]
	}
	return results
}

func (e *Engine) matchDirect(ctx context.Context, raw string, candidates []domain.OfficialArticle) *domain.MatchResult {
	link := articleURLExpr.FindString(raw)
	if link == "" {
		return nil
	}
	link = canonicalURL(link)

	for _, art := range candidates {
		if canonicalURL(art.URL) == link {
			return &domain.MatchResult{
				OfficialURL: art.URL,
				Score:       1.0,
				Reason:      domain.ReasonDirectURL,
			}
		}
	}

	// The link points at an article outside the candidate window; try a
	// one-off lookup before falling back to heuristics.
	if e.resolver == nil {
		return nil
	}
	art, err := e.resolver.ResolveArticle(ctx, link)
	if err != nil {
		if e.logger != nil {
			e.logger.Debug("direct link resolve failed", "url", link, "error", err)
		}
		return nil
	}
	return &domain.MatchResult{
		OfficialURL: art.URL,
		Score:       1.0,
		Reason:      domain.ReasonDirectURL,
	}
}

func (e *Engine) debugMiss(post domain.CommunityPost, candidates []domain.OfficialArticle) {
	if e.logger == nil {
		return
	}
	for _, res := range e.Explain(post, candidates, 3) {
		e.logger.Debug("below threshold",
			"post", post.Link,
			"candidate", res.OfficialURL,
			"score", res.Score,
			"tokens", res.Breakdown.TokenJaccard,
			"chars", res.Breakdown.CharRatio,
			"slug", res.Breakdown.SlugJaccard,
			"entity_penalty", res.Breakdown.EntityPenalty,
		)
	}
}

func scoreArticle(post domain.CommunityPost, art domain.OfficialArticle) (float64, domain.ScoreBreakdown) {
	postRaw := post.Title + " " + post.Description
	officialRaw := art.Title + " " + art.Description

	cleaned := cleanCommunity(postRaw)
	postTokens := toSet(tokenize(cleaned))

	officialText := normalize(officialRaw)
	officialTokens := toSet(tokenize(officialText))
	titleText := normalize(art.Title)

	bd := domain.ScoreBreakdown{
		TokenJaccard: jaccard(postTokens, officialTokens),
		CharRatio:    levenshtein.Match(cleaned, titleText, nil),
		SlugJaccard:  jaccard(postTokens, toSet(slugTokens(art.URL))),
	}

	score := weightTokens*bd.TokenJaccard + weightTitle*bd.CharRatio + weightSlug*bd.SlugJaccard

	for _, kw := range domainKeywords {
		if _, pOK := postTokens[kw]; !pOK {
			continue
		}
		if _, oOK := officialTokens[kw]; !oOK {
			continue
		}
		bd.KeywordBonus += keywordBonusEach
	}
	if bd.KeywordBonus > keywordBonusCap {
		bd.KeywordBonus = keywordBonusCap
	}

	for _, phrase := range eventPhrases {
		if strings.Contains(cleaned, phrase) && strings.Contains(officialText, phrase) {
			bd.PhraseBonus = phraseBonus
			break
		}
	}

	if longPrefixContained(cleaned, officialText) || longPrefixContained(officialText, cleaned) {
		bd.PrefixBonus = prefixBonus
	}

	if sharedYear(postRaw, officialRaw+" "+art.URL) {
		bd.YearBonus = yearBonus
	}

	postEnts := entities(postRaw)
	officialEnts := entities(officialRaw)
	if len(postEnts) > 0 && len(officialEnts) > 0 {
		shared := 0
		for ent := range postEnts {
			if _, ok := officialEnts[ent]; ok {
				shared++
			}
		}
		if shared > 0 {
			bd.EntityBonus = entityBonusEach * float64(shared)
			if bd.EntityBonus > entityBonusCap {
				bd.EntityBonus = entityBonusCap
			}
		} else {
			// Both sides name specific subjects and none coincide; this is
			// the strongest signal the posts are about different things.
			bd.EntityPenalty = entityPenalty
		}
	}

	score += bd.KeywordBonus + bd.PhraseBonus + bd.PrefixBonus + bd.YearBonus + bd.EntityBonus - bd.EntityPenalty
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, bd
}

// longPrefixContained reports whether a long normalized prefix of a occurs
// inside b. Catches long event names carried verbatim with extra wording
// around them.
func longPrefixContained(a, b string) bool {
	runes := []rune(a)
	if len(runes) <= prefixRunes {
		return false
	}
	return strings.Contains(b, string(runes[:prefixRunes]))
}

func sharedYear(a, b string) bool {
	ya := years(a)
	if len(ya) == 0 {
		return false
	}
	for y := range years(b) {
		if _, ok := ya[y]; ok {
			return true
		}
	}
	return false
}

func canonicalURL(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return strings.TrimRight(u, "/")
}
