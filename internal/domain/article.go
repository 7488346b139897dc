package domain

// OfficialArticle is an announcement item scraped from the official news site.
// URL is the stable identity; everything else is presentation metadata.
type OfficialArticle struct {
	URL         string
	Title       string
	Description string
	ImageURL    string
	Published   string
}

// CommunityPost is a supplement item from the community feed. Posts without
// an image attachment are not eligible for pairing.
type CommunityPost struct {
	Link        string
	Title       string
	Description string
	ImageURL    string
}

// HasAttachment reports whether the post carries the image required for
// pairing eligibility.
func (p CommunityPost) HasAttachment() bool {
	return p.ImageURL != ""
}

// MatchReason labels how a match decision was reached.
type MatchReason string

const (
	ReasonDirectURL MatchReason = "direct_url"
	ReasonHeuristic MatchReason = "heuristic"
)

// MatchResult is the outcome of scoring one community post against one
// official candidate. Computed per run, never persisted.
type MatchResult struct {
	OfficialURL string
	Score       float64
	Reason      MatchReason
	Breakdown   ScoreBreakdown
}

// ScoreBreakdown carries per-signal contributions for diagnostics.
type ScoreBreakdown struct {
	TokenJaccard  float64
	CharRatio     float64
	SlugJaccard   float64
	KeywordBonus  float64
	PhraseBonus   float64
	PrefixBonus   float64
	YearBonus     float64
	EntityBonus   float64
	EntityPenalty float64
}
