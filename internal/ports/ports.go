package ports

import (
	"context"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/state"
)

// OfficialSource pulls the current window of official announcements,
// newest first as they appear on the news page.
type OfficialSource interface {
	FetchCandidates(ctx context.Context) ([]domain.OfficialArticle, error)
}

// ArticleResolver turns a single article URL into a full OfficialArticle.
// Used by the matcher's direct-link shortcut when a post references an
// article outside the current candidate window.
type ArticleResolver interface {
	ResolveArticle(ctx context.Context, url string) (domain.OfficialArticle, error)
}

// CommunitySource pulls the current window of community supplement posts.
type CommunitySource interface {
	FetchPosts(ctx context.Context) ([]domain.CommunityPost, error)
}

// Matcher correlates a community post to the best official candidate.
// A nil result with nil error means no candidate cleared the threshold.
type Matcher interface {
	Match(ctx context.Context, post domain.CommunityPost, candidates []domain.OfficialArticle) (*domain.MatchResult, error)
}

// Sink delivers content downstream. PublishRoot creates an addressable
// message and returns its handle; PublishReply attaches under one.
type Sink interface {
	PublishRoot(ctx context.Context, article domain.OfficialArticle) (string, error)
	PublishReply(ctx context.Context, handle string, post domain.CommunityPost) error
}

// StateStore loads and persists relay state across runs. Load on missing
// backing data returns a zero-value state, which triggers bootstrap.
type StateStore interface {
	Load(ctx context.Context) (*state.State, error)
	Save(ctx context.Context, st *state.State) error
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func()) error
	Stop(ctx context.Context) error
}
