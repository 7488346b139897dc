package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
	"NewsRelay/internal/state"
)

// PipelineDeps wires all driven adapters into the relay pipeline.
type PipelineDeps struct {
	Officials ports.OfficialSource
	Community ports.CommunitySource
	Resolver  ports.ArticleResolver
	Matcher   ports.Matcher
	Fallback  ports.Matcher
	Sink      ports.Sink
	Store     ports.StateStore
	Logger    *slog.Logger
}

// Options caps per-run publish volume and tunes retry behavior.
type Options struct {
	MaxOfficialPerRun  int
	MaxCommunityPerRun int
	RetryUnmatched     bool
	// DisableBootstrap treats a fresh state as steady instead of seeding
	// it silently. Off by default; enabling it floods the channel with
	// the current backlog on first run.
	DisableBootstrap bool
	MaxSinkAttempts  int
	DefaultBackoff   time.Duration
}

// Pipeline implements the relay workflow: publish each new official article
// once, and at most one matching community supplement as a reply under it.
type Pipeline struct {
	officials ports.OfficialSource
	community ports.CommunitySource
	resolver  ports.ArticleResolver
	matcher   ports.Matcher
	fallback  ports.Matcher
	sink      ports.Sink
	store     ports.StateStore
	logger    *slog.Logger
	opts      Options

	// sleep is swapped out by tests to avoid real backoff waits.
	sleep func(time.Duration)
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps, opts Options) *Pipeline {
	if opts.MaxOfficialPerRun <= 0 {
		opts.MaxOfficialPerRun = 5
	}
	if opts.MaxCommunityPerRun <= 0 {
		opts.MaxCommunityPerRun = 10
	}
	if opts.MaxSinkAttempts <= 0 {
		opts.MaxSinkAttempts = 3
	}
	if opts.DefaultBackoff <= 0 {
		opts.DefaultBackoff = 5 * time.Second
	}
	return &Pipeline{
		officials: deps.Officials,
		community: deps.Community,
		resolver:  deps.Resolver,
		matcher:   deps.Matcher,
		fallback:  deps.Fallback,
		sink:      deps.Sink,
		store:     deps.Store,
		logger:    deps.Logger,
		opts:      opts,
		sleep:     time.Sleep,
	}
}

// Run executes one pipeline invocation: load state, bootstrap or publish
// in two phases, persist. Invocations must not overlap; callers serialize.
func (p *Pipeline) Run(ctx context.Context) error {
	st, err := p.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	articles, err := p.officials.FetchCandidates(ctx)
	if err != nil {
		// Phase B matches against the official pool, so nothing useful can
		// run without it.
		return fmt.Errorf("fetch official candidates: %w", err)
	}

	posts, err := p.community.FetchPosts(ctx)
	if err != nil {
		p.warn("community feed unavailable, officials only this run", "error", err)
		posts = nil
	}

	if !st.Bootstrapped {
		if !p.opts.DisableBootstrap {
			return p.bootstrap(ctx, st, articles, posts)
		}
		st.Bootstrapped = true
	}

	if err := p.publishOfficials(ctx, st, articles); err != nil {
		p.saveState(ctx, st)
		return err
	}
	p.saveState(ctx, st)

	if err := p.publishSupplements(ctx, st, articles, posts); err != nil {
		p.saveState(ctx, st)
		return err
	}

	if err := p.store.Save(ctx, st); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// bootstrap seeds the seen sets from the current snapshots and publishes
// nothing, so the first run against empty state never floods the channel.
func (p *Pipeline) bootstrap(ctx context.Context, st *state.State, articles []domain.OfficialArticle, posts []domain.CommunityPost) error {
	for _, art := range articles {
		st.SeenOfficials.Add(art.URL)
	}
	for _, post := range posts {
		st.SeenCommunity.Add(post.Link)
	}
	st.Bootstrapped = true

	p.info("bootstrap complete", "officials_seeded", len(articles), "community_seeded", len(posts))
	if err := p.store.Save(ctx, st); err != nil {
		return fmt.Errorf("save bootstrap state: %w", err)
	}
	return nil
}

// publishOfficials is phase A: new officials, oldest first, capped.
func (p *Pipeline) publishOfficials(ctx context.Context, st *state.State, articles []domain.OfficialArticle) error {
	queue := selectNew(articles, func(a domain.OfficialArticle) string { return a.URL }, st.SeenOfficials, p.opts.MaxOfficialPerRun)

	for _, art := range queue {
		if delivery, ok := st.Handles[art.URL]; ok {
			// Re-run against stale state; the root already exists.
			p.info("official already delivered", "url", art.URL, "handle", delivery.Handle)
			st.SeenOfficials.Add(art.URL)
			continue
		}

		handle, err := p.publishRootRetrying(ctx, art)
		if err != nil {
			if isFatal(err) {
				return fmt.Errorf("publish official %s: %w", art.URL, err)
			}
			p.warn("official publish failed, will retry next run", "url", art.URL, "error", err)
			continue
		}

		st.Handles[art.URL] = state.Delivery{Handle: handle}
		st.SeenOfficials.Add(art.URL)
		p.info("published official", "url", art.URL, "handle", handle)
	}
	return nil
}

// publishSupplements is phase B: new attachment-bearing community posts,
// oldest first, capped, matched against the entire official pool.
func (p *Pipeline) publishSupplements(ctx context.Context, st *state.State, articles []domain.OfficialArticle, posts []domain.CommunityPost) error {
	eligible := make([]domain.CommunityPost, 0, len(posts))
	for _, post := range posts {
		if post.HasAttachment() {
			eligible = append(eligible, post)
		}
	}
	queue := selectNew(eligible, func(c domain.CommunityPost) string { return c.Link }, st.SeenCommunity, p.opts.MaxCommunityPerRun)

	for _, post := range queue {
		if err := p.pairAndPublish(ctx, st, post, articles); err != nil {
			if isFatal(err) {
				return fmt.Errorf("publish supplement %s: %w", post.Link, err)
			}
			p.warn("supplement failed, pairing abandoned", "post", post.Link, "error", err)
			st.SeenCommunity.Add(post.Link)
		}
	}
	return nil
}

// pairAndPublish runs the match-then-reply chain for one community post.
// Non-fatal errors isolate to this post.
func (p *Pipeline) pairAndPublish(ctx context.Context, st *state.State, post domain.CommunityPost, pool []domain.OfficialArticle) error {
	res, err := p.matcher.Match(ctx, post, pool)
	if err != nil {
		return fmt.Errorf("match: %w", err)
	}
	if res == nil && p.fallback != nil {
		res, err = p.fallback.Match(ctx, post, pool)
		if err != nil {
			p.warn("fallback matcher failed", "post", post.Link, "error", err)
			res = nil
		}
	}

	if res == nil {
		if p.opts.RetryUnmatched {
			// Left unseen so the post is retried once matching improves.
			p.info("no match, keeping for retry", "post", post.Link)
			return nil
		}
		p.info("no match", "post", post.Link)
		st.SeenCommunity.Add(post.Link)
		return nil
	}

	delivery, exists := st.Handles[res.OfficialURL]
	if exists && delivery.PairDone {
		p.info("official already paired", "post", post.Link, "official", res.OfficialURL)
		st.SeenCommunity.Add(post.Link)
		return nil
	}

	if !exists {
		art, ok := findArticle(pool, res.OfficialURL)
		if !ok {
			// Direct link resolved outside the candidate window.
			if p.resolver == nil {
				st.SeenCommunity.Add(post.Link)
				return nil
			}
			art, err = p.resolver.ResolveArticle(ctx, res.OfficialURL)
			if err != nil {
				return fmt.Errorf("resolve official %s: %w", res.OfficialURL, err)
			}
		}

		handle, err := p.publishRootRetrying(ctx, art)
		if err != nil {
			return fmt.Errorf("official-first publish: %w", err)
		}
		delivery = state.Delivery{Handle: handle}
		st.Handles[res.OfficialURL] = delivery
		st.SeenOfficials.Add(res.OfficialURL)
		p.info("published official for pairing", "url", res.OfficialURL, "handle", handle)
	}

	if err := p.publishReplyRetrying(ctx, delivery.Handle, post); err != nil {
		return fmt.Errorf("reply publish: %w", err)
	}

	delivery.PairDone = true
	st.Handles[res.OfficialURL] = delivery
	st.SeenCommunity.Add(post.Link)
	p.info("published supplement",
		"post", post.Link,
		"official", res.OfficialURL,
		"score", res.Score,
		"reason", res.Reason,
	)
	return nil
}

func (p *Pipeline) publishRootRetrying(ctx context.Context, art domain.OfficialArticle) (string, error) {
	var handle string
	err := p.retrying(ctx, func() error {
		var err error
		handle, err = p.sink.PublishRoot(ctx, art)
		return err
	})
	return handle, err
}

func (p *Pipeline) publishReplyRetrying(ctx context.Context, handle string, post domain.CommunityPost) error {
	return p.retrying(ctx, func() error {
		return p.sink.PublishReply(ctx, handle, post)
	})
}

// retrying blocks through advised rate-limit waits up to the attempt
// bound, then escalates to fatal. Any other error passes through as is.
func (p *Pipeline) retrying(ctx context.Context, call func() error) error {
	var lastErr error
	for attempt := 1; attempt <= p.opts.MaxSinkAttempts; attempt++ {
		err := call()
		if err == nil {
			return nil
		}

		var limited *ports.RateLimitedError
		if !errors.As(err, &limited) {
			return err
		}

		wait := limited.RetryAfter
		if wait <= 0 {
			wait = p.opts.DefaultBackoff
		}
		p.warn("sink rate limited", "attempt", attempt, "wait", wait)
		lastErr = err

		if attempt < p.opts.MaxSinkAttempts {
			p.sleep(wait)
		}
	}
	return &ports.FatalError{Reason: "rate limit retries exhausted", Err: lastErr}
}

// saveState is the incremental persist between phases; a failed save is
// logged rather than aborting the run, the final save still reports.
func (p *Pipeline) saveState(ctx context.Context, st *state.State) {
	if err := p.store.Save(ctx, st); err != nil {
		p.warn("incremental state save failed", "error", err)
	}
}

// selectNew filters unseen items and returns the oldest maxItems of them.
// Input lists arrive newest first, so oldest-first means reversed order.
func selectNew[T any](items []T, id func(T) string, seen *state.BoundedSet, maxItems int) []T {
	var fresh []T
	for _, item := range items {
		if !seen.Contains(id(item)) {
			fresh = append(fresh, item)
		}
	}

	queue := make([]T, 0, len(fresh))
	for i := len(fresh) - 1; i >= 0; i-- {
		queue = append(queue, fresh[i])
	}
	if len(queue) > maxItems {
		queue = queue[:maxItems]
	}
	return queue
}

func findArticle(pool []domain.OfficialArticle, url string) (domain.OfficialArticle, bool) {
	for _, art := range pool {
		if art.URL == url {
			return art, true
		}
	}
	return domain.OfficialArticle{}, false
}

func isFatal(err error) bool {
	var fatal *ports.FatalError
	return errors.As(err, &fatal)
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
