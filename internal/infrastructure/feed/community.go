package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// CommunitySource reads the supplement feed (RSS/Atom) and maps items to
// community posts. Items without a resolvable image are dropped here;
// only attachment-bearing posts are eligible for pairing.
type CommunitySource struct {
	parser  *gofeed.Parser
	feedURL string
	limit   int
	logger  *slog.Logger
}

var _ ports.CommunitySource = (*CommunitySource)(nil)

// NewCommunitySource wires an HTTP client into a gofeed parser.
func NewCommunitySource(client *http.Client, feedURL string, limit int, logger *slog.Logger) *CommunitySource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	parser := gofeed.NewParser()
	parser.Client = client
	if limit <= 0 {
		limit = 20
	}
	return &CommunitySource{
		parser:  parser,
		feedURL: feedURL,
		limit:   limit,
		logger:  logger,
	}
}

// FetchPosts returns the newest feed window, feed order preserved.
func (s *CommunitySource) FetchPosts(ctx context.Context) ([]domain.CommunityPost, error) {
	if s.feedURL == "" {
		return nil, nil
	}

	parsed, err := s.parser.ParseURLWithContext(s.feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse community feed: %w", err)
	}

	items := parsed.Items
	if len(items) > s.limit {
		items = items[:s.limit]
	}

	posts := make([]domain.CommunityPost, 0, len(items))
	for _, item := range items {
		if item.Link == "" {
			continue
		}
		post := domain.CommunityPost{
			Link:        item.Link,
			Title:       item.Title,
			Description: stripHTML(item.Description),
			ImageURL:    itemImage(item),
		}
		if !post.HasAttachment() {
			if s.logger != nil {
				s.logger.Debug("dropping post without attachment", "link", post.Link)
			}
			continue
		}
		posts = append(posts, post)
	}

	return posts, nil
}

// itemImage resolves the post attachment: declared feed image first, then
// image enclosures, then the first <img> embedded in the description HTML.
func itemImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(item.Description))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return src
}

// stripHTML flattens description markup to text for matching.
func stripHTML(raw string) string {
	if !strings.Contains(raw, "<") {
		return strings.TrimSpace(raw)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(doc.Text())
}
