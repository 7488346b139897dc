package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

const (
	defaultCandidateLimit = 10
	descriptionLimit      = 250
	userAgent             = "NewsRelay/1.0 (+https://github.com)"
)

var articlePathExpr = regexp.MustCompile(`^/news/[^?#]+`)

// NewsScanner crawls the official news index and extracts article metadata
// from each candidate page's OpenGraph tags.
type NewsScanner struct {
	client  *http.Client
	listURL string
	baseURL string
	limit   int
	logger  *slog.Logger
}

var (
	_ ports.OfficialSource  = (*NewsScanner)(nil)
	_ ports.ArticleResolver = (*NewsScanner)(nil)
)

// NewNewsScanner wires an HTTP client; limit defaults to 10 candidates.
func NewNewsScanner(client *http.Client, listURL, baseURL string, limit int, logger *slog.Logger) *NewsScanner {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if limit <= 0 {
		limit = defaultCandidateLimit
	}
	return &NewsScanner{
		client:  client,
		listURL: listURL,
		baseURL: strings.TrimRight(baseURL, "/"),
		limit:   limit,
		logger:  logger,
	}
}

// FetchCandidates returns the newest article window from the index page,
// page order preserved (newest near the top). A malformed article page
// skips that single item, not the batch.
func (s *NewsScanner) FetchCandidates(ctx context.Context) ([]domain.OfficialArticle, error) {
	doc, err := s.fetchDocument(ctx, s.listURL)
	if err != nil {
		return nil, fmt.Errorf("news index: %w", err)
	}

	links := s.extractLinks(doc)
	if len(links) > s.limit {
		links = links[:s.limit]
	}

	articles := make([]domain.OfficialArticle, 0, len(links))
	for _, link := range links {
		article, err := s.ResolveArticle(ctx, link)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("skipping malformed article", "url", link, "error", err)
			}
			continue
		}
		articles = append(articles, article)
	}

	return articles, nil
}

// ResolveArticle fetches one article page and extracts its metadata.
func (s *NewsScanner) ResolveArticle(ctx context.Context, articleURL string) (domain.OfficialArticle, error) {
	doc, err := s.fetchDocument(ctx, articleURL)
	if err != nil {
		return domain.OfficialArticle{}, fmt.Errorf("article page: %w", err)
	}

	title := metaContent(doc, "og:title", "")
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	description := metaContent(doc, "og:description", "description")
	if runes := []rune(description); len(runes) > descriptionLimit {
		description = string(runes[:descriptionLimit])
	}

	return domain.OfficialArticle{
		URL:         articleURL,
		Title:       title,
		Description: description,
		ImageURL:    metaContent(doc, "og:image", ""),
		Published:   normalizePublished(metaContent(doc, "article:published_time", "")),
	}, nil
}

func (s *NewsScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news site returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

// extractLinks collects /news/<slug> anchors, absolutized and stripped of
// query/fragment, de-duplicated preserving page order.
func (s *NewsScanner) extractLinks(doc *goquery.Document) []string {
	seen := map[string]struct{}{}
	var ordered []string

	doc.Find("a[href]").Each(func(i int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)

		path := href
		if strings.HasPrefix(href, "http") {
			if !strings.HasPrefix(href, s.baseURL+"/") {
				return
			}
			path = strings.TrimPrefix(href, s.baseURL)
		}
		if !articlePathExpr.MatchString(path) {
			return
		}

		if i := strings.IndexAny(path, "?#"); i >= 0 {
			path = path[:i]
		}
		full := s.baseURL + path
		if _, ok := seen[full]; ok {
			return
		}
		seen[full] = struct{}{}
		ordered = append(ordered, full)
	})

	return ordered
}

func metaContent(doc *goquery.Document, property, name string) string {
	if property != "" {
		sel := doc.Find(fmt.Sprintf(`meta[property=%q]`, property)).First()
		if content, ok := sel.Attr("content"); ok && strings.TrimSpace(content) != "" {
			return strings.TrimSpace(content)
		}
	}
	if name != "" {
		sel := doc.Find(fmt.Sprintf(`meta[name=%q]`, name)).First()
		if content, ok := sel.Attr("content"); ok && strings.TrimSpace(content) != "" {
			return strings.TrimSpace(content)
		}
	}
	return ""
}

// normalizePublished renders an ISO timestamp as a UTC date; anything
// unparseable passes through untouched.
func normalizePublished(raw string) string {
	if raw == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return t.UTC().Format("2006-01-02")
}
