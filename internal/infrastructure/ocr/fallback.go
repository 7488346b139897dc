package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// FallbackMatcher is an optional second matching pass: when the primary
// engine misses, it extracts text from the post's image through an external
// OCR endpoint and re-runs the primary matcher over that text. It is only
// wired when an endpoint is configured.
type FallbackMatcher struct {
	endpoint string
	apiKey   string
	inner    ports.Matcher
	client   *http.Client
	logger   *slog.Logger
}

var _ ports.Matcher = (*FallbackMatcher)(nil)

// NewFallbackMatcher wraps the primary matcher with an OCR text source.
func NewFallbackMatcher(endpoint, apiKey string, inner ports.Matcher, logger *slog.Logger) *FallbackMatcher {
	return &FallbackMatcher{
		endpoint: endpoint,
		apiKey:   apiKey,
		inner:    inner,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

// Match extracts image text and delegates to the primary matcher with the
// post's description replaced by it.
func (m *FallbackMatcher) Match(ctx context.Context, post domain.CommunityPost, candidates []domain.OfficialArticle) (*domain.MatchResult, error) {
	if m.endpoint == "" || !post.HasAttachment() {
		return nil, nil
	}

	text, err := m.extractText(ctx, post.ImageURL)
	if err != nil {
		return nil, fmt.Errorf("ocr extract: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if m.logger != nil {
		m.logger.Debug("ocr fallback text", "post", post.Link, "chars", len(text))
	}

	ocrPost := post
	ocrPost.Title = ""
	ocrPost.Description = text
	return m.inner.Match(ctx, ocrPost, candidates)
}

func (m *FallbackMatcher) extractText(ctx context.Context, imageURL string) (string, error) {
	body, err := json.Marshal(map[string]string{"image_url": imageURL})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("ocr error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return result.Text, nil
}
