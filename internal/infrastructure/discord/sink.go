package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

const defaultAPIBase = "https://discord.com/api/v10"

// Sink posts embeds to a Discord channel via the bot API. A root publish
// returns the created message id, which later replies reference.
type Sink struct {
	apiBase   string
	botToken  string
	channelID string
	footer    string
	client    *http.Client
	limiter   *rate.Limiter
}

var _ ports.Sink = (*Sink)(nil)

// NewSink registers bot credentials and the target channel. requestsPerSecond
// paces outgoing calls client-side on top of server 429 handling.
func NewSink(botToken, channelID string, requestsPerSecond float64) *Sink {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &Sink{
		apiBase:   defaultAPIBase,
		botToken:  botToken,
		channelID: channelID,
		footer:    "Pokémon GO",
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

type embedImage struct {
	URL string `json:"url"`
}

type embedFooter struct {
	Text string `json:"text"`
}

type embed struct {
	Title       string       `json:"title,omitempty"`
	URL         string       `json:"url,omitempty"`
	Description string       `json:"description,omitempty"`
	Image       *embedImage  `json:"image,omitempty"`
	Footer      *embedFooter `json:"footer,omitempty"`
}

type messageReference struct {
	MessageID string `json:"message_id"`
}

type messagePayload struct {
	Embeds           []embed           `json:"embeds"`
	MessageReference *messageReference `json:"message_reference,omitempty"`
}

// PublishRoot posts the official article embed and returns the message id.
func (s *Sink) PublishRoot(ctx context.Context, article domain.OfficialArticle) (string, error) {
	e := embed{
		Title:       article.Title,
		URL:         article.URL,
		Description: article.Description,
		Footer:      &embedFooter{Text: s.footer},
	}
	if article.ImageURL != "" {
		e.Image = &embedImage{URL: article.ImageURL}
	}
	if article.Published != "" {
		e.Footer.Text = fmt.Sprintf("%s • %s", s.footer, article.Published)
	}

	return s.send(ctx, messagePayload{Embeds: []embed{e}})
}

// PublishReply posts the community supplement under an existing message.
func (s *Sink) PublishReply(ctx context.Context, handle string, post domain.CommunityPost) error {
	e := embed{
		Title:       post.Title,
		URL:         post.Link,
		Description: post.Description,
		Footer:      &embedFooter{Text: "Community"},
	}
	if post.ImageURL != "" {
		e.Image = &embedImage{URL: post.ImageURL}
	}

	_, err := s.send(ctx, messagePayload{
		Embeds:           []embed{e},
		MessageReference: &messageReference{MessageID: handle},
	})
	return err
}

func (s *Sink) send(ctx context.Context, payload messagePayload) (string, error) {
	if s.botToken == "" || s.channelID == "" {
		return "", &ports.FatalError{Reason: "discord sink misconfigured"}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("limiter wait: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/channels/%s/messages", s.apiBase, s.channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+s.botToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &ports.RateLimitedError{RetryAfter: retryAfter(resp)}
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return "", &ports.FatalError{Reason: "discord rejected credentials", Err: responseError(resp)}
	case resp.StatusCode == http.StatusBadRequest:
		return "", &ports.FatalError{Reason: "discord rejected payload", Err: responseError(resp)}
	case resp.StatusCode >= http.StatusBadRequest:
		return "", responseError(resp)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("discord response missing message id")
	}
	return created.ID, nil
}

// retryAfter reads the advised wait from the 429 body, falling back to the
// header; zero means the caller applies its default backoff.
func retryAfter(resp *http.Response) time.Duration {
	var body struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.RetryAfter > 0 {
		return time.Duration(body.RetryAfter * float64(time.Second))
	}
	if header := resp.Header.Get("Retry-After"); header != "" {
		if d, err := time.ParseDuration(header + "s"); err == nil {
			return d
		}
	}
	return 0
}

func responseError(resp *http.Response) error {
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("discord error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
}
