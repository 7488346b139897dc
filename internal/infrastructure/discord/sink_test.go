package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

func newTestSink(t *testing.T, handler http.Handler) (*Sink, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	sink := NewSink("token", "chan-1", 1000)
	sink.apiBase = server.URL
	sink.client = server.Client()
	return sink, server
}

func TestPublishRootReturnsMessageID(t *testing.T) {
	t.Parallel()

	var got messagePayload
	sink, _ := newTestSink(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/channels/chan-1/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bot token" {
			t.Errorf("unexpected auth header: %s", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		fmt.Fprint(w, `{"id": "111222333"}`)
	}))

	handle, err := sink.PublishRoot(context.Background(), domain.OfficialArticle{
		URL:         "https://site/news/lunar-new-year-2026",
		Title:       "Celebrate Lunar New Year",
		Description: "A celebration approaches.",
		ImageURL:    "https://cdn.example/lny.png",
		Published:   "2026-02-17",
	})
	if err != nil {
		t.Fatalf("publish root: %v", err)
	}
	if handle != "111222333" {
		t.Fatalf("unexpected handle: %s", handle)
	}

	if len(got.Embeds) != 1 {
		t.Fatalf("expected one embed, got %d", len(got.Embeds))
	}
	e := got.Embeds[0]
	if e.Title != "Celebrate Lunar New Year" || e.URL != "https://site/news/lunar-new-year-2026" {
		t.Fatalf("embed mismatch: %+v", e)
	}
	if e.Image == nil || e.Image.URL != "https://cdn.example/lny.png" {
		t.Fatalf("embed image mismatch: %+v", e.Image)
	}
	if e.Footer == nil || e.Footer.Text != "Pokémon GO • 2026-02-17" {
		t.Fatalf("embed footer mismatch: %+v", e.Footer)
	}
	if got.MessageReference != nil {
		t.Fatal("root publish must not carry a message reference")
	}
}

func TestPublishReplyReferencesHandle(t *testing.T) {
	t.Parallel()

	var got messagePayload
	sink, _ := newTestSink(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		fmt.Fprint(w, `{"id": "444"}`)
	}))

	err := sink.PublishReply(context.Background(), "111222333", domain.CommunityPost{
		Link:     "https://community.example/p/1",
		Title:    "Hype post",
		ImageURL: "https://cdn.example/hype.png",
	})
	if err != nil {
		t.Fatalf("publish reply: %v", err)
	}

	if got.MessageReference == nil || got.MessageReference.MessageID != "111222333" {
		t.Fatalf("reply missing message reference: %+v", got.MessageReference)
	}
}

func TestRateLimitSurfacesAdvisedWait(t *testing.T) {
	t.Parallel()

	sink, _ := newTestSink(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"retry_after": 1.5}`)
	}))

	_, err := sink.PublishRoot(context.Background(), domain.OfficialArticle{URL: "u", Title: "t"})
	var limited *ports.RateLimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected RateLimitedError, got %v", err)
	}
	if limited.RetryAfter != 1500*time.Millisecond {
		t.Fatalf("unexpected advised wait: %s", limited.RetryAfter)
	}
}

func TestBadCredentialsAreFatal(t *testing.T) {
	t.Parallel()

	sink, _ := newTestSink(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "401: Unauthorized"}`, http.StatusUnauthorized)
	}))

	_, err := sink.PublishRoot(context.Background(), domain.OfficialArticle{URL: "u", Title: "t"})
	var fatal *ports.FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected FatalError, got %v", err)
	}
}

func TestServerErrorIsRetryableAtItemLevel(t *testing.T) {
	t.Parallel()

	sink, _ := newTestSink(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "oops", http.StatusInternalServerError)
	}))

	_, err := sink.PublishRoot(context.Background(), domain.OfficialArticle{URL: "u", Title: "t"})
	if err == nil {
		t.Fatal("expected error")
	}
	var fatal *ports.FatalError
	if errors.As(err, &fatal) {
		t.Fatalf("5xx must not be fatal: %v", err)
	}
	var limited *ports.RateLimitedError
	if errors.As(err, &limited) {
		t.Fatalf("5xx must not be rate-limited: %v", err)
	}
}

func TestMisconfiguredSinkFailsFast(t *testing.T) {
	t.Parallel()

	sink := NewSink("", "", 1)
	_, err := sink.PublishRoot(context.Background(), domain.OfficialArticle{URL: "u"})
	var fatal *ports.FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected FatalError for missing credentials, got %v", err)
	}
}
