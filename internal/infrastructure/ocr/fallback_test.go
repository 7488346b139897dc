package ocr

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"NewsRelay/internal/domain"
)

type captureMatcher struct {
	got    *domain.CommunityPost
	result *domain.MatchResult
}

func (m *captureMatcher) Match(ctx context.Context, post domain.CommunityPost, candidates []domain.OfficialArticle) (*domain.MatchResult, error) {
	m.got = &post
	return m.result, nil
}

func TestFallbackDisabledWithoutEndpoint(t *testing.T) {
	t.Parallel()

	inner := &captureMatcher{}
	m := NewFallbackMatcher("", "", inner, nil)

	res, err := m.Match(context.Background(), domain.CommunityPost{ImageURL: "https://cdn/x.png"}, nil)
	if err != nil || res != nil {
		t.Fatalf("expected inert fallback, got %v / %v", res, err)
	}
	if inner.got != nil {
		t.Fatal("inner matcher consulted without an endpoint")
	}
}

func TestFallbackRematchesOverExtractedText(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer key" {
			t.Errorf("unexpected auth header: %s", auth)
		}
		fmt.Fprint(w, `{"text": "Lunar New Year event banner"}`)
	}))
	defer server.Close()

	want := &domain.MatchResult{OfficialURL: "https://site/news/lny", Score: 0.7}
	inner := &captureMatcher{result: want}
	m := NewFallbackMatcher(server.URL, "key", inner, nil)
	m.client = server.Client()

	post := domain.CommunityPost{
		Link:        "https://community/p/1",
		Title:       "look at this",
		Description: "🎉🎉🎉",
		ImageURL:    "https://cdn/x.png",
	}
	res, err := m.Match(context.Background(), post, nil)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if res != want {
		t.Fatalf("inner result not passed through: %+v", res)
	}

	if inner.got == nil {
		t.Fatal("inner matcher not consulted")
	}
	if inner.got.Description != "Lunar New Year event banner" {
		t.Fatalf("OCR text not substituted: %q", inner.got.Description)
	}
	if inner.got.Link != post.Link {
		t.Fatalf("post identity lost: %s", inner.got.Link)
	}
}

func TestFallbackEmptyTextShortCircuits(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"text": "  "}`)
	}))
	defer server.Close()

	inner := &captureMatcher{result: &domain.MatchResult{}}
	m := NewFallbackMatcher(server.URL, "", inner, nil)
	m.client = server.Client()

	res, err := m.Match(context.Background(), domain.CommunityPost{ImageURL: "https://cdn/x.png"}, nil)
	if err != nil || res != nil {
		t.Fatalf("expected no result for blank OCR text, got %v / %v", res, err)
	}
	if inner.got != nil {
		t.Fatal("inner matcher consulted with blank text")
	}
}
