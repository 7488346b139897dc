package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Community Updates</title>
    <item>
      <title>Lunar New Year Hype</title>
      <link>https://community.example/p/1</link>
      <description>&lt;p&gt;Celebrations incoming!&lt;/p&gt;</description>
      <enclosure url="https://cdn.example/lny.jpg" type="image/jpeg" length="1024"/>
    </item>
    <item>
      <title>Embedded Image Post</title>
      <link>https://community.example/p/2</link>
      <description>&lt;p&gt;Look at this &lt;img src="https://cdn.example/embedded.png"/&gt;&lt;/p&gt;</description>
    </item>
    <item>
      <title>Text Only Post</title>
      <link>https://community.example/p/3</link>
      <description>no attachment here</description>
    </item>
  </channel>
</rss>`

func TestFetchPosts(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssFixture)
	}))
	defer server.Close()

	source := NewCommunitySource(server.Client(), server.URL, 20, nil)
	posts, err := source.FetchPosts(context.Background())
	if err != nil {
		t.Fatalf("fetch posts: %v", err)
	}

	// The attachment-less item must be filtered out.
	if len(posts) != 2 {
		t.Fatalf("expected 2 eligible posts, got %d: %+v", len(posts), posts)
	}

	first := posts[0]
	if first.Link != "https://community.example/p/1" {
		t.Fatalf("unexpected first link: %s", first.Link)
	}
	if first.ImageURL != "https://cdn.example/lny.jpg" {
		t.Fatalf("enclosure image not picked up: %s", first.ImageURL)
	}
	if first.Description != "Celebrations incoming!" {
		t.Fatalf("description HTML not stripped: %q", first.Description)
	}

	second := posts[1]
	if second.ImageURL != "https://cdn.example/embedded.png" {
		t.Fatalf("embedded image not extracted: %s", second.ImageURL)
	}
}

func TestFetchPostsRespectsLimit(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssFixture)
	}))
	defer server.Close()

	source := NewCommunitySource(server.Client(), server.URL, 1, nil)
	posts, err := source.FetchPosts(context.Background())
	if err != nil {
		t.Fatalf("fetch posts: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("limit ignored: got %d posts", len(posts))
	}
}

func TestFetchPostsEmptyURL(t *testing.T) {
	t.Parallel()

	source := NewCommunitySource(nil, "", 10, nil)
	posts, err := source.FetchPosts(context.Background())
	if err != nil {
		t.Fatalf("fetch posts: %v", err)
	}
	if posts != nil {
		t.Fatalf("expected no posts without a feed url, got %v", posts)
	}
}

func TestFetchPostsBadFeed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	source := NewCommunitySource(server.Client(), server.URL, 10, nil)
	if _, err := source.FetchPosts(context.Background()); err == nil {
		t.Fatal("expected error for unavailable feed")
	}
}
