package news

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/legislens/internal/llm"
	"github.com/ppiankov/legislens/internal/model"
)

func testWindow() model.DateWindow {
	return model.DateWindow{
		From: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestGuardianSource_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %s, want /search", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("api-key") != "g-key" {
			t.Errorf("api-key = %q", q.Get("api-key"))
		}
		if q.Get("from-date") != "2024-09-01" || q.Get("to-date") != "2024-12-01" {
			t.Errorf("dates = %s..%s", q.Get("from-date"), q.Get("to-date"))
		}
		if q.Get("page-size") != "5" {
			t.Errorf("page-size = %s, want 5", q.Get("page-size"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":{"status":"ok","results":[
			{"webTitle":"Housing bill clears committee","webUrl":"https://www.theguardian.com/us-news/1",
			 "webPublicationDate":"2024-11-14T10:00:00Z","fields":{"trailText":"<strong>Housing</strong> bill advances"}},
			{"webTitle":"","webUrl":"https://www.theguardian.com/us-news/2"}
		]}}`))
	}))
	defer server.Close()

	src := NewGuardianSource("g-key", server.URL, server.Client(), "legislens-test")
	articles, err := src.Search(context.Background(), Query{Text: `"Housing Act"`, Window: testWindow(), PageSize: 5})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("got %d articles, want 1", len(articles))
	}
	a := articles[0]
	if a.Description != "Housing bill advances" {
		t.Errorf("Description = %q", a.Description)
	}
	if a.Source != SourceGuardian || a.Publisher != "The Guardian" {
		t.Errorf("Source = %q, Publisher = %q", a.Source, a.Publisher)
	}
	if !a.PublishedAt.Equal(time.Date(2024, 11, 14, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("PublishedAt = %v", a.PublishedAt)
	}
}

func TestGuardianSource_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Unauthorized"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	src := NewGuardianSource("bad", server.URL, server.Client(), "")
	_, err := src.Search(context.Background(), Query{Text: "x", Window: testWindow()})
	if !errors.Is(err, llm.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestGoogleNewsSource_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("engine") != "google_news" {
			t.Errorf("engine = %q", q.Get("engine"))
		}
		if !strings.HasSuffix(q.Get("q"), " after:2024-09-01") {
			t.Errorf("q = %q, want after: operator", q.Get("q"))
		}
		_, _ = w.Write([]byte(`{"news_results":[
			{"title":"Tenants rally for housing act","link":"https://example.com/a","date":"11/14/2024, 08:00 AM, +0000 UTC","source":{"name":"Example"}},
			{"title":"Cluster","stories":[
				{"title":"Clustered one","link":"https://example.com/b","date":"11/13/2024, 09:30 PM, +0000 UTC"},
				{"title":"Clustered two","link":"https://example.com/c"}
			]}
		]}`))
	}))
	defer server.Close()

	src := NewGoogleNewsSource("s-key", server.URL, server.Client(), "")
	articles, err := src.Search(context.Background(), Query{Text: "housing", Window: testWindow(), PageSize: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("got %d articles, want 2 (page size)", len(articles))
	}
	if articles[1].URL != "https://example.com/b" {
		t.Errorf("second article = %s, want clustered story", articles[1].URL)
	}
	if articles[0].Publisher != "Example" {
		t.Errorf("Publisher = %q", articles[0].Publisher)
	}
	want := time.Date(2024, 11, 13, 21, 30, 0, 0, time.UTC)
	if !articles[1].PublishedAt.Equal(want) {
		t.Errorf("PublishedAt = %v, want %v", articles[1].PublishedAt, want)
	}
}

func TestGoogleNewsSource_NoResultsIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Google hasn't returned any results for this query."}`))
	}))
	defer server.Close()

	src := NewGoogleNewsSource("s-key", server.URL, server.Client(), "")
	articles, err := src.Search(context.Background(), Query{Text: "obscure"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(articles) != 0 {
		t.Errorf("got %d articles, want 0", len(articles))
	}
}

func TestNewsAPISource_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/everything" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "n-key" {
			t.Errorf("X-Api-Key = %q", r.Header.Get("X-Api-Key"))
		}
		if r.URL.Query().Get("sortBy") != "publishedAt" {
			t.Errorf("sortBy = %q", r.URL.Query().Get("sortBy"))
		}
		_, _ = w.Write([]byte(`{"status":"ok","articles":[
			{"source":{"name":"Local Paper"},"title":"Council weighs housing act","description":"d","url":"https://local.example/1","publishedAt":"2024-11-12T08:00:00Z"},
			{"source":{"name":"x"},"title":"[Removed]","url":"https://removed.example"}
		]}`))
	}))
	defer server.Close()

	src := NewNewsAPISource("n-key", server.URL, server.Client(), "")
	articles, err := src.Search(context.Background(), Query{Text: "housing", Window: testWindow()})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("got %d articles, want 1", len(articles))
	}
	if articles[0].Publisher != "Local Paper" || articles[0].Source != SourceNewsAPI {
		t.Errorf("article = %+v", articles[0])
	}
}

func TestNewsAPISource_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"status":"error","code":"rateLimited","message":"slow down"}`))
	}))
	defer server.Close()

	src := NewNewsAPISource("n-key", server.URL, server.Client(), "")
	_, err := src.Search(context.Background(), Query{Text: "housing"})
	if !errors.Is(err, llm.ErrNetworkOrQuota) {
		t.Errorf("err = %v, want ErrNetworkOrQuota", err)
	}
}

func TestNewsAPISource_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer server.Close()

	src := NewNewsAPISource("n-key", server.URL, server.Client(), "")
	_, err := src.Search(context.Background(), Query{Text: "housing"})
	if !errors.Is(err, llm.ErrMalformedResponse) {
		t.Errorf("err = %v, want ErrMalformedResponse", err)
	}
}
