package httpserver_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpserver "review_lens/internal/adapters/http_server"
	"review_lens/internal/app"
	"review_lens/internal/domain"
)

// ---- fakes ----

type stubFeed struct {
	entries []any
	info    map[string]any
}

func (f *stubFeed) GetReviewPage(ctx context.Context, region, appID string, page int) ([]any, error) {
	if page > 1 || f.entries == nil {
		return nil, domain.ErrNotFound
	}
	return f.entries, nil
}

func (f *stubFeed) LookupApp(ctx context.Context, appID, region string) (map[string]any, error) {
	if f.info == nil {
		return nil, domain.ErrNotFound
	}
	return f.info, nil
}

type stubRepo struct {
	page domain.ReviewsPage
	err  error
}

func (r *stubRepo) UpsertApp(ctx context.Context, a domain.AppInfo) error { return nil }
func (r *stubRepo) UpsertReviews(ctx context.Context, appID string, rs []domain.Review) error {
	return nil
}
func (r *stubRepo) RecordRun(ctx context.Context, run domain.CollectionRun) error { return nil }
func (r *stubRepo) ListReviews(ctx context.Context, appID string, pg domain.PageQuery) (domain.ReviewsPage, error) {
	return r.page, r.err
}

type noCache struct{}

func (noCache) Get(ctx context.Context, key string, dst any) (bool, error)    { return false, nil }
func (noCache) Set(ctx context.Context, key string, v any, ttlSec int) error { return nil }
func (noCache) Del(ctx context.Context, keys ...string) error                { return nil }

func feedEntries(n int) []any {
	out := []any{map[string]any{"title": map[string]any{"label": "metadata"}}}
	for i := 0; i < n; i++ {
		out = append(out, map[string]any{
			"id":        map[string]any{"label": fmt.Sprintf("r%d", i)},
			"content":   map[string]any{"label": fmt.Sprintf("app keeps crashing %d", i)},
			"im:rating": map[string]any{"label": "2"},
			"author":    map[string]any{"name": map[string]any{"label": fmt.Sprintf("user%d", i)}},
			"updated":   map[string]any{"label": "2025-05-01T10:00:00-07:00"},
		})
	}
	return out
}

func newTestServer(feed *stubFeed, repo *stubRepo) *httptest.Server {
	cfg := app.DefaultCollectorConfig()
	cfg.Regions = []string{}
	cfg.PageDelay, cfg.RegionDelay = 0, 0
	col := app.NewCollector(feed, cfg)

	srv := httpserver.New(5 * time.Second)
	srv.MountHandlers(&httpserver.Handlers{
		A: app.NewAnalysisService(feed, col, noCache{}, time.Minute),
		Q: app.NewQueryService(repo, noCache{}, time.Minute),
	})
	return httptest.NewServer(srv.Mux())
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	res, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { _ = res.Body.Close() })
	return res
}

func assertProblem(t *testing.T, res *http.Response, status int) {
	t.Helper()
	if res.StatusCode != status {
		t.Fatalf("expected %d, got %d", status, res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("expected problem+json, got %q", ct)
	}
	var p struct {
		Status int    `json:"status"`
		Title  string `json:"title"`
	}
	if err := json.NewDecoder(res.Body).Decode(&p); err != nil || p.Status != status || p.Title == "" {
		t.Fatalf("bad problem body: %+v (%v)", p, err)
	}
}

// ---- tests ----

func TestHealthz(t *testing.T) {
	ts := newTestServer(&stubFeed{}, &stubRepo{})
	defer ts.Close()

	res, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
}

func TestAnalyze_OK(t *testing.T) {
	feed := &stubFeed{entries: feedEntries(4), info: map[string]any{"trackName": "Notes", "userRatingCount": float64(77)}}
	ts := newTestServer(feed, &stubRepo{})
	defer ts.Close()

	res := post(t, ts.URL+"/v1/analyze", `{"appUrl":"https://apps.apple.com/us/app/notes/id42","targetCount":10}`)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	var body domain.Analysis
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.AppInfo.Name != "Notes" || body.TotalReviews != 4 || body.Sentiment.Negative != 4 {
		t.Fatalf("unexpected analysis: %+v", body)
	}
	if len(body.WordFrequency) == 0 || body.WordFrequency[0].Word != "crashing" {
		t.Fatalf("unexpected words: %+v", body.WordFrequency)
	}
	if body.DataSource.TotalAppReviews != 77 {
		t.Fatalf("unexpected data source: %+v", body.DataSource)
	}
}

func TestAnalyze_Errors(t *testing.T) {
	cases := []struct {
		name   string
		feed   *stubFeed
		body   string
		status int
	}{
		{"bad json", &stubFeed{}, `{"appUrl":`, http.StatusBadRequest},
		{"missing url", &stubFeed{}, `{}`, http.StatusBadRequest},
		{"bad url", &stubFeed{}, `{"appUrl":"https://example.com"}`, http.StatusBadRequest},
		{"bad target", &stubFeed{}, `{"appUrl":"https://apps.apple.com/us/app/x/id1","targetCount":999999}`, http.StatusBadRequest},
		{"unknown app", &stubFeed{entries: feedEntries(2)}, `{"appUrl":"https://apps.apple.com/us/app/x/id1"}`, http.StatusNotFound},
		{"no reviews", &stubFeed{info: map[string]any{"trackName": "X"}}, `{"appUrl":"https://apps.apple.com/us/app/x/id1"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(tc.feed, &stubRepo{})
			defer ts.Close()
			assertProblem(t, post(t, ts.URL+"/v1/analyze", tc.body), tc.status)
		})
	}
}

func TestWordCloud(t *testing.T) {
	ts := newTestServer(&stubFeed{}, &stubRepo{})
	defer ts.Close()

	res := post(t, ts.URL+"/v1/wordcloud", `{"words":[{"word":"crash","count":9},{"word":"login","count":2}],"width":400,"height":300}`)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	var got []domain.WordPosition
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0].Word != "crash" || got[0].Color == "" {
		t.Fatalf("unexpected positions: %+v", got)
	}

	empty := post(t, ts.URL+"/v1/wordcloud", `{"words":[{"word":"crash","count":9}],"width":0,"height":300}`)
	var none []domain.WordPosition
	if err := json.NewDecoder(empty.Body).Decode(&none); err != nil || none == nil || len(none) != 0 {
		t.Fatalf("expected empty array for zero width, got %v (%v)", none, err)
	}

	assertProblem(t, post(t, ts.URL+"/v1/wordcloud", `{"words":[],"width":10000,"height":300}`), http.StatusBadRequest)
}

func TestListReviews_ETag(t *testing.T) {
	repo := &stubRepo{page: domain.ReviewsPage{Items: []domain.Review{{ID: "r1", Author: "Ana", Rating: 5, Region: "US"}}}}
	ts := newTestServer(&stubFeed{}, repo)
	defer ts.Close()

	res, err := http.Get(ts.URL + "/v1/apps/42/reviews?limit=10")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	etag := res.Header.Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}
	var page domain.ReviewsPage
	if err := json.NewDecoder(res.Body).Decode(&page); err != nil || len(page.Items) != 1 || page.Items[0].Author != "Ana" {
		t.Fatalf("unexpected page: %+v (%v)", page, err)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/v1/apps/42/reviews?limit=10", nil)
	req.Header.Set("If-None-Match", etag)
	res2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res2.Body.Close()
	if res2.StatusCode != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", res2.StatusCode)
	}
}

func TestListReviews_BadRequests(t *testing.T) {
	repo := &stubRepo{err: fmt.Errorf("decode: %w", domain.ErrInvalidCursor)}
	ts := newTestServer(&stubFeed{}, repo)
	defer ts.Close()

	for _, path := range []string{
		"/v1/apps/abc/reviews",
		"/v1/apps/42/reviews?limit=0",
		"/v1/apps/42/reviews?limit=500",
		"/v1/apps/42/reviews?cursor=garbage",
	} {
		res, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		assertProblem(t, res, http.StatusBadRequest)
		_ = res.Body.Close()
	}
}
