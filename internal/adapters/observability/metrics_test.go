package observability_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"review_lens/internal/adapters/observability"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	// record one sample per family so they show up in the exposition
	observability.ObserveHTTP("/test", "GET", 200, 12*time.Millisecond)
	observability.ObserveFeedPage("us", "ok")
	observability.ObserveCollected("us", "accepted", 3)
	observability.ObserveLayout(2, 1)

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, want := range []string{
		"review_lens_http_requests_total",
		`review_lens_feed_pages_total{outcome="ok",region="US"}`,
		`review_lens_collected_reviews_total{outcome="accepted",region="US"}`,
		`review_lens_wordcloud_words_total{outcome="dropped"}`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in output", want)
		}
	}
}

func TestNewLogger_Level(t *testing.T) {
	if l := observability.NewLogger("prod", "debug"); l.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %s", l.GetLevel())
	}
	if l := observability.NewLogger("dev", "bogus"); l.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info fallback, got %s", l.GetLevel())
	}
}
