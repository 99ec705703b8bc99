package app_test

import (
	"context"
	"errors"
	"testing"

	"review_lens/internal/app"
	"review_lens/internal/domain"
)

func TestIngestAll_IsolatesFailures(t *testing.T) {
	feed := smallFeed()
	repo := &fakeRepo{}
	svc := app.NewIngestionService(feed, app.NewCollector(feed, quickConfig()), repo, &fakeCache{})

	urls := []string{notesURL, "not a url", "https://apps.apple.com/gb/app/other/id777"}
	res := svc.IngestAll(context.Background(), urls, 3, 2)

	if len(res) != 3 {
		t.Fatalf("expected 3 results, got %d", len(res))
	}
	for i, r := range res {
		if r.AppURL != urls[i] {
			t.Fatalf("result %d out of order: %+v", i, r)
		}
	}
	if res[0].Err != nil || res[0].Run.Collected != 5 {
		t.Fatalf("first app should succeed: %+v", res[0])
	}
	if !errors.Is(res[1].Err, domain.ErrInvalidAppURL) {
		t.Fatalf("expected invalid url error, got %v", res[1].Err)
	}
	// the fake feed serves the same app for any id; the gb storefront visits gb first
	if res[2].Err != nil || res[2].Run.Region != "gb" {
		t.Fatalf("third app should succeed: %+v", res[2])
	}
	if len(repo.runs) != 2 {
		t.Fatalf("expected 2 recorded runs, got %d", len(repo.runs))
	}
}

func TestIngestAll_CancelledContext(t *testing.T) {
	feed := smallFeed()
	svc := app.NewIngestionService(feed, app.NewCollector(feed, quickConfig()), &fakeRepo{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, r := range svc.IngestAll(ctx, []string{notesURL, notesURL}, 3, 1) {
		if r.Err == nil {
			t.Fatalf("expected error for cancelled batch: %+v", r)
		}
	}
}
