package domain

import (
	"context"
	"time"
)

type ReviewRepository interface {
	// Write paths
	UpsertApp(ctx context.Context, a AppInfo) error
	UpsertReviews(ctx context.Context, appID string, rs []Review) error
	RecordRun(ctx context.Context, run CollectionRun) error

	// Read paths
	ListReviews(ctx context.Context, appID string, pg PageQuery) (ReviewsPage, error)
}

// FeedClient talks to the public iTunes endpoints. Entries and lookup results
// are handed back as decoded JSON so callers can map them field by field.
type FeedClient interface {
	GetReviewPage(ctx context.Context, region, appID string, page int) ([]any, error)
	LookupApp(ctx context.Context, appID, region string) (map[string]any, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, keys ...string) error
}

// CollectionRun is the audit row written for every ingestion.
type CollectionRun struct {
	ID         string
	AppID      string
	Region     string
	Target     int
	Collected  int
	Regions    []string
	StartedAt  time.Time
	FinishedAt time.Time
}

type PageQuery struct {
	Limit  int
	Region string // optional upper-case filter
	Cursor *string
}

type ReviewsPage struct {
	Items      []Review `json:"items"`
	NextCursor *string  `json:"nextCursor,omitempty"`
}
