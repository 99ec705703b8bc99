package domain

import "time"

// Review is one App Store customer review as collected from a regional feed.
type Review struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	Rating  int       `json:"rating"` // 1..5, 0 when the feed rating was unparsable
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`
	Version string    `json:"version,omitempty"`
	Region  string    `json:"region"` // upper-cased, set by the collector
}

// DedupKey identifies the same review surfacing in several regional feeds.
type DedupKey struct {
	Author  string
	Content string
}

func (r Review) Key() DedupKey { return DedupKey{Author: r.Author, Content: r.Content} }

// RegionYield is what one region contributed during a single collection run.
type RegionYield struct {
	Region  string
	Reviews []Review
}
