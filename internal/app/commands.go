package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"review_lens/internal/domain"
)

// reviewsCacheLimits are the page sizes the API commonly serves.
var reviewsCacheLimits = []int{50, 100, 200}

type IngestionService struct {
	feed      domain.FeedClient
	collector *Collector
	repo      domain.ReviewRepository
	cache     domain.Cache
	now       func() time.Time
}

func NewIngestionService(feed domain.FeedClient, col *Collector, r domain.ReviewRepository, cache domain.Cache) *IngestionService {
	return &IngestionService{feed: feed, collector: col, repo: r, cache: cache, now: time.Now}
}

// IngestApp collects a review sample for the app behind appURL and persists
// it together with a fresh app snapshot and a run record.
func (s *IngestionService) IngestApp(ctx context.Context, appURL string, target int) (domain.CollectionRun, error) {
	ref, err := ParseAppURL(appURL)
	if err != nil {
		return domain.CollectionRun{}, err
	}
	if target <= 0 {
		target = DefaultTargetCount
	}
	run := domain.CollectionRun{
		ID:        uuid.NewString(),
		AppID:     ref.AppID,
		Region:    ref.Region,
		Target:    target,
		StartedAt: s.now().UTC(),
	}

	// 1) App snapshot first; reviews reference it.
	info, err := fetchAppInfo(ctx, s.feed, ref, run.StartedAt)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrForbidden) || errors.Is(err, domain.ErrUnauthorized) {
			// gone from the store: stop serving stale cached views
			s.invalidate(ctx, ref, target)
		}
		return domain.CollectionRun{}, err
	}
	if err := s.repo.UpsertApp(ctx, info); err != nil {
		return domain.CollectionRun{}, fmt.Errorf("upsert app %s: %w", ref.AppID, err)
	}

	// 2) Reviews: the collector degrades to a short (or empty) sample on
	// upstream failures, so only persistence errors surface here.
	reviews := s.collector.Collect(ctx, ref.AppID, ref.Region, target)
	if len(reviews) > 0 {
		if err := s.repo.UpsertReviews(ctx, ref.AppID, reviews); err != nil {
			return domain.CollectionRun{}, fmt.Errorf("upsert reviews failed for %s: %w", ref.AppID, err)
		}
	}

	run.Collected = len(reviews)
	run.Regions = regionsOf(reviews)
	run.FinishedAt = s.now().UTC()
	if err := s.repo.RecordRun(ctx, run); err != nil {
		return domain.CollectionRun{}, fmt.Errorf("record run %s: %w", run.ID, err)
	}

	s.invalidate(ctx, ref, target)

	log.Info().
		Str("run", run.ID).
		Str("app", ref.AppID).
		Int("collected", run.Collected).
		Strs("regions", run.Regions).
		Dur("took", run.FinishedAt.Sub(run.StartedAt)).
		Msg("ingestion finished")
	return run, nil
}

// invalidate drops the cached analyses for the default and the run's target
// and the common review pages.
func (s *IngestionService) invalidate(ctx context.Context, ref domain.AppRef, target int) {
	if s.cache == nil {
		return
	}
	keys := []string{analysisKey(ref, DefaultTargetCount)}
	if target != DefaultTargetCount {
		keys = append(keys, analysisKey(ref, target))
	}
	for _, lim := range reviewsCacheLimits {
		keys = append(keys, reviewsKey(ref.AppID, lim, ""))
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		log.Warn().Err(err).Str("app", ref.AppID).Int("keys", len(keys)).Msg("cache invalidation failed")
	}
}
