package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"review_lens/internal/adapters/observability"
	"review_lens/internal/analysis"
	"review_lens/internal/domain"
	"review_lens/internal/wordcloud"
)

const (
	dataSource = "iTunes RSS Feed (Multi-Region)"
	limitation = "Recent reviews only, collected from multiple regions"
)

// AnalysisService answers the live "analyse this App Store link" use case.
type AnalysisService struct {
	feed      domain.FeedClient
	collector *Collector
	cache     domain.Cache
	cacheTTL  time.Duration
	now       func() time.Time
}

func NewAnalysisService(feed domain.FeedClient, col *Collector, c domain.Cache, ttl time.Duration) *AnalysisService {
	return &AnalysisService{feed: feed, collector: col, cache: c, cacheTTL: ttl, now: time.Now}
}

func analysisKey(ref domain.AppRef, target int) string {
	return fmt.Sprintf("analysis:%s:%s:%d", ref.AppID, ref.Region, target)
}

// Analyze fetches app metadata and a multi-region review sample in parallel
// and returns the computed report. A sample with no reviews is reported as
// domain.ErrNoReviews, distinct from a failed app lookup.
func (s *AnalysisService) Analyze(ctx context.Context, appURL string, target int) (domain.Analysis, error) {
	ref, err := ParseAppURL(appURL)
	if err != nil {
		return domain.Analysis{}, err
	}
	if target <= 0 {
		target = DefaultTargetCount
	}

	key := analysisKey(ref, target)
	var out domain.Analysis
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &out); ok {
			return out, nil
		}
	}

	var (
		info    domain.AppInfo
		reviews []domain.Review
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		info, err = fetchAppInfo(gctx, s.feed, ref, s.now())
		return err
	})
	g.Go(func() error {
		reviews = s.collector.Collect(gctx, ref.AppID, ref.Region, target)
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.Analysis{}, err
	}
	if len(reviews) == 0 {
		return domain.Analysis{}, fmt.Errorf("app %s: %w", ref.AppID, domain.ErrNoReviews)
	}

	out = buildAnalysis(info, reviews)
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds())); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("analysis cache set failed")
		}
	}
	return out, nil
}

// WordCloud lays out a word list; words that do not fit are dropped.
func (s *AnalysisService) WordCloud(words []domain.WordFrequency, width, height float64, maxWords int) []domain.WordPosition {
	placed := wordcloud.Layout(words, width, height, maxWords)
	limit := maxWords
	if limit <= 0 {
		limit = wordcloud.DefaultMaxWords
	}
	observability.ObserveLayout(len(placed), max(min(len(words), limit)-len(placed), 0))
	return placed
}

func fetchAppInfo(ctx context.Context, feed domain.FeedClient, ref domain.AppRef, now time.Time) (domain.AppInfo, error) {
	p, err := feed.LookupApp(ctx, ref.AppID, ref.Region)
	if err != nil {
		return domain.AppInfo{}, fmt.Errorf("lookup app %s: %w", ref.AppID, err)
	}
	return mapAppInfo(ref.AppID, p, now), nil
}

func buildAnalysis(info domain.AppInfo, reviews []domain.Review) domain.Analysis {
	return domain.Analysis{
		AppInfo:            info,
		TotalReviews:       len(reviews),
		AnalyzedReviews:    len(reviews),
		WordFrequency:      analysis.WordFrequency(reviews, analysis.DefaultWordLimit),
		Sentiment:          analysis.Sentiment(reviews),
		RatingDistribution: analysis.RatingDistribution(reviews),
		Regions:            analysis.ByRegion(reviews),
		TimeTrends:         analysis.TimeTrends(reviews),
		Versions:           analysis.Versions(reviews),
		Reviews:            reviews,
		DataSource: domain.DataSourceInfo{
			Source:           dataSource,
			Limitation:       limitation,
			TotalAppReviews:  info.RatingCount,
			CollectedReviews: len(reviews),
			RegionsCollected: regionsOf(reviews),
		},
	}
}

func regionsOf(reviews []domain.Review) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, r := range reviews {
		if _, ok := seen[r.Region]; ok || r.Region == "" {
			continue
		}
		seen[r.Region] = struct{}{}
		out = append(out, r.Region)
	}
	sort.Strings(out)
	return out
}

// QueryService serves persisted reviews.
type QueryService struct {
	repo     domain.ReviewRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.ReviewRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

func reviewsKey(appID string, limit int, region string) string {
	return fmt.Sprintf("reviews:%s:%d:%s", appID, limit, strings.ToUpper(region))
}

// ListReviews reads through the cache for first pages; cursor pages go
// straight to the repository.
func (s *QueryService) ListReviews(ctx context.Context, appID string, pg domain.PageQuery) (domain.ReviewsPage, error) {
	if pg.Cursor != nil {
		return s.repo.ListReviews(ctx, appID, pg)
	}
	key := reviewsKey(appID, pg.Limit, pg.Region)
	var out domain.ReviewsPage
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}

	rs, err := s.repo.ListReviews(ctx, appID, pg)
	if err != nil {
		return domain.ReviewsPage{}, err
	}

	// copy slice to avoid aliasing the repo's backing array
	copyRS := deepCopyReviewsPage(rs)

	if b, _ := json.Marshal(copyRS); len(b) < 1_000_000 {
		_ = s.cache.Set(ctx, key, copyRS, int(s.cacheTTL.Seconds()))
	}
	return copyRS, nil
}

func deepCopyReviewsPage(in domain.ReviewsPage) domain.ReviewsPage {
	out := domain.ReviewsPage{NextCursor: in.NextCursor}
	if n := len(in.Items); n > 0 {
		out.Items = make([]domain.Review, n)
		copy(out.Items, in.Items)
	}
	return out
}
