package app

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"review_lens/internal/adapters/observability"
	"review_lens/internal/domain"
)

const DefaultTargetCount = 500

// PriorityRegions are visited after the primary region, in this order.
var PriorityRegions = []string{
	"us", "gb", "ca", "au", "de", "fr", "jp", "kr", "cn", "in",
	"br", "mx", "es", "it", "nl", "se", "no", "dk", "fi",
}

type CollectorConfig struct {
	Regions        []string      // visited after the primary region
	PageSize       int           // entries the feed serves per page
	PageCeiling    int           // hard page limit per region
	MaxPerRegion   int           // cap on one region's batch
	MinPageEntries int           // a shorter page is taken as the last one
	PageDelay      time.Duration // pause between pages of a region
	RegionDelay    time.Duration // pause between regions (or waves)
	Concurrency    int           // regions in flight at once; <=1 is sequential
}

func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		Regions:        PriorityRegions,
		PageSize:       50,
		PageCeiling:    10,
		MaxPerRegion:   500,
		MinPageEntries: 10,
		PageDelay:      100 * time.Millisecond,
		RegionDelay:    300 * time.Millisecond,
		Concurrency:    1,
	}
}

// Collector gathers a deduplicated review sample for one app across the
// regional variants of the customer-review feed.
type Collector struct {
	feed domain.FeedClient
	cfg  CollectorConfig
	now  func() time.Time
}

func NewCollector(feed domain.FeedClient, cfg CollectorConfig) *Collector {
	def := DefaultCollectorConfig()
	if cfg.Regions == nil {
		cfg.Regions = def.Regions
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.PageCeiling <= 0 {
		cfg.PageCeiling = def.PageCeiling
	}
	if cfg.MaxPerRegion <= 0 {
		cfg.MaxPerRegion = def.MaxPerRegion
	}
	if cfg.MinPageEntries < 0 {
		cfg.MinPageEntries = 0
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Collector{feed: feed, cfg: cfg, now: time.Now}
}

// Collect returns every unique review gathered for appID, newest first.
// Regions are visited until at least target reviews are held, so the result
// can exceed target; callers that need an exact size truncate it themselves.
// Fetch failures only shrink the result and are never returned.
func (c *Collector) Collect(ctx context.Context, appID, primaryRegion string, target int) []domain.Review {
	if target <= 0 {
		target = DefaultTargetCount
	}
	regions := regionOrder(primaryRegion, c.cfg.Regions)

	log.Info().
		Str("app", appID).
		Str("primary", strings.ToUpper(primaryRegion)).
		Int("target", target).
		Int("regions", len(regions)).
		Msg("review collection starting")

	acc := newAccumulator()
	if c.cfg.Concurrency > 1 {
		acc = c.collectWaves(ctx, appID, regions, target, acc)
	} else {
		acc = c.collectSequential(ctx, appID, regions, target, acc)
	}

	out := acc.reviews
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })

	log.Info().
		Str("app", appID).
		Int("collected", len(out)).
		Strs("regions", acc.regionsWithData()).
		Msg("review collection finished")
	return out
}

func (c *Collector) collectSequential(ctx context.Context, appID string, regions []string, target int, acc accumulator) accumulator {
	for i, region := range regions {
		if acc.size() >= target || ctx.Err() != nil {
			break
		}
		if i > 0 && !sleepCtx(ctx, c.cfg.RegionDelay) {
			break
		}
		acc = acc.merge(c.collectRegion(ctx, appID, region))
	}
	return acc
}

// collectWaves fetches up to Concurrency regions at a time. Batches of a wave
// are merged in visitation order once the whole wave has returned, and no new
// wave starts after the target is met.
func (c *Collector) collectWaves(ctx context.Context, appID string, regions []string, target int, acc accumulator) accumulator {
	n := c.cfg.Concurrency
	sem := semaphore.NewWeighted(int64(n))

	for start := 0; start < len(regions); start += n {
		if acc.size() >= target || ctx.Err() != nil {
			break
		}
		if start > 0 && !sleepCtx(ctx, c.cfg.RegionDelay) {
			break
		}
		wave := regions[start:min(start+n, len(regions))]
		yields := make([]domain.RegionYield, len(wave))

		var wg sync.WaitGroup
		for i, region := range wave {
			// acquire before launching the goroutine; release inside it
			if err := sem.Acquire(ctx, 1); err != nil {
				yields[i] = domain.RegionYield{Region: strings.ToUpper(region)}
				continue
			}
			wg.Add(1)
			go func(i int, region string) {
				defer wg.Done()
				defer sem.Release(1)
				yields[i] = c.collectRegion(ctx, appID, region)
			}(i, region)
		}
		wg.Wait()

		for _, y := range yields {
			acc = acc.merge(y)
		}
	}
	return acc
}

// collectRegion pages through one regional feed. It stops on a missing feed,
// an empty page, a short page, the per-region cap or the page ceiling.
func (c *Collector) collectRegion(ctx context.Context, appID, region string) domain.RegionYield {
	yield := domain.RegionYield{Region: strings.ToUpper(region)}
	seen := make(map[domain.DedupKey]struct{})
	limit := c.cfg.MaxPerRegion
	maxPages := min(c.cfg.PageCeiling, (limit+c.cfg.PageSize-1)/c.cfg.PageSize)
	now := c.now()

	var dupes, malformed int
	for page := 1; page <= maxPages && len(yield.Reviews) < limit; page++ {
		if page > 1 && !sleepCtx(ctx, c.cfg.PageDelay) {
			break
		}
		entries, err := c.feed.GetReviewPage(ctx, region, appID, page)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, domain.ErrNotFound) {
				observability.ObserveFeedPage(region, "not_found")
				log.Debug().Str("region", yield.Region).Int("page", page).Msg("feed has no more pages")
				break
			}
			observability.ObserveFeedPage(region, "skipped")
			log.Warn().Err(err).Str("error_type", observability.LabelErr(err)).Str("app", appID).Str("region", yield.Region).Int("page", page).Msg("feed page skipped")
			continue
		}
		observability.ObserveFeedPage(region, "ok")

		candidates := entries
		if page == 1 && len(entries) > 0 && isAppMetadata(entries[0]) {
			candidates = entries[1:]
		}
		if len(candidates) == 0 {
			break
		}

		for _, e := range candidates {
			if len(yield.Reviews) >= limit {
				break
			}
			rv, err := mapEntry(e, appID, region, page, len(yield.Reviews), now)
			if err != nil {
				malformed++
				log.Debug().Err(err).Str("region", yield.Region).Int("page", page).Msg("feed entry dropped")
				continue
			}
			k := rv.Key()
			if _, dup := seen[k]; dup {
				dupes++
				continue
			}
			seen[k] = struct{}{}
			yield.Reviews = append(yield.Reviews, rv)
		}

		log.Debug().
			Str("region", yield.Region).
			Int("page", page).
			Int("entries", len(entries)).
			Int("total", len(yield.Reviews)).
			Msg("feed page collected")

		if len(entries) < c.cfg.MinPageEntries {
			break
		}
	}

	observability.ObserveCollected(region, "duplicate_region", dupes)
	observability.ObserveCollected(region, "malformed", malformed)
	log.Info().Str("app", appID).Str("region", yield.Region).Int("reviews", len(yield.Reviews)).Msg("region collected")
	return yield
}

// accumulator is the running result of one collection, threaded through the
// region loop by value.
type accumulator struct {
	reviews []domain.Review
	seen    map[domain.DedupKey]struct{}
	regions []string
}

func newAccumulator() accumulator {
	return accumulator{seen: make(map[domain.DedupKey]struct{})}
}

func (a accumulator) size() int { return len(a.reviews) }

// merge tags the batch with its region and appends the reviews whose
// (author, content) key has not been collected yet.
func (a accumulator) merge(y domain.RegionYield) accumulator {
	added := 0
	for _, rv := range y.Reviews {
		rv.Region = y.Region
		k := rv.Key()
		if _, dup := a.seen[k]; dup {
			continue
		}
		a.seen[k] = struct{}{}
		a.reviews = append(a.reviews, rv)
		added++
	}
	if added > 0 {
		a.regions = append(a.regions, y.Region)
	}
	observability.ObserveCollected(y.Region, "accepted", added)
	observability.ObserveCollected(y.Region, "duplicate_global", len(y.Reviews)-added)
	return a
}

func (a accumulator) regionsWithData() []string { return a.regions }

// regionOrder puts primary first and drops repeated codes, keeping the first.
func regionOrder(primary string, rest []string) []string {
	out := make([]string, 0, len(rest)+1)
	seen := make(map[string]struct{}, len(rest)+1)
	for _, r := range append([]string{primary}, rest...) {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// sleepCtx waits for d or returns false early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
