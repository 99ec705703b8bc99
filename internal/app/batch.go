package app

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"review_lens/internal/domain"
)

type BatchResult struct {
	AppURL string
	Run    domain.CollectionRun
	Err    error
}

// IngestAll ingests every URL with at most workers in flight. Results keep
// the order of urls; one app failing never stops the others.
func (s *IngestionService) IngestAll(ctx context.Context, urls []string, target, workers int) []BatchResult {
	if workers <= 0 {
		workers = 1
	}
	out := make([]BatchResult, len(urls))
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup

	for i, u := range urls {
		out[i].AppURL = u

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			out[i].Err = err
			continue
		}

		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			defer sem.Release(1)

			run, err := s.IngestApp(ctx, u, target)
			out[i].Run, out[i].Err = run, err
			switch {
			case err == nil:
				log.Info().Str("url", u).Int("collected", run.Collected).Msg("ingest ok")
			case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidAppURL):
				log.Warn().Str("url", u).Err(err).Msg("ingest skipped")
			default:
				log.Error().Str("url", u).Err(err).Msg("ingest failed")
			}
		}(i, u)
	}

	wg.Wait()
	return out
}
