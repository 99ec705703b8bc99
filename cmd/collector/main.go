package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"review_lens/internal/adapters/itunes"
	"review_lens/internal/adapters/observability"
	redisad "review_lens/internal/adapters/redis"
	"review_lens/internal/app"
	"review_lens/internal/shared"
	mysqlrepo "review_lens/internal/storage/mysql"
)

func main() {
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	log.Info().
		Str("base", cfg.ITunesBase).
		Int("workers", cfg.Workers).
		Int("target", cfg.TargetCount).
		Int("apps", len(cfg.AppURLs)).
		Str("schedule", cfg.CollectSchedule).
		Msg("collector starting")

	if len(cfg.AppURLs) == 0 {
		log.Fatal().Msg("no app_urls configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	observability.Serve(cfg.MetricsAddr, observability.InitRegistry())

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	client, err := itunes.New(cfg.ITunesBase, cfg.ITunesRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize iTunes client")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()

	ccfg := app.DefaultCollectorConfig()
	ccfg.PageDelay = cfg.PageDelay()
	ccfg.RegionDelay = cfg.RegionDelay()
	ccfg.Concurrency = cfg.RegionConcurrency
	ing := app.NewIngestionService(client, app.NewCollector(client, ccfg), repo, cache)

	runOnce := func(ctx context.Context) {
		results := ing.IngestAll(ctx, cfg.AppURLs, cfg.TargetCount, cfg.Workers)
		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
			}
		}
		log.Info().Int("apps", len(results)).Int("failed", failed).Msg("ingestion completed")
	}

	if cfg.CollectSchedule == "" {
		runOnce(ctx)
		return
	}

	// a tick that fires while the previous run is still going is skipped
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(cfg.CollectSchedule, func() { runOnce(ctx) }); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.CollectSchedule).Msg("invalid collect_schedule")
	}
	c.Start()
	log.Info().Str("schedule", cfg.CollectSchedule).Msg("collector scheduled")

	<-ctx.Done()
	log.Info().Msg("shutting down, waiting for running ingestion")
	<-c.Stop().Done()
}
