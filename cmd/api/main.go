package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "review_lens/internal/adapters/http_server"
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

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	if err := cache.Ping(context.Background()); err != nil {
		log.Warn().Err(err).Msg("redis unreachable; requests will bypass the cache")
	}

	client, err := itunes.New(cfg.ITunesBase, cfg.ITunesRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize iTunes client")
	}
	ccfg := app.DefaultCollectorConfig()
	ccfg.PageDelay = cfg.PageDelay()
	ccfg.RegionDelay = cfg.RegionDelay()
	ccfg.Concurrency = cfg.RegionConcurrency

	a := app.NewAnalysisService(client, app.NewCollector(client, ccfg), cache, cfg.CacheTTL())
	q := app.NewQueryService(repo, cache, cfg.CacheTTL())

	// http
	srv := server.New(cfg.RequestTimeout())
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{A: a, Q: q})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
