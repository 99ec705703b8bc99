package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "review_lens", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "review_lens", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "review_lens", Name: "external_requests_total", Help: "Outbound requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "review_lens", Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "review_lens", Name: "cache_events_total", Help: "Cache operations by outcome."},
		[]string{"cache", "event"}, // event: hit|miss|set|del|error|corrupt
	)
	FeedPages = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "review_lens", Name: "feed_pages_total", Help: "Review feed pages by outcome."},
		[]string{"region", "outcome"}, // outcome: ok|skipped|not_found
	)
	CollectedReviews = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "review_lens", Name: "collected_reviews_total", Help: "Feed entries by collector outcome."},
		[]string{"region", "outcome"}, // outcome: accepted|duplicate_region|duplicate_global|malformed
	)
	LayoutWords = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "review_lens", Name: "wordcloud_words_total", Help: "Word-cloud words placed or dropped."},
		[]string{"outcome"},
	)
)

// Serve exposes reg on addr in the background; an empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency, CacheEvents,
		FeedPages, CollectedReviews, LayoutWords)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) {
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func ObserveFeedPage(region, outcome string) {
	FeedPages.WithLabelValues(strings.ToUpper(region), outcome).Inc()
}

func ObserveCollected(region, outcome string, n int) {
	if n <= 0 {
		return
	}
	CollectedReviews.WithLabelValues(strings.ToUpper(region), outcome).Add(float64(n))
}

func ObserveLayout(placed, dropped int) {
	LayoutWords.WithLabelValues("placed").Add(float64(placed))
	LayoutWords.WithLabelValues("dropped").Add(float64(dropped))
}

func LabelErr(err error) string {
	if err == nil {
		return "none"
	}
	return fmt.Sprintf("%T", err)
}
