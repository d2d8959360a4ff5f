package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestCounter counts HTTP requests by status code, method, and route
	RequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizify_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"status", "method", "path"},
	)

	// RequestDuration measures HTTP request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quizify_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status", "method", "path"},
	)

	// RequestInProgress counts HTTP requests currently being processed
	RequestInProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "quizify_http_requests_in_progress",
			Help: "Number of HTTP requests currently being processed",
		},
		[]string{"method", "path"},
	)

	// RateLimiterRejections counts requests turned away by the auth rate limiter
	RateLimiterRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quizify_rate_limiter_rejections_total",
			Help: "Total number of requests rejected by rate limiter",
		},
	)

	// ContestSubmissions counts contest submissions by outcome
	ContestSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizify_contest_submissions_total",
			Help: "Contest submissions by outcome",
		},
		[]string{"outcome"},
	)

	// LeaderboardDuration measures how long ranking a contest takes
	LeaderboardDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quizify_leaderboard_compute_seconds",
			Help:    "Time spent loading and ranking contest results",
			Buckets: prometheus.DefBuckets,
		},
	)

	// LiveSubscribers tracks open live leaderboard connections
	LiveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quizify_live_leaderboard_subscribers",
			Help: "Number of open live leaderboard connections",
		},
	)

	// CacheHits counts contest cache hits
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quizify_contest_cache_hits_total",
			Help: "Total number of contest cache hits",
		},
	)

	// CacheMisses counts contest cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quizify_contest_cache_misses_total",
			Help: "Total number of contest cache misses",
		},
	)
)

// RecordLeaderboard records the time spent building one contest's standings
func RecordLeaderboard(startTime time.Time) {
	LeaderboardDuration.Observe(time.Since(startTime).Seconds())
}

// RecordSubmission counts one contest submission attempt
func RecordSubmission(outcome string) {
	ContestSubmissions.WithLabelValues(outcome).Inc()
}
