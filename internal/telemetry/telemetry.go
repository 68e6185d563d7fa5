// Package telemetry exports Prometheus metrics for the recommender
// pipeline.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all recommender Prometheus metrics
type Metrics struct {
	// Feed serving metrics
	FeedsServed  *prometheus.CounterVec
	FeedDuration *prometheus.HistogramVec
	CacheHits    prometheus.Counter
	CacheMisses  prometheus.Counter
	Fallbacks    *prometheus.CounterVec

	// Index metrics
	IndexBuildDuration prometheus.Histogram
	IndexSize          prometheus.Gauge
	IndexSkipped       prometheus.Counter
	IndexBuilds        prometheus.Counter

	// Profile metrics
	ProfileRecomputes *prometheus.CounterVec
	ProviderErrors    prometheus.Counter
	StaleProfiles     prometheus.Gauge

	// Interaction metrics
	InteractionsRecorded *prometheus.CounterVec
}

// Provider wraps the metrics set.
type Provider struct {
	Metrics *Metrics
}

// NewProvider initializes the Prometheus metrics
func NewProvider() *Provider {
	return &Provider{Metrics: initMetrics()}
}

// Handler returns the Prometheus HTTP handler for /metrics endpoint
func (p *Provider) Handler() http.Handler {
	return promhttp.Handler()
}

func initMetrics() *Metrics {
	m := &Metrics{}
	initFeedMetrics(m)
	initIndexMetrics(m)
	initProfileMetrics(m)
	initInteractionMetrics(m)
	return m
}

func initFeedMetrics(m *Metrics) {
	m.FeedsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recommender_feeds_served_total",
		Help: "Total feed pages served, by requested mode and served tier",
	}, []string{"mode", "tier", "cached"})

	m.FeedDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recommender_feed_duration_seconds",
		Help:    "Time to serve a feed page",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"tier"})

	m.CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recommender_cache_hits_total",
		Help: "Total feed cache hits",
	})

	m.CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recommender_cache_misses_total",
		Help: "Total feed cache misses",
	})

	m.Fallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recommender_fallbacks_total",
		Help: "Total feed tier fallbacks, by origin and destination tier",
	}, []string{"from", "to"})
}

func initIndexMetrics(m *Metrics) {
	m.IndexBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recommender_index_build_duration_seconds",
		Help:    "Time to rebuild the similarity index",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	m.IndexSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recommender_index_size",
		Help: "Entries in the current similarity index snapshot",
	})

	m.IndexSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recommender_index_skipped_total",
		Help: "Content items skipped during index builds (malformed vectors)",
	})

	m.IndexBuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recommender_index_builds_total",
		Help: "Total similarity index rebuilds",
	})
}

func initProfileMetrics(m *Metrics) {
	m.ProfileRecomputes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recommender_profile_recomputes_total",
		Help: "Total profile recomputes, by outcome (success, skipped, failed)",
	}, []string{"outcome"})

	m.ProviderErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recommender_provider_errors_total",
		Help: "Total embedding provider failures",
	})

	m.StaleProfiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recommender_stale_profiles",
		Help: "Profiles currently awaiting recomputation",
	})
}

func initInteractionMetrics(m *Metrics) {
	m.InteractionsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recommender_interactions_total",
		Help: "Total interaction events recorded, by kind",
	}, []string{"kind"})
}

// RecordFeedServed records one served feed page.
func (p *Provider) RecordFeedServed(mode, tier string, cached bool, duration time.Duration) {
	cachedLabel := "false"
	if cached {
		cachedLabel = "true"
		p.Metrics.CacheHits.Inc()
	} else {
		p.Metrics.CacheMisses.Inc()
	}
	p.Metrics.FeedsServed.WithLabelValues(mode, tier, cachedLabel).Inc()
	p.Metrics.FeedDuration.WithLabelValues(tier).Observe(duration.Seconds())
}

// RecordIndexBuild records one index rebuild.
func (p *Provider) RecordIndexBuild(duration time.Duration, indexed, skipped int) {
	p.Metrics.IndexBuilds.Inc()
	p.Metrics.IndexBuildDuration.Observe(duration.Seconds())
	p.Metrics.IndexSize.Set(float64(indexed))
	p.Metrics.IndexSkipped.Add(float64(skipped))
}

// RecordFallback records a feed tier fallback.
func (p *Provider) RecordFallback(from, to string) {
	p.Metrics.Fallbacks.WithLabelValues(from, to).Inc()
}

// RecordRecompute records a profile recompute outcome (success, skipped,
// failed).
func (p *Provider) RecordRecompute(outcome string) {
	p.Metrics.ProfileRecomputes.WithLabelValues(outcome).Inc()
}

// RecordRecomputeBatch records the outcome counts of one batch recompute
// cycle. Skipped recomputes are provider failures retried next cycle.
func (p *Provider) RecordRecomputeBatch(success, skipped, failed int) {
	p.Metrics.ProfileRecomputes.WithLabelValues("success").Add(float64(success))
	p.Metrics.ProfileRecomputes.WithLabelValues("skipped").Add(float64(skipped))
	p.Metrics.ProfileRecomputes.WithLabelValues("failed").Add(float64(failed))
	p.Metrics.ProviderErrors.Add(float64(skipped))
}

// RecordProviderError records an embedding provider failure.
func (p *Provider) RecordProviderError() {
	p.Metrics.ProviderErrors.Inc()
}

// SetStaleProfiles sets the current stale-profile backlog.
func (p *Provider) SetStaleProfiles(count int) {
	p.Metrics.StaleProfiles.Set(float64(count))
}

// RecordInteraction records one interaction event by kind.
func (p *Provider) RecordInteraction(kind string) {
	p.Metrics.InteractionsRecorded.WithLabelValues(kind).Inc()
}
