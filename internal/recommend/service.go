// Package recommend orchestrates the recommendation pipeline: cache lookup,
// similarity query, ranking, fallbacks, and index rebuilds.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonesrussell/north-cloud/recommender/internal/domain"
	"github.com/jonesrussell/north-cloud/recommender/internal/feedcache"
	"github.com/jonesrussell/north-cloud/recommender/internal/ranking"
	"github.com/jonesrussell/north-cloud/recommender/internal/reduction"
	"github.com/jonesrussell/north-cloud/recommender/internal/simindex"
)

// Pipeline defaults.
const (
	// DefaultPageLimit is the feed page size when the client does not ask
	// for one.
	DefaultPageLimit = 20
	// MaxPageLimit bounds client-requested page sizes.
	MaxPageLimit = 100

	// candidateMultiplier over-fetches index candidates so ranking has room
	// to deduplicate and apply the source cap without starving the page.
	candidateMultiplier = 3

	// defaultMinSimilarity drops candidates with effectively no relation to
	// the profile vector.
	defaultMinSimilarity = 0.05

	// defaultSeenWindow is how far back interacted content is excluded from
	// personalized feeds.
	defaultSeenWindow = 7 * 24 * time.Hour

	// dislikedCategoryPenalty down-weights candidates in categories the user
	// has signalled against. Down-weighting, not a hard filter: disliked
	// topics can still surface when strongly relevant.
	dislikedCategoryPenalty = 0.5
)

// Feed tiers reported to clients and metrics. Each tier is the mode the feed
// was actually served from after fallbacks.
const (
	TierPersonalized = "personalized"
	TierTrending     = "trending"
	TierNewest       = "newest"
	TierDiverse      = "diverse"
)

// Logger defines the logging interface.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// CorpusStore reads the content corpus and writes back reduced vectors.
type CorpusStore interface {
	// ScanEmbedded returns every recommendable item carrying a full
	// embedding. Flagged content is filtered at the store.
	ScanEmbedded(ctx context.Context) ([]*domain.ContentItem, error)
	// BulkUpsertReducedEmbeddings persists reduced vectors tagged with the
	// reducer generation that produced them.
	BulkUpsertReducedEmbeddings(ctx context.Context, vectors map[string][]float32, generation int64) error
}

// ProfileReader reads user profiles and flags them for recompute.
type ProfileReader interface {
	Get(ctx context.Context, userID string) (*domain.UserProfile, error)
	MarkStale(ctx context.Context, userID string) error
}

// SeenReader lists content a user recently interacted with, for feed
// exclusion.
type SeenReader interface {
	RecentContentIDs(ctx context.Context, userID string, since time.Time) ([]string, error)
}

// Metrics receives pipeline observations. Implemented by the telemetry
// provider; a no-op implementation serves tests.
type Metrics interface {
	RecordFeedServed(mode, tier string, cached bool, duration time.Duration)
	RecordIndexBuild(duration time.Duration, indexed, skipped int)
	RecordFallback(from, to string)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) RecordFeedServed(string, string, bool, time.Duration) {}
func (NopMetrics) RecordIndexBuild(time.Duration, int, int)             {}
func (NopMetrics) RecordFallback(string, string)                        {}

// Feed is one computed (or cached) feed page.
type Feed struct {
	Items  []domain.RankedContent `json:"items"`
	Tier   string                 `json:"tier"`
	Cached bool                   `json:"cached"`
	Page   int                    `json:"page"`
	Limit  int                    `json:"limit"`
}

// IndexStats describes the live index and reducer model for operators.
type IndexStats struct {
	Generation int64     `json:"generation"`
	Size       int       `json:"size"`
	BuiltAt    time.Time `json:"built_at"`
	InputDim   int       `json:"input_dim"`
	OutputDim  int       `json:"output_dim"`
}

// Service is the recommendation pipeline front door. Safe for concurrent
// use; index rebuilds are serialized internally.
type Service struct {
	index    *simindex.Index
	reducer  *reduction.Reducer
	ranker   *ranking.Engine
	cache    *feedcache.Cache
	corpus   CorpusStore
	profiles ProfileReader
	seen     SeenReader
	metrics  Metrics
	logger   Logger

	minSimilarity float64
	seenWindow    time.Duration
	maxSample     int

	model     atomic.Pointer[reduction.Model]
	rebuildMu sync.Mutex
}

// NewService wires the recommendation pipeline.
func NewService(
	index *simindex.Index,
	reducer *reduction.Reducer,
	ranker *ranking.Engine,
	cache *feedcache.Cache,
	corpus CorpusStore,
	profiles ProfileReader,
	seen SeenReader,
	metrics Metrics,
	logger Logger,
) *Service {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Service{
		index:         index,
		reducer:       reducer,
		ranker:        ranker,
		cache:         cache,
		corpus:        corpus,
		profiles:      profiles,
		seen:          seen,
		metrics:       metrics,
		logger:        logger,
		minSimilarity: defaultMinSimilarity,
		seenWindow:    defaultSeenWindow,
		maxSample:     reduction.DefaultMaxSample,
	}
}

// CurrentModel returns the live reducer model, or nil before the first
// successful index build.
func (s *Service) CurrentModel() *reduction.Model {
	return s.model.Load()
}

// GetFeed returns one feed page for a user, serving from cache when
// possible. An empty or cold index yields an empty feed, never an error.
func (s *Service) GetFeed(ctx context.Context, userID string, page, limit int, mode domain.FeedMode) (*Feed, error) {
	start := time.Now()
	page, limit = clampPagination(page, limit)

	key := feedcache.FeedKey(userID, page, limit, "")
	if items, tier, ok := s.cache.GetFeed(ctx, key); ok {
		if tier == "" {
			tier = string(mode)
		}
		s.metrics.RecordFeedServed(string(mode), tier, true, time.Since(start))
		return &Feed{Items: items, Tier: tier, Cached: true, Page: page, Limit: limit}, nil
	}

	feed, err := s.computeFeed(ctx, userID, page, limit, mode)
	if err != nil {
		return nil, err
	}

	ttl := feedcache.DefaultFeedTTL
	if feed.Tier != TierPersonalized {
		ttl = feedcache.DefaultGlobalTTL
	}
	s.cache.SetFeed(ctx, key, feed.Items, feed.Tier, ttl)

	s.metrics.RecordFeedServed(string(mode), feed.Tier, false, time.Since(start))
	return feed, nil
}

// WarmUser recomputes and caches a user's first feed page, bypassing the
// cache read. Used by the warm cycle.
func (s *Service) WarmUser(ctx context.Context, userID string) error {
	feed, err := s.computeFeed(ctx, userID, 0, DefaultPageLimit, domain.FeedModePersonalized)
	if err != nil {
		return err
	}
	ttl := feedcache.DefaultFeedTTL
	if feed.Tier != TierPersonalized {
		ttl = feedcache.DefaultGlobalTTL
	}
	s.cache.SetFeed(ctx, feedcache.FeedKey(userID, 0, DefaultPageLimit, ""), feed.Items, feed.Tier, ttl)
	return nil
}

// Invalidate removes every cached feed page for a user.
func (s *Service) Invalidate(ctx context.Context, userID string) error {
	return s.cache.InvalidateUser(ctx, userID)
}

func (s *Service) computeFeed(ctx context.Context, userID string, page, limit int, mode domain.FeedMode) (*Feed, error) {
	if !s.index.Ready() {
		if _, err := s.RebuildIndex(ctx); err != nil {
			s.logger.Warn("Index build on first use failed, serving empty feed", "error", err)
			return &Feed{Items: []domain.RankedContent{}, Tier: string(mode), Page: page, Limit: limit}, nil
		}
	}

	// Over-fetch through the requested page so slicing below never starves.
	need := (page + 1) * limit

	exclude := s.recentlySeen(ctx, userID)

	var (
		candidates []simindex.Candidate
		tier       string
	)
	switch mode {
	case domain.FeedModeTrending:
		candidates = s.index.Trending(need*candidateMultiplier, exclude)
		tier = TierTrending
	case domain.FeedModeDiverse:
		candidates = s.index.Diverse(need, exclude)
		tier = TierDiverse
	default:
		candidates, tier = s.personalizedCandidates(ctx, userID, need, exclude)
	}

	// Terminal fallback: freshest content, so a new deployment with zero
	// engagement history still serves a feed.
	if len(candidates) == 0 && tier != TierNewest {
		s.metrics.RecordFallback(tier, TierNewest)
		candidates = s.index.Newest(need*candidateMultiplier, exclude)
		tier = TierNewest
	}

	// A user whose seen set covers the entire corpus gets repeats rather
	// than an empty page: the feed is only empty when the corpus is.
	if len(candidates) == 0 && len(exclude) > 0 {
		candidates = s.index.Newest(need*candidateMultiplier, nil)
		tier = TierNewest
	}

	ranked := s.ranker.Rank(candidates, need, time.Now())
	items := pageSlice(ranked, page, limit)

	return &Feed{Items: items, Tier: tier, Page: page, Limit: limit}, nil
}

// personalizedCandidates queries the index with the user's profile vector,
// falling back to trending when the profile is missing, empty, or projected
// with a stale reducer generation.
func (s *Service) personalizedCandidates(ctx context.Context, userID string, need int, exclude map[string]struct{}) ([]simindex.Candidate, string) {
	profile, err := s.profiles.Get(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		profile = nil
	case err != nil:
		s.logger.Warn("Profile read failed, falling back to trending",
			"user_id", userID, "error", err)
		profile = nil
	}

	if profile == nil || !profile.HasEmbedding() {
		s.metrics.RecordFallback(TierPersonalized, TierTrending)
		return s.index.Trending(need*candidateMultiplier, exclude), TierTrending
	}

	if profile.ModelGeneration != s.index.Generation() {
		// The profile vector lives in a different reduced space than the
		// index. Flag it for reprojection and serve trending meanwhile.
		s.logger.Debug("Profile generation behind index, marking stale",
			"user_id", userID,
			"profile_generation", profile.ModelGeneration,
			"index_generation", s.index.Generation(),
		)
		if markErr := s.profiles.MarkStale(ctx, userID); markErr != nil {
			s.logger.Warn("Failed to mark profile stale", "user_id", userID, "error", markErr)
		}
		s.metrics.RecordFallback(TierPersonalized, TierTrending)
		return s.index.Trending(need*candidateMultiplier, exclude), TierTrending
	}

	candidates := s.index.Query(profile.ReducedEmbedding, need*candidateMultiplier, exclude, s.minSimilarity)
	if len(candidates) == 0 {
		s.metrics.RecordFallback(TierPersonalized, TierTrending)
		return s.index.Trending(need*candidateMultiplier, exclude), TierTrending
	}

	return penalizeDisliked(candidates, profile.DislikedCats), TierPersonalized
}

// penalizeDisliked halves the similarity of candidates tagged with a
// disliked category.
func penalizeDisliked(candidates []simindex.Candidate, dislikedCats []string) []simindex.Candidate {
	if len(dislikedCats) == 0 {
		return candidates
	}
	disliked := make(map[string]struct{}, len(dislikedCats))
	for _, cat := range dislikedCats {
		disliked[cat] = struct{}{}
	}
	for i, c := range candidates {
		for _, cat := range c.Entry.Categories {
			if _, hit := disliked[cat]; hit {
				candidates[i].Similarity *= dislikedCategoryPenalty
				break
			}
		}
	}
	return candidates
}

func (s *Service) recentlySeen(ctx context.Context, userID string) map[string]struct{} {
	ids, err := s.seen.RecentContentIDs(ctx, userID, time.Now().Add(-s.seenWindow))
	if err != nil {
		s.logger.Warn("Seen-content lookup failed, serving without exclusions",
			"user_id", userID, "error", err)
		return nil
	}
	if len(ids) == 0 {
		return nil
	}
	exclude := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		exclude[id] = struct{}{}
	}
	return exclude
}

// RebuildIndex retrains the reducer on a corpus sample, reprojects every
// embedded item, persists the reduced vectors, and swaps the index in one
// atomic operation. Serialized: concurrent calls queue behind the running
// build.
func (s *Service) RebuildIndex(ctx context.Context) (simindex.BuildStats, error) {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	start := time.Now()

	items, err := s.corpus.ScanEmbedded(ctx)
	if err != nil {
		return simindex.BuildStats{}, fmt.Errorf("scan corpus: %w", err)
	}
	if len(items) == 0 {
		return simindex.BuildStats{}, domain.ErrEmptyIndex
	}

	model, err := s.fitOrReuseModel(items)
	if err != nil {
		return simindex.BuildStats{}, err
	}

	entries := make([]simindex.Entry, 0, len(items))
	reduced := make(map[string][]float32, len(items))
	now := time.Now()
	projectFailed := 0

	for _, item := range items {
		vec, projErr := model.Project(item.FullEmbedding)
		if projErr != nil {
			// Malformed vectors are excluded, not fatal.
			projectFailed++
			continue
		}
		reduced[item.ID] = vec
		entries = append(entries, simindex.Entry{
			ContentID:       item.ID,
			Vector:          vec,
			SourceName:      item.SourceName,
			Title:           item.Title,
			Categories:      item.Categories,
			EngagementScore: ranking.EngagementScore(item.Likes, item.Dislikes, item.Views, item.PublishedAt, now),
			Views:           item.Views,
			PublishedAt:     item.PublishedAt,
		})
	}

	// Reduced vectors are written back for observability and warm restarts;
	// the in-memory index stays authoritative, so a write failure does not
	// abort the build.
	if err := s.corpus.BulkUpsertReducedEmbeddings(ctx, reduced, model.Generation()); err != nil {
		s.logger.Warn("Reduced embedding write-back failed", "error", err)
	}

	stats := s.index.Build(entries, model.Generation())
	s.model.Store(model)

	duration := time.Since(start)
	s.metrics.RecordIndexBuild(duration, stats.Indexed, stats.Skipped+projectFailed)
	s.logger.Info("Similarity index rebuilt",
		"generation", stats.Generation,
		"indexed", stats.Indexed,
		"skipped", stats.Skipped+projectFailed,
		"dim", stats.Dim,
		"duration_ms", duration.Milliseconds(),
	)
	return stats, nil
}

// fitOrReuseModel trains a fresh reducer model from a corpus sample. If the
// sample is too small and a model already exists, the existing model is
// reused so the index keeps serving.
func (s *Service) fitOrReuseModel(items []*domain.ContentItem) (*reduction.Model, error) {
	samples := sampleEmbeddings(items, s.maxSample)
	model, err := s.reducer.Fit(samples)
	if err != nil {
		if existing := s.model.Load(); existing != nil && errors.Is(err, domain.ErrInsufficientSample) {
			s.logger.Warn("Training sample too small, reusing current model",
				"samples", len(samples), "generation", existing.Generation())
			return existing, nil
		}
		return nil, fmt.Errorf("fit reducer: %w", err)
	}
	return model, nil
}

// sampleEmbeddings draws an evenly strided sample of full embeddings so
// training sees the corpus's spread rather than one ingestion burst.
func sampleEmbeddings(items []*domain.ContentItem, max int) [][]float32 {
	embedded := make([][]float32, 0, len(items))
	for _, item := range items {
		if len(item.FullEmbedding) > 0 {
			embedded = append(embedded, item.FullEmbedding)
		}
	}
	if len(embedded) <= max {
		return embedded
	}
	stride := len(embedded) / max
	sample := make([][]float32, 0, max)
	for i := 0; i < len(embedded) && len(sample) < max; i += stride {
		sample = append(sample, embedded[i])
	}
	return sample
}

// Stats reports the current index and model state.
func (s *Service) Stats() IndexStats {
	stats := IndexStats{
		Generation: s.index.Generation(),
		Size:       s.index.Size(),
		BuiltAt:    s.index.BuiltAt(),
	}
	if m := s.model.Load(); m != nil {
		stats.InputDim = m.InputDim()
		stats.OutputDim = m.OutputDim()
	}
	return stats
}

func clampPagination(page, limit int) (int, int) {
	if page < 0 {
		page = 0
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

func pageSlice(ranked []domain.RankedContent, page, limit int) []domain.RankedContent {
	offset := page * limit
	if offset >= len(ranked) {
		return []domain.RankedContent{}
	}
	end := offset + limit
	if end > len(ranked) {
		end = len(ranked)
	}
	return ranked[offset:end]
}
