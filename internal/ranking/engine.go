// Package ranking combines similarity, engagement, and recency into final
// feed scores and applies the diversity policy.
package ranking

import (
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/jonesrussell/north-cloud/recommender/internal/domain"
	"github.com/jonesrussell/north-cloud/recommender/internal/simindex"
)

// Scoring constants.
const (
	likeWeight    = 2.0
	viewWeight    = 0.1
	dislikeWeight = 0.5
	// recencyHalfLifeDays controls the exponential decay applied to both
	// engagement and the recency score component.
	recencyHalfLifeDays = 30.0

	// DefaultPerSourceCap limits how often one source appears in a page.
	DefaultPerSourceCap = 2
	// DefaultBandWidth is the final-score band within which results may be
	// shuffled without violating the quality ordering contract.
	DefaultBandWidth = 0.05
)

// Weights holds the final-score component weights.
type Weights struct {
	Similarity float64
	Engagement float64
	Recency    float64
}

// DefaultWeights returns the standard component weights.
func DefaultWeights() Weights {
	return Weights{Similarity: 0.6, Engagement: 0.25, Recency: 0.15}
}

// EngagementScore computes the recency-adjusted engagement score for a
// content item:
//
//	max(0, likes*2 + views*0.1 - dislikes*0.5) * exp(-days/30) * (1 + likeRatio - dislikeRatio)
//
// Ratios are per-item (likes/views, dislikes/views) and zero when views is
// zero, so the function never divides by zero or produces NaN.
func EngagementScore(likes, dislikes, views int64, publishedAt, now time.Time) float64 {
	raw := float64(likes)*likeWeight + float64(views)*viewWeight - float64(dislikes)*dislikeWeight
	if raw < 0 {
		raw = 0
	}

	var likeRatio, dislikeRatio float64
	if views > 0 {
		likeRatio = float64(likes) / float64(views)
		dislikeRatio = float64(dislikes) / float64(views)
	}

	return raw * RecencyScore(publishedAt, now) * (1 + likeRatio - dislikeRatio)
}

// RecencyScore returns exp(-days_since_publish/30), clamped to 1 for future
// timestamps.
func RecencyScore(publishedAt, now time.Time) float64 {
	days := now.Sub(publishedAt).Hours() / 24
	if days < 0 {
		days = 0
	}
	return math.Exp(-days / recencyHalfLifeDays)
}

// Engine ranks candidate sets and applies the diversity policy.
type Engine struct {
	weights      Weights
	perSourceCap int
	bandWidth    float64
	rng          *rand.Rand
}

// Option configures an Engine.
type Option func(*Engine)

// WithWeights overrides the component weights.
func WithWeights(w Weights) Option {
	return func(e *Engine) { e.weights = w }
}

// WithPerSourceCap overrides the per-source cap.
func WithPerSourceCap(cap int) Option {
	return func(e *Engine) { e.perSourceCap = cap }
}

// WithRandSource fixes the shuffle randomness, for deterministic tests.
func WithRandSource(src rand.Source) Option {
	return func(e *Engine) { e.rng = rand.New(src) }
}

// NewEngine creates a ranking engine with default policy.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		weights:      DefaultWeights(),
		perSourceCap: DefaultPerSourceCap,
		bandWidth:    DefaultBandWidth,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rank scores candidates, deduplicates titles, applies the per-source cap,
// and shuffles within nearby-score bands. Returns at most limit results.
func (e *Engine) Rank(candidates []simindex.Candidate, limit int, now time.Time) []domain.RankedContent {
	if len(candidates) == 0 || limit <= 0 {
		return nil
	}

	scored := e.score(candidates, now)
	sort.Slice(scored, func(i, j int) bool {
		return scored[i].FinalScore > scored[j].FinalScore
	})

	scored = dedupeTitles(scored)
	scored = e.applySourceCap(scored, limit)
	e.shuffleWithinBands(scored)

	return scored
}

func (e *Engine) score(candidates []simindex.Candidate, now time.Time) []domain.RankedContent {
	// Normalize engagement across the candidate set so the component is
	// comparable with similarity and recency.
	maxEngagement := 0.0
	for _, c := range candidates {
		if c.Entry.EngagementScore > maxEngagement {
			maxEngagement = c.Entry.EngagementScore
		}
	}

	scored := make([]domain.RankedContent, 0, len(candidates))
	for _, c := range candidates {
		engagementNorm := 0.0
		if maxEngagement > 0 {
			engagementNorm = c.Entry.EngagementScore / maxEngagement
		}
		recency := RecencyScore(c.Entry.PublishedAt, now)

		scored = append(scored, domain.RankedContent{
			ContentID:       c.Entry.ContentID,
			SourceName:      c.Entry.SourceName,
			Title:           c.Entry.Title,
			SimilarityScore: c.Similarity,
			EngagementScore: engagementNorm,
			RecencyScore:    recency,
			FinalScore: e.weights.Similarity*c.Similarity +
				e.weights.Engagement*engagementNorm +
				e.weights.Recency*recency,
		})
	}
	return scored
}

// dedupeTitles collapses duplicate titles, keeping the highest-scored entry.
// Input must already be sorted by final score descending.
func dedupeTitles(scored []domain.RankedContent) []domain.RankedContent {
	seen := make(map[string]struct{}, len(scored))
	out := scored[:0]
	for _, s := range scored {
		key := strings.ToLower(strings.TrimSpace(s.Title))
		if key != "" {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, s)
	}
	return out
}

// applySourceCap limits each source to perSourceCap entries per page,
// redistributing slots to lower-ranked but source-distinct candidates. When
// the distinct-source pool is smaller than limit/2 the cap is relaxed to
// whatever the pool can physically provide.
func (e *Engine) applySourceCap(scored []domain.RankedContent, limit int) []domain.RankedContent {
	distinct := make(map[string]struct{}, len(scored))
	for _, s := range scored {
		distinct[s.SourceName] = struct{}{}
	}

	capped := make([]domain.RankedContent, 0, limit)
	perSource := make(map[string]int, len(distinct))
	var overflow []domain.RankedContent

	for _, s := range scored {
		if len(capped) == limit {
			break
		}
		if perSource[s.SourceName] >= e.perSourceCap {
			overflow = append(overflow, s)
			continue
		}
		perSource[s.SourceName]++
		capped = append(capped, s)
	}

	// Too few distinct sources to fill the page under the cap: relax it and
	// backfill from the overflow in score order.
	if len(capped) < limit && len(distinct)*e.perSourceCap < limit {
		for _, s := range overflow {
			if len(capped) == limit {
				break
			}
			capped = append(capped, s)
		}
		sort.Slice(capped, func(i, j int) bool {
			return capped[i].FinalScore > capped[j].FinalScore
		})
	}

	return capped
}

// shuffleWithinBands randomizes order inside contiguous runs whose final
// scores differ by less than the band width, so repeated fetches of the
// same ranking vary without reordering across quality tiers.
func (e *Engine) shuffleWithinBands(scored []domain.RankedContent) {
	start := 0
	for i := 1; i <= len(scored); i++ {
		if i == len(scored) || scored[start].FinalScore-scored[i].FinalScore >= e.bandWidth {
			band := scored[start:i]
			e.rng.Shuffle(len(band), func(a, b int) {
				band[a], band[b] = band[b], band[a]
			})
			start = i
		}
	}
}
