// Package domain holds the core types shared across the recommender
// pipeline.
package domain

import "time"

// Embedding dimensions shared by content and user profiles. All vectors in
// one index generation must use the same pair.
const (
	// FullEmbeddingDim is the dimension of provider embeddings.
	FullEmbeddingDim = 1536
	// ReducedEmbeddingDim is the dimension after PCA reduction.
	ReducedEmbeddingDim = 128
)

// ContentItem represents a single piece of aggregated content (article or
// video) in the corpus. Embeddings are populated asynchronously after
// ingestion and may be absent for a period.
type ContentItem struct {
	ID               string    `json:"id"`
	SourceName       string    `json:"source_name"`
	Title            string    `json:"title"`
	Snippet          string    `json:"snippet"`
	URL              string    `json:"url,omitempty"`
	Categories       []string  `json:"categories,omitempty"`
	FullEmbedding    []float32 `json:"full_embedding,omitempty"`
	ReducedEmbedding []float32 `json:"reduced_embedding,omitempty"`
	Views            int64     `json:"views"`
	Likes            int64     `json:"likes"`
	Dislikes         int64     `json:"dislikes"`
	Saves            int64     `json:"saves"`
	PublishedAt      time.Time `json:"published_at"`
	// Flagged content is excluded from recommendations but never hard-deleted.
	Flagged bool `json:"flagged"`
}

// HasReducedEmbedding reports whether the item carries a reduced vector of
// the expected dimension.
func (c *ContentItem) HasReducedEmbedding() bool {
	return len(c.ReducedEmbedding) > 0
}

// RankedContent is one entry of a computed feed: a content reference plus
// the scores that produced its position.
type RankedContent struct {
	ContentID       string  `json:"content_id"`
	SourceName      string  `json:"source_name"`
	Title           string  `json:"title"`
	SimilarityScore float64 `json:"similarity_score"`
	EngagementScore float64 `json:"engagement_score"`
	RecencyScore    float64 `json:"recency_score"`
	FinalScore      float64 `json:"final_score"`
}

// FeedMode selects how a feed page is produced.
type FeedMode string

const (
	// FeedModePersonalized ranks by profile-vector similarity with fallbacks.
	FeedModePersonalized FeedMode = "personalized"
	// FeedModeTrending ranks by engagement with recency decay.
	FeedModeTrending FeedMode = "trending"
	// FeedModeDiverse returns one item per source, randomized fill.
	FeedModeDiverse FeedMode = "diverse"
)

// ParseFeedMode maps a query value onto a FeedMode, defaulting to
// personalized for unknown values.
func ParseFeedMode(s string) FeedMode {
	switch FeedMode(s) {
	case FeedModeTrending:
		return FeedModeTrending
	case FeedModeDiverse:
		return FeedModeDiverse
	default:
		return FeedModePersonalized
	}
}
