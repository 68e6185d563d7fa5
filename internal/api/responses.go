package api

import (
	"time"

	"github.com/jonesrussell/north-cloud/recommender/internal/domain"
	"github.com/jonesrussell/north-cloud/recommender/internal/recommend"
	"github.com/jonesrussell/north-cloud/recommender/internal/simindex"
)

// InteractionRequest represents a request to record one interaction event.
type InteractionRequest struct {
	UserID          string `json:"user_id"    binding:"required"`
	ContentID       string `json:"content_id" binding:"required"`
	Kind            string `json:"kind"       binding:"required"`
	DurationSeconds int64  `json:"duration_seconds"`
}

// InteractionResponse acknowledges a recorded interaction.
type InteractionResponse struct {
	ID       string `json:"id"`
	Recorded bool   `json:"recorded"`
}

// FeedResponse represents one feed page.
type FeedResponse struct {
	Items  []domain.RankedContent `json:"items"`
	Tier   string                 `json:"tier"`
	Cached bool                   `json:"cached"`
	Page   int                    `json:"page"`
	Limit  int                    `json:"limit"`
	Count  int                    `json:"count"`
}

// BuildResponse reports the result of an index rebuild.
type BuildResponse struct {
	Generation int64     `json:"generation"`
	Indexed    int       `json:"indexed"`
	Skipped    int       `json:"skipped"`
	Dim        int       `json:"dim"`
	BuiltAt    time.Time `json:"built_at"`
}

// ProfileStatusResponse reports a profile's freshness for operators.
type ProfileStatusResponse struct {
	UserID          string     `json:"user_id"`
	HasEmbedding    bool       `json:"has_embedding"`
	ModelGeneration int64      `json:"model_generation"`
	DislikedCats    []string   `json:"disliked_categories,omitempty"`
	Stale           bool       `json:"stale"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastAttemptAt   *time.Time `json:"last_attempt_at,omitempty"`
	AttemptCount    int        `json:"attempt_count"`
}

func toFeedResponse(feed *recommend.Feed) FeedResponse {
	items := feed.Items
	if items == nil {
		items = []domain.RankedContent{}
	}
	return FeedResponse{
		Items:  items,
		Tier:   feed.Tier,
		Cached: feed.Cached,
		Page:   feed.Page,
		Limit:  feed.Limit,
		Count:  len(items),
	}
}

func toBuildResponse(stats simindex.BuildStats) BuildResponse {
	return BuildResponse{
		Generation: stats.Generation,
		Indexed:    stats.Indexed,
		Skipped:    stats.Skipped,
		Dim:        stats.Dim,
		BuiltAt:    stats.BuiltAt,
	}
}

func toProfileStatusResponse(p *domain.UserProfile) ProfileStatusResponse {
	return ProfileStatusResponse{
		UserID:          p.UserID,
		HasEmbedding:    p.HasEmbedding(),
		ModelGeneration: p.ModelGeneration,
		DislikedCats:    p.DislikedCats,
		Stale:           p.Stale,
		UpdatedAt:       p.UpdatedAt,
		LastAttemptAt:   p.LastAttemptAt,
		AttemptCount:    p.AttemptCount,
	}
}
