package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/north-cloud/recommender/internal/domain"
	"github.com/jonesrussell/north-cloud/recommender/internal/embedding"
	"github.com/jonesrussell/north-cloud/recommender/internal/reduction"
)

// Logger defines the logging interface.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// InteractionReader provides windowed access to a user's interaction
// events.
type InteractionReader interface {
	ListByUser(ctx context.Context, userID string, since time.Time) ([]domain.InteractionEvent, error)
}

// ContentReader fetches content items by id (for profile text and category
// tags).
type ContentReader interface {
	FetchByIDs(ctx context.Context, ids []string) ([]*domain.ContentItem, error)
}

// ProfileStore persists user profiles and their staleness state.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*domain.UserProfile, error)
	Upsert(ctx context.Context, p *domain.UserProfile) error
	// MarkAttempt records a failed recompute attempt, leaving the profile
	// stale so the next cycle retries it.
	MarkAttempt(ctx context.Context, userID string, at time.Time) error
}

// Embedder is the single-shot embedding provider adapter.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ModelSource exposes the current reducer model. Returns nil before the
// first index build.
type ModelSource interface {
	CurrentModel() *reduction.Model
}

// Service recomputes user profiles: aggregate interactions, embed the
// profile text, project into the reduced space, persist. Steps are
// strictly sequential per user; profiles are never persisted partially.
type Service struct {
	interactions InteractionReader
	contents     ContentReader
	profiles     ProfileStore
	embedder     Embedder
	models       ModelSource
	aggregator   *Aggregator
	logger       Logger
}

// NewService wires a profile recompute service.
func NewService(
	interactions InteractionReader,
	contents ContentReader,
	profiles ProfileStore,
	embedder Embedder,
	models ModelSource,
	aggregator *Aggregator,
	logger Logger,
) *Service {
	if aggregator == nil {
		aggregator = NewAggregator(0)
	}
	return &Service{
		interactions: interactions,
		contents:     contents,
		profiles:     profiles,
		embedder:     embedder,
		models:       models,
		aggregator:   aggregator,
		logger:       logger,
	}
}

// Recompute rebuilds one user's profile from their interaction window. A
// provider failure marks the profile's attempt and returns the error; the
// user is retried on the next scheduled pass without blocking others.
func (s *Service) Recompute(ctx context.Context, userID string) error {
	since := time.Now().Add(-domain.InteractionRetention)
	events, err := s.interactions.ListByUser(ctx, userID, since)
	if err != nil {
		return fmt.Errorf("list interactions for %s: %w", userID, err)
	}

	items, err := s.fetchInteractedContent(ctx, events)
	if err != nil {
		return fmt.Errorf("fetch interacted content for %s: %w", userID, err)
	}

	categories := make(map[string][]string, len(items))
	byID := make(map[string]*domain.ContentItem, len(items))
	for _, item := range items {
		categories[item.ID] = item.Categories
		byID[item.ID] = item
	}

	set := s.aggregator.Aggregate(userID, events, categories)
	if set.Empty() {
		// No positive signal: reset to an empty profile so recommendations
		// fall back to non-personalized modes instead of using stale bias.
		return s.resetProfile(ctx, userID, set.DislikedCats)
	}

	texts := make([]embedding.WeightedText, 0, len(set.Interests))
	for _, interest := range set.Interests {
		item, ok := byID[interest.ContentID]
		if !ok {
			continue
		}
		texts = append(texts, embedding.WeightedText{
			Title:   item.Title,
			Snippet: item.Snippet,
			Weight:  interest.Weight,
		})
	}

	profileText := embedding.BuildProfileText(texts)
	if profileText == "" {
		return s.resetProfile(ctx, userID, set.DislikedCats)
	}

	fullVec, err := s.embedder.Embed(ctx, profileText)
	if err != nil {
		s.markAttempt(ctx, userID)
		return fmt.Errorf("embed profile for %s: %w", userID, err)
	}

	model := s.models.CurrentModel()
	if model == nil {
		s.markAttempt(ctx, userID)
		return fmt.Errorf("project profile for %s: %w", userID, domain.ErrInsufficientSample)
	}

	reducedVec, err := model.Project(fullVec)
	if err != nil {
		s.markAttempt(ctx, userID)
		return fmt.Errorf("project profile for %s: %w", userID, err)
	}

	p := &domain.UserProfile{
		UserID:           userID,
		FullEmbedding:    fullVec,
		ReducedEmbedding: reducedVec,
		DislikedCats:     set.DislikedCats,
		ModelGeneration:  model.Generation(),
		UpdatedAt:        time.Now(),
		Stale:            false,
	}
	if err := s.profiles.Upsert(ctx, p); err != nil {
		return fmt.Errorf("persist profile for %s: %w", userID, err)
	}

	s.logger.Debug("Profile recomputed",
		"user_id", userID,
		"interests", len(set.Interests),
		"model_generation", model.Generation(),
	)
	return nil
}

func (s *Service) fetchInteractedContent(ctx context.Context, events []domain.InteractionEvent) ([]*domain.ContentItem, error) {
	seen := make(map[string]struct{}, len(events))
	ids := make([]string, 0, len(events))
	for _, ev := range events {
		if _, ok := seen[ev.ContentID]; ok {
			continue
		}
		seen[ev.ContentID] = struct{}{}
		ids = append(ids, ev.ContentID)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return s.contents.FetchByIDs(ctx, ids)
}

func (s *Service) resetProfile(ctx context.Context, userID string, dislikedCats []string) error {
	p := &domain.UserProfile{
		UserID:       userID,
		DislikedCats: dislikedCats,
		UpdatedAt:    time.Now(),
		Stale:        false,
	}
	if err := s.profiles.Upsert(ctx, p); err != nil {
		return fmt.Errorf("reset profile for %s: %w", userID, err)
	}
	s.logger.Debug("Profile reset to empty", "user_id", userID)
	return nil
}

func (s *Service) markAttempt(ctx context.Context, userID string) {
	if err := s.profiles.MarkAttempt(ctx, userID, time.Now()); err != nil {
		s.logger.Warn("Failed to record profile attempt", "user_id", userID, "error", err)
	}
}

// IsProviderFailure reports whether a recompute error came from the
// embedding provider (and is therefore retried next cycle).
func IsProviderFailure(err error) bool {
	return errors.Is(err, domain.ErrProvider)
}
