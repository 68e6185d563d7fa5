package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/recommender/internal/domain"
)

// InteractionRepository handles database operations for interaction events.
type InteractionRepository struct {
	db *sqlx.DB
}

// NewInteractionRepository creates a new interaction repository.
func NewInteractionRepository(db *sqlx.DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

// Insert records one interaction event. The event id is assigned here when
// absent.
func (r *InteractionRepository) Insert(ctx context.Context, ev *domain.InteractionEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO interaction_events (id, user_id, content_id, kind, duration_seconds, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := r.db.ExecContext(ctx, query,
		ev.ID, ev.UserID, ev.ContentID, ev.Kind, ev.DurationSeconds, ev.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert interaction event: %w", err)
	}

	return nil
}

// ListByUser returns a user's events newer than since, oldest first so
// aggregation sees them in event order.
func (r *InteractionRepository) ListByUser(ctx context.Context, userID string, since time.Time) ([]domain.InteractionEvent, error) {
	var events []domain.InteractionEvent

	query := `
		SELECT id, user_id, content_id, kind, duration_seconds, created_at
		FROM interaction_events
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at ASC
	`

	if err := r.db.SelectContext(ctx, &events, query, userID, since); err != nil {
		return nil, fmt.Errorf("failed to list interaction events: %w", err)
	}

	return events, nil
}

// RecentContentIDs returns the distinct content ids a user interacted with
// since the given time, for feed exclusion.
func (r *InteractionRepository) RecentContentIDs(ctx context.Context, userID string, since time.Time) ([]string, error) {
	var ids []string

	query := `
		SELECT DISTINCT content_id
		FROM interaction_events
		WHERE user_id = $1 AND created_at >= $2
	`

	if err := r.db.SelectContext(ctx, &ids, query, userID, since); err != nil {
		return nil, fmt.Errorf("failed to list recent content ids: %w", err)
	}

	return ids, nil
}

// ActiveUsers returns the distinct users with at least one event since the
// given time, for cache warming.
func (r *InteractionRepository) ActiveUsers(ctx context.Context, since time.Time) ([]string, error) {
	var userIDs []string

	query := `
		SELECT DISTINCT user_id
		FROM interaction_events
		WHERE created_at >= $1
	`

	if err := r.db.SelectContext(ctx, &userIDs, query, since); err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}

	return userIDs, nil
}

// PruneOlderThan deletes events created before the cutoff, returning the
// number removed. Run by the scheduled retention job.
func (r *InteractionRepository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM interaction_events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune interaction events: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned events: %w", err)
	}

	return removed, nil
}
