package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jonesrussell/north-cloud/recommender/internal/domain"
	"github.com/jonesrussell/north-cloud/recommender/internal/simindex"
)

// ProfileRepository handles database operations for user profiles.
// Embedding vectors are stored as little-endian float32 blobs in bytea
// columns.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository creates a new profile repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Get retrieves a user's profile. Returns domain.ErrNotFound when the user
// has no profile row yet.
func (r *ProfileRepository) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	query := `
		SELECT user_id, full_embedding, reduced_embedding, disliked_categories,
		       model_generation, updated_at, stale, last_attempt_at, attempt_count
		FROM user_profiles
		WHERE user_id = $1
	`

	var (
		p           domain.UserProfile
		fullBlob    []byte
		reducedBlob []byte
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID,
		&fullBlob,
		&reducedBlob,
		&p.DislikedCats,
		&p.ModelGeneration,
		&p.UpdatedAt,
		&p.Stale,
		&p.LastAttemptAt,
		&p.AttemptCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", userID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	if len(fullBlob) > 0 {
		p.FullEmbedding = simindex.DeserializeVector(fullBlob)
	}
	if len(reducedBlob) > 0 {
		p.ReducedEmbedding = simindex.DeserializeVector(reducedBlob)
	}

	return &p, nil
}

// Upsert writes a complete profile row, replacing any existing one. A
// successful recompute clears the stale flag and the attempt counters.
func (r *ProfileRepository) Upsert(ctx context.Context, p *domain.UserProfile) error {
	query := `
		INSERT INTO user_profiles (
			user_id, full_embedding, reduced_embedding, disliked_categories,
			model_generation, updated_at, stale, last_attempt_at, attempt_count
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULL, 0)
		ON CONFLICT (user_id) DO UPDATE SET
			full_embedding = EXCLUDED.full_embedding,
			reduced_embedding = EXCLUDED.reduced_embedding,
			disliked_categories = EXCLUDED.disliked_categories,
			model_generation = EXCLUDED.model_generation,
			updated_at = EXCLUDED.updated_at,
			stale = EXCLUDED.stale,
			last_attempt_at = NULL,
			attempt_count = 0
	`

	var fullBlob, reducedBlob []byte
	if len(p.FullEmbedding) > 0 {
		fullBlob = simindex.SerializeVector(p.FullEmbedding)
	}
	if len(p.ReducedEmbedding) > 0 {
		reducedBlob = simindex.SerializeVector(p.ReducedEmbedding)
	}

	if _, err := r.db.ExecContext(ctx, query,
		p.UserID,
		fullBlob,
		reducedBlob,
		pq.StringArray(p.DislikedCats),
		p.ModelGeneration,
		p.UpdatedAt,
		p.Stale,
	); err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	return nil
}

// MarkStale flags a profile for recomputation by the next scheduled cycle.
// A missing row is created stale so brand-new users get picked up too.
func (r *ProfileRepository) MarkStale(ctx context.Context, userID string) error {
	query := `
		INSERT INTO user_profiles (user_id, stale, updated_at)
		VALUES ($1, TRUE, $2)
		ON CONFLICT (user_id) DO UPDATE SET stale = TRUE
	`

	if _, err := r.db.ExecContext(ctx, query, userID, time.Now()); err != nil {
		return fmt.Errorf("failed to mark profile stale: %w", err)
	}

	return nil
}

// MarkAttempt records a failed recompute attempt, leaving the profile stale
// so the next cycle retries it.
func (r *ProfileRepository) MarkAttempt(ctx context.Context, userID string, at time.Time) error {
	query := `
		INSERT INTO user_profiles (user_id, stale, updated_at, last_attempt_at, attempt_count)
		VALUES ($1, TRUE, $2, $2, 1)
		ON CONFLICT (user_id) DO UPDATE SET
			stale = TRUE,
			last_attempt_at = $2,
			attempt_count = user_profiles.attempt_count + 1
	`

	if _, err := r.db.ExecContext(ctx, query, userID, at); err != nil {
		return fmt.Errorf("failed to mark profile attempt: %w", err)
	}

	return nil
}

// ListStale returns up to limit user ids awaiting recomputation, oldest
// update first so long-stale profiles are served before fresh churn.
func (r *ProfileRepository) ListStale(ctx context.Context, limit int) ([]string, error) {
	var userIDs []string

	query := `
		SELECT user_id
		FROM user_profiles
		WHERE stale = TRUE
		ORDER BY updated_at ASC
		LIMIT $1
	`

	if err := r.db.SelectContext(ctx, &userIDs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list stale profiles: %w", err)
	}

	return userIDs, nil
}
