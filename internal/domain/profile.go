package domain

import (
	"time"

	"github.com/lib/pq"
)

// UserProfile holds a user's aggregate interest embeddings. The two
// embeddings are either both empty (no positive signal yet) or both
// populated with consistent dimensions; partial profiles are never
// persisted.
type UserProfile struct {
	UserID           string         `db:"user_id"`
	FullEmbedding    []float32      `db:"-"`
	ReducedEmbedding []float32      `db:"-"`
	DislikedCats     pq.StringArray `db:"disliked_categories"`
	// ModelGeneration is the reducer-model generation the reduced embedding
	// was projected with. A mismatch with the live index generation means
	// the profile must be reprojected before its scores mean anything.
	ModelGeneration int64     `db:"model_generation"`
	UpdatedAt       time.Time `db:"updated_at"`

	// Staleness tracking: a stale profile is awaiting recomputation. The
	// attempt fields make failed recomputes observable instead of silent.
	Stale         bool       `db:"stale"`
	LastAttemptAt *time.Time `db:"last_attempt_at"`
	AttemptCount  int        `db:"attempt_count"`
}

// HasEmbedding reports whether the profile carries a usable vector pair.
func (p *UserProfile) HasEmbedding() bool {
	return len(p.FullEmbedding) > 0 && len(p.ReducedEmbedding) > 0
}

// WeightedInterest is one entry of a user's aggregated interest set: a
// content reference with the strength of the user's signal toward it.
type WeightedInterest struct {
	ContentID string
	Weight    float64
	// LastSeen is the timestamp of the strongest event; used for
	// deterministic tie-breaking.
	LastSeen time.Time
}

// InterestSet is the output of profile aggregation: positive weighted
// interests plus categories the user has signalled against.
type InterestSet struct {
	UserID       string
	Interests    []WeightedInterest
	DislikedCats []string
}

// Empty reports whether the set carries no positive signal.
func (s *InterestSet) Empty() bool {
	return len(s.Interests) == 0
}
