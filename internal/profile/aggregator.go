// Package profile turns per-user interaction history into profile
// embeddings.
package profile

import (
	"math"
	"sort"
	"time"

	"github.com/jonesrussell/north-cloud/recommender/internal/domain"
)

// Signal weights. A single strong signal should not be diluted by weaker
// ones, and re-exposure must not inflate weight unboundedly, so the maximum
// weight wins when multiple signals touch the same item.
const (
	likeSignalWeight    = 3.0
	saveSignalWeight    = 3.0
	commentSignalWeight = 2.5
	viewSignalWeight    = 1.0
	// readDurationDivisor and readDurationCap bound the duration-scaled
	// read weight: min(duration/10, 2) * baseWeight.
	readDurationDivisor = 10.0
	readDurationCap     = 2.0

	// DefaultMaxInterests caps the weighted interest set.
	DefaultMaxInterests = 25
)

// Aggregator produces weighted interest sets from interaction snapshots.
// Output is deterministic given the same snapshot.
type Aggregator struct {
	maxInterests int
}

// NewAggregator creates an aggregator capping interest sets at maxInterests
// (DefaultMaxInterests when <= 0).
func NewAggregator(maxInterests int) *Aggregator {
	if maxInterests <= 0 {
		maxInterests = DefaultMaxInterests
	}
	return &Aggregator{maxInterests: maxInterests}
}

// Aggregate builds the weighted interest set for a user from an interaction
// snapshot. categories maps content id to its category tags and is used to
// collect disliked categories from dislike events; negative signals are
// never blended into the positive vector. An empty snapshot yields an empty
// set, which resets the profile rather than failing.
func (a *Aggregator) Aggregate(userID string, events []domain.InteractionEvent, categories map[string][]string) domain.InterestSet {
	type signal struct {
		weight   float64
		lastSeen time.Time
	}

	// A later unsave cancels an earlier save for the same content.
	saveCanceled := make(map[string]bool)
	for _, ev := range events {
		switch ev.Kind {
		case domain.EventSave:
			saveCanceled[ev.ContentID] = false
		case domain.EventUnsave:
			saveCanceled[ev.ContentID] = true
		}
	}

	positives := make(map[string]signal)
	dislikedCats := make(map[string]struct{})

	for _, ev := range events {
		if ev.Kind == domain.EventDislike {
			for _, cat := range categories[ev.ContentID] {
				dislikedCats[cat] = struct{}{}
			}
			continue
		}

		weight := a.signalWeight(ev, saveCanceled)
		if weight <= 0 {
			continue
		}

		prev, seen := positives[ev.ContentID]
		switch {
		case !seen, weight > prev.weight:
			positives[ev.ContentID] = signal{weight: weight, lastSeen: ev.CreatedAt}
		case weight == prev.weight && ev.CreatedAt.After(prev.lastSeen):
			positives[ev.ContentID] = signal{weight: weight, lastSeen: ev.CreatedAt}
		}
	}

	interests := make([]domain.WeightedInterest, 0, len(positives))
	for contentID, sig := range positives {
		interests = append(interests, domain.WeightedInterest{
			ContentID: contentID,
			Weight:    sig.weight,
			LastSeen:  sig.lastSeen,
		})
	}

	// Strongest first, ties broken by most-recent timestamp then content id
	// so the output is fully deterministic.
	sort.Slice(interests, func(i, j int) bool {
		if interests[i].Weight != interests[j].Weight {
			return interests[i].Weight > interests[j].Weight
		}
		if !interests[i].LastSeen.Equal(interests[j].LastSeen) {
			return interests[i].LastSeen.After(interests[j].LastSeen)
		}
		return interests[i].ContentID < interests[j].ContentID
	})
	if len(interests) > a.maxInterests {
		interests = interests[:a.maxInterests]
	}

	cats := make([]string, 0, len(dislikedCats))
	for cat := range dislikedCats {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	return domain.InterestSet{
		UserID:       userID,
		Interests:    interests,
		DislikedCats: cats,
	}
}

func (a *Aggregator) signalWeight(ev domain.InteractionEvent, saveCanceled map[string]bool) float64 {
	switch ev.Kind {
	case domain.EventLike:
		return likeSignalWeight
	case domain.EventSave:
		if saveCanceled[ev.ContentID] {
			return 0
		}
		return saveSignalWeight
	case domain.EventComment:
		return commentSignalWeight
	case domain.EventView:
		return viewSignalWeight
	case domain.EventRead:
		scale := math.Min(float64(ev.DurationSeconds)/readDurationDivisor, readDurationCap)
		return scale * viewSignalWeight
	default:
		return 0
	}
}
