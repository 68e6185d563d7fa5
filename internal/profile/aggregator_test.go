package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/recommender/internal/domain"
)

func event(kind domain.EventKind, contentID string, at time.Time) domain.InteractionEvent {
	return domain.InteractionEvent{
		UserID:    "u1",
		ContentID: contentID,
		Kind:      kind,
		CreatedAt: at,
	}
}

func TestAggregateMaxWeightWins(t *testing.T) {
	now := time.Now()
	agg := NewAggregator(0)

	// View then like on the same content: the like's weight wins, it is not
	// added to the view's.
	events := []domain.InteractionEvent{
		event(domain.EventView, "c1", now.Add(-2*time.Hour)),
		event(domain.EventLike, "c1", now.Add(-1*time.Hour)),
		event(domain.EventView, "c1", now),
	}

	set := agg.Aggregate("u1", events, nil)

	require.Len(t, set.Interests, 1)
	assert.Equal(t, "c1", set.Interests[0].ContentID)
	assert.Equal(t, 3.0, set.Interests[0].Weight)
}

func TestAggregateReadDurationScaling(t *testing.T) {
	now := time.Now()
	agg := NewAggregator(0)

	tests := []struct {
		name     string
		duration int64
		want     float64
	}{
		{"short read", 5, 0.5},
		{"ten seconds", 10, 1.0},
		{"capped at 2x", 200, 2.0},
		{"zero duration", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := event(domain.EventRead, "c1", now)
			ev.DurationSeconds = tt.duration

			set := agg.Aggregate("u1", []domain.InteractionEvent{ev}, nil)

			if tt.want == 0 {
				assert.Empty(t, set.Interests)
				return
			}
			require.Len(t, set.Interests, 1)
			assert.InDelta(t, tt.want, set.Interests[0].Weight, 1e-9)
		})
	}
}

func TestAggregateUnsaveCancelsSave(t *testing.T) {
	now := time.Now()
	agg := NewAggregator(0)

	events := []domain.InteractionEvent{
		event(domain.EventSave, "c1", now.Add(-time.Hour)),
		event(domain.EventUnsave, "c1", now),
		event(domain.EventSave, "c2", now),
	}

	set := agg.Aggregate("u1", events, nil)

	require.Len(t, set.Interests, 1)
	assert.Equal(t, "c2", set.Interests[0].ContentID)
}

func TestAggregateDislikesCollectCategoriesOnly(t *testing.T) {
	now := time.Now()
	agg := NewAggregator(0)

	events := []domain.InteractionEvent{
		event(domain.EventLike, "c1", now),
		event(domain.EventDislike, "c2", now),
		event(domain.EventDislike, "c3", now),
	}
	categories := map[string][]string{
		"c2": {"sports", "hockey"},
		"c3": {"sports"},
	}

	set := agg.Aggregate("u1", events, categories)

	// Disliked content contributes no positive signal.
	require.Len(t, set.Interests, 1)
	assert.Equal(t, "c1", set.Interests[0].ContentID)
	// Categories are deduplicated and sorted.
	assert.Equal(t, []string{"hockey", "sports"}, set.DislikedCats)
}

func TestAggregateCapsInterests(t *testing.T) {
	now := time.Now()
	agg := NewAggregator(3)

	var events []domain.InteractionEvent
	for _, id := range []string{"c1", "c2", "c3", "c4", "c5"} {
		events = append(events, event(domain.EventLike, id, now))
	}

	set := agg.Aggregate("u1", events, nil)
	assert.Len(t, set.Interests, 3)
}

func TestAggregateDeterministicOrdering(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	agg := NewAggregator(0)

	// Same weight and timestamp: ties break by content id ascending.
	events := []domain.InteractionEvent{
		event(domain.EventLike, "ccc", now),
		event(domain.EventLike, "aaa", now),
		event(domain.EventLike, "bbb", now),
	}

	first := agg.Aggregate("u1", events, nil)
	second := agg.Aggregate("u1", events, nil)

	require.Equal(t, first.Interests, second.Interests)
	assert.Equal(t, "aaa", first.Interests[0].ContentID)
	assert.Equal(t, "bbb", first.Interests[1].ContentID)
	assert.Equal(t, "ccc", first.Interests[2].ContentID)
}

func TestAggregateEmptySnapshot(t *testing.T) {
	agg := NewAggregator(0)
	set := agg.Aggregate("u1", nil, nil)

	assert.True(t, set.Empty())
	assert.Equal(t, "u1", set.UserID)
}
