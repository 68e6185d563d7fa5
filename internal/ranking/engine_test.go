package ranking

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/recommender/internal/simindex"
)

func entry(id, source, title string, engagement float64, published time.Time) simindex.Entry {
	return simindex.Entry{
		ContentID:       id,
		SourceName:      source,
		Title:           title,
		EngagementScore: engagement,
		PublishedAt:     published,
	}
}

func TestEngagementScore(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		likes     int64
		dislikes  int64
		views     int64
		published time.Time
		check     func(t *testing.T, score float64)
	}{
		{
			name:      "zero views produces no NaN",
			published: now,
			check: func(t *testing.T, score float64) {
				assert.False(t, math.IsNaN(score))
				assert.Equal(t, 0.0, score)
			},
		},
		{
			name:      "dislikes never drive the score negative",
			dislikes:  1000,
			views:     10,
			published: now,
			check: func(t *testing.T, score float64) {
				assert.GreaterOrEqual(t, score, 0.0)
				assert.False(t, math.IsNaN(score))
			},
		},
		{
			name:      "likes outscore views",
			likes:     10,
			views:     10,
			published: now,
			check: func(t *testing.T, score float64) {
				viewsOnly := EngagementScore(0, 0, 10, now, now)
				assert.Greater(t, score, viewsOnly)
			},
		},
		{
			name:      "older content decays",
			likes:     10,
			views:     100,
			published: now.Add(-60 * 24 * time.Hour),
			check: func(t *testing.T, score float64) {
				fresh := EngagementScore(10, 0, 100, now, now)
				assert.Less(t, score, fresh)
			},
		},
		{
			name:      "future publish date is clamped",
			likes:     5,
			views:     50,
			published: now.Add(24 * time.Hour),
			check: func(t *testing.T, score float64) {
				fresh := EngagementScore(5, 0, 50, now, now)
				assert.InDelta(t, fresh, score, 1e-9)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := EngagementScore(tt.likes, tt.dislikes, tt.views, tt.published, now)
			tt.check(t, score)
		})
	}
}

func TestRecencyScore(t *testing.T) {
	now := time.Now()

	assert.InDelta(t, 1.0, RecencyScore(now, now), 1e-9)
	assert.InDelta(t, 1.0, RecencyScore(now.Add(time.Hour), now), 1e-9)

	thirtyDays := RecencyScore(now.Add(-30*24*time.Hour), now)
	assert.InDelta(t, math.Exp(-1), thirtyDays, 1e-6)
}

func TestRankOrdersByFinalScore(t *testing.T) {
	now := time.Now()
	// Wide engagement spread so scores land in separate bands and the
	// band shuffle cannot reorder them.
	candidates := []simindex.Candidate{
		{Entry: ptr(entry("low", "s1", "low title", 1, now)), Similarity: 0.1},
		{Entry: ptr(entry("high", "s2", "high title", 100, now)), Similarity: 0.9},
		{Entry: ptr(entry("mid", "s3", "mid title", 50, now)), Similarity: 0.5},
	}

	e := NewEngine(WithRandSource(rand.NewSource(1)))
	ranked := e.Rank(candidates, 3, now)

	require.Len(t, ranked, 3)
	assert.Equal(t, "high", ranked[0].ContentID)
	assert.Equal(t, "mid", ranked[1].ContentID)
	assert.Equal(t, "low", ranked[2].ContentID)
}

func TestRankDedupesTitles(t *testing.T) {
	now := time.Now()
	candidates := []simindex.Candidate{
		{Entry: ptr(entry("a", "s1", "Breaking News", 100, now)), Similarity: 0.9},
		{Entry: ptr(entry("b", "s2", "breaking news ", 10, now)), Similarity: 0.2},
		{Entry: ptr(entry("c", "s3", "Something Else", 10, now)), Similarity: 0.2},
	}

	e := NewEngine(WithRandSource(rand.NewSource(1)))
	ranked := e.Rank(candidates, 10, now)

	require.Len(t, ranked, 2)
	ids := []string{ranked[0].ContentID, ranked[1].ContentID}
	assert.Contains(t, ids, "a")
	assert.Contains(t, ids, "c")
	assert.NotContains(t, ids, "b")
}

func TestRankAppliesPerSourceCap(t *testing.T) {
	now := time.Now()
	var candidates []simindex.Candidate
	// Five items from one dominant source plus two from others.
	for i, id := range []string{"d1", "d2", "d3", "d4", "d5"} {
		candidates = append(candidates, simindex.Candidate{
			Entry:      ptr(entry(id, "dominant", "title "+id, float64(100-i*10), now)),
			Similarity: 0.9,
		})
	}
	candidates = append(candidates,
		simindex.Candidate{Entry: ptr(entry("x1", "other1", "title x1", 5, now)), Similarity: 0.1},
		simindex.Candidate{Entry: ptr(entry("x2", "other2", "title x2", 5, now)), Similarity: 0.1},
	)

	e := NewEngine(WithRandSource(rand.NewSource(1)))
	ranked := e.Rank(candidates, 4, now)

	require.Len(t, ranked, 4)
	perSource := map[string]int{}
	for _, r := range ranked {
		perSource[r.SourceName]++
	}
	assert.LessOrEqual(t, perSource["dominant"], DefaultPerSourceCap)
	assert.Equal(t, 1, perSource["other1"])
	assert.Equal(t, 1, perSource["other2"])
}

func TestRankRelaxesCapWhenSourcesScarce(t *testing.T) {
	now := time.Now()
	// One source only: the cap cannot be honored without starving the page.
	var candidates []simindex.Candidate
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		candidates = append(candidates, simindex.Candidate{
			Entry:      ptr(entry(id, "solo", "title "+id, float64(50-i), now)),
			Similarity: 0.5,
		})
	}

	e := NewEngine(WithRandSource(rand.NewSource(1)))
	ranked := e.Rank(candidates, 5, now)

	assert.Len(t, ranked, 5)
}

func TestRankEmptyInput(t *testing.T) {
	e := NewEngine()
	assert.Nil(t, e.Rank(nil, 10, time.Now()))
	assert.Nil(t, e.Rank([]simindex.Candidate{}, 10, time.Now()))

	now := time.Now()
	candidates := []simindex.Candidate{
		{Entry: ptr(entry("a", "s", "t", 1, now)), Similarity: 0.5},
	}
	assert.Nil(t, e.Rank(candidates, 0, now))
}

func TestShuffleWithinBandsPreservesTiers(t *testing.T) {
	now := time.Now()
	candidates := []simindex.Candidate{
		{Entry: ptr(entry("top", "s1", "t1", 0, now)), Similarity: 1.0},
		{Entry: ptr(entry("near-a", "s2", "t2", 0, now)), Similarity: 0.30},
		{Entry: ptr(entry("near-b", "s3", "t3", 0, now)), Similarity: 0.31},
	}

	// Whatever the seed, the clear leader stays first; only the nearby pair
	// may swap.
	for seed := int64(0); seed < 10; seed++ {
		e := NewEngine(WithRandSource(rand.NewSource(seed)))
		ranked := e.Rank(candidates, 3, now)
		require.Len(t, ranked, 3)
		assert.Equal(t, "top", ranked[0].ContentID, "seed %d", seed)
	}
}

func ptr(e simindex.Entry) *simindex.Entry { return &e }
