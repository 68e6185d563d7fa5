package simindex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntries(now time.Time) []Entry {
	return []Entry{
		{
			ContentID:       "a",
			Vector:          []float32{1, 0, 0},
			SourceName:      "src1",
			Title:           "A",
			EngagementScore: 10,
			Views:           100,
			PublishedAt:     now.Add(-1 * time.Hour),
		},
		{
			ContentID:       "b",
			Vector:          []float32{0, 1, 0},
			SourceName:      "src1",
			Title:           "B",
			EngagementScore: 50,
			Views:           500,
			PublishedAt:     now.Add(-2 * time.Hour),
		},
		{
			ContentID:       "c",
			Vector:          []float32{0.9, 0.1, 0},
			SourceName:      "src2",
			Title:           "C",
			EngagementScore: 30,
			Views:           300,
			PublishedAt:     now.Add(-3 * time.Hour),
		},
	}
}

func TestBuildSkipsMalformedVectors(t *testing.T) {
	now := time.Now()
	entries := testEntries(now)
	entries = append(entries,
		Entry{ContentID: "short", Vector: []float32{1, 0}},
		Entry{ContentID: "empty", Vector: nil},
		Entry{ContentID: "zero", Vector: []float32{0, 0, 0}},
	)

	idx := New()
	stats := idx.Build(entries, 1)

	assert.Equal(t, 3, stats.Indexed)
	assert.Equal(t, 3, stats.Skipped)
	assert.Equal(t, 3, stats.Dim)
	assert.Equal(t, int64(1), stats.Generation)
	assert.Equal(t, 3, idx.Size())
	assert.True(t, idx.Ready())
}

func TestBuildEmptyInput(t *testing.T) {
	idx := New()
	stats := idx.Build(nil, 1)

	assert.Equal(t, 0, stats.Indexed)
	assert.Equal(t, 0, idx.Size())
	// Generation still advances: an empty corpus is a valid (empty) snapshot.
	assert.Equal(t, int64(1), idx.Generation())
}

func TestQueryRanksBySimilarity(t *testing.T) {
	idx := New()
	idx.Build(testEntries(time.Now()), 1)

	results := idx.Query([]float32{1, 0, 0}, 3, nil, 0.05)

	require.Len(t, results, 2) // b is orthogonal, below minScore
	assert.Equal(t, "a", results[0].Entry.ContentID)
	assert.Equal(t, "c", results[1].Entry.ContentID)
	assert.Greater(t, results[0].Similarity, results[1].Similarity)
}

func TestQueryHonorsExclusions(t *testing.T) {
	idx := New()
	idx.Build(testEntries(time.Now()), 1)

	exclude := map[string]struct{}{"a": {}}
	results := idx.Query([]float32{1, 0, 0}, 3, exclude, 0.05)

	require.Len(t, results, 1)
	assert.Equal(t, "c", results[0].Entry.ContentID)
}

func TestQueryEdgeCases(t *testing.T) {
	idx := New()

	// Empty index.
	assert.Nil(t, idx.Query([]float32{1, 0, 0}, 3, nil, 0))

	idx.Build(testEntries(time.Now()), 1)

	// Dimension mismatch.
	assert.Nil(t, idx.Query([]float32{1, 0}, 3, nil, 0))
	// Zero query vector.
	assert.Nil(t, idx.Query([]float32{0, 0, 0}, 3, nil, 0))
	// Non-positive k.
	assert.Nil(t, idx.Query([]float32{1, 0, 0}, 0, nil, 0))
}

func TestQueryLimitsToK(t *testing.T) {
	idx := New()
	idx.Build(testEntries(time.Now()), 1)

	results := idx.Query([]float32{1, 1, 0}, 1, nil, 0)
	assert.Len(t, results, 1)
}

func TestTrendingOrdersByEngagement(t *testing.T) {
	idx := New()
	idx.Build(testEntries(time.Now()), 1)

	results := idx.Trending(3, nil)

	require.Len(t, results, 3)
	assert.Equal(t, "b", results[0].Entry.ContentID)
	assert.Equal(t, "c", results[1].Entry.ContentID)
	assert.Equal(t, "a", results[2].Entry.ContentID)
}

func TestNewestOrdersByPublishTime(t *testing.T) {
	idx := New()
	idx.Build(testEntries(time.Now()), 1)

	results := idx.Newest(3, nil)

	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].Entry.ContentID)
	assert.Equal(t, "b", results[1].Entry.ContentID)
	assert.Equal(t, "c", results[2].Entry.ContentID)
}

func TestDiverseOnePerSourceFirst(t *testing.T) {
	idx := New()
	idx.Build(testEntries(time.Now()), 1)

	results := idx.Diverse(2, nil)

	require.Len(t, results, 2)
	sources := map[string]bool{}
	for _, r := range results {
		sources[r.Entry.SourceName] = true
	}
	// Two distinct sources before any source repeats.
	assert.Len(t, sources, 2)
	// Per-source winner is the highest-engagement item.
	for _, r := range results {
		if r.Entry.SourceName == "src1" {
			assert.Equal(t, "b", r.Entry.ContentID)
		}
	}
}

func TestDiverseFillsFromLeftovers(t *testing.T) {
	idx := New()
	idx.Build(testEntries(time.Now()), 1)

	results := idx.Diverse(3, nil)
	assert.Len(t, results, 3)
}

func TestBuildSwapIsAtomicForReaders(t *testing.T) {
	idx := New()
	idx.Build(testEntries(time.Now()), 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			results := idx.Query([]float32{1, 0, 0}, 3, nil, 0)
			// Either snapshot is fine; a torn one is not.
			assert.LessOrEqual(t, len(results), 3)
		}
	}()

	for gen := int64(2); gen < 20; gen++ {
		idx.Build(testEntries(time.Now()), gen)
	}
	<-done

	assert.Equal(t, int64(19), idx.Generation())
}
