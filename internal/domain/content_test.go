package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFeedMode(t *testing.T) {
	assert.Equal(t, FeedModeTrending, ParseFeedMode("trending"))
	assert.Equal(t, FeedModeDiverse, ParseFeedMode("diverse"))
	assert.Equal(t, FeedModePersonalized, ParseFeedMode("personalized"))

	// Unknown and empty values default to personalized.
	assert.Equal(t, FeedModePersonalized, ParseFeedMode(""))
	assert.Equal(t, FeedModePersonalized, ParseFeedMode("chronological"))
}

func TestHasReducedEmbedding(t *testing.T) {
	item := &ContentItem{}
	assert.False(t, item.HasReducedEmbedding())

	item.ReducedEmbedding = []float32{0.1, 0.2}
	assert.True(t, item.HasReducedEmbedding())
}

func TestProfileHasEmbedding(t *testing.T) {
	p := &UserProfile{}
	assert.False(t, p.HasEmbedding())

	p.FullEmbedding = []float32{1}
	assert.False(t, p.HasEmbedding())

	p.ReducedEmbedding = []float32{1}
	assert.True(t, p.HasEmbedding())
}
