package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidEventKind(t *testing.T) {
	for _, k := range []EventKind{
		EventView, EventLike, EventDislike, EventSave, EventUnsave, EventRead, EventComment,
	} {
		assert.True(t, ValidEventKind(k), string(k))
	}

	assert.False(t, ValidEventKind(""))
	assert.False(t, ValidEventKind("teleport"))
}

func TestPositiveSignal(t *testing.T) {
	tests := []struct {
		kind EventKind
		want bool
	}{
		{EventView, true},
		{EventLike, true},
		{EventSave, true},
		{EventRead, true},
		{EventComment, true},
		{EventDislike, false},
		{EventUnsave, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.PositiveSignal())
		})
	}
}

func TestQualifiesForRecompute(t *testing.T) {
	tests := []struct {
		kind EventKind
		want bool
	}{
		{EventLike, true},
		{EventDislike, true},
		{EventSave, true},
		{EventRead, true},
		{EventView, false},
		{EventComment, false},
		{EventUnsave, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.QualifiesForRecompute())
		})
	}
}
