package embedding

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildProfileText(t *testing.T) {
	tests := []struct {
		name  string
		items []WeightedText
		check func(t *testing.T, text string)
	}{
		{
			name:  "empty input",
			items: nil,
			check: func(t *testing.T, text string) {
				assert.Empty(t, text)
			},
		},
		{
			name: "all blank text",
			items: []WeightedText{
				{Title: "  ", Snippet: "", Weight: 3},
			},
			check: func(t *testing.T, text string) {
				assert.Empty(t, text)
			},
		},
		{
			name: "title and snippet joined",
			items: []WeightedText{
				{Title: "Storm warning", Snippet: "Heavy snow expected", Weight: 1},
			},
			check: func(t *testing.T, text string) {
				assert.Equal(t, "Storm warning. Heavy snow expected", text)
			},
		},
		{
			name: "weight repeats text",
			items: []WeightedText{
				{Title: "Hockey finals", Weight: 3},
			},
			check: func(t *testing.T, text string) {
				assert.Equal(t, 3, strings.Count(text, "Hockey finals"))
			},
		},
		{
			name: "fractional weight contributes at least once",
			items: []WeightedText{
				{Title: "Weak signal", Weight: 0.5},
			},
			check: func(t *testing.T, text string) {
				assert.Equal(t, 1, strings.Count(text, "Weak signal"))
			},
		},
		{
			name: "title only and snippet only",
			items: []WeightedText{
				{Title: "Only title", Weight: 1},
				{Snippet: "Only snippet", Weight: 1},
			},
			check: func(t *testing.T, text string) {
				assert.Contains(t, text, "Only title")
				assert.Contains(t, text, "Only snippet")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, BuildProfileText(tt.items))
		})
	}
}
