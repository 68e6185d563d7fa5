package embedding

import (
	"math"
	"strings"
)

// WeightedText is one content item's text contribution to a profile.
type WeightedText struct {
	Title   string
	Snippet string
	Weight  float64
}

// BuildProfileText concatenates title and snippet per item, repeating each
// item floor(weight) times to bias the provider's implicit averaging toward
// emphasized items. Items always contribute at least once so weak signals
// are not dropped entirely. Returns "" when no item has any text.
func BuildProfileText(items []WeightedText) string {
	var b strings.Builder
	for _, item := range items {
		text := itemText(item)
		if text == "" {
			continue
		}

		repeat := int(math.Floor(item.Weight))
		if repeat < 1 {
			repeat = 1
		}
		for i := 0; i < repeat; i++ {
			if b.Len() > 0 {
				b.WriteString(" ")
			}
			b.WriteString(text)
		}
	}
	return b.String()
}

func itemText(item WeightedText) string {
	title := strings.TrimSpace(item.Title)
	snippet := strings.TrimSpace(item.Snippet)
	switch {
	case title == "" && snippet == "":
		return ""
	case title == "":
		return snippet
	case snippet == "":
		return title
	default:
		return title + ". " + snippet
	}
}
