// Package simindex implements the in-memory similarity index over reduced
// content vectors.
//
// The index is an immutable snapshot: a vector arena with parallel metadata
// and pre-calculated norms, rebuilt wholesale and swapped atomically. Reads
// never observe a partially built index, and no locks are held during
// queries.
package simindex

import (
	"math/rand"
	"sort"
	"sync/atomic"
	"time"
)

// Entry is one content item in the index: its reduced vector plus the
// denormalized metadata ranking needs.
type Entry struct {
	ContentID  string
	Vector     []float32
	SourceName string
	Title      string
	Categories []string
	// EngagementScore is the recency-adjusted engagement score computed at
	// build time.
	EngagementScore float64
	Views           int64
	PublishedAt     time.Time
}

// Candidate is a query result: an index entry with its similarity to the
// query vector (0 for non-personalized query modes).
type Candidate struct {
	Entry      *Entry
	Similarity float64
}

// BuildStats summarizes an index build.
type BuildStats struct {
	Generation int64
	Indexed    int
	Skipped    int
	Dim        int
	BuiltAt    time.Time
}

// snapshot is the immutable state served between rebuilds.
type snapshot struct {
	generation int64
	dim        int
	entries    []Entry
	norms      []float64
	builtAt    time.Time
}

// Index serves nearest-neighbor style queries over content vectors. Safe
// for concurrent use: many readers, one rebuilder at a time.
type Index struct {
	snap atomic.Pointer[snapshot]
}

// New creates an empty index. Queries against it return empty results until
// the first Build.
func New() *Index {
	idx := &Index{}
	idx.snap.Store(&snapshot{})
	return idx
}

// Build replaces the index contents with the given entries in one atomic
// swap. Entries with missing or dimension-inconsistent vectors are skipped,
// never aborting the build. The expected dimension is taken from the first
// well-formed entry.
func (idx *Index) Build(entries []Entry, generation int64) BuildStats {
	dim := 0
	for _, e := range entries {
		if len(e.Vector) > 0 {
			dim = len(e.Vector)
			break
		}
	}

	kept := make([]Entry, 0, len(entries))
	norms := make([]float64, 0, len(entries))
	skipped := 0
	for _, e := range entries {
		if len(e.Vector) != dim || dim == 0 {
			skipped++
			continue
		}
		n := CalculateNorm(e.Vector)
		if n == 0 {
			skipped++
			continue
		}
		kept = append(kept, e)
		norms = append(norms, n)
	}

	snap := &snapshot{
		generation: generation,
		dim:        dim,
		entries:    kept,
		norms:      norms,
		builtAt:    time.Now(),
	}
	idx.snap.Store(snap)

	return BuildStats{
		Generation: generation,
		Indexed:    len(kept),
		Skipped:    skipped,
		Dim:        dim,
		BuiltAt:    snap.builtAt,
	}
}

// Ready reports whether the index has been built at least once.
func (idx *Index) Ready() bool {
	return idx.snap.Load().generation != 0
}

// Generation returns the reducer-model generation the current snapshot was
// built with (0 if never built).
func (idx *Index) Generation() int64 {
	return idx.snap.Load().generation
}

// Size returns the number of indexed entries.
func (idx *Index) Size() int {
	return len(idx.snap.Load().entries)
}

// BuiltAt returns when the current snapshot was built.
func (idx *Index) BuiltAt() time.Time {
	return idx.snap.Load().builtAt
}

// Query returns up to k candidates ranked by cosine similarity to the
// profile vector, excluding the given content ids and anything below
// minScore. An empty index or an exclusion set covering the whole pool
// yields an empty result, not an error.
func (idx *Index) Query(profile []float32, k int, exclude map[string]struct{}, minScore float64) []Candidate {
	snap := idx.snap.Load()
	if len(snap.entries) == 0 || len(profile) != snap.dim || k <= 0 {
		return nil
	}

	queryNorm := CalculateNorm(profile)
	if queryNorm == 0 {
		return nil
	}

	candidates := make([]Candidate, 0, k)
	for i := range snap.entries {
		e := &snap.entries[i]
		if _, excluded := exclude[e.ContentID]; excluded {
			continue
		}
		sim := cosineWithNorm(profile, queryNorm, e.Vector, snap.norms[i])
		if sim < minScore {
			continue
		}
		candidates = append(candidates, Candidate{Entry: e, Similarity: sim})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

// Trending returns up to k candidates ranked by recency-adjusted engagement,
// ignoring any user vector. Used as the first fallback when personalization
// signal is absent.
func (idx *Index) Trending(k int, exclude map[string]struct{}) []Candidate {
	snap := idx.snap.Load()
	if len(snap.entries) == 0 || k <= 0 {
		return nil
	}

	candidates := make([]Candidate, 0, len(snap.entries))
	for i := range snap.entries {
		e := &snap.entries[i]
		if _, excluded := exclude[e.ContentID]; excluded {
			continue
		}
		candidates = append(candidates, Candidate{Entry: e})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i].Entry, candidates[j].Entry
		if a.EngagementScore != b.EngagementScore {
			return a.EngagementScore > b.EngagementScore
		}
		return a.PublishedAt.After(b.PublishedAt)
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

// Newest returns up to k candidates ranked by publication time, ties broken
// by view count. The terminal fallback tier.
func (idx *Index) Newest(k int, exclude map[string]struct{}) []Candidate {
	snap := idx.snap.Load()
	if len(snap.entries) == 0 || k <= 0 {
		return nil
	}

	candidates := make([]Candidate, 0, len(snap.entries))
	for i := range snap.entries {
		e := &snap.entries[i]
		if _, excluded := exclude[e.ContentID]; excluded {
			continue
		}
		candidates = append(candidates, Candidate{Entry: e})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i].Entry, candidates[j].Entry
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		return a.Views > b.Views
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

// Diverse returns up to k candidates with one item per distinct source
// (highest engagement wins per source), filling remaining slots with
// randomized picks from the leftovers.
func (idx *Index) Diverse(k int, exclude map[string]struct{}) []Candidate {
	snap := idx.snap.Load()
	if len(snap.entries) == 0 || k <= 0 {
		return nil
	}

	bySource := make(map[string]*Entry)
	var leftovers []*Entry
	for i := range snap.entries {
		e := &snap.entries[i]
		if _, excluded := exclude[e.ContentID]; excluded {
			continue
		}
		best, seen := bySource[e.SourceName]
		if !seen {
			bySource[e.SourceName] = e
			continue
		}
		if e.EngagementScore > best.EngagementScore {
			leftovers = append(leftovers, best)
			bySource[e.SourceName] = e
		} else {
			leftovers = append(leftovers, e)
		}
	}

	picked := make([]Candidate, 0, k)
	for _, e := range bySource {
		picked = append(picked, Candidate{Entry: e})
	}
	sort.Slice(picked, func(i, j int) bool {
		return picked[i].Entry.EngagementScore > picked[j].Entry.EngagementScore
	})
	if len(picked) > k {
		return picked[:k]
	}

	rand.Shuffle(len(leftovers), func(i, j int) {
		leftovers[i], leftovers[j] = leftovers[j], leftovers[i]
	})
	for _, e := range leftovers {
		if len(picked) == k {
			break
		}
		picked = append(picked, Candidate{Entry: e})
	}
	return picked
}
