package feedcache_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/north-cloud/recommender/internal/feedcache"
	"github.com/jonesrussell/north-cloud/recommender/internal/testhelpers"
)

// staticActivity returns a fixed active-user set.
type staticActivity struct {
	users []string
	err   error
}

func (s staticActivity) ActiveUsers(context.Context, time.Time) ([]string, error) {
	return s.users, s.err
}

// countingWarm records which users were warmed.
type countingWarm struct {
	mu    sync.Mutex
	users map[string]int
	err   error
}

func newCountingWarm() *countingWarm {
	return &countingWarm{users: make(map[string]int)}
}

func (c *countingWarm) warm(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[userID]++
	return c.err
}

func (c *countingWarm) count(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.users[userID]
}

func TestWarmerCycleWarmsActiveUsers(t *testing.T) {
	warm := newCountingWarm()
	w := feedcache.NewWarmer(
		staticActivity{users: []string{"u1", "u2", "u3"}},
		warm.warm,
		0, 0,
		testhelpers.NopLogger{},
	)

	stats := w.Cycle(context.Background())

	assert.Equal(t, 3, stats.Candidates)
	assert.Equal(t, 3, stats.Warmed)
	assert.Zero(t, stats.Failed)
	for _, u := range []string{"u1", "u2", "u3"} {
		assert.Equal(t, 1, warm.count(u))
	}
}

func TestWarmerDebouncesRecentlyWarmed(t *testing.T) {
	warm := newCountingWarm()
	w := feedcache.NewWarmer(
		staticActivity{users: []string{"u1"}},
		warm.warm,
		0, time.Hour,
		testhelpers.NopLogger{},
	)

	first := w.Cycle(context.Background())
	assert.Equal(t, 1, first.Warmed)

	second := w.Cycle(context.Background())
	assert.Equal(t, 1, second.Debounced)
	assert.Zero(t, second.Warmed)
	assert.Equal(t, 1, warm.count("u1"))
}

func TestWarmerCountsFailures(t *testing.T) {
	warm := newCountingWarm()
	warm.err = assert.AnError
	w := feedcache.NewWarmer(
		staticActivity{users: []string{"u1", "u2"}},
		warm.warm,
		0, 0,
		testhelpers.NopLogger{},
	)

	stats := w.Cycle(context.Background())

	assert.Equal(t, 2, stats.Failed)
	assert.Zero(t, stats.Warmed)
}

func TestWarmerFailedUsersNotDebounced(t *testing.T) {
	warm := newCountingWarm()
	warm.err = assert.AnError
	w := feedcache.NewWarmer(
		staticActivity{users: []string{"u1"}},
		warm.warm,
		0, time.Hour,
		testhelpers.NopLogger{},
	)

	w.Cycle(context.Background())

	// The failure left no lastWarmed record, so the next cycle retries.
	warm.err = nil
	stats := w.Cycle(context.Background())
	assert.Equal(t, 1, stats.Warmed)
	assert.Equal(t, 2, warm.count("u1"))
}

func TestWarmerActivityErrorYieldsEmptyStats(t *testing.T) {
	w := feedcache.NewWarmer(
		staticActivity{err: assert.AnError},
		func(context.Context, string) error { return nil },
		0, 0,
		testhelpers.NopLogger{},
	)

	stats := w.Cycle(context.Background())
	assert.Zero(t, stats.Candidates)
}
