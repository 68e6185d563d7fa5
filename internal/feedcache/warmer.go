package feedcache

import (
	"context"
	"sync"
	"time"
)

// Warmer defaults.
const (
	// DefaultActivityWindow is the trailing window within which a user
	// counts as active.
	DefaultActivityWindow = 24 * time.Hour
	// DefaultDebounce skips users warmed more recently than this.
	DefaultDebounce = 15 * time.Minute
	// defaultWarmConcurrency bounds concurrent warm computations.
	defaultWarmConcurrency = 5
)

// ActivitySource lists users observed active within a trailing window.
type ActivitySource interface {
	ActiveUsers(ctx context.Context, since time.Time) ([]string, error)
}

// WarmFunc recomputes and caches a user's primary feed page.
type WarmFunc func(ctx context.Context, userID string) error

// WarmStats summarizes one warm cycle.
type WarmStats struct {
	Candidates int
	Warmed     int
	Debounced  int
	InFlight   int
	Failed     int
}

// Warmer proactively recomputes cache entries for recently active users.
// A per-user in-flight guard ensures at most one concurrent build per key,
// and a debounce window skips users warmed recently.
type Warmer struct {
	activity    ActivitySource
	warm        WarmFunc
	window      time.Duration
	debounce    time.Duration
	concurrency int
	logger      Logger

	mu         sync.Mutex
	inFlight   map[string]struct{}
	lastWarmed map[string]time.Time
}

// NewWarmer creates a cache warmer. Zero durations take the defaults.
func NewWarmer(activity ActivitySource, warm WarmFunc, window, debounce time.Duration, logger Logger) *Warmer {
	if window <= 0 {
		window = DefaultActivityWindow
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Warmer{
		activity:    activity,
		warm:        warm,
		window:      window,
		debounce:    debounce,
		concurrency: defaultWarmConcurrency,
		logger:      logger,
		inFlight:    make(map[string]struct{}),
		lastWarmed:  make(map[string]time.Time),
	}
}

// Cycle runs one warm pass over users active within the trailing window.
func (w *Warmer) Cycle(ctx context.Context) WarmStats {
	users, err := w.activity.ActiveUsers(ctx, time.Now().Add(-w.window))
	if err != nil {
		w.logger.Warn("Warm cycle could not list active users", "error", err)
		return WarmStats{}
	}

	stats := WarmStats{Candidates: len(users)}
	if len(users) == 0 {
		return stats
	}

	var statsMu sync.Mutex
	sem := make(chan struct{}, w.concurrency)
	var wg sync.WaitGroup

	for _, userID := range users {
		if ctx.Err() != nil {
			break
		}

		switch w.tryAcquire(userID) {
		case acquireDebounced:
			statsMu.Lock()
			stats.Debounced++
			statsMu.Unlock()
			continue
		case acquireInFlight:
			statsMu.Lock()
			stats.InFlight++
			statsMu.Unlock()
			continue
		case acquireOK:
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(userID string) {
			defer wg.Done()
			defer func() { <-sem }()
			defer w.release(userID)

			if err := w.warm(ctx, userID); err != nil {
				w.logger.Warn("Warm failed", "user_id", userID, "error", err)
				statsMu.Lock()
				stats.Failed++
				statsMu.Unlock()
				return
			}

			w.recordWarmed(userID)
			statsMu.Lock()
			stats.Warmed++
			statsMu.Unlock()
		}(userID)
	}

	wg.Wait()

	w.logger.Info("Warm cycle complete",
		"candidates", stats.Candidates,
		"warmed", stats.Warmed,
		"debounced", stats.Debounced,
		"in_flight", stats.InFlight,
		"failed", stats.Failed,
	)
	return stats
}

type acquireResult int

const (
	acquireOK acquireResult = iota
	acquireDebounced
	acquireInFlight
)

// tryAcquire claims the per-user warm slot. Exactly one goroutine may hold
// it at a time.
func (w *Warmer) tryAcquire(userID string) acquireResult {
	w.mu.Lock()
	defer w.mu.Unlock()

	if last, ok := w.lastWarmed[userID]; ok && time.Since(last) < w.debounce {
		return acquireDebounced
	}
	if _, busy := w.inFlight[userID]; busy {
		return acquireInFlight
	}
	w.inFlight[userID] = struct{}{}
	return acquireOK
}

func (w *Warmer) release(userID string) {
	w.mu.Lock()
	delete(w.inFlight, userID)
	w.mu.Unlock()
}

func (w *Warmer) recordWarmed(userID string) {
	w.mu.Lock()
	w.lastWarmed[userID] = time.Now()
	w.mu.Unlock()
}
