package profile

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Batch recompute defaults. Concurrency is bounded and embedding calls are
// rate limited so batch cycles never overwhelm the provider.
const (
	defaultConcurrency  = 10
	defaultProviderRPS  = 5
	defaultInterBatchMs = 200
)

// BatchResult summarizes one batch recompute cycle.
type BatchResult struct {
	Total    int
	Success  int
	Skipped  int
	Failed   int
	Duration time.Duration
}

// BatchRecomputer recomputes many user profiles with a bounded worker pool.
// Provider failures skip the user for this cycle; other failures count as
// failed.
type BatchRecomputer struct {
	service     *Service
	concurrency int
	limiter     *rate.Limiter
	logger      Logger
}

// NewBatchRecomputer creates a batch recomputer. providerRPS bounds
// embedding-provider calls per second across all workers.
func NewBatchRecomputer(service *Service, concurrency, providerRPS int, logger Logger) *BatchRecomputer {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if providerRPS <= 0 {
		providerRPS = defaultProviderRPS
	}
	return &BatchRecomputer{
		service:     service,
		concurrency: concurrency,
		limiter:     rate.NewLimiter(rate.Limit(providerRPS), providerRPS),
		logger:      logger,
	}
}

// Run recomputes the given users' profiles concurrently. Each user's
// pipeline is sequential internally; across users work proceeds in
// parallel up to the configured concurrency.
func (b *BatchRecomputer) Run(ctx context.Context, userIDs []string) BatchResult {
	if len(userIDs) == 0 {
		return BatchResult{}
	}

	b.logger.Info("Starting profile batch recompute",
		"users", len(userIDs),
		"concurrency", b.concurrency,
	)

	startTime := time.Now()

	jobs := make(chan string, len(userIDs))
	type outcome struct {
		skipped bool
		failed  bool
	}
	results := make(chan outcome, len(userIDs))

	var wg sync.WaitGroup
	for i := 0; i < b.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for userID := range jobs {
				select {
				case <-ctx.Done():
					b.logger.Warn("Batch worker stopping due to context cancellation", "worker_id", workerID)
					return
				default:
				}

				if err := b.limiter.Wait(ctx); err != nil {
					return
				}

				err := b.service.Recompute(ctx, userID)
				switch {
				case err == nil:
					results <- outcome{}
				case IsProviderFailure(err):
					b.logger.Warn("Provider failure, skipping user this cycle",
						"user_id", userID, "error", err)
					results <- outcome{skipped: true}
				default:
					b.logger.Error("Profile recompute failed", "user_id", userID, "error", err)
					results <- outcome{failed: true}
				}
			}
		}(i)
	}

	for _, userID := range userIDs {
		jobs <- userID
	}
	close(jobs)

	wg.Wait()
	close(results)

	result := BatchResult{Total: len(userIDs), Duration: time.Since(startTime)}
	for o := range results {
		switch {
		case o.skipped:
			result.Skipped++
		case o.failed:
			result.Failed++
		default:
			result.Success++
		}
	}

	b.logger.Info("Profile batch recompute complete",
		"total", result.Total,
		"success", result.Success,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"duration_ms", result.Duration.Milliseconds(),
	)

	return result
}
