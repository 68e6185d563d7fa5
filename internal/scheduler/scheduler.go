// Package scheduler runs the recommender's periodic jobs: index rebuilds,
// stale-profile recomputes, cache warming, and interaction pruning.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Logger defines the logging interface.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Job is one periodic task. Fn errors are logged and the job keeps its
// schedule; a failing cycle never stops the loop.
type Job struct {
	Name     string
	Interval time.Duration
	// RunOnStart runs the job immediately when the scheduler starts instead
	// of waiting one full interval.
	RunOnStart bool
	Fn         func(ctx context.Context) error
}

// Scheduler runs registered jobs on independent tickers. A scheduler is
// single-use: once stopped it cannot be started again.
type Scheduler struct {
	jobs   []Job
	logger Logger

	mu       sync.Mutex
	running  bool
	stopped  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a scheduler with the given jobs.
func New(logger Logger, jobs ...Job) *Scheduler {
	return &Scheduler{
		jobs:     jobs,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start launches one loop per job.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("scheduler is already running")
	}
	if s.stopped {
		return errors.New("scheduler cannot be restarted after stop")
	}
	s.running = true

	for _, job := range s.jobs {
		s.logger.Info("Scheduling job", "job", job.Name, "interval", job.Interval)
		s.wg.Add(1)
		go s.run(ctx, job)
	}

	return nil
}

// Stop signals every job loop to exit and waits for in-flight cycles.
// Idempotent; the scheduler stays stopped afterward.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.stopped = true
	s.mu.Unlock()

	s.logger.Info("Scheduler stopping")
	close(s.stopChan)
	s.wg.Wait()
}

// IsRunning returns whether the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) run(ctx context.Context, job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	if job.RunOnStart {
		s.runOnce(ctx, job)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Job stopped due to context cancellation", "job", job.Name)
			return
		case <-s.stopChan:
			s.logger.Info("Job stopped", "job", job.Name)
			return
		case <-ticker.C:
			s.runOnce(ctx, job)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	start := time.Now()
	s.logger.Debug("Job starting", "job", job.Name)

	if err := s.cycle(ctx, job); err != nil {
		s.logger.Error("Job cycle failed", "job", job.Name, "error", err)
		return
	}

	s.logger.Debug("Job complete", "job", job.Name, "duration_ms", time.Since(start).Milliseconds())
}

// cycle runs one job invocation, recovering panics so a misbehaving job
// cannot take down the whole worker.
func (s *Scheduler) cycle(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Job panicked", "job", job.Name, "panic", r)
			err = errors.New("job panicked")
		}
	}()
	return job.Fn(ctx)
}
