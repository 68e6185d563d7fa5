package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy for the recommendation pipeline.
//
// Provider and data errors are recovered per-item or per-cycle; empty-state
// errors are expected states with defined fallback behavior, not failures to
// propagate to clients.
var (
	// ErrProvider wraps embedding-provider failures (timeouts, rate limits).
	// The affected user or item is skipped for the cycle and retried on the
	// next scheduled pass.
	ErrProvider = errors.New("embedding provider error")

	// ErrDimensionMismatch marks a malformed or wrong-dimension vector. The
	// offending item is excluded; the operation continues.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInsufficientSample is returned when the reducer training sample is
	// below the minimum threshold.
	ErrInsufficientSample = errors.New("insufficient training sample")

	// ErrEmptyIndex is returned by queries against an index with no entries.
	ErrEmptyIndex = errors.New("similarity index is empty")

	// ErrEmptyProfile marks a user with no positive interaction signal.
	ErrEmptyProfile = errors.New("user profile is empty")

	// ErrModelGenerationMismatch marks a profile vector projected with a
	// different reducer generation than the live index.
	ErrModelGenerationMismatch = errors.New("reducer model generation mismatch")

	// ErrNotFound marks a missing entity.
	ErrNotFound = errors.New("not found")
)

// ProviderError wraps err as a provider error, preserving the cause chain.
func ProviderError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrProvider, err)
}

// DimensionError builds a dimension-mismatch error with expected and actual
// sizes.
func DimensionError(expected, actual int) error {
	return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, expected, actual)
}
