// Package testhelpers provides shared test utilities for the recommender
// service.
package testhelpers

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonesrussell/north-cloud/recommender/internal/domain"
	"github.com/jonesrussell/north-cloud/recommender/internal/feedcache"
)

// NopLogger discards all log output.
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}

// MemoryStore is an in-memory feedcache.Store with an injectable clock so
// tests can step past TTLs without sleeping.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry

	// Now is the clock used for expiry checks. Defaults to time.Now.
	Now func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		Now:     time.Now,
	}
}

// Get retrieves a value, honoring TTL expiry.
func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return "", feedcache.ErrMiss
	}
	if !e.expiresAt.IsZero() && s.Now().After(e.expiresAt) {
		delete(s.entries, key)
		return "", feedcache.ErrMiss
	}
	return e.value, nil
}

// Set stores a value with the given TTL. A zero TTL never expires.
func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = s.Now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

// Del removes the given keys.
func (s *MemoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.entries, k)
	}
	return nil
}

// ScanKeys returns keys matching a trailing-wildcard pattern.
func (s *MemoryStore) ScanKeys(_ context.Context, pattern string) ([]string, error) {
	prefix := strings.TrimSuffix(pattern, "*")
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.entries {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of live entries (for test assertions).
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// MemoryProfileStore is an in-memory profile store.
type MemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]*domain.UserProfile

	// GetErr, when set, is returned by Get for any user.
	GetErr error
}

// NewMemoryProfileStore creates an empty profile store.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[string]*domain.UserProfile)}
}

// Get retrieves a profile by user id.
func (m *MemoryProfileStore) Get(_ context.Context, userID string) (*domain.UserProfile, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// Upsert stores a profile, clearing staleness.
func (m *MemoryProfileStore) Upsert(_ context.Context, p *domain.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	cp.Stale = false
	cp.LastAttemptAt = nil
	cp.AttemptCount = 0
	m.profiles[p.UserID] = &cp
	return nil
}

// MarkStale flags a profile for recompute, creating it if missing.
func (m *MemoryProfileStore) MarkStale(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		p = &domain.UserProfile{UserID: userID}
		m.profiles[userID] = p
	}
	p.Stale = true
	return nil
}

// MarkAttempt records a failed recompute attempt.
func (m *MemoryProfileStore) MarkAttempt(_ context.Context, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return domain.ErrNotFound
	}
	p.LastAttemptAt = &at
	p.AttemptCount++
	return nil
}

// ListStale returns up to limit stale user ids.
func (m *MemoryProfileStore) ListStale(_ context.Context, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for id, p := range m.profiles {
		if p.Stale {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// Set stores a profile directly (for test setup).
func (m *MemoryProfileStore) Set(p *domain.UserProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = p
}

// MemoryInteractionStore is an in-memory interaction event store.
type MemoryInteractionStore struct {
	mu     sync.RWMutex
	events []domain.InteractionEvent
}

// NewMemoryInteractionStore creates an empty interaction store.
func NewMemoryInteractionStore() *MemoryInteractionStore {
	return &MemoryInteractionStore{}
}

// Insert appends an event.
func (m *MemoryInteractionStore) Insert(_ context.Context, ev *domain.InteractionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *ev)
	return nil
}

// ListByUser returns a user's events at or after since, oldest first.
func (m *MemoryInteractionStore) ListByUser(_ context.Context, userID string, since time.Time) ([]domain.InteractionEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.InteractionEvent
	for _, ev := range m.events {
		if ev.UserID == userID && !ev.CreatedAt.Before(since) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// RecentContentIDs returns distinct content ids a user touched since the
// given time.
func (m *MemoryInteractionStore) RecentContentIDs(_ context.Context, userID string, since time.Time) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]bool)
	var ids []string
	for _, ev := range m.events {
		if ev.UserID == userID && !ev.CreatedAt.Before(since) && !seen[ev.ContentID] {
			seen[ev.ContentID] = true
			ids = append(ids, ev.ContentID)
		}
	}
	return ids, nil
}

// ActiveUsers returns distinct user ids with events since the given time.
func (m *MemoryInteractionStore) ActiveUsers(_ context.Context, since time.Time) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]bool)
	var ids []string
	for _, ev := range m.events {
		if !ev.CreatedAt.Before(since) && !seen[ev.UserID] {
			seen[ev.UserID] = true
			ids = append(ids, ev.UserID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// PruneOlderThan removes events created before the cutoff.
func (m *MemoryInteractionStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []domain.InteractionEvent
	var removed int64
	for _, ev := range m.events {
		if ev.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, ev)
	}
	m.events = kept
	return removed, nil
}

// Add appends an event directly (for test setup).
func (m *MemoryInteractionStore) Add(ev domain.InteractionEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}
