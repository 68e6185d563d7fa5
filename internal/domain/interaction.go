package domain

import "time"

// EventKind identifies the type of a user interaction event.
type EventKind string

// Interaction event kinds.
const (
	EventView    EventKind = "view"
	EventLike    EventKind = "like"
	EventDislike EventKind = "dislike"
	EventSave    EventKind = "save"
	EventUnsave  EventKind = "unsave"
	EventRead    EventKind = "read"
	EventComment EventKind = "comment"
)

// ValidEventKind reports whether k is a known event kind.
func ValidEventKind(k EventKind) bool {
	switch k {
	case EventView, EventLike, EventDislike, EventSave, EventUnsave, EventRead, EventComment:
		return true
	}
	return false
}

// PositiveSignal reports whether the event kind contributes positive
// interest signal to the user profile. Dislikes are tracked separately as
// category exclusions; unsave removes a signal rather than adding one.
func (k EventKind) PositiveSignal() bool {
	switch k {
	case EventView, EventLike, EventSave, EventRead, EventComment:
		return true
	}
	return false
}

// QualifiesForRecompute reports whether an event of this kind should mark
// the user's profile stale.
func (k EventKind) QualifiesForRecompute() bool {
	switch k {
	case EventLike, EventDislike, EventSave, EventRead:
		return true
	}
	return false
}

// InteractionEvent is an append-only record of a user acting on content.
// Events past the retention window are pruned by a scheduled job.
type InteractionEvent struct {
	ID        string    `db:"id"         json:"id"`
	UserID    string    `db:"user_id"    json:"user_id"`
	ContentID string    `db:"content_id" json:"content_id"`
	Kind      EventKind `db:"kind"       json:"kind"`
	// DurationSeconds is set for read events only.
	DurationSeconds int64     `db:"duration_seconds" json:"duration_seconds,omitempty"`
	CreatedAt       time.Time `db:"created_at"       json:"created_at"`
}

// InteractionRetention is how long interaction events are kept before the
// scheduled pruning job removes them.
const InteractionRetention = 90 * 24 * time.Hour
