package models

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus is the publication status of an event.
type EventStatus string

const (
	EventDraft         EventStatus = "draft"
	EventPendingReview EventStatus = "pending_review"
	EventPublished     EventStatus = "published"
	EventCancelled     EventStatus = "cancelled"
	EventCompleted     EventStatus = "completed"
)

// Valid reports whether s is a known event status.
func (s EventStatus) Valid() bool {
	switch s {
	case EventDraft, EventPendingReview, EventPublished, EventCancelled, EventCompleted:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s EventStatus) Terminal() bool {
	return s == EventCancelled || s == EventCompleted
}

// Joinable reports whether visitors may join the event's waitlist.
func (s EventStatus) Joinable() bool {
	return s == EventPublished
}

// Event is a capacity-limited event with a waitlist.
//
// CurrentWaitlist is a denormalized count of this event's waitlist entries
// whose status is not cancelled. It is only ever mutated inside the same
// transaction as the entry write it is derived from.
type Event struct {
	ID               uuid.UUID   `json:"id"`
	Slug             string      `json:"slug"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	Category         string      `json:"category,omitempty"`
	Featured         bool        `json:"featured"`
	Status           EventStatus `json:"status"`
	Capacity         *int        `json:"capacity,omitempty"`
	CurrentWaitlist  int         `json:"current_waitlist"`
	OwnerID          uuid.UUID   `json:"owner_id"`
	ModerationReason string      `json:"moderation_reason,omitempty"`
	StartsAt         time.Time   `json:"starts_at"`
	EndsAt           *time.Time  `json:"ends_at,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}
