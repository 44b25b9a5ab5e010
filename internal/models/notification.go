package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification kinds emitted by the engine.
const (
	NotificationWaitlistJoined = "waitlist-joined"
	NotificationStatusChanged  = "status-changed"
)

// Notification delivery status.
const (
	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
)

// NotificationLog records dispatched notification intents.
type NotificationLog struct {
	ID             uuid.UUID  `json:"id"`
	EventID        *uuid.UUID `json:"event_id,omitempty"`
	EntryID        *uuid.UUID `json:"entry_id,omitempty"`
	Kind           string     `json:"kind"`
	RecipientEmail string     `json:"recipient_email"`
	Status         string     `json:"status"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
