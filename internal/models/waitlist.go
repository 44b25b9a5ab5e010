package models

import (
	"time"

	"github.com/google/uuid"
)

// EntryStatus is the status of a waitlist entry.
type EntryStatus string

const (
	EntryPending   EntryStatus = "pending"
	EntryConfirmed EntryStatus = "confirmed"
	EntryCancelled EntryStatus = "cancelled"
)

// Valid reports whether s is a known entry status.
func (s EntryStatus) Valid() bool {
	switch s {
	case EntryPending, EntryConfirmed, EntryCancelled:
		return true
	}
	return false
}

// Active reports whether the entry counts toward the event's waitlist size.
func (s EntryStatus) Active() bool {
	return s != EntryCancelled
}

// EntryAction is a moderation action on a waitlist entry.
type EntryAction string

const (
	ActionConfirm EntryAction = "confirm"
	ActionCancel  EntryAction = "cancel"
	ActionRevert  EntryAction = "revert"
	ActionRestore EntryAction = "restore"
)

// entryTransitions is the full entry state machine. An (status, action) pair
// absent from the table is an invalid transition.
var entryTransitions = map[EntryStatus]map[EntryAction]EntryStatus{
	EntryPending: {
		ActionConfirm: EntryConfirmed,
		ActionCancel:  EntryCancelled,
	},
	EntryConfirmed: {
		ActionRevert: EntryPending,
		ActionCancel: EntryCancelled,
	},
	EntryCancelled: {
		ActionRestore: EntryPending,
	},
}

// ApplyEntryAction returns the status that results from applying action to
// the current status, or false when the transition is not allowed.
func ApplyEntryAction(current EntryStatus, action EntryAction) (EntryStatus, bool) {
	next, ok := entryTransitions[current][action]
	return next, ok
}

// ActionFor returns the moderation action that moves an entry from current
// to desired, or false when no single action does (including desired ==
// current).
func ActionFor(current, desired EntryStatus) (EntryAction, bool) {
	for action, next := range entryTransitions[current] {
		if next == desired {
			return action, true
		}
	}
	return "", false
}

// CounterDelta is the change to the event's cached waitlist count when an
// entry moves from one status to another. Only transitions into or out of
// cancelled move the counter.
func CounterDelta(from, to EntryStatus) int {
	switch {
	case from.Active() && !to.Active():
		return -1
	case !from.Active() && to.Active():
		return 1
	}
	return 0
}

// WaitlistEntry is one email's place in an event's waitlist.
//
// Position is the 1-based arrival rank, assigned once at creation and never
// reassigned; cancelling and restoring an entry keeps its original position.
// Entries are never deleted, so (EventID, Email) stays unique forever.
type WaitlistEntry struct {
	ID        uuid.UUID   `json:"id"`
	EventID   uuid.UUID   `json:"event_id"`
	Email     string      `json:"email"`
	UserID    *uuid.UUID  `json:"user_id,omitempty"`
	UserName  string      `json:"user_name,omitempty"`
	Status    EntryStatus `json:"status"`
	Position  int         `json:"position"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
