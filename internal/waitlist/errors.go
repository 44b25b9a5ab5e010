package waitlist

import (
	"errors"
	"fmt"

	"github.com/gatherly/backend/internal/models"
)

// ErrNotFound is returned when a requested event or entry does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidEmail is returned for a malformed email, before any transaction
// opens.
var ErrInvalidEmail = errors.New("invalid email address")

// ErrForbidden is returned when the caller may not moderate the event.
var ErrForbidden = errors.New("caller may not moderate this event")

// AlreadyJoinedError is returned when (event, email) already holds an active
// entry. Entry is the current row, so callers can reconcile; it may be nil
// when the conflict was detected by the unique index rather than a read.
type AlreadyJoinedError struct {
	Entry *models.WaitlistEntry
}

func (e *AlreadyJoinedError) Error() string {
	return "email already on the waitlist for this event"
}

// NotJoinableError is returned when joining an event that is not published.
type NotJoinableError struct {
	Status models.EventStatus
}

func (e *NotJoinableError) Error() string {
	return fmt.Sprintf("event is not joinable in status %q", e.Status)
}

// TransitionError is returned when a moderation action does not apply to the
// entry's current status. Entry carries the post-race authoritative state.
type TransitionError struct {
	Entry  *models.WaitlistEntry
	Action models.EntryAction
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("action %q is not valid for entry in status %q", e.Action, e.Entry.Status)
}
