package events

import (
	"errors"
	"fmt"

	"github.com/gatherly/backend/internal/models"
)

// ErrNotFound is returned when the event does not exist.
var ErrNotFound = errors.New("event not found")

// ErrForbidden is returned when the caller may not act on the event.
var ErrForbidden = errors.New("caller may not act on this event")

// ErrInvalidInput wraps owner input that fails validation.
var ErrInvalidInput = errors.New("invalid input")

// errSlugTaken signals a slug collision on insert; creation retries with a
// uniquifying suffix.
var errSlugTaken = errors.New("slug already taken")

// TransitionError is returned when a lifecycle action does not apply to the
// event's status as stored at transaction time. Event carries the
// authoritative state observed by the losing caller.
type TransitionError struct {
	Event  *models.Event
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("action %q is not valid for event in status %q", e.Action, e.Event.Status)
}
