// Package waitlist implements the admission, moderation, and query services
// for event waitlists. All writes funnel through Store.WithEvent so the
// event's cached count moves in lock-step with the entry write it is derived
// from.
package waitlist

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/internal/notify"
)

// Service orchestrates waitlist admission, entry moderation, and listing.
type Service struct {
	store    Store
	notifier notify.Emitter
	logger   *zap.Logger
}

// NewService creates a waitlist service.
func NewService(store Store, notifier notify.Emitter, logger *zap.Logger) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, notifier: notifier, logger: logger}
}

// Join adds email to the event's waitlist. A cancelled entry for the same
// email is restored with its original position instead of creating a new
// row; a pending or confirmed entry fails with AlreadyJoinedError. The entry
// write and the counter increment commit together.
func (s *Service) Join(ctx context.Context, eventID uuid.UUID, email string, userID *uuid.UUID) (*models.WaitlistEntry, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	var entry *models.WaitlistEntry
	err = s.store.WithEvent(ctx, eventID, func(tx EventTx) error {
		ev := tx.Event()
		if !ev.Status.Joinable() {
			return &NotJoinableError{Status: ev.Status}
		}

		existing, err := tx.FindEntryByEmail(email)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Status != models.EntryCancelled {
				return &AlreadyJoinedError{Entry: existing}
			}
			// Rejoin: restore the original row, original position.
			entry, err = tx.SetEntryStatus(existing.ID, models.EntryPending)
			if err != nil {
				return err
			}
			return tx.AddToCounter(1)
		}

		arrivals, err := tx.ArrivalCount()
		if err != nil {
			return err
		}
		entry = &models.WaitlistEntry{
			ID:        uuid.New(),
			EventID:   eventID,
			Email:     email,
			UserID:    userID,
			Status:    models.EntryPending,
			Position:  arrivals + 1,
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.InsertEntry(entry); err != nil {
			return err
		}
		return tx.AddToCounter(1)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.WaitlistJoined(ctx, eventID, entry.ID, email)
	return entry, nil
}

// Moderate applies a moderation action to an entry. The action is validated
// against the status stored at transaction time, so the loser of a
// concurrent race gets TransitionError with the winner's state rather than
// silently overwriting.
func (s *Service) Moderate(ctx context.Context, caller models.Caller, entryID uuid.UUID, action models.EntryAction) (*models.WaitlistEntry, error) {
	return s.transition(ctx, caller, entryID, func(current models.EntryStatus) (models.EntryAction, bool) {
		_, ok := models.ApplyEntryAction(current, action)
		return action, ok
	})
}

// SetStatus moves an entry to the desired status, deriving the action
// (confirm, cancel, revert, restore) from the status stored at transaction
// time.
func (s *Service) SetStatus(ctx context.Context, caller models.Caller, entryID uuid.UUID, desired models.EntryStatus) (*models.WaitlistEntry, error) {
	return s.transition(ctx, caller, entryID, func(current models.EntryStatus) (models.EntryAction, bool) {
		return models.ActionFor(current, desired)
	})
}

func (s *Service) transition(ctx context.Context, caller models.Caller, entryID uuid.UUID, pick func(current models.EntryStatus) (models.EntryAction, bool)) (*models.WaitlistEntry, error) {
	// Resolve the parent event outside the transaction; ownership and the
	// entry's current status are re-checked under the event lock.
	ref, err := s.store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	var updated *models.WaitlistEntry
	err = s.store.WithEvent(ctx, ref.EventID, func(tx EventTx) error {
		if !caller.CanModerate(tx.Event().OwnerID) {
			return ErrForbidden
		}
		current, err := tx.FindEntryByID(entryID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrNotFound
		}
		action, ok := pick(current.Status)
		if !ok {
			return &TransitionError{Entry: current, Action: action}
		}
		next, ok := models.ApplyEntryAction(current.Status, action)
		if !ok {
			return &TransitionError{Entry: current, Action: action}
		}
		updated, err = tx.SetEntryStatus(current.ID, next)
		if err != nil {
			return err
		}
		if delta := models.CounterDelta(current.Status, next); delta != 0 {
			return tx.AddToCounter(delta)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.StatusChanged(ctx, updated.EventID, &updated.ID, updated.Email)
	return updated, nil
}

// Recount recomputes the event's cached waitlist count from its entries.
// Idempotent repair for drift recovery; not part of the hot path.
func (s *Service) Recount(ctx context.Context, caller models.Caller, eventID uuid.UUID) (*models.Event, error) {
	if caller.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	var ev *models.Event
	err := s.store.WithEvent(ctx, eventID, func(tx EventTx) error {
		active, err := tx.CountActive()
		if err != nil {
			return err
		}
		if err := tx.SetCounter(active); err != nil {
			return err
		}
		ev = tx.Event()
		ev.CurrentWaitlist = active
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// List returns one page of the event's waitlist entries for the owner or an
// admin, with pagination metadata.
func (s *Service) List(ctx context.Context, caller models.Caller, eventID uuid.UUID, opts ListOptions) ([]models.WaitlistEntry, models.Pagination, error) {
	opts = opts.Normalize()
	if opts.Limit == 0 {
		opts.Limit = 20
	}
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	if !caller.CanModerate(ev.OwnerID) {
		return nil, models.Pagination{}, ErrForbidden
	}
	entries, total, err := s.store.List(ctx, eventID, opts)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return entries, models.NewPagination(opts.Page, opts.Limit, total), nil
}

// Export returns all entries matching the filters (not just one page) in the
// listing's sort order, for CSV serialization.
func (s *Service) Export(ctx context.Context, caller models.Caller, eventID uuid.UUID, opts ListOptions) ([]models.WaitlistEntry, error) {
	opts = opts.Normalize()
	opts.Page = 1
	opts.Limit = 0
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !caller.CanModerate(ev.OwnerID) {
		return nil, ErrForbidden
	}
	entries, _, err := s.store.List(ctx, eventID, opts)
	return entries, err
}

// NormalizeEmail lowercases and trims an address and rejects malformed ones
// before any transaction opens.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	at := strings.IndexByte(email, '@')
	if at < 1 || at == len(email)-1 || strings.ContainsAny(email, " \t") {
		return "", ErrInvalidEmail
	}
	if !strings.Contains(email[at+1:], ".") {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// IsConflict reports whether err is one of the business-rule conflicts that
// map to 4xx responses.
func IsConflict(err error) bool {
	var aj *AlreadyJoinedError
	var nj *NotJoinableError
	var tr *TransitionError
	return errors.As(err, &aj) || errors.As(err, &nj) || errors.As(err, &tr)
}
