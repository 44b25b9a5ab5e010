// Package events implements the event store and the publication lifecycle:
// owners draft and submit events, admins approve or reject them, and the
// query side lists events for the moderation UI. Every lifecycle action
// validates the stored status at transaction time, so of two racing
// moderators exactly one wins and the other gets TransitionError.
package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatherly/backend/internal/models"
)

// Sort columns accepted by ListOptions.SortBy.
const (
	SortByCreatedAt = "created_at"
	SortByStartsAt  = "starts_at"
	SortByTitle     = "title"
)

// ListOptions filters and orders an event listing.
type ListOptions struct {
	Status   *models.EventStatus
	Category string
	Featured *bool
	OwnerID  *uuid.UUID
	From     *time.Time
	To       *time.Time
	Search   string // free text over title and description
	SortBy   string
	Order    models.SortOrder
	Page     int
	Limit    int
}

// Normalize clamps paging values and falls back to the default sort.
func (o ListOptions) Normalize() ListOptions {
	switch o.SortBy {
	case SortByCreatedAt, SortByStartsAt, SortByTitle:
	default:
		o.SortBy = SortByStartsAt
	}
	if o.Order != models.SortDesc {
		o.Order = models.SortAsc
	}
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit < 1 {
		o.Limit = 20
	}
	if o.Limit > 100 {
		o.Limit = 100
	}
	return o
}

// Store is the transactional event store.
type Store interface {
	// Create inserts a new event; returns errSlugTaken on a slug collision.
	Create(ctx context.Context, ev *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	GetBySlug(ctx context.Context, slug string) (*models.Event, error)
	// TransitionStatus atomically moves the event to a new status if its
	// stored status is in from. Reason, when non-empty, is persisted as the
	// moderation reason. A status mismatch returns *TransitionError with
	// the current row.
	TransitionStatus(ctx context.Context, id uuid.UUID, from []models.EventStatus, to models.EventStatus, reason string) (*models.Event, error)
	List(ctx context.Context, opts ListOptions) ([]models.Event, int, error)
}

// CreateParams holds owner input for a new draft event.
type CreateParams struct {
	Title       string
	Description string
	Category    string
	Featured    bool
	Capacity    *int
	StartsAt    time.Time
	EndsAt      *time.Time
}

// Service orchestrates event lifecycle operations.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates an events service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Create inserts a draft event owned by the caller. The slug is derived from
// the title once, at creation, and never mutated afterwards.
func (s *Service) Create(ctx context.Context, caller models.Caller, p CreateParams) (*models.Event, error) {
	if caller.Role != models.RoleOwner && caller.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return nil, fmt.Errorf("event title is required: %w", ErrInvalidInput)
	}
	if p.Capacity != nil && *p.Capacity <= 0 {
		return nil, fmt.Errorf("capacity must be a positive integer: %w", ErrInvalidInput)
	}
	if p.StartsAt.IsZero() {
		return nil, fmt.Errorf("event start time is required: %w", ErrInvalidInput)
	}

	ev := &models.Event{
		ID:          uuid.New(),
		Slug:        Slugify(p.Title),
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		Featured:    p.Featured,
		Status:      models.EventDraft,
		Capacity:    p.Capacity,
		OwnerID:     caller.ID,
		StartsAt:    p.StartsAt,
		EndsAt:      p.EndsAt,
	}
	err := s.store.Create(ctx, ev)
	if errors.Is(err, errSlugTaken) {
		ev.Slug = uniquify(ev.Slug)
		err = s.store.Create(ctx, ev)
	}
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// Get returns an event by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return s.store.GetByID(ctx, id)
}

// GetBySlug returns an event by its slug.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*models.Event, error) {
	return s.store.GetBySlug(ctx, slug)
}

// SubmitForReview moves an owner's draft to pending review.
func (s *Service) SubmitForReview(ctx context.Context, caller models.Caller, id uuid.UUID) (*models.Event, error) {
	if err := s.requireOwner(ctx, caller, id); err != nil {
		return nil, err
	}
	return s.store.TransitionStatus(ctx, id,
		[]models.EventStatus{models.EventDraft}, models.EventPendingReview, "")
}

// Withdraw cancels an owner's event from any pre-terminal status.
func (s *Service) Withdraw(ctx context.Context, caller models.Caller, id uuid.UUID) (*models.Event, error) {
	if err := s.requireOwner(ctx, caller, id); err != nil {
		return nil, err
	}
	return s.store.TransitionStatus(ctx, id,
		[]models.EventStatus{models.EventDraft, models.EventPendingReview, models.EventPublished},
		models.EventCancelled, "")
}

// Approve publishes an event from draft or pending review. Admin only.
func (s *Service) Approve(ctx context.Context, caller models.Caller, id uuid.UUID) (*models.Event, error) {
	if caller.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	return s.store.TransitionStatus(ctx, id,
		[]models.EventStatus{models.EventDraft, models.EventPendingReview},
		models.EventPublished, "")
}

// Reject cancels an event with an optional moderation reason. Admin only;
// allowed from draft, pending review, or published.
func (s *Service) Reject(ctx context.Context, caller models.Caller, id uuid.UUID, reason string) (*models.Event, error) {
	if caller.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	return s.store.TransitionStatus(ctx, id,
		[]models.EventStatus{models.EventDraft, models.EventPendingReview, models.EventPublished},
		models.EventCancelled, reason)
}

// Complete marks a published event as completed once its end time has
// elapsed. Invoked by an external scheduler, not by request handlers.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return s.store.TransitionStatus(ctx, id,
		[]models.EventStatus{models.EventPublished}, models.EventCompleted, "")
}

// List returns one page of events plus pagination metadata.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]models.Event, models.Pagination, error) {
	opts = opts.Normalize()
	list, total, err := s.store.List(ctx, opts)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return list, models.NewPagination(opts.Page, opts.Limit, total), nil
}

// requireOwner checks the caller owns the event. Ownership is immutable, so
// reading it outside the transition transaction is race-free.
func (s *Service) requireOwner(ctx context.Context, caller models.Caller, id uuid.UUID) error {
	ev, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if caller.Role != models.RoleOwner || caller.ID != ev.OwnerID {
		return ErrForbidden
	}
	return nil
}
