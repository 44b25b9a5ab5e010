package waitlist

import (
	"context"

	"github.com/google/uuid"

	"github.com/gatherly/backend/internal/models"
)

// Sort columns accepted by ListOptions.SortBy.
const (
	SortByCreatedAt = "created_at"
	SortByPosition  = "position"
	SortByEmail     = "email"
)

// ListOptions filters and orders a waitlist listing. Limit 0 means no
// pagination (used by export).
type ListOptions struct {
	Search string
	Status *models.EntryStatus
	SortBy string
	Order  models.SortOrder
	Page   int
	Limit  int
}

// Normalize clamps paging values and falls back to the default sort.
func (o ListOptions) Normalize() ListOptions {
	switch o.SortBy {
	case SortByCreatedAt, SortByPosition, SortByEmail:
	default:
		o.SortBy = SortByCreatedAt
	}
	if o.Order != models.SortDesc {
		o.Order = models.SortAsc
	}
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit < 0 {
		o.Limit = 0
	}
	if o.Limit > 100 {
		o.Limit = 100
	}
	return o
}

// EventTx is serialized access to one event row and its waitlist entries
// inside a single transaction. The event row is locked for the duration, so
// counter updates and entry writes commit together or not at all.
type EventTx interface {
	// Event is the locked event row as read at transaction start.
	Event() *models.Event
	// FindEntryByEmail returns the entry for this event and email, or nil.
	FindEntryByEmail(email string) (*models.WaitlistEntry, error)
	// FindEntryByID returns the entry, or nil when it belongs to another
	// event or does not exist.
	FindEntryByID(id uuid.UUID) (*models.WaitlistEntry, error)
	// ArrivalCount counts all entries ever created for this event,
	// regardless of status. Position of the next arrival is ArrivalCount+1.
	ArrivalCount() (int, error)
	// InsertEntry persists a new entry. Returns *AlreadyJoinedError when the
	// (event, email) unique constraint rejects the row.
	InsertEntry(e *models.WaitlistEntry) error
	// SetEntryStatus updates an entry's status and returns the updated row.
	SetEntryStatus(id uuid.UUID, status models.EntryStatus) (*models.WaitlistEntry, error)
	// AddToCounter applies a waitlist delta to the event's cached count.
	AddToCounter(delta int) error
	// CountActive counts entries whose status is not cancelled.
	CountActive() (int, error)
	// SetCounter overwrites the cached count (recount repair only).
	SetCounter(n int) error
}

// Store is the transactional waitlist store. The pgx implementation locks
// the event row with SELECT ... FOR UPDATE; tests use an in-memory
// implementation with equivalent serialization.
type Store interface {
	// WithEvent runs fn with exclusive access to the event and its entries,
	// committing on nil error. Returns ErrNotFound for an unknown event.
	WithEvent(ctx context.Context, eventID uuid.UUID, fn func(tx EventTx) error) error
	// GetEvent reads an event without locking.
	GetEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error)
	// GetEntry reads an entry without locking.
	GetEntry(ctx context.Context, entryID uuid.UUID) (*models.WaitlistEntry, error)
	// List returns one page of entries plus the total row count for the
	// filters. Reads the latest committed state.
	List(ctx context.Context, eventID uuid.UUID, opts ListOptions) ([]models.WaitlistEntry, int, error)
}
