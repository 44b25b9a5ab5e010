package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/pkg/database"
)

const eventColumns = `id, slug, title, description, category, featured, status, capacity,
	current_waitlist, owner_id, moderation_reason, starts_at, ends_at, created_at, updated_at`

// Repository is the PostgreSQL event store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new event.
func (r *Repository) Create(ctx context.Context, ev *models.Event) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO events (id, slug, title, description, category, featured, status, capacity, owner_id, starts_at, ends_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at, updated_at`,
		ev.ID, ev.Slug, ev.Title, ev.Description, ev.Category, ev.Featured,
		string(ev.Status), ev.Capacity, ev.OwnerID, ev.StartsAt, ev.EndsAt,
	).Scan(&ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return errSlugTaken
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return r.get(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
}

// GetBySlug returns an event by slug.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.Event, error) {
	return r.get(ctx, `SELECT `+eventColumns+` FROM events WHERE slug = $1`, slug)
}

func (r *Repository) get(ctx context.Context, q string, arg interface{}) (*models.Event, error) {
	ev, err := scanEvent(r.pool.QueryRow(ctx, q, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

// TransitionStatus compare-and-swaps the event's status. The WHERE clause
// checks the stored status, not a value the caller read earlier, so the
// loser of a concurrent race gets TransitionError instead of silently
// overwriting.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from []models.EventStatus, to models.EventStatus, reason string) (*models.Event, error) {
	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}

	var updated *models.Event
	err := database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`UPDATE events
			 SET status = $2,
			     moderation_reason = CASE WHEN $3 = '' THEN moderation_reason ELSE $3 END,
			     updated_at = NOW()
			 WHERE id = $1 AND status = ANY($4)
			 RETURNING `+eventColumns,
			id, string(to), reason, fromStrs)
		ev, err := scanEvent(row)
		if err == nil {
			updated = ev
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("transition event: %w", err)
		}
		// CAS missed: distinguish unknown event from invalid transition and
		// report the authoritative state.
		current, err := scanEvent(tx.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("read event after failed transition: %w", err)
		}
		return &TransitionError{Event: current, Action: string(to)}
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// List returns one page of events and the total matching count.
func (r *Repository) List(ctx context.Context, opts ListOptions) ([]models.Event, int, error) {
	opts = opts.Normalize()

	var where []string
	var args []interface{}
	add := func(cond string, val interface{}) {
		args = append(args, val)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if opts.Status != nil {
		add("status = $%d", string(*opts.Status))
	}
	if opts.Category != "" {
		add("category = $%d", opts.Category)
	}
	if opts.Featured != nil {
		add("featured = $%d", *opts.Featured)
	}
	if opts.OwnerID != nil {
		add("owner_id = $%d", *opts.OwnerID)
	}
	if opts.From != nil {
		add("starts_at >= $%d", *opts.From)
	}
	if opts.To != nil {
		add("starts_at <= $%d", *opts.To)
	}
	if opts.Search != "" {
		args = append(args, "%"+opts.Search+"%")
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events`+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	dir := "ASC"
	if opts.Order == models.SortDesc {
		dir = "DESC"
	}
	args = append(args, opts.Limit, (opts.Page-1)*opts.Limit)
	q := fmt.Sprintf(`SELECT `+eventColumns+` FROM events`+cond+
		` ORDER BY %s %s, id ASC LIMIT $%d OFFSET $%d`,
		opts.SortBy, dir, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var list []models.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan event: %w", err)
		}
		list = append(list, *ev)
	}
	return list, total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var ev models.Event
	err := row.Scan(&ev.ID, &ev.Slug, &ev.Title, &ev.Description, &ev.Category, &ev.Featured,
		&ev.Status, &ev.Capacity, &ev.CurrentWaitlist, &ev.OwnerID, &ev.ModerationReason,
		&ev.StartsAt, &ev.EndsAt, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}
