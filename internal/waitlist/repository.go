package waitlist

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

const entryColumns = `w.id, w.event_id, w.email, w.user_id, COALESCE(u.full_name, ''),
	w.status, w.position, w.created_at, w.updated_at`

const entryFrom = ` FROM waitlist_entries w LEFT JOIN users u ON u.id = w.user_id`

// Repository is the PostgreSQL waitlist store. Every mutation runs inside a
// transaction that first locks the parent event row, so concurrent joins and
// moderation actions on one event serialize and the cached count never
// drifts from the entries it summarizes.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a waitlist repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithEvent locks the event row (SELECT ... FOR UPDATE) and runs fn in the
// same transaction. Transient serialization failures retry once.
func (r *Repository) WithEvent(ctx context.Context, eventID uuid.UUID, fn func(tx EventTx) error) error {
	return database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, eventID)
		ev, err := scanEvent(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock event: %w", err)
		}
		return fn(&pgEventTx{ctx: ctx, tx: tx, event: ev})
	})
}

// GetEvent reads an event without locking.
func (r *Repository) GetEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, eventID)
	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

// GetEntry reads an entry without locking.
func (r *Repository) GetEntry(ctx context.Context, entryID uuid.UUID) (*models.WaitlistEntry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+entryColumns+entryFrom+` WHERE w.id = $1`, entryID)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

// List returns one page of entries and the total matching count. Sort column
// and direction come from a whitelist; ties break by id ascending so paging
// is deterministic.
func (r *Repository) List(ctx context.Context, eventID uuid.UUID, opts ListOptions) ([]models.WaitlistEntry, int, error) {
	opts = opts.Normalize()

	where := []string{"w.event_id = $1"}
	args := []interface{}{eventID}
	if opts.Status != nil {
		args = append(args, string(*opts.Status))
		where = append(where, fmt.Sprintf("w.status = $%d", len(args)))
	}
	if opts.Search != "" {
		args = append(args, "%"+opts.Search+"%")
		where = append(where, fmt.Sprintf("(w.email ILIKE $%d OR COALESCE(u.full_name, '') ILIKE $%d)", len(args), len(args)))
	}
	cond := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+entryFrom+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count entries: %w", err)
	}

	dir := "ASC"
	if opts.Order == models.SortDesc {
		dir = "DESC"
	}
	sortCol := map[string]string{
		SortByCreatedAt: "w.created_at",
		SortByPosition:  "w.position",
		SortByEmail:     "w.email",
	}[opts.SortBy]
	q := `SELECT ` + entryColumns + entryFrom + cond +
		fmt.Sprintf(" ORDER BY %s %s, w.id ASC", sortCol, dir)
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, (opts.Page-1)*opts.Limit)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var list []models.WaitlistEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan entry: %w", err)
		}
		list = append(list, *e)
	}
	return list, total, rows.Err()
}

// pgEventTx implements EventTx over an open pgx transaction holding the
// event row lock.
type pgEventTx struct {
	ctx   context.Context
	tx    pgx.Tx
	event *models.Event
}

func (t *pgEventTx) Event() *models.Event { return t.event }

func (t *pgEventTx) FindEntryByEmail(email string) (*models.WaitlistEntry, error) {
	row := t.tx.QueryRow(t.ctx,
		`SELECT `+entryColumns+entryFrom+` WHERE w.event_id = $1 AND w.email = $2`,
		t.event.ID, email)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find entry by email: %w", err)
	}
	return e, nil
}

func (t *pgEventTx) FindEntryByID(id uuid.UUID) (*models.WaitlistEntry, error) {
	row := t.tx.QueryRow(t.ctx,
		`SELECT `+entryColumns+entryFrom+` WHERE w.id = $1 AND w.event_id = $2`,
		id, t.event.ID)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find entry by id: %w", err)
	}
	return e, nil
}

func (t *pgEventTx) ArrivalCount() (int, error) {
	var n int
	err := t.tx.QueryRow(t.ctx,
		`SELECT COUNT(*) FROM waitlist_entries WHERE event_id = $1`, t.event.ID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("arrival count: %w", err)
	}
	return n, nil
}

func (t *pgEventTx) InsertEntry(e *models.WaitlistEntry) error {
	err := t.tx.QueryRow(t.ctx,
		`INSERT INTO waitlist_entries (id, event_id, email, user_id, status, position)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		e.ID, e.EventID, e.Email, e.UserID, string(e.Status), e.Position,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		// The (event_id, email) unique index backstops the in-transaction
		// lookup against writers that bypassed the event lock.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return &AlreadyJoinedError{}
		}
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (t *pgEventTx) SetEntryStatus(id uuid.UUID, status models.EntryStatus) (*models.WaitlistEntry, error) {
	_, err := t.tx.Exec(t.ctx,
		`UPDATE waitlist_entries SET status = $1, updated_at = NOW() WHERE id = $2`,
		string(status), id)
	if err != nil {
		return nil, fmt.Errorf("update entry status: %w", err)
	}
	return t.FindEntryByID(id)
}

func (t *pgEventTx) AddToCounter(delta int) error {
	_, err := t.tx.Exec(t.ctx,
		`UPDATE events SET current_waitlist = current_waitlist + $1, updated_at = NOW() WHERE id = $2`,
		delta, t.event.ID)
	if err != nil {
		return fmt.Errorf("apply waitlist delta: %w", err)
	}
	t.event.CurrentWaitlist += delta
	return nil
}

func (t *pgEventTx) CountActive() (int, error) {
	var n int
	err := t.tx.QueryRow(t.ctx,
		`SELECT COUNT(*) FROM waitlist_entries WHERE event_id = $1 AND status <> $2`,
		t.event.ID, string(models.EntryCancelled)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active: %w", err)
	}
	return n, nil
}

func (t *pgEventTx) SetCounter(n int) error {
	_, err := t.tx.Exec(t.ctx,
		`UPDATE events SET current_waitlist = $1, updated_at = NOW() WHERE id = $2`,
		n, t.event.ID)
	if err != nil {
		return fmt.Errorf("set counter: %w", err)
	}
	t.event.CurrentWaitlist = n
	return nil
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

func scanEntry(row rowScanner) (*models.WaitlistEntry, error) {
	var e models.WaitlistEntry
	err := row.Scan(&e.ID, &e.EventID, &e.Email, &e.UserID, &e.UserName,
		&e.Status, &e.Position, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
