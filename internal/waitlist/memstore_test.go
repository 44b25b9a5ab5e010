package waitlist

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gatherly/backend/internal/models"
)

// memStore is an in-memory Store with the same serialization contract as the
// PostgreSQL repository: WithEvent holds an exclusive lock for the whole
// callback and rolls the event state back when it fails.
type memStore struct {
	mu      sync.Mutex
	events  map[uuid.UUID]*models.Event
	entries map[uuid.UUID]*models.WaitlistEntry
	seq     int
}

func newMemStore() *memStore {
	return &memStore{
		events:  make(map[uuid.UUID]*models.Event),
		entries: make(map[uuid.UUID]*models.WaitlistEntry),
	}
}

func (m *memStore) addEvent(ev models.Event) *models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := ev
	m.events[ev.ID] = &cp
	return &cp
}

func (m *memStore) WithEvent(ctx context.Context, eventID uuid.UUID, fn func(tx EventTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[eventID]
	if !ok {
		return ErrNotFound
	}

	// Snapshot for rollback.
	evBefore := *ev
	entriesBefore := make(map[uuid.UUID]models.WaitlistEntry)
	for id, e := range m.entries {
		entriesBefore[id] = *e
	}
	seqBefore := m.seq

	evCopy := *ev
	if err := fn(&memEventTx{store: m, event: &evCopy}); err != nil {
		*ev = evBefore
		m.entries = make(map[uuid.UUID]*models.WaitlistEntry, len(entriesBefore))
		for id, e := range entriesBefore {
			cp := e
			m.entries[id] = &cp
		}
		m.seq = seqBefore
		return err
	}
	*ev = evCopy
	return nil
}

func (m *memStore) GetEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[eventID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ev
	return &cp, nil
}

func (m *memStore) GetEntry(ctx context.Context, entryID uuid.UUID) (*models.WaitlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[entryID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memStore) List(ctx context.Context, eventID uuid.UUID, opts ListOptions) ([]models.WaitlistEntry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	opts = opts.Normalize()

	var all []models.WaitlistEntry
	for _, e := range m.entries {
		if e.EventID != eventID {
			continue
		}
		if opts.Status != nil && e.Status != *opts.Status {
			continue
		}
		if opts.Search != "" {
			needle := strings.ToLower(opts.Search)
			if !strings.Contains(strings.ToLower(e.Email), needle) &&
				!strings.Contains(strings.ToLower(e.UserName), needle) {
				continue
			}
		}
		all = append(all, *e)
	}

	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		var less, eq bool
		switch opts.SortBy {
		case SortByPosition:
			less, eq = a.Position < b.Position, a.Position == b.Position
		case SortByEmail:
			less, eq = a.Email < b.Email, a.Email == b.Email
		default:
			less, eq = a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
		}
		if eq {
			return a.ID.String() < b.ID.String()
		}
		if opts.Order == models.SortDesc {
			return !less
		}
		return less
	})

	total := len(all)
	if opts.Limit > 0 {
		start := (opts.Page - 1) * opts.Limit
		if start > total {
			start = total
		}
		end := start + opts.Limit
		if end > total {
			end = total
		}
		all = all[start:end]
	}
	return all, total, nil
}

type memEventTx struct {
	store *memStore
	event *models.Event
}

func (t *memEventTx) Event() *models.Event { return t.event }

func (t *memEventTx) FindEntryByEmail(email string) (*models.WaitlistEntry, error) {
	for _, e := range t.store.entries {
		if e.EventID == t.event.ID && e.Email == email {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (t *memEventTx) FindEntryByID(id uuid.UUID) (*models.WaitlistEntry, error) {
	e, ok := t.store.entries[id]
	if !ok || e.EventID != t.event.ID {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (t *memEventTx) ArrivalCount() (int, error) {
	n := 0
	for _, e := range t.store.entries {
		if e.EventID == t.event.ID {
			n++
		}
	}
	return n, nil
}

func (t *memEventTx) InsertEntry(e *models.WaitlistEntry) error {
	if existing, _ := t.FindEntryByEmail(e.Email); existing != nil {
		return &AlreadyJoinedError{}
	}
	t.store.seq++
	cp := *e
	// Distinct creation instants so created_at ordering is deterministic.
	cp.CreatedAt = cp.CreatedAt.Add(time.Duration(t.store.seq) * time.Microsecond)
	cp.UpdatedAt = cp.CreatedAt
	t.store.entries[cp.ID] = &cp
	*e = cp
	return nil
}

func (t *memEventTx) SetEntryStatus(id uuid.UUID, status models.EntryStatus) (*models.WaitlistEntry, error) {
	e, ok := t.store.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.Status = status
	e.UpdatedAt = time.Now().UTC()
	cp := *e
	return &cp, nil
}

func (t *memEventTx) AddToCounter(delta int) error {
	t.event.CurrentWaitlist += delta
	return nil
}

func (t *memEventTx) CountActive() (int, error) {
	n := 0
	for _, e := range t.store.entries {
		if e.EventID == t.event.ID && e.Status.Active() {
			n++
		}
	}
	return n, nil
}

func (t *memEventTx) SetCounter(n int) error {
	t.event.CurrentWaitlist = n
	return nil
}
