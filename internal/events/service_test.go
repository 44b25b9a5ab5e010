package events

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/backend/internal/models"
)

// memStore is an in-memory Store with the same transition semantics as the
// PostgreSQL repository: TransitionStatus compares and swaps the stored
// status under a lock and returns TransitionError with the current row on a
// mismatch.
type memStore struct {
	mu     sync.Mutex
	events map[uuid.UUID]*models.Event
}

func newMemStore() *memStore {
	return &memStore{events: make(map[uuid.UUID]*models.Event)}
}

func (m *memStore) Create(ctx context.Context, ev *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.events {
		if existing.Slug == ev.Slug {
			return errSlugTaken
		}
	}
	ev.CreatedAt = time.Now().UTC()
	ev.UpdatedAt = ev.CreatedAt
	cp := *ev
	m.events[ev.ID] = &cp
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ev
	return &cp, nil
}

func (m *memStore) GetBySlug(ctx context.Context, slug string) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range m.events {
		if ev.Slug == slug {
			cp := *ev
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) TransitionStatus(ctx context.Context, id uuid.UUID, from []models.EventStatus, to models.EventStatus, reason string) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	allowed := false
	for _, s := range from {
		if ev.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		cp := *ev
		return nil, &TransitionError{Event: &cp}
	}
	ev.Status = to
	if reason != "" {
		ev.ModerationReason = reason
	}
	ev.UpdatedAt = time.Now().UTC()
	cp := *ev
	return &cp, nil
}

func (m *memStore) List(ctx context.Context, opts ListOptions) ([]models.Event, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	opts = opts.Normalize()

	var all []models.Event
	for _, ev := range m.events {
		if opts.Status != nil && ev.Status != *opts.Status {
			continue
		}
		if opts.Category != "" && ev.Category != opts.Category {
			continue
		}
		if opts.Featured != nil && ev.Featured != *opts.Featured {
			continue
		}
		if opts.OwnerID != nil && ev.OwnerID != *opts.OwnerID {
			continue
		}
		if opts.Search != "" {
			needle := strings.ToLower(opts.Search)
			if !strings.Contains(strings.ToLower(ev.Title), needle) &&
				!strings.Contains(strings.ToLower(ev.Description), needle) {
				continue
			}
		}
		all = append(all, *ev)
	}

	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		var less, eq bool
		switch opts.SortBy {
		case SortByTitle:
			less, eq = a.Title < b.Title, a.Title == b.Title
		case SortByCreatedAt:
			less, eq = a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
		default:
			less, eq = a.StartsAt.Before(b.StartsAt), a.StartsAt.Equal(b.StartsAt)
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
	start := (opts.Page - 1) * opts.Limit
	if start > total {
		start = total
	}
	end := start + opts.Limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func newTestService() (*Service, *memStore) {
	store := newMemStore()
	return NewService(store, nil), store
}

func newOwner() models.Caller {
	return models.Caller{ID: uuid.New(), Role: models.RoleOwner}
}

func newAdmin() models.Caller {
	return models.Caller{ID: uuid.New(), Role: models.RoleAdmin}
}

func draftParams(title string) CreateParams {
	return CreateParams{Title: title, StartsAt: time.Now().Add(24 * time.Hour)}
}

func TestCreateDraft(t *testing.T) {
	svc, _ := newTestService()
	owner := newOwner()

	ev, err := svc.Create(context.Background(), owner, draftParams("  Go Conf 2026  "))
	require.NoError(t, err)
	assert.Equal(t, "Go Conf 2026", ev.Title)
	assert.Equal(t, "go-conf-2026", ev.Slug)
	assert.Equal(t, models.EventDraft, ev.Status)
	assert.Equal(t, owner.ID, ev.OwnerID)
	assert.Equal(t, 0, ev.CurrentWaitlist)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, models.Caller{ID: uuid.New(), Role: models.RoleVisitor}, draftParams("x"))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Create(ctx, newOwner(), draftParams("   "))
	assert.ErrorIs(t, err, ErrInvalidInput)

	zero := 0
	p := draftParams("x")
	p.Capacity = &zero
	_, err = svc.Create(ctx, newOwner(), p)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, newOwner(), CreateParams{Title: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateSlugCollision(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first, err := svc.Create(ctx, newOwner(), draftParams("Same Title"))
	require.NoError(t, err)
	second, err := svc.Create(ctx, newOwner(), draftParams("Same Title"))
	require.NoError(t, err)

	assert.NotEqual(t, first.Slug, second.Slug)
	assert.True(t, strings.HasPrefix(second.Slug, "same-title-"))
}

func TestLifecycleHappyPath(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	owner := newOwner()
	admin := newAdmin()

	ev, err := svc.Create(ctx, owner, draftParams("Lifecycle"))
	require.NoError(t, err)

	ev, err = svc.SubmitForReview(ctx, owner, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventPendingReview, ev.Status)

	ev, err = svc.Approve(ctx, admin, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventPublished, ev.Status)

	ev, err = svc.Complete(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventCompleted, ev.Status)
}

func TestRejectStoresReason(t *testing.T) {
	svc, store, ctx := setupPending(t)
	admin := newAdmin()

	ev, err := svc.Reject(ctx, admin, pendingID(store), "duplicate listing")
	require.NoError(t, err)
	assert.Equal(t, models.EventCancelled, ev.Status)
	assert.Equal(t, "duplicate listing", ev.ModerationReason)

	// Cancelled is terminal; approval after rejection fails with the
	// authoritative state.
	_, err = svc.Approve(ctx, admin, ev.ID)
	var tr *TransitionError
	require.ErrorAs(t, err, &tr)
	assert.Equal(t, models.EventCancelled, tr.Event.Status)
}

func setupPending(t *testing.T) (*Service, *memStore, context.Context) {
	t.Helper()
	svc, store := newTestService()
	ctx := context.Background()
	owner := newOwner()
	ev, err := svc.Create(ctx, owner, draftParams("Pending"))
	require.NoError(t, err)
	_, err = svc.SubmitForReview(ctx, owner, ev.ID)
	require.NoError(t, err)
	return svc, store, ctx
}

func pendingID(store *memStore) uuid.UUID {
	store.mu.Lock()
	defer store.mu.Unlock()
	for id := range store.events {
		return id
	}
	return uuid.Nil
}

func TestSubmitRequiresDraft(t *testing.T) {
	svc, store, ctx := setupPending(t)
	id := pendingID(store)

	ev, err := svc.Get(ctx, id)
	require.NoError(t, err)
	owner := models.Caller{ID: ev.OwnerID, Role: models.RoleOwner}

	_, err = svc.SubmitForReview(ctx, owner, id)
	var tr *TransitionError
	require.ErrorAs(t, err, &tr)
	assert.Equal(t, models.EventPendingReview, tr.Event.Status)
}

func TestSubmitForbiddenForNonOwner(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	ev, err := svc.Create(ctx, newOwner(), draftParams("Private"))
	require.NoError(t, err)

	_, err = svc.SubmitForReview(ctx, newOwner(), ev.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestApproveRequiresAdmin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	owner := newOwner()

	ev, err := svc.Create(ctx, owner, draftParams("Needs Review"))
	require.NoError(t, err)

	_, err = svc.Approve(ctx, owner, ev.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Reject(ctx, owner, ev.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestWithdraw(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	owner := newOwner()

	ev, err := svc.Create(ctx, owner, draftParams("Withdrawn"))
	require.NoError(t, err)

	ev, err = svc.Withdraw(ctx, owner, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventCancelled, ev.Status)

	// Terminal; withdrawing again fails.
	_, err = svc.Withdraw(ctx, owner, ev.ID)
	var tr *TransitionError
	assert.ErrorAs(t, err, &tr)
}

func TestCompleteOnlyFromPublished(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	ev, err := svc.Create(ctx, newOwner(), draftParams("Unpublished"))
	require.NoError(t, err)

	_, err = svc.Complete(ctx, ev.ID)
	var tr *TransitionError
	require.ErrorAs(t, err, &tr)
	assert.Equal(t, models.EventDraft, tr.Event.Status)
}

func TestListFiltersAndPaginates(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	owner := newOwner()
	admin := newAdmin()

	for i := 0; i < 5; i++ {
		p := draftParams("Talk " + string(rune('A'+i)))
		p.StartsAt = time.Now().Add(time.Duration(i+1) * time.Hour)
		ev, err := svc.Create(ctx, owner, p)
		require.NoError(t, err)
		if i < 3 {
			_, err = svc.Approve(ctx, admin, ev.ID)
			require.NoError(t, err)
		}
	}

	published := models.EventPublished
	list, page, err := svc.List(ctx, ListOptions{Status: &published, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, list, 2)
	assert.True(t, list[0].StartsAt.Before(list[1].StartsAt))
}

func TestListByOwner(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	mine := newOwner()
	other := newOwner()

	draft, err := svc.Create(ctx, mine, draftParams("My Draft"))
	require.NoError(t, err)
	submitted, err := svc.Create(ctx, mine, draftParams("My Submitted"))
	require.NoError(t, err)
	_, err = svc.SubmitForReview(ctx, mine, submitted.ID)
	require.NoError(t, err)
	_, err = svc.Create(ctx, other, draftParams("Not Mine"))
	require.NoError(t, err)

	// The owner listing sees the owner's events in every status and nothing
	// belonging to anyone else.
	list, page, err := svc.List(ctx, ListOptions{OwnerID: &mine.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	ids := make(map[uuid.UUID]models.EventStatus, len(list))
	for _, ev := range list {
		ids[ev.ID] = ev.Status
	}
	assert.Equal(t, models.EventDraft, ids[draft.ID])
	assert.Equal(t, models.EventPendingReview, ids[submitted.ID])

	pending := models.EventPendingReview
	list, _, err = svc.List(ctx, ListOptions{OwnerID: &mine.ID, Status: &pending})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, submitted.ID, list[0].ID)
}

func TestGetBySlug(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	ev, err := svc.Create(ctx, newOwner(), draftParams("Findable"))
	require.NoError(t, err)

	got, err := svc.GetBySlug(ctx, "findable")
	require.NoError(t, err)
	assert.Equal(t, ev.ID, got.ID)

	_, err = svc.GetBySlug(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSlugifyTruncatesOnRuneBoundary(t *testing.T) {
	// 30 three-byte letters make 90 bytes; a byte cut at 80 would land
	// inside the 27th rune.
	slug := Slugify(strings.Repeat("あ", 30))
	if !utf8.ValidString(slug) {
		t.Fatalf("Slugify produced invalid UTF-8: %q", slug)
	}
	if len(slug) > 80 {
		t.Errorf("Slugify produced %d bytes, want at most 80", len(slug))
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Go Conf 2026", "go-conf-2026"},
		{"  Hello,   World!  ", "hello-world"},
		{"déjà vu", "déjà-vu"},
		{"---", "event"},
		{"", "event"},
		{"A--B__C", "a-b-c"},
	}
	for _, c := range cases {
		if got := Slugify(c.in); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
