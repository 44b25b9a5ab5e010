package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestEventStatusJoinable(t *testing.T) {
	for _, s := range []EventStatus{EventDraft, EventPendingReview, EventCancelled, EventCompleted} {
		if s.Joinable() {
			t.Errorf("status %s should not be joinable", s)
		}
	}
	if !EventPublished.Joinable() {
		t.Error("published events should be joinable")
	}
}

func TestEventStatusTerminal(t *testing.T) {
	cases := map[EventStatus]bool{
		EventDraft:         false,
		EventPendingReview: false,
		EventPublished:     false,
		EventCancelled:     true,
		EventCompleted:     true,
	}
	for s, want := range cases {
		if got := s.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", s, got, want)
		}
	}
}

func TestNewPagination(t *testing.T) {
	cases := []struct {
		page, limit, total int
		pages              int
	}{
		{1, 10, 0, 0},
		{1, 10, 1, 1},
		{1, 10, 10, 1},
		{1, 10, 11, 2},
		{2, 10, 20, 2},
		{1, 0, 50, 0},
	}
	for _, c := range cases {
		p := NewPagination(c.page, c.limit, c.total)
		if p.TotalPages != c.pages {
			t.Errorf("NewPagination(%d, %d, %d).TotalPages = %d, want %d",
				c.page, c.limit, c.total, p.TotalPages, c.pages)
		}
		if p.Total != c.total || p.Page != c.page || p.Limit != c.limit {
			t.Errorf("NewPagination(%d, %d, %d) lost inputs: %+v", c.page, c.limit, c.total, p)
		}
	}
}

func TestCanModerate(t *testing.T) {
	ownerID := uuid.New()

	owner := Caller{ID: ownerID, Role: RoleOwner}
	if !owner.CanModerate(ownerID) {
		t.Error("owners should moderate their own events")
	}
	if owner.CanModerate(uuid.New()) {
		t.Error("owners should not moderate other owners' events")
	}

	admin := Caller{ID: uuid.New(), Role: RoleAdmin}
	if !admin.CanModerate(ownerID) {
		t.Error("admins should moderate any event")
	}

	visitor := Caller{ID: ownerID, Role: RoleVisitor}
	if visitor.CanModerate(ownerID) {
		t.Error("visitors should not moderate events")
	}
}
