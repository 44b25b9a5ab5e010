package models

import "testing"

func TestApplyEntryAction(t *testing.T) {
	cases := []struct {
		current EntryStatus
		action  EntryAction
		next    EntryStatus
		ok      bool
	}{
		{EntryPending, ActionConfirm, EntryConfirmed, true},
		{EntryPending, ActionCancel, EntryCancelled, true},
		{EntryPending, ActionRevert, "", false},
		{EntryPending, ActionRestore, "", false},
		{EntryConfirmed, ActionRevert, EntryPending, true},
		{EntryConfirmed, ActionCancel, EntryCancelled, true},
		{EntryConfirmed, ActionConfirm, "", false},
		{EntryConfirmed, ActionRestore, "", false},
		{EntryCancelled, ActionRestore, EntryPending, true},
		{EntryCancelled, ActionConfirm, "", false},
		{EntryCancelled, ActionCancel, "", false},
		{EntryCancelled, ActionRevert, "", false},
	}
	for _, c := range cases {
		next, ok := ApplyEntryAction(c.current, c.action)
		if ok != c.ok || next != c.next {
			t.Errorf("ApplyEntryAction(%s, %s) = (%s, %v), want (%s, %v)",
				c.current, c.action, next, ok, c.next, c.ok)
		}
	}
}

func TestActionFor(t *testing.T) {
	cases := []struct {
		current EntryStatus
		desired EntryStatus
		action  EntryAction
		ok      bool
	}{
		{EntryPending, EntryConfirmed, ActionConfirm, true},
		{EntryPending, EntryCancelled, ActionCancel, true},
		{EntryPending, EntryPending, "", false},
		{EntryConfirmed, EntryPending, ActionRevert, true},
		{EntryConfirmed, EntryCancelled, ActionCancel, true},
		{EntryCancelled, EntryPending, ActionRestore, true},
		{EntryCancelled, EntryConfirmed, "", false},
	}
	for _, c := range cases {
		action, ok := ActionFor(c.current, c.desired)
		if ok != c.ok || action != c.action {
			t.Errorf("ActionFor(%s, %s) = (%s, %v), want (%s, %v)",
				c.current, c.desired, action, ok, c.action, c.ok)
		}
	}
}

func TestCounterDelta(t *testing.T) {
	cases := []struct {
		from, to EntryStatus
		delta    int
	}{
		{EntryPending, EntryConfirmed, 0},
		{EntryConfirmed, EntryPending, 0},
		{EntryPending, EntryCancelled, -1},
		{EntryConfirmed, EntryCancelled, -1},
		{EntryCancelled, EntryPending, 1},
	}
	for _, c := range cases {
		if got := CounterDelta(c.from, c.to); got != c.delta {
			t.Errorf("CounterDelta(%s, %s) = %d, want %d", c.from, c.to, got, c.delta)
		}
	}
}

func TestEntryStatusActive(t *testing.T) {
	if !EntryPending.Active() || !EntryConfirmed.Active() {
		t.Error("pending and confirmed entries should count toward the waitlist")
	}
	if EntryCancelled.Active() {
		t.Error("cancelled entries should not count toward the waitlist")
	}
}
