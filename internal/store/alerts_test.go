package store

import (
	"testing"

	"github.com/ridewire/dispatchsync/internal/model"
	"github.com/ridewire/dispatchsync/internal/testutil"
)

// unreadInvariant checks that the counter matches the collection.
func unreadInvariant(t *testing.T, s *AlertStore) {
	t.Helper()

	count := 0
	for _, a := range s.Records() {
		if !a.Read {
			count++
		}
	}
	if got := s.UnreadCount(); got != count {
		t.Errorf("UnreadCount() = %d, but %d records are unread", got, count)
	}
}

func TestAlertStoreUnreadCounter(t *testing.T) {
	s := NewAlertStore()

	s.Add(testutil.NewAlert().WithID("a1").Build())
	s.Add(testutil.NewAlert().WithID("a2").Build())
	s.Add(testutil.NewAlert().WithID("a3").Read().Build())
	unreadInvariant(t, s)
	if s.UnreadCount() != 2 {
		t.Fatalf("UnreadCount() = %d, want 2", s.UnreadCount())
	}

	s.MarkRead("a1")
	unreadInvariant(t, s)
	if s.UnreadCount() != 1 {
		t.Errorf("UnreadCount() = %d after MarkRead, want 1", s.UnreadCount())
	}

	// Marking an already-read alert must not double-decrement.
	s.MarkRead("a1")
	unreadInvariant(t, s)
	if s.UnreadCount() != 1 {
		t.Errorf("UnreadCount() = %d after repeat MarkRead, want 1", s.UnreadCount())
	}
}

func TestAlertStoreMarkAllRead(t *testing.T) {
	s := NewAlertStore()
	s.Add(testutil.NewAlert().WithID("a1").Build())
	s.Add(testutil.NewAlert().WithID("a2").Build())

	s.MarkAllRead()

	if s.UnreadCount() != 0 {
		t.Errorf("UnreadCount() = %d, want 0", s.UnreadCount())
	}
	for _, a := range s.Records() {
		if !a.Read {
			t.Errorf("alert %s still unread after MarkAllRead", a.ID)
		}
	}
}

func TestAlertStoreReplaceAllRecomputesCounter(t *testing.T) {
	s := NewAlertStore()
	s.Add(testutil.NewAlert().WithID("a1").Build())

	s.ReplaceAll([]model.Alert{
		testutil.NewAlert().WithID("b1").Build(),
		testutil.NewAlert().WithID("b2").Read().Build(),
		testutil.NewAlert().WithID("b3").Build(),
	})

	unreadInvariant(t, s)
	if s.UnreadCount() != 2 {
		t.Errorf("UnreadCount() = %d after ReplaceAll, want 2", s.UnreadCount())
	}
}

func TestAlertStoreRemoveUnreadDecrements(t *testing.T) {
	s := NewAlertStore()
	s.Add(testutil.NewAlert().WithID("a1").Build())
	s.Add(testutil.NewAlert().WithID("a2").Read().Build())

	s.Remove("a1")
	unreadInvariant(t, s)
	if s.UnreadCount() != 0 {
		t.Errorf("UnreadCount() = %d, want 0", s.UnreadCount())
	}

	s.Remove("a2")
	unreadInvariant(t, s)
}

func TestAlertStoreAddPrepends(t *testing.T) {
	s := NewAlertStore()
	s.Add(testutil.NewAlert().WithID("a1").Build())
	s.Add(testutil.NewAlert().WithID("a2").Build())

	if got := s.Records()[0].ID; got != "a2" {
		t.Errorf("newest alert = %s, want a2 first", got)
	}
}

func TestAlertStoreUnreadPatchTransitions(t *testing.T) {
	s := NewAlertStore()
	s.Add(testutil.NewAlert().WithID("a1").Read().Build())

	// read -> unread bumps the counter back up.
	unread := false
	s.Update("a1", model.AlertPatch{Read: &unread})
	unreadInvariant(t, s)
	if s.UnreadCount() != 1 {
		t.Errorf("UnreadCount() = %d, want 1", s.UnreadCount())
	}
}
