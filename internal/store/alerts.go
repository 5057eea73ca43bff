package store

import (
	"sync"
	"time"

	"github.com/ridewire/dispatchsync/internal/model"
)

type alertState struct {
	alerts      []model.Alert
	selectedID  string
	unread      int
	loading     bool
	lastUpdated time.Time
}

// AlertStore caches operational alerts, newest first, and maintains the
// unread badge counter. Invariant: unread always equals the number of records
// with Read == false.
type AlertStore struct {
	mu      sync.RWMutex
	state   alertState
	watches watchSet
	now     func() time.Time
}

// NewAlertStore creates an empty alert store.
func NewAlertStore() *AlertStore {
	return &AlertStore{now: time.Now}
}

// Subscribe returns a watch signalled on every mutation.
func (s *AlertStore) Subscribe() *Watch { return s.watches.subscribe() }

func (s *AlertStore) apply(fn func(alertState) alertState) {
	s.mu.Lock()
	s.state = fn(s.state)
	s.mu.Unlock()
	s.watches.notify()
}

// ReplaceAll swaps in a full collection and recomputes the unread counter
// from scratch.
func (s *AlertStore) ReplaceAll(alerts []model.Alert) {
	now := s.now()
	s.apply(func(st alertState) alertState {
		st.alerts = append([]model.Alert(nil), alerts...)
		st.unread = countUnread(st.alerts)
		st.lastUpdated = now
		st.loading = false
		if st.selectedID != "" && indexOfAlert(st.alerts, st.selectedID) == -1 {
			st.selectedID = ""
		}
		return st
	})
}

// Add prepends an alert, bumping the unread counter when it arrives unread.
func (s *AlertStore) Add(alert model.Alert) {
	now := s.now()
	s.apply(func(st alertState) alertState {
		st.alerts = append([]model.Alert{alert}, st.alerts...)
		if !alert.Read {
			st.unread++
		}
		st.lastUpdated = now
		return st
	})
}

// Update merges a patch into the alert with the given id; missing id is a
// no-op. Read-flag transitions keep the unread counter in step.
func (s *AlertStore) Update(id string, patch model.AlertPatch) bool {
	updated := false
	now := s.now()
	s.apply(func(st alertState) alertState {
		idx := indexOfAlert(st.alerts, id)
		if idx == -1 {
			return st
		}
		alerts := append([]model.Alert(nil), st.alerts...)
		before := alerts[idx].Read
		alerts[idx] = patch.Apply(alerts[idx])
		switch {
		case !before && alerts[idx].Read:
			st.unread--
		case before && !alerts[idx].Read:
			st.unread++
		}
		st.alerts = alerts
		st.lastUpdated = now
		updated = true
		return st
	})
	return updated
}

// MarkRead flags a single alert as read.
func (s *AlertStore) MarkRead(id string) bool {
	read := true
	return s.Update(id, model.AlertPatch{Read: &read})
}

// MarkAllRead flips every record's read flag and zeroes the counter.
func (s *AlertStore) MarkAllRead() {
	now := s.now()
	s.apply(func(st alertState) alertState {
		if st.unread == 0 {
			return st
		}
		alerts := append([]model.Alert(nil), st.alerts...)
		for i := range alerts {
			alerts[i].Read = true
		}
		st.alerts = alerts
		st.unread = 0
		st.lastUpdated = now
		return st
	})
}

// Remove deletes an alert by id, adjusting the counter for unread records
// and clearing a dangling selection.
func (s *AlertStore) Remove(id string) bool {
	removed := false
	now := s.now()
	s.apply(func(st alertState) alertState {
		idx := indexOfAlert(st.alerts, id)
		if idx == -1 {
			return st
		}
		if !st.alerts[idx].Read {
			st.unread--
		}
		alerts := append([]model.Alert(nil), st.alerts[:idx]...)
		st.alerts = append(alerts, st.alerts[idx+1:]...)
		if st.selectedID == id {
			st.selectedID = ""
		}
		st.lastUpdated = now
		removed = true
		return st
	})
	return removed
}

// Select marks an alert as focused; empty id clears.
func (s *AlertStore) Select(id string) bool {
	ok := false
	s.apply(func(st alertState) alertState {
		if id == "" {
			st.selectedID = ""
			ok = true
			return st
		}
		if indexOfAlert(st.alerts, id) == -1 {
			return st
		}
		st.selectedID = id
		ok = true
		return st
	})
	return ok
}

// Selected returns the focused alert, if any.
func (s *AlertStore) Selected() (model.Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state.selectedID == "" {
		return model.Alert{}, false
	}
	idx := indexOfAlert(s.state.alerts, s.state.selectedID)
	if idx == -1 {
		return model.Alert{}, false
	}
	return s.state.alerts[idx], true
}

// Get returns an alert by id.
func (s *AlertStore) Get(id string) (model.Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := indexOfAlert(s.state.alerts, id)
	if idx == -1 {
		return model.Alert{}, false
	}
	return s.state.alerts[idx], true
}

// Records returns a copy of the collection, newest first.
func (s *AlertStore) Records() []model.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Alert(nil), s.state.alerts...)
}

// Filtered applies view criteria to the current collection.
func (s *AlertStore) Filtered(f AlertFilter) []model.Alert {
	return f.Apply(s.Records())
}

// UnreadCount returns the number of unread alerts.
func (s *AlertStore) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.unread
}

// Len returns the collection size.
func (s *AlertStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.alerts)
}

// SetLoading flips the bulk-load-in-progress flag.
func (s *AlertStore) SetLoading(v bool) {
	s.apply(func(st alertState) alertState {
		st.loading = v
		return st
	})
}

// Loading reports whether a bulk load is in progress.
func (s *AlertStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.loading
}

// LastUpdated returns the time of the most recent mutation.
func (s *AlertStore) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.lastUpdated
}

func indexOfAlert(alerts []model.Alert, id string) int {
	for i, a := range alerts {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func countUnread(alerts []model.Alert) int {
	n := 0
	for _, a := range alerts {
		if !a.Read {
			n++
		}
	}
	return n
}
