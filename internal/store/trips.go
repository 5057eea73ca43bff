package store

import (
	"sync"
	"time"

	"github.com/ridewire/dispatchsync/internal/model"
)

// tripState is the full snapshot a TripStore guards. Transitions below are
// pure: they take a state by value and return the successor.
type tripState struct {
	trips       []model.Trip
	selectedID  string
	loading     bool
	lastUpdated time.Time
}

// TripStore caches the tenant's trips. New trips are prepended so the freshest
// request sits at the top of the dispatch queue.
type TripStore struct {
	mu      sync.RWMutex
	state   tripState
	watches watchSet
	now     func() time.Time
}

// NewTripStore creates an empty trip store.
func NewTripStore() *TripStore {
	return &TripStore{now: time.Now}
}

// Subscribe returns a watch signalled on every mutation.
func (s *TripStore) Subscribe() *Watch { return s.watches.subscribe() }

func (s *TripStore) apply(fn func(tripState) tripState) {
	s.mu.Lock()
	s.state = fn(s.state)
	s.mu.Unlock()
	s.watches.notify()
}

// ReplaceAll swaps in a full collection, used after the initial REST load.
// A selection pointing at an id absent from the new collection is cleared.
func (s *TripStore) ReplaceAll(trips []model.Trip) {
	now := s.now()
	s.apply(func(st tripState) tripState {
		st.trips = append([]model.Trip(nil), trips...)
		st.lastUpdated = now
		st.loading = false
		if st.selectedID != "" && indexOfTrip(st.trips, st.selectedID) == -1 {
			st.selectedID = ""
		}
		return st
	})
}

// Add prepends a trip.
func (s *TripStore) Add(trip model.Trip) {
	now := s.now()
	s.apply(func(st tripState) tripState {
		st.trips = append([]model.Trip{trip}, st.trips...)
		st.lastUpdated = now
		return st
	})
}

// Update merges a patch into the trip with the given id. A missing id is a
// no-op: removals legitimately race with late updates.
func (s *TripStore) Update(id string, patch model.TripPatch) bool {
	updated := false
	now := s.now()
	s.apply(func(st tripState) tripState {
		idx := indexOfTrip(st.trips, id)
		if idx == -1 {
			return st
		}
		trips := append([]model.Trip(nil), st.trips...)
		trips[idx] = patch.Apply(trips[idx])
		st.trips = trips
		st.lastUpdated = now
		updated = true
		return st
	})
	return updated
}

// Remove deletes a trip by id, clearing the selection if it pointed there.
func (s *TripStore) Remove(id string) bool {
	removed := false
	now := s.now()
	s.apply(func(st tripState) tripState {
		idx := indexOfTrip(st.trips, id)
		if idx == -1 {
			return st
		}
		trips := append([]model.Trip(nil), st.trips[:idx]...)
		st.trips = append(trips, st.trips[idx+1:]...)
		if st.selectedID == id {
			st.selectedID = ""
		}
		st.lastUpdated = now
		removed = true
		return st
	})
	return removed
}

// Select marks a trip as the focused record. An empty id clears the
// selection; an id not in the collection is refused.
func (s *TripStore) Select(id string) bool {
	ok := false
	s.apply(func(st tripState) tripState {
		if id == "" {
			st.selectedID = ""
			ok = true
			return st
		}
		if indexOfTrip(st.trips, id) == -1 {
			return st
		}
		st.selectedID = id
		ok = true
		return st
	})
	return ok
}

// Selected returns the focused trip, if any. Because updates merge into the
// collection the selection always reflects the latest merged fields.
func (s *TripStore) Selected() (model.Trip, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state.selectedID == "" {
		return model.Trip{}, false
	}
	idx := indexOfTrip(s.state.trips, s.state.selectedID)
	if idx == -1 {
		return model.Trip{}, false
	}
	return s.state.trips[idx], true
}

// Get returns a trip by id.
func (s *TripStore) Get(id string) (model.Trip, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := indexOfTrip(s.state.trips, id)
	if idx == -1 {
		return model.Trip{}, false
	}
	return s.state.trips[idx], true
}

// Records returns a copy of the collection in insertion order.
func (s *TripStore) Records() []model.Trip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Trip(nil), s.state.trips...)
}

// Filtered applies view criteria to the current collection. The result is
// derived on every call and never cached.
func (s *TripStore) Filtered(f TripFilter) []model.Trip {
	return f.Apply(s.Records())
}

// Len returns the collection size.
func (s *TripStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.trips)
}

// SetLoading flips the bulk-load-in-progress flag.
func (s *TripStore) SetLoading(v bool) {
	s.apply(func(st tripState) tripState {
		st.loading = v
		return st
	})
}

// Loading reports whether a bulk load is in progress.
func (s *TripStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.loading
}

// LastUpdated returns the time of the most recent collection mutation.
func (s *TripStore) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.lastUpdated
}

func indexOfTrip(trips []model.Trip, id string) int {
	for i, t := range trips {
		if t.ID == id {
			return i
		}
	}
	return -1
}
