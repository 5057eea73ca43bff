package store

import (
	"sync"
	"time"

	"github.com/ridewire/dispatchsync/internal/model"
)

type driverState struct {
	drivers     []model.Driver
	selectedID  string
	loading     bool
	lastUpdated time.Time
}

// DriverStore caches the tenant's driver roster. Unlike trips, drivers are
// appended: the roster is a stable list, not a feed.
type DriverStore struct {
	mu      sync.RWMutex
	state   driverState
	watches watchSet
	now     func() time.Time
}

// NewDriverStore creates an empty driver store.
func NewDriverStore() *DriverStore {
	return &DriverStore{now: time.Now}
}

// Subscribe returns a watch signalled on every mutation.
func (s *DriverStore) Subscribe() *Watch { return s.watches.subscribe() }

func (s *DriverStore) apply(fn func(driverState) driverState) {
	s.mu.Lock()
	s.state = fn(s.state)
	s.mu.Unlock()
	s.watches.notify()
}

// ReplaceAll swaps in a full roster, used after the initial REST load.
func (s *DriverStore) ReplaceAll(drivers []model.Driver) {
	now := s.now()
	s.apply(func(st driverState) driverState {
		st.drivers = append([]model.Driver(nil), drivers...)
		st.lastUpdated = now
		st.loading = false
		if st.selectedID != "" && indexOfDriver(st.drivers, st.selectedID) == -1 {
			st.selectedID = ""
		}
		return st
	})
}

// Add appends a driver to the roster.
func (s *DriverStore) Add(driver model.Driver) {
	now := s.now()
	s.apply(func(st driverState) driverState {
		st.drivers = append(append([]model.Driver(nil), st.drivers...), driver)
		st.lastUpdated = now
		return st
	})
}

// Update merges a patch into the driver with the given id; missing id is a
// no-op.
func (s *DriverStore) Update(id string, patch model.DriverPatch) bool {
	updated := false
	now := s.now()
	s.apply(func(st driverState) driverState {
		idx := indexOfDriver(st.drivers, id)
		if idx == -1 {
			return st
		}
		drivers := append([]model.Driver(nil), st.drivers...)
		drivers[idx] = patch.Apply(drivers[idx])
		st.drivers = drivers
		st.lastUpdated = now
		updated = true
		return st
	})
	return updated
}

// SetLocation records a position fix and refreshes the last-active stamp.
func (s *DriverStore) SetLocation(id string, loc model.Coordinates, heading, speedKPH *float64, at time.Time) bool {
	if at.IsZero() {
		at = s.now()
	}
	return s.Update(id, model.DriverPatch{
		Location:     &loc,
		Heading:      heading,
		SpeedKPH:     speedKPH,
		LastActiveAt: &at,
	})
}

// SetStatus records an availability transition.
func (s *DriverStore) SetStatus(id string, status model.DriverStatus, available bool, currentTrip string) bool {
	at := s.now()
	return s.Update(id, model.DriverPatch{
		Status:       &status,
		Available:    &available,
		CurrentTrip:  &currentTrip,
		LastActiveAt: &at,
	})
}

// Remove deletes a driver by id, clearing a dangling selection.
func (s *DriverStore) Remove(id string) bool {
	removed := false
	now := s.now()
	s.apply(func(st driverState) driverState {
		idx := indexOfDriver(st.drivers, id)
		if idx == -1 {
			return st
		}
		drivers := append([]model.Driver(nil), st.drivers[:idx]...)
		st.drivers = append(drivers, st.drivers[idx+1:]...)
		if st.selectedID == id {
			st.selectedID = ""
		}
		st.lastUpdated = now
		removed = true
		return st
	})
	return removed
}

// Select marks a driver as focused; empty id clears.
func (s *DriverStore) Select(id string) bool {
	ok := false
	s.apply(func(st driverState) driverState {
		if id == "" {
			st.selectedID = ""
			ok = true
			return st
		}
		if indexOfDriver(st.drivers, id) == -1 {
			return st
		}
		st.selectedID = id
		ok = true
		return st
	})
	return ok
}

// Selected returns the focused driver, if any.
func (s *DriverStore) Selected() (model.Driver, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state.selectedID == "" {
		return model.Driver{}, false
	}
	idx := indexOfDriver(s.state.drivers, s.state.selectedID)
	if idx == -1 {
		return model.Driver{}, false
	}
	return s.state.drivers[idx], true
}

// Get returns a driver by id.
func (s *DriverStore) Get(id string) (model.Driver, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := indexOfDriver(s.state.drivers, id)
	if idx == -1 {
		return model.Driver{}, false
	}
	return s.state.drivers[idx], true
}

// Records returns a copy of the roster in insertion order.
func (s *DriverStore) Records() []model.Driver {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Driver(nil), s.state.drivers...)
}

// Filtered applies view criteria to the current roster.
func (s *DriverStore) Filtered(f DriverFilter) []model.Driver {
	return f.Apply(s.Records())
}

// Len returns the roster size.
func (s *DriverStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.drivers)
}

// SetLoading flips the bulk-load-in-progress flag.
func (s *DriverStore) SetLoading(v bool) {
	s.apply(func(st driverState) driverState {
		st.loading = v
		return st
	})
}

// Loading reports whether a bulk load is in progress.
func (s *DriverStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.loading
}

// LastUpdated returns the time of the most recent roster mutation.
func (s *DriverStore) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.lastUpdated
}

func indexOfDriver(drivers []model.Driver, id string) int {
	for i, d := range drivers {
		if d.ID == id {
			return i
		}
	}
	return -1
}
