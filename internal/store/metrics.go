package store

import (
	"sync"
	"time"

	"github.com/ridewire/dispatchsync/internal/model"
)

// MetricsStore holds the singleton dashboard metrics snapshot. Updates
// replace the snapshot wholesale; there is no keyed collection.
type MetricsStore struct {
	mu          sync.RWMutex
	snapshot    model.MetricsSnapshot
	present     bool
	loading     bool
	lastErr     string
	lastUpdated time.Time
	watches     watchSet
	now         func() time.Time
}

// NewMetricsStore creates an empty metrics store.
func NewMetricsStore() *MetricsStore {
	return &MetricsStore{now: time.Now}
}

// Subscribe returns a watch signalled on every mutation.
func (s *MetricsStore) Subscribe() *Watch { return s.watches.subscribe() }

// Set replaces the snapshot and clears any previous load error.
func (s *MetricsStore) Set(snap model.MetricsSnapshot) {
	s.mu.Lock()
	s.snapshot = snap
	s.present = true
	s.loading = false
	s.lastErr = ""
	s.lastUpdated = s.now()
	s.mu.Unlock()
	s.watches.notify()
}

// Clear drops the snapshot, e.g. on tenant switch.
func (s *MetricsStore) Clear() {
	s.mu.Lock()
	s.snapshot = model.MetricsSnapshot{}
	s.present = false
	s.lastErr = ""
	s.lastUpdated = s.now()
	s.mu.Unlock()
	s.watches.notify()
}

// Snapshot returns the current snapshot and whether one has been set.
func (s *MetricsStore) Snapshot() (model.MetricsSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.present
}

// SetLoading flips the load-in-progress flag.
func (s *MetricsStore) SetLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
	s.watches.notify()
}

// Loading reports whether a load is in progress.
func (s *MetricsStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// SetError records a load failure for display.
func (s *MetricsStore) SetError(msg string) {
	s.mu.Lock()
	s.lastErr = msg
	s.loading = false
	s.mu.Unlock()
	s.watches.notify()
}

// Error returns the last recorded load failure, empty when healthy.
func (s *MetricsStore) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// LastUpdated returns the time of the most recent mutation.
func (s *MetricsStore) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}
