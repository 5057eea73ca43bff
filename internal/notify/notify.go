// Package notify holds ephemeral toast notifications for the dashboard.
// Timed auto-dismiss lives in a separate Scheduler so the store's mutations
// stay free of timer side effects.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level is the visual severity of a toast.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Toast is one ephemeral notification. Duration zero means it stays until
// dismissed.
type Toast struct {
	ID        string
	Level     Level
	Title     string
	Message   string
	Duration  time.Duration
	CreatedAt time.Time
}

// Store is the in-memory toast list. Added toasts are reported to the added
// hook (typically a Scheduler) after the mutation is visible.
type Store struct {
	mu     sync.RWMutex
	toasts []Toast
	added  func(Toast)
	now    func() time.Time
}

// NewStore creates a toast store. added may be nil; wiring a Scheduler later
// via OnAdd is the usual pattern since the scheduler needs the store first.
func NewStore(added func(Toast)) *Store {
	return &Store{added: added, now: time.Now}
}

// OnAdd sets the hook invoked after each Add, replacing any previous one.
func (s *Store) OnAdd(fn func(Toast)) {
	s.mu.Lock()
	s.added = fn
	s.mu.Unlock()
}

// Add assigns an id and creation time, inserts the toast, and reports it to
// the added hook. The assigned id is returned.
func (s *Store) Add(t Toast) string {
	t.ID = uuid.NewString()
	t.CreatedAt = s.now()

	s.mu.Lock()
	s.toasts = append(s.toasts, t)
	added := s.added
	s.mu.Unlock()

	if added != nil {
		added(t)
	}
	return t.ID
}

// Remove deletes a toast by id. Removing an id that already expired is a
// no-op.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.toasts {
		if t.ID == id {
			s.toasts = append(s.toasts[:i:i], s.toasts[i+1:]...)
			return true
		}
	}
	return false
}

// Active returns a copy of the visible toasts in insertion order.
func (s *Store) Active() []Toast {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Toast(nil), s.toasts...)
}

// Len returns the number of visible toasts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.toasts)
}

// Scheduler owns one timer per timed toast and removes the toast from its
// store when the timer fires. Dismissing early cancels the pending timer so
// repeated connect/dismiss cycles cannot accumulate timers.
type Scheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	store  *Store
}

// NewScheduler creates a scheduler bound to a store.
func NewScheduler(store *Store) *Scheduler {
	return &Scheduler{
		timers: make(map[string]*time.Timer),
		store:  store,
	}
}

// Track starts the auto-dismiss timer for a toast. Untimed toasts are
// ignored.
func (sc *Scheduler) Track(t Toast) {
	if t.Duration <= 0 {
		return
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if old, ok := sc.timers[t.ID]; ok {
		old.Stop()
	}
	id := t.ID
	sc.timers[id] = time.AfterFunc(t.Duration, func() {
		sc.Cancel(id)
		sc.store.Remove(id)
	})
}

// Cancel stops and forgets the timer for id, if any.
func (sc *Scheduler) Cancel(id string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if timer, ok := sc.timers[id]; ok {
		timer.Stop()
		delete(sc.timers, id)
	}
}

// Stop cancels every pending timer.
func (sc *Scheduler) Stop() {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	for id, timer := range sc.timers {
		timer.Stop()
		delete(sc.timers, id)
	}
}

// Pending returns the number of armed timers, for tests and introspection.
func (sc *Scheduler) Pending() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.timers)
}

// Dismiss removes a toast and cancels its pending timer, if any.
func (sc *Scheduler) Dismiss(id string) {
	sc.Cancel(id)
	sc.store.Remove(id)
}
