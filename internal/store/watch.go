// Package store holds the in-memory domain collections backing the dispatch
// dashboard: trips, drivers, alerts, and the live metrics snapshot. Each
// store applies pure transition functions to an immutable-by-convention
// snapshot and notifies watchers after every mutation.
package store

import "sync"

// Watch delivers a coalesced signal whenever its store mutates. The channel
// has a buffer of one; a reader that falls behind sees a single pending
// signal rather than a backlog.
type Watch struct {
	once   sync.Once
	cancel func()
	events chan struct{}
}

// Events returns the signal channel. It is closed when the watch is closed.
func (w *Watch) Events() <-chan struct{} {
	if w == nil {
		return nil
	}
	return w.events
}

// Close detaches the watch from its store. Safe to call more than once.
func (w *Watch) Close() {
	if w == nil {
		return
	}
	w.once.Do(w.cancel)
}

// watchSet tracks the watchers of a single store. It carries its own lock so
// notification never runs under the store's snapshot lock.
type watchSet struct {
	mu   sync.Mutex
	subs map[int]chan struct{}
	next int
}

func (ws *watchSet) subscribe() *Watch {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.subs == nil {
		ws.subs = make(map[int]chan struct{})
	}
	id := ws.next
	ws.next++
	ch := make(chan struct{}, 1)
	ws.subs[id] = ch
	return &Watch{
		cancel: func() { ws.remove(id) },
		events: ch,
	}
}

func (ws *watchSet) remove(id int) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ch, ok := ws.subs[id]; ok {
		delete(ws.subs, id)
		close(ch)
	}
}

func (ws *watchSet) notify() {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	for _, ch := range ws.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
