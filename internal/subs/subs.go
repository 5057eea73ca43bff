// Package subs decouples event consumers from the connection layer: any
// component may register a handler for one event kind or for the wildcard
// without knowing about the domain stores.
package subs

import (
	"log/slog"
	"sync"

	"github.com/ridewire/dispatchsync/internal/event"
)

// Handler receives one decoded event.
type Handler func(event.Event)

type registration struct {
	id      int
	handler Handler
}

// Registry is an ordered, kind-keyed handler table. Handlers registered for
// event.KindAny run after the kind-specific handlers on every dispatch.
type Registry struct {
	mu     sync.Mutex
	byKind map[event.Kind][]registration
	nextID int
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		byKind: make(map[event.Kind][]registration),
		logger: logger,
	}
}

// Subscribe registers a handler for one kind, or for every event via
// event.KindAny. The returned cancel removes exactly this registration and
// is safe to call more than once. A cancel invoked mid-dispatch takes effect
// from the next dispatch pass.
func (r *Registry) Subscribe(kind event.Kind, h Handler) (cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.byKind[kind] = append(r.byKind[kind], registration{id: id, handler: h})

	return func() { r.unsubscribe(kind, id) }
}

func (r *Registry) unsubscribe(kind event.Kind, id int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	regs := r.byKind[kind]
	for i, reg := range regs {
		if reg.id == id {
			r.byKind[kind] = append(regs[:i:i], regs[i+1:]...)
			return
		}
	}
}

// Dispatch invokes kind-specific handlers then wildcard handlers, each in
// registration order. A panicking handler is logged and skipped; the rest of
// the pass still runs. Dispatch iterates a snapshot of the handler lists so
// handlers may subscribe or unsubscribe freely from within their callbacks.
func (r *Registry) Dispatch(evt event.Event) {
	r.mu.Lock()
	handlers := make([]registration, 0, len(r.byKind[evt.Kind])+len(r.byKind[event.KindAny]))
	if evt.Kind != event.KindAny {
		handlers = append(handlers, r.byKind[evt.Kind]...)
	}
	handlers = append(handlers, r.byKind[event.KindAny]...)
	r.mu.Unlock()

	for _, reg := range handlers {
		r.invoke(reg, evt)
	}
}

func (r *Registry) invoke(reg registration, evt event.Event) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("subscriber panicked", "kind", evt.Kind, "panic", p)
		}
	}()
	reg.handler(evt)
}

// Count returns the number of live registrations for a kind, for tests and
// introspection.
func (r *Registry) Count(kind event.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byKind[kind])
}
