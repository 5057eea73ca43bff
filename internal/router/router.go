// Package router classifies inbound events and dispatches each one along two
// tracks: the built-in domain-store update, then every matching subscriber.
// Store updates always complete before subscribers run, so a subscriber
// reading a store from its callback sees the post-event state.
package router

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ridewire/dispatchsync/internal/event"
	"github.com/ridewire/dispatchsync/internal/model"
	"github.com/ridewire/dispatchsync/internal/notify"
	"github.com/ridewire/dispatchsync/internal/store"
	"github.com/ridewire/dispatchsync/internal/subs"
)

// DefaultHistorySize bounds the in-memory event ring.
const DefaultHistorySize = 64

// Journal persists events for replay tooling. Append failures are logged,
// never propagated into the dispatch path.
type Journal interface {
	Append(ctx context.Context, evt event.Event) error
}

// Stores bundles the domain stores the router feeds.
type Stores struct {
	Trips   *store.TripStore
	Drivers *store.DriverStore
	Alerts  *store.AlertStore
	Metrics *store.MetricsStore
}

// NewStores constructs a full, empty store bundle.
func NewStores() Stores {
	return Stores{
		Trips:   store.NewTripStore(),
		Drivers: store.NewDriverStore(),
		Alerts:  store.NewAlertStore(),
		Metrics: store.NewMetricsStore(),
	}
}

// Router owns the type-tag → store-action mapping.
type Router struct {
	stores   Stores
	registry *subs.Registry
	toasts   *notify.Store
	journal  Journal
	logger   *slog.Logger

	mu      sync.Mutex
	last    *event.Event
	history []event.Event
	histCap int
}

// Option adjusts router construction.
type Option func(*Router)

// WithJournal attaches a persistent event journal.
func WithJournal(j Journal) Option {
	return func(r *Router) { r.journal = j }
}

// WithHistorySize overrides the event ring capacity.
func WithHistorySize(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.histCap = n
		}
	}
}

// New creates a router feeding the given stores, toast store, and registry.
func New(stores Stores, toasts *notify.Store, registry *subs.Registry, logger *slog.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		stores:   stores,
		registry: registry,
		toasts:   toasts,
		logger:   logger,
		histCap:  DefaultHistorySize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle decodes one wire frame and dispatches it. Unrecognized type tags and
// undecodable payloads are logged and still reach wildcard subscribers; only
// frames whose envelope does not parse are dropped.
func (r *Router) Handle(raw []byte) {
	evt, err := event.Decode(raw)
	if err != nil {
		switch {
		case errors.Is(err, event.ErrUnknownKind):
			r.logger.Warn("unhandled event kind", "kind", evt.Kind)
		case errors.Is(err, event.ErrMalformedPayload):
			r.logger.Warn("undecodable event payload", "kind", evt.Kind, "error", err)
		default:
			r.logger.Warn("dropping malformed event", "error", err)
			return
		}
		r.record(evt)
		r.registry.Dispatch(evt)
		return
	}

	r.record(evt)
	r.applyBuiltin(evt)
	r.registry.Dispatch(evt)
}

// applyBuiltin performs the built-in store action for a recognized event.
// The switch is exhaustive over the payload variants.
func (r *Router) applyBuiltin(evt event.Event) {
	switch p := evt.Payload.(type) {
	case event.TripUpdated:
		r.stores.Trips.Update(p.TripID, p.TripPatch)

	case event.TripRequested:
		r.stores.Trips.Add(p.Trip)
		r.toast(notify.LevelInfo, "New trip request",
			p.Trip.RiderName+" → "+p.Trip.Dropoff.Address)

	case event.DriverLocation:
		r.stores.Drivers.SetLocation(p.DriverID, p.Location, p.Heading, p.SpeedKPH, p.ReportedAt)

	case event.DriverStatus:
		r.stores.Drivers.SetStatus(p.DriverID, p.Status, p.Available, p.CurrentTrip)

	case event.AlertCreated:
		r.stores.Alerts.Add(p.Alert)
		level := notify.LevelWarning
		if p.Alert.Severity == model.SeverityCritical {
			level = notify.LevelError
		}
		r.toast(level, p.Alert.Title, p.Alert.Message)

	case event.MetricsUpdated:
		r.stores.Metrics.Set(p.Snapshot)

	case event.Presence:
		// Presence has no backing store; subscribers only.
	}
}

func (r *Router) toast(level notify.Level, title, message string) {
	if r.toasts == nil {
		return
	}
	r.toasts.Add(notify.Toast{
		Level:    level,
		Title:    title,
		Message:  message,
		Duration: 5 * time.Second,
	})
}

// record retains the event for introspection: the single most recent event,
// a bounded ring of history, and the optional journal.
func (r *Router) record(evt event.Event) {
	r.mu.Lock()
	r.last = &evt
	r.history = append(r.history, evt)
	if len(r.history) > r.histCap {
		r.history = append(r.history[:0:0], r.history[len(r.history)-r.histCap:]...)
	}
	r.mu.Unlock()

	if r.journal != nil {
		if err := r.journal.Append(context.Background(), evt); err != nil {
			r.logger.Warn("journal append failed", "kind", evt.Kind, "error", err)
		}
	}
}

// LastEvent returns the most recently handled event, if any.
func (r *Router) LastEvent() (event.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return event.Event{}, false
	}
	return *r.last, true
}

// History returns a copy of the bounded event ring, oldest first.
func (r *Router) History() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Event(nil), r.history...)
}
