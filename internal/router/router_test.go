package router

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/ridewire/dispatchsync/internal/event"
	"github.com/ridewire/dispatchsync/internal/model"
	"github.com/ridewire/dispatchsync/internal/notify"
	"github.com/ridewire/dispatchsync/internal/subs"
	"github.com/ridewire/dispatchsync/internal/testutil"
)

func newTestRouter(opts ...Option) (*Router, Stores, *notify.Store, *subs.Registry) {
	stores := NewStores()
	toasts := notify.NewStore(nil)
	registry := subs.NewRegistry(slog.Default())
	return New(stores, toasts, registry, slog.Default(), opts...), stores, toasts, registry
}

func TestTripLifecycle(t *testing.T) {
	r, stores, _, _ := newTestRouter()

	stores.Trips.ReplaceAll(nil)
	stores.Trips.Add(testutil.NewTrip().WithID("t1").WithStatus(model.TripRequested).Build())

	status := model.TripAssigned
	r.Handle(testutil.Frame(t, event.KindTripUpdated, event.TripUpdated{
		TripID:    "t1",
		TripPatch: model.TripPatch{Status: &status},
	}))

	if stores.Trips.Len() != 1 {
		t.Fatalf("trip count = %d, want 1", stores.Trips.Len())
	}
	got, _ := stores.Trips.Get("t1")
	if got.Status != model.TripAssigned {
		t.Errorf("Status = %s, want assigned", got.Status)
	}
}

func TestTripRequestedPrependsAndToasts(t *testing.T) {
	r, stores, toasts, _ := newTestRouter()
	stores.Trips.Add(testutil.NewTrip().WithID("old").Build())

	r.Handle(testutil.Frame(t, event.KindTripRequested, event.TripRequested{
		Trip: testutil.NewTrip().WithID("fresh").Build(),
	}))

	if got := stores.Trips.Records()[0].ID; got != "fresh" {
		t.Errorf("first trip = %s, want fresh", got)
	}
	active := toasts.Active()
	if len(active) != 1 {
		t.Fatalf("toasts = %d, want 1", len(active))
	}
	if active[0].Level != notify.LevelInfo {
		t.Errorf("toast level = %s, want info", active[0].Level)
	}
}

func TestAlertToastSeverityMapping(t *testing.T) {
	tests := []struct {
		severity model.AlertSeverity
		want     notify.Level
	}{
		{model.SeverityCritical, notify.LevelError},
		{model.SeverityWarning, notify.LevelWarning},
		{model.SeverityInfo, notify.LevelWarning},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			r, stores, toasts, _ := newTestRouter()

			r.Handle(testutil.Frame(t, event.KindAlertCreated, event.AlertCreated{
				Alert: testutil.NewAlert().WithID("a1").WithSeverity(tt.severity).Build(),
			}))

			if stores.Alerts.UnreadCount() != 1 {
				t.Errorf("UnreadCount = %d, want 1", stores.Alerts.UnreadCount())
			}
			active := toasts.Active()
			if len(active) != 1 {
				t.Fatalf("toasts = %d, want 1", len(active))
			}
			if active[0].Level != tt.want {
				t.Errorf("toast level = %s, want %s", active[0].Level, tt.want)
			}
		})
	}
}

func TestDriverLocationAndStatusEvents(t *testing.T) {
	r, stores, _, _ := newTestRouter()
	stores.Drivers.Add(testutil.NewDriver().WithID("d1").Build())

	r.Handle(testutil.Frame(t, event.KindDriverLocation, event.DriverLocation{
		DriverID:   "d1",
		Location:   model.Coordinates{Latitude: 40.71, Longitude: -74.0},
		ReportedAt: testutil.BaseTime,
	}))
	r.Handle(testutil.Frame(t, event.KindDriverStatus, event.DriverStatus{
		DriverID:  "d1",
		Status:    model.DriverBusy,
		Available: false,
	}))

	got, _ := stores.Drivers.Get("d1")
	if got.Location == nil || got.Location.Latitude != 40.71 {
		t.Errorf("Location = %+v", got.Location)
	}
	if got.Status != model.DriverBusy {
		t.Errorf("Status = %s, want busy", got.Status)
	}
}

func TestMetricsReplacedWholesale(t *testing.T) {
	r, stores, _, _ := newTestRouter()
	stores.Metrics.Set(model.MetricsSnapshot{ActiveTrips: 99})

	r.Handle(testutil.Frame(t, event.KindMetricsUpdated, event.MetricsUpdated{
		Snapshot: model.MetricsSnapshot{AvailableDrivers: 7},
	}))

	snap, ok := stores.Metrics.Snapshot()
	if !ok {
		t.Fatal("snapshot missing")
	}
	if snap.ActiveTrips != 0 || snap.AvailableDrivers != 7 {
		t.Errorf("Snapshot = %+v, want wholesale replacement", snap)
	}
}

// TestSubscriberSeesUpdatedStore pins the dispatch order: the built-in store
// update runs before any subscriber, so a wildcard callback reading the store
// observes post-event state.
func TestSubscriberSeesUpdatedStore(t *testing.T) {
	r, stores, _, registry := newTestRouter()
	stores.Trips.Add(testutil.NewTrip().WithID("t1").WithStatus(model.TripRequested).Build())

	var seen model.TripStatus
	registry.Subscribe(event.KindAny, func(event.Event) {
		trip, _ := stores.Trips.Get("t1")
		seen = trip.Status
	})

	status := model.TripEnRoute
	r.Handle(testutil.Frame(t, event.KindTripUpdated, event.TripUpdated{
		TripID:    "t1",
		TripPatch: model.TripPatch{Status: &status},
	}))

	if seen != model.TripEnRoute {
		t.Errorf("wildcard subscriber saw status %q, want en_route", seen)
	}
}

func TestUnknownKindReachesWildcardOnly(t *testing.T) {
	r, stores, _, registry := newTestRouter()

	specific := 0
	wildcard := 0
	registry.Subscribe(event.KindTripUpdated, func(event.Event) { specific++ })
	registry.Subscribe(event.KindAny, func(event.Event) { wildcard++ })

	r.Handle(testutil.Frame(t, event.Kind("surge_pricing_changed"), map[string]any{"zone": "midtown"}))

	if specific != 0 {
		t.Errorf("kind-specific handler ran %d times for unknown kind", specific)
	}
	if wildcard != 1 {
		t.Errorf("wildcard handler ran %d times, want 1", wildcard)
	}
	if stores.Trips.Len() != 0 {
		t.Error("unknown kind mutated a store")
	}

	// The unknown event is still visible for introspection.
	last, ok := r.LastEvent()
	if !ok || last.Kind != event.Kind("surge_pricing_changed") {
		t.Errorf("LastEvent = %+v, %v", last, ok)
	}
}

func TestMalformedEnvelopeDropped(t *testing.T) {
	r, _, _, registry := newTestRouter()

	calls := 0
	registry.Subscribe(event.KindAny, func(event.Event) { calls++ })

	r.Handle([]byte("{broken"))

	if calls != 0 {
		t.Errorf("malformed frame reached %d subscribers", calls)
	}
	if _, ok := r.LastEvent(); ok {
		t.Error("malformed frame recorded as last event")
	}
}

// A recognized tag with an undecodable payload behaves like an unknown kind:
// no store action, wildcard subscribers only.
func TestUndecodablePayloadReachesWildcardOnly(t *testing.T) {
	r, stores, _, registry := newTestRouter()

	specific := 0
	wildcard := 0
	registry.Subscribe(event.KindTripUpdated, func(event.Event) { specific++ })
	registry.Subscribe(event.KindAny, func(event.Event) { wildcard++ })

	r.Handle(testutil.Frame(t, event.KindTripUpdated, "not-an-object"))

	if specific != 0 {
		t.Errorf("kind-specific handler ran %d times for undecodable payload", specific)
	}
	if wildcard != 1 {
		t.Errorf("wildcard handler ran %d times, want 1", wildcard)
	}
	if stores.Trips.Len() != 0 {
		t.Error("undecodable payload mutated a store")
	}

	last, ok := r.LastEvent()
	if !ok || last.Kind != event.KindTripUpdated || last.Payload != nil {
		t.Errorf("LastEvent = %+v, %v", last, ok)
	}
}

func TestHistoryRingIsBounded(t *testing.T) {
	r, _, _, _ := newTestRouter(WithHistorySize(3))

	for i := 0; i < 10; i++ {
		r.Handle(testutil.Frame(t, event.KindPresenceJoin, event.Presence{
			UserID: fmt.Sprintf("u%d", i),
		}))
	}

	history := r.History()
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	// Oldest entries evicted first.
	if got := history[0].Payload.(event.Presence).UserID; got != "u7" {
		t.Errorf("oldest retained = %s, want u7", got)
	}
	if got := history[2].Payload.(event.Presence).UserID; got != "u9" {
		t.Errorf("newest retained = %s, want u9", got)
	}
}

type captureJournal struct {
	entries []event.Event
	err     error
}

func (c *captureJournal) Append(_ context.Context, evt event.Event) error {
	c.entries = append(c.entries, evt)
	return c.err
}

func TestJournalReceivesEvents(t *testing.T) {
	jnl := &captureJournal{}
	r, _, _, _ := newTestRouter(WithJournal(jnl))

	r.Handle(testutil.Frame(t, event.KindPresenceJoin, event.Presence{UserID: "u1"}))

	if len(jnl.entries) != 1 {
		t.Fatalf("journal entries = %d, want 1", len(jnl.entries))
	}
	if jnl.entries[0].Kind != event.KindPresenceJoin {
		t.Errorf("journaled kind = %s", jnl.entries[0].Kind)
	}
}

func TestJournalFailureDoesNotBlockDispatch(t *testing.T) {
	jnl := &captureJournal{err: fmt.Errorf("disk full")}
	r, _, _, registry := newTestRouter(WithJournal(jnl))

	calls := 0
	registry.Subscribe(event.KindAny, func(event.Event) { calls++ })

	r.Handle(testutil.Frame(t, event.KindPresenceJoin, event.Presence{UserID: "u1"}))

	if calls != 1 {
		t.Errorf("dispatch suppressed by journal failure, calls = %d", calls)
	}
}
