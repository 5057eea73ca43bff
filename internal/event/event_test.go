package event_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ridewire/dispatchsync/internal/event"
	"github.com/ridewire/dispatchsync/internal/model"
	"github.com/ridewire/dispatchsync/internal/testutil"
)

func TestDecodeTripUpdated(t *testing.T) {
	status := model.TripAssigned
	frame := testutil.Frame(t, event.KindTripUpdated, event.TripUpdated{
		TripID:    "t1",
		TripPatch: model.TripPatch{Status: &status},
	})

	evt, err := event.Decode(frame)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if evt.Kind != event.KindTripUpdated {
		t.Errorf("Kind = %s", evt.Kind)
	}
	if evt.TenantID != "tenant-metro" {
		t.Errorf("TenantID = %q", evt.TenantID)
	}

	p, ok := evt.Payload.(event.TripUpdated)
	if !ok {
		t.Fatalf("Payload type %T, want TripUpdated", evt.Payload)
	}
	if p.TripID != "t1" {
		t.Errorf("TripID = %q", p.TripID)
	}
	if p.Status == nil || *p.Status != model.TripAssigned {
		t.Errorf("Status = %v, want assigned", p.Status)
	}
	// Fields absent from the wire frame stay nil so merges leave them alone.
	if p.DriverID != nil {
		t.Errorf("DriverID = %v, want nil", p.DriverID)
	}
}

func TestDecodeAlertCreated(t *testing.T) {
	frame := testutil.Frame(t, event.KindAlertCreated, event.AlertCreated{
		Alert: testutil.NewAlert().WithSeverity(model.SeverityCritical).Build(),
	})

	evt, err := event.Decode(frame)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	p, ok := evt.Payload.(event.AlertCreated)
	if !ok {
		t.Fatalf("Payload type %T", evt.Payload)
	}
	if p.Alert.Severity != model.SeverityCritical {
		t.Errorf("Severity = %s", p.Alert.Severity)
	}
}

func TestDecodeDriverLocation(t *testing.T) {
	heading := 90.0
	frame := testutil.Frame(t, event.KindDriverLocation, event.DriverLocation{
		DriverID:   "d1",
		Location:   model.Coordinates{Latitude: 40.7, Longitude: -74.0},
		Heading:    &heading,
		ReportedAt: testutil.BaseTime,
	})

	evt, err := event.Decode(frame)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	p := evt.Payload.(event.DriverLocation)
	if p.DriverID != "d1" || p.Location.Latitude != 40.7 {
		t.Errorf("payload = %+v", p)
	}
}

func TestDecodePresenceKinds(t *testing.T) {
	for _, kind := range []event.Kind{event.KindPresenceJoin, event.KindPresenceLeave} {
		frame := testutil.Frame(t, kind, event.Presence{UserID: "u1"})
		evt, err := event.Decode(frame)
		if err != nil {
			t.Fatalf("Decode(%s) error: %v", kind, err)
		}
		if evt.Kind != kind {
			t.Errorf("Kind = %s, want %s", evt.Kind, kind)
		}
		if _, ok := evt.Payload.(event.Presence); !ok {
			t.Errorf("Payload type %T for %s", evt.Payload, kind)
		}
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	frame := testutil.Frame(t, event.Kind("surge_pricing_changed"), map[string]any{"zone": "midtown"})

	evt, err := event.Decode(frame)
	if !errors.Is(err, event.ErrUnknownKind) {
		t.Fatalf("Decode() error = %v, want ErrUnknownKind", err)
	}
	// Envelope metadata still comes back so wildcard routing can happen.
	if evt.Kind != event.Kind("surge_pricing_changed") {
		t.Errorf("Kind = %s", evt.Kind)
	}
	if evt.TenantID != "tenant-metro" {
		t.Errorf("TenantID = %q", evt.TenantID)
	}
	if len(evt.Raw) == 0 {
		t.Error("Raw frame not retained for unknown kind")
	}
}

func TestDecodeMalformedEnvelope(t *testing.T) {
	if _, err := event.Decode([]byte("{not json")); err == nil {
		t.Error("Decode accepted malformed JSON")
	}
}

func TestDecodeMalformedPayloadKeepsMetadata(t *testing.T) {
	frame := testutil.Frame(t, event.KindMetricsUpdated, "not an object")

	evt, err := event.Decode(frame)
	if !errors.Is(err, event.ErrMalformedPayload) {
		t.Fatalf("Decode() error = %v, want ErrMalformedPayload", err)
	}
	// Same contract as an unknown kind: metadata survives for wildcard routing.
	if evt.Kind != event.KindMetricsUpdated {
		t.Errorf("Kind = %s", evt.Kind)
	}
	if evt.TenantID != "tenant-metro" {
		t.Errorf("TenantID = %q", evt.TenantID)
	}
	if evt.Payload != nil {
		t.Errorf("Payload = %v, want nil", evt.Payload)
	}
	if len(evt.Raw) == 0 {
		t.Error("Raw frame not retained")
	}
}

func TestDecodeMissingTimestampDefaults(t *testing.T) {
	frame, err := json.Marshal(map[string]any{
		"type":    string(event.KindPresenceJoin),
		"payload": event.Presence{UserID: "u1"},
	})
	if err != nil {
		t.Fatal(err)
	}

	evt, err := event.Decode(frame)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if evt.Timestamp.IsZero() {
		t.Error("zero wire timestamp should be defaulted")
	}
}

func TestEncodeRoundTripsThroughDecode(t *testing.T) {
	frame, err := event.Encode(string(event.KindPresenceJoin), event.Presence{UserID: "u9", Name: "Dispatcher"})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	evt, err := event.Decode(frame)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	p := evt.Payload.(event.Presence)
	if p.UserID != "u9" || p.Name != "Dispatcher" {
		t.Errorf("payload = %+v", p)
	}
	if time.Since(evt.Timestamp) > time.Minute {
		t.Errorf("Timestamp = %v, want recent", evt.Timestamp)
	}
}
