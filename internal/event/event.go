// Package event defines the wire format shared with the dispatch backend:
// an envelope carrying a type tag plus a type-specific payload. Decoding
// produces a closed set of payload variants so downstream switches can be
// checked for exhaustiveness.
package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ridewire/dispatchsync/internal/model"
)

// Kind is the type tag discriminating inbound event payloads.
type Kind string

const (
	KindTripUpdated    Kind = "trip_updated"
	KindTripRequested  Kind = "trip_requested"
	KindDriverLocation Kind = "driver_location"
	KindDriverStatus   Kind = "driver_status"
	KindAlertCreated   Kind = "alert_created"
	KindMetricsUpdated Kind = "metrics_updated"
	KindPresenceJoin   Kind = "presence_join"
	KindPresenceLeave  Kind = "presence_leave"

	// KindAny is the wildcard tag for subscribers that want every event.
	// It never appears on the wire.
	KindAny Kind = "*"
)

// ErrUnknownKind marks an envelope whose type tag is not in the closed set.
var ErrUnknownKind = errors.New("unknown event kind")

// ErrMalformedPayload marks an envelope whose type tag is recognized but whose
// payload does not decode. The envelope metadata is still returned so callers
// can route the frame to wildcard subscribers.
var ErrMalformedPayload = errors.New("malformed event payload")

// Payload is implemented by every decoded event body.
type Payload interface {
	kind() Kind
}

// TripUpdated carries a partial update for an existing trip.
type TripUpdated struct {
	TripID string `json:"id"`
	model.TripPatch
}

// TripRequested carries a brand-new trip awaiting assignment.
type TripRequested struct {
	Trip model.Trip `json:"trip"`
}

// DriverLocation carries a position fix for one driver.
type DriverLocation struct {
	DriverID   string            `json:"driver_id"`
	Location   model.Coordinates `json:"location"`
	Heading    *float64          `json:"heading,omitempty"`
	SpeedKPH   *float64          `json:"speed_kph,omitempty"`
	ReportedAt time.Time         `json:"reported_at"`
}

// DriverStatus carries a driver's availability transition.
type DriverStatus struct {
	DriverID    string             `json:"driver_id"`
	Status      model.DriverStatus `json:"status"`
	Available   bool               `json:"available"`
	CurrentTrip string             `json:"current_trip,omitempty"`
}

// AlertCreated carries a freshly raised operational alert.
type AlertCreated struct {
	Alert model.Alert `json:"alert"`
}

// MetricsUpdated carries a full replacement metrics snapshot.
type MetricsUpdated struct {
	Snapshot model.MetricsSnapshot `json:"snapshot"`
}

// Presence reports a dispatcher joining or leaving the tenant room.
type Presence struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
}

func (TripUpdated) kind() Kind    { return KindTripUpdated }
func (TripRequested) kind() Kind  { return KindTripRequested }
func (DriverLocation) kind() Kind { return KindDriverLocation }
func (DriverStatus) kind() Kind   { return KindDriverStatus }
func (AlertCreated) kind() Kind   { return KindAlertCreated }
func (MetricsUpdated) kind() Kind { return KindMetricsUpdated }

// Presence serves both join and leave; the Kind on the Event disambiguates.
func (Presence) kind() Kind { return KindPresenceJoin }

// Envelope is the raw wire frame before payload decoding.
type Envelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
	TenantID  string          `json:"tenant_id,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
}

// Event is a decoded inbound event. Payload is nil only when Kind is
// unrecognized or the payload failed to decode; Raw always holds the original
// frame for wildcard consumers and the journal.
type Event struct {
	Kind      Kind
	Payload   Payload
	Timestamp time.Time
	TenantID  string
	UserID    string
	Raw       json.RawMessage
}

// Decode parses a wire frame into a typed Event. An unrecognized type tag or
// an undecodable payload returns the envelope metadata alongside
// ErrUnknownKind or ErrMalformedPayload so callers can still route the frame
// to wildcard subscribers; only an unparseable envelope yields a zero Event.
func Decode(raw []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, fmt.Errorf("decoding envelope: %w", err)
	}

	evt := Event{
		Kind:      Kind(env.Type),
		Timestamp: env.Timestamp,
		TenantID:  env.TenantID,
		UserID:    env.UserID,
		Raw:       append(json.RawMessage(nil), raw...),
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	var err error
	switch evt.Kind {
	case KindTripUpdated:
		var p TripUpdated
		err = json.Unmarshal(env.Payload, &p)
		evt.Payload = p
	case KindTripRequested:
		var p TripRequested
		err = json.Unmarshal(env.Payload, &p)
		evt.Payload = p
	case KindDriverLocation:
		var p DriverLocation
		err = json.Unmarshal(env.Payload, &p)
		evt.Payload = p
	case KindDriverStatus:
		var p DriverStatus
		err = json.Unmarshal(env.Payload, &p)
		evt.Payload = p
	case KindAlertCreated:
		var p AlertCreated
		err = json.Unmarshal(env.Payload, &p)
		evt.Payload = p
	case KindMetricsUpdated:
		var p MetricsUpdated
		err = json.Unmarshal(env.Payload, &p)
		evt.Payload = p
	case KindPresenceJoin, KindPresenceLeave:
		var p Presence
		err = json.Unmarshal(env.Payload, &p)
		evt.Payload = p
	case KindAny:
		return evt, fmt.Errorf("%w: %q is reserved", ErrUnknownKind, env.Type)
	default:
		return evt, fmt.Errorf("%w: %q", ErrUnknownKind, env.Type)
	}
	if err != nil {
		evt.Payload = nil
		return evt, fmt.Errorf("%w: decoding %s payload: %v", ErrMalformedPayload, evt.Kind, err)
	}
	return evt, nil
}

// Encode builds an outbound wire frame.
func Encode(msgType string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", msgType, err)
	}
	return json.Marshal(Envelope{
		Type:      msgType,
		Payload:   body,
		Timestamp: time.Now(),
	})
}
