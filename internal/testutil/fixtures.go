// Package testutil provides shared test fixtures for consistent, realistic
// test data.
package testutil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ridewire/dispatchsync/internal/event"
	"github.com/ridewire/dispatchsync/internal/model"
)

// BaseTime anchors fixture timestamps so tests are deterministic.
var BaseTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// TripBuilder provides a fluent API for building test trips.
type TripBuilder struct {
	trip model.Trip
}

// NewTrip creates a TripBuilder with sensible defaults.
func NewTrip() *TripBuilder {
	return &TripBuilder{
		trip: model.Trip{
			ID:          "trip-001",
			TenantID:    "tenant-metro",
			Status:      model.TripRequested,
			RiderName:   "Alex Morgan",
			VehicleType: "economy",
			Pickup: model.Coordinates{
				Latitude:  40.7484,
				Longitude: -73.9857,
				Address:   "350 5th Ave",
			},
			Dropoff: model.Coordinates{
				Latitude:  40.7527,
				Longitude: -73.9772,
				Address:   "89 E 42nd St",
			},
			RequestedAt: BaseTime,
		},
	}
}

// WithID sets the trip id.
func (b *TripBuilder) WithID(id string) *TripBuilder {
	b.trip.ID = id
	return b
}

// WithStatus sets the trip status.
func (b *TripBuilder) WithStatus(s model.TripStatus) *TripBuilder {
	b.trip.Status = s
	return b
}

// WithRider sets the rider name.
func (b *TripBuilder) WithRider(name string) *TripBuilder {
	b.trip.RiderName = name
	return b
}

// WithDriver assigns a driver id.
func (b *TripBuilder) WithDriver(id string) *TripBuilder {
	b.trip.DriverID = id
	return b
}

// WithRequestedAt sets the request timestamp.
func (b *TripBuilder) WithRequestedAt(t time.Time) *TripBuilder {
	b.trip.RequestedAt = t
	return b
}

// WithFare sets the fare.
func (b *TripBuilder) WithFare(fare float64) *TripBuilder {
	b.trip.Fare = &fare
	return b
}

// Build returns the trip.
func (b *TripBuilder) Build() model.Trip {
	return b.trip
}

// DriverBuilder provides a fluent API for building test drivers.
type DriverBuilder struct {
	driver model.Driver
}

// NewDriver creates a DriverBuilder with sensible defaults.
func NewDriver() *DriverBuilder {
	return &DriverBuilder{
		driver: model.Driver{
			ID:           "driver-001",
			TenantID:     "tenant-metro",
			Name:         "Sam Reyes",
			Status:       model.DriverAvailable,
			Available:    true,
			Vehicle:      "Toyota Camry",
			VehicleType:  "economy",
			LastActiveAt: BaseTime,
		},
	}
}

// WithID sets the driver id.
func (b *DriverBuilder) WithID(id string) *DriverBuilder {
	b.driver.ID = id
	return b
}

// WithName sets the driver name.
func (b *DriverBuilder) WithName(name string) *DriverBuilder {
	b.driver.Name = name
	return b
}

// WithStatus sets status and the matching availability flag.
func (b *DriverBuilder) WithStatus(s model.DriverStatus) *DriverBuilder {
	b.driver.Status = s
	b.driver.Available = s == model.DriverAvailable
	return b
}

// Build returns the driver.
func (b *DriverBuilder) Build() model.Driver {
	return b.driver
}

// AlertBuilder provides a fluent API for building test alerts.
type AlertBuilder struct {
	alert model.Alert
}

// NewAlert creates an AlertBuilder with sensible defaults.
func NewAlert() *AlertBuilder {
	return &AlertBuilder{
		alert: model.Alert{
			ID:        "alert-001",
			TenantID:  "tenant-metro",
			Severity:  model.SeverityWarning,
			Category:  "sla",
			Title:     "Pickup wait exceeded",
			Message:   "trip-001 waiting over 10 minutes",
			CreatedAt: BaseTime,
		},
	}
}

// WithID sets the alert id.
func (b *AlertBuilder) WithID(id string) *AlertBuilder {
	b.alert.ID = id
	return b
}

// WithSeverity sets the severity.
func (b *AlertBuilder) WithSeverity(s model.AlertSeverity) *AlertBuilder {
	b.alert.Severity = s
	return b
}

// Read marks the alert as already read.
func (b *AlertBuilder) Read() *AlertBuilder {
	b.alert.Read = true
	return b
}

// Build returns the alert.
func (b *AlertBuilder) Build() model.Alert {
	return b.alert
}

// Frame marshals a wire frame for router and decode tests.
func Frame(t *testing.T, kind event.Kind, payload any) []byte {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshaling payload: %v", err)
	}
	frame, err := json.Marshal(event.Envelope{
		Type:      string(kind),
		Payload:   body,
		Timestamp: BaseTime,
		TenantID:  "tenant-metro",
	})
	if err != nil {
		t.Fatalf("marshaling envelope: %v", err)
	}
	return frame
}
