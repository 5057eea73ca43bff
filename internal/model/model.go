// Package model defines the client-side records cached from the dispatch backend.
package model

import "time"

// TripStatus is the lifecycle state of a trip.
type TripStatus string

const (
	TripRequested  TripStatus = "requested"
	TripAssigned   TripStatus = "assigned"
	TripEnRoute    TripStatus = "en_route"
	TripArrived    TripStatus = "arrived"
	TripInProgress TripStatus = "in_progress"
	TripCompleted  TripStatus = "completed"
	TripCancelled  TripStatus = "cancelled"
)

// DriverStatus is the roster state of a driver.
type DriverStatus string

const (
	DriverOffline   DriverStatus = "offline"
	DriverAvailable DriverStatus = "available"
	DriverBusy      DriverStatus = "busy"
	DriverEnRoute   DriverStatus = "en_route"
)

// AlertSeverity orders operational alerts for triage.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// Coordinates is a GPS point with an optional resolved address.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// Trip is one ride from request through completion.
type Trip struct {
	ID          string      `json:"id"`
	TenantID    string      `json:"tenant_id"`
	Status      TripStatus  `json:"status"`
	RiderName   string      `json:"rider_name"`
	RiderPhone  string      `json:"rider_phone,omitempty"`
	DriverID    string      `json:"driver_id,omitempty"`
	VehicleType string      `json:"vehicle_type,omitempty"` // economy, premium, xl
	Pickup      Coordinates `json:"pickup"`
	Dropoff     Coordinates `json:"dropoff"`
	Fare        *float64    `json:"fare,omitempty"`
	RequestedAt time.Time   `json:"requested_at"`
	AssignedAt  *time.Time  `json:"assigned_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// Driver is one roster entry with its last known position.
type Driver struct {
	ID           string       `json:"id"`
	TenantID     string       `json:"tenant_id"`
	Name         string       `json:"name"`
	Phone        string       `json:"phone,omitempty"`
	Status       DriverStatus `json:"status"`
	Available    bool         `json:"available"`
	Vehicle      string       `json:"vehicle,omitempty"`
	VehicleType  string       `json:"vehicle_type,omitempty"`
	Rating       *float64     `json:"rating,omitempty"`
	Location     *Coordinates `json:"location,omitempty"`
	Heading      *float64     `json:"heading,omitempty"` // degrees, 0-360
	SpeedKPH     *float64     `json:"speed_kph,omitempty"`
	CurrentTrip  string       `json:"current_trip,omitempty"`
	LastActiveAt time.Time    `json:"last_active_at"`
}

// Alert is an operational notice pushed by the backend.
type Alert struct {
	ID        string        `json:"id"`
	TenantID  string        `json:"tenant_id"`
	Severity  AlertSeverity `json:"severity"`
	Category  string        `json:"category,omitempty"` // sla, safety, system
	Title     string        `json:"title"`
	Message   string        `json:"message,omitempty"`
	TripID    string        `json:"trip_id,omitempty"`
	DriverID  string        `json:"driver_id,omitempty"`
	Read      bool          `json:"read"`
	CreatedAt time.Time     `json:"created_at"`
}

// MetricsSnapshot is the dashboard's live counters, replaced wholesale on
// every metrics event rather than merged.
type MetricsSnapshot struct {
	ActiveTrips      int       `json:"active_trips"`
	PendingRequests  int       `json:"pending_requests"`
	AvailableDrivers int       `json:"available_drivers"`
	OnlineDrivers    int       `json:"online_drivers"`
	CompletedToday   int       `json:"completed_today"`
	CancelledToday   int       `json:"cancelled_today"`
	AvgWaitSeconds   float64   `json:"avg_wait_seconds"`
	RevenueToday     float64   `json:"revenue_today"`
	GeneratedAt      time.Time `json:"generated_at"`
}
