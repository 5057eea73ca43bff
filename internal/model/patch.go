package model

import "time"

// TripPatch is a partial trip update. Nil fields leave the record untouched;
// Apply returns the merged copy and never mutates its receiver's argument.
type TripPatch struct {
	Status      *TripStatus  `json:"status,omitempty"`
	DriverID    *string      `json:"driver_id,omitempty"`
	VehicleType *string      `json:"vehicle_type,omitempty"`
	Pickup      *Coordinates `json:"pickup,omitempty"`
	Dropoff     *Coordinates `json:"dropoff,omitempty"`
	Fare        *float64     `json:"fare,omitempty"`
	AssignedAt  *time.Time   `json:"assigned_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// Apply merges the patch into a copy of t.
func (p TripPatch) Apply(t Trip) Trip {
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.DriverID != nil {
		t.DriverID = *p.DriverID
	}
	if p.VehicleType != nil {
		t.VehicleType = *p.VehicleType
	}
	if p.Pickup != nil {
		t.Pickup = *p.Pickup
	}
	if p.Dropoff != nil {
		t.Dropoff = *p.Dropoff
	}
	if p.Fare != nil {
		t.Fare = p.Fare
	}
	if p.AssignedAt != nil {
		t.AssignedAt = p.AssignedAt
	}
	if p.CompletedAt != nil {
		t.CompletedAt = p.CompletedAt
	}
	return t
}

// DriverPatch is a partial driver update.
type DriverPatch struct {
	Name         *string       `json:"name,omitempty"`
	Status       *DriverStatus `json:"status,omitempty"`
	Available    *bool         `json:"available,omitempty"`
	Vehicle      *string       `json:"vehicle,omitempty"`
	Location     *Coordinates  `json:"location,omitempty"`
	Heading      *float64      `json:"heading,omitempty"`
	SpeedKPH     *float64      `json:"speed_kph,omitempty"`
	CurrentTrip  *string       `json:"current_trip,omitempty"`
	LastActiveAt *time.Time    `json:"last_active_at,omitempty"`
}

// Apply merges the patch into a copy of d.
func (p DriverPatch) Apply(d Driver) Driver {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Status != nil {
		d.Status = *p.Status
	}
	if p.Available != nil {
		d.Available = *p.Available
	}
	if p.Vehicle != nil {
		d.Vehicle = *p.Vehicle
	}
	if p.Location != nil {
		d.Location = p.Location
	}
	if p.Heading != nil {
		d.Heading = p.Heading
	}
	if p.SpeedKPH != nil {
		d.SpeedKPH = p.SpeedKPH
	}
	if p.CurrentTrip != nil {
		d.CurrentTrip = *p.CurrentTrip
	}
	if p.LastActiveAt != nil {
		d.LastActiveAt = *p.LastActiveAt
	}
	return d
}

// AlertPatch is a partial alert update.
type AlertPatch struct {
	Severity *AlertSeverity `json:"severity,omitempty"`
	Title    *string        `json:"title,omitempty"`
	Message  *string        `json:"message,omitempty"`
	Read     *bool          `json:"read,omitempty"`
}

// Apply merges the patch into a copy of a.
func (p AlertPatch) Apply(a Alert) Alert {
	if p.Severity != nil {
		a.Severity = *p.Severity
	}
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Message != nil {
		a.Message = *p.Message
	}
	if p.Read != nil {
		a.Read = *p.Read
	}
	return a
}
