package store

import (
	"sort"
	"strings"
	"time"

	"github.com/ridewire/dispatchsync/internal/model"
)

// Filters are a conjunction of their active criteria: a zero-valued field
// imposes no constraint. Apply is pure and re-derivable at any time from the
// current collection; results are never cached.

// TripSortField selects the trip sort key.
type TripSortField string

const (
	TripSortRequestedAt TripSortField = "requested_at"
	TripSortStatus      TripSortField = "status"
	TripSortRider       TripSortField = "rider"
	TripSortFare        TripSortField = "fare"
)

// TripFilter is the user-adjustable view over the trip collection.
type TripFilter struct {
	Statuses []model.TripStatus
	Search   string
	From     time.Time
	To       time.Time
	SortBy   TripSortField
	SortDesc bool
}

// Match reports whether one trip passes every active criterion.
func (f TripFilter) Match(t model.Trip) bool {
	if len(f.Statuses) > 0 && !containsTripStatus(f.Statuses, t.Status) {
		return false
	}
	if f.Search != "" && !matchesSearch(f.Search,
		t.ID, t.RiderName, t.DriverID, t.Pickup.Address, t.Dropoff.Address) {
		return false
	}
	if !f.From.IsZero() && t.RequestedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.RequestedAt.After(f.To) {
		return false
	}
	return true
}

// Apply filters then stably sorts a copy of trips. Ties keep insertion order.
func (f TripFilter) Apply(trips []model.Trip) []model.Trip {
	out := make([]model.Trip, 0, len(trips))
	for _, t := range trips {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	if f.SortBy == "" {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		if f.SortDesc {
			return lessTrip(f.SortBy, out[j], out[i])
		}
		return lessTrip(f.SortBy, out[i], out[j])
	})
	return out
}

func lessTrip(field TripSortField, a, b model.Trip) bool {
	switch field {
	case TripSortStatus:
		return a.Status < b.Status
	case TripSortRider:
		return a.RiderName < b.RiderName
	case TripSortFare:
		return fareOf(a) < fareOf(b)
	default:
		return a.RequestedAt.Before(b.RequestedAt)
	}
}

func fareOf(t model.Trip) float64 {
	if t.Fare == nil {
		return 0
	}
	return *t.Fare
}

// DriverFilter is the user-adjustable view over the driver roster.
type DriverFilter struct {
	Statuses   []model.DriverStatus
	OnlineOnly bool
	Search     string
	SortByName bool
	SortDesc   bool
}

// Match reports whether one driver passes every active criterion.
func (f DriverFilter) Match(d model.Driver) bool {
	if len(f.Statuses) > 0 && !containsDriverStatus(f.Statuses, d.Status) {
		return false
	}
	if f.OnlineOnly && d.Status == model.DriverOffline {
		return false
	}
	if f.Search != "" && !matchesSearch(f.Search, d.ID, d.Name, d.Vehicle) {
		return false
	}
	return true
}

// Apply filters then stably sorts a copy of the roster.
func (f DriverFilter) Apply(drivers []model.Driver) []model.Driver {
	out := make([]model.Driver, 0, len(drivers))
	for _, d := range drivers {
		if f.Match(d) {
			out = append(out, d)
		}
	}
	if f.SortByName {
		sort.SliceStable(out, func(i, j int) bool {
			if f.SortDesc {
				return out[j].Name < out[i].Name
			}
			return out[i].Name < out[j].Name
		})
	}
	return out
}

// AlertFilter is the user-adjustable view over the alert feed.
type AlertFilter struct {
	Severities []model.AlertSeverity
	UnreadOnly bool
	Search     string
	From       time.Time
	To         time.Time
}

// Match reports whether one alert passes every active criterion.
func (f AlertFilter) Match(a model.Alert) bool {
	if len(f.Severities) > 0 && !containsSeverity(f.Severities, a.Severity) {
		return false
	}
	if f.UnreadOnly && a.Read {
		return false
	}
	if f.Search != "" && !matchesSearch(f.Search, a.ID, a.Title, a.Message, a.Category) {
		return false
	}
	if !f.From.IsZero() && a.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && a.CreatedAt.After(f.To) {
		return false
	}
	return true
}

// Apply filters a copy of the feed, preserving newest-first order.
func (f AlertFilter) Apply(alerts []model.Alert) []model.Alert {
	out := make([]model.Alert, 0, len(alerts))
	for _, a := range alerts {
		if f.Match(a) {
			out = append(out, a)
		}
	}
	return out
}

// matchesSearch reports whether any field contains the needle,
// case-insensitively.
func matchesSearch(needle string, fields ...string) bool {
	needle = strings.ToLower(needle)
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func containsTripStatus(set []model.TripStatus, s model.TripStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func containsDriverStatus(set []model.DriverStatus, s model.DriverStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func containsSeverity(set []model.AlertSeverity, s model.AlertSeverity) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
