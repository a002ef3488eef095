// Package appointment models consultation appointments, their status machine
// and the time windows that gate consultant actions.
package appointment

import (
	"strings"
	"time"

	"counselportal/internal/timeutil"
)

// Status is the persisted appointment status, plus the derived display status StatusOngoing.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"

	// StatusOngoing is computed from the clock and never sent to the server.
	StatusOngoing Status = "ongoing"
)

// ParseStatus normalizes server spellings. "CANCELED" is folded into StatusCancelled.
func ParseStatus(s string) Status {
	switch up := strings.ToUpper(strings.TrimSpace(s)); up {
	case "CANCELED", "CANCELLED":
		return StatusCancelled
	case "ONGOING":
		return StatusOngoing
	default:
		return Status(up)
	}
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Persisted reports whether the server stores this status.
func (s Status) Persisted() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Appointment is the normalized form of a server appointment. Date and Time are
// already resolved from whichever wire representation the server used.
type Appointment struct {
	ID           string
	ConsultantID string

	CustomerName string
	Email        string
	PhoneNumber  string
	TopicName    string
	IsGuest      bool

	Date   timeutil.Date
	Time   timeutil.Clock
	Status Status

	CheckInTime  *time.Time
	CheckOutTime *time.Time

	ConsultantNote string
	CustomerReview string
	ReviewScore    *float64
	MeetLink       string

	// IsRegisteredSlot marks a placeholder built from a registered slot with no booking.
	IsRegisteredSlot bool
	SlotID           string
}

// StartsAt combines the normalized date and time in loc.
func (a Appointment) StartsAt(loc *time.Location) time.Time {
	return a.Date.At(a.Time, loc)
}

// EndsAt is StartsAt plus the fixed session length.
func (a Appointment) EndsAt(loc *time.Location) time.Time {
	return a.StartsAt(loc).Add(SessionLength)
}

// TimeRange renders "HH:mm - HH:mm".
func (a Appointment) TimeRange() string {
	return timeutil.FormatTimeRange(a.Time.Hour, a.Time.Minute, SessionLength)
}

// SameCell reports whether two entries occupy the same grid cell: same day and start hour.
func (a Appointment) SameCell(date timeutil.Date, hour int) bool {
	return a.Date.Equal(date) && a.Time.Hour == hour
}

// Before orders by date, then time of day.
func (a Appointment) Before(o Appointment) bool {
	if c := a.Date.Compare(o.Date); c != 0 {
		return c < 0
	}
	return a.Time.Before(o.Time)
}

// ValidReviewScore accepts 0..5 in steps of 0.5.
func ValidReviewScore(score float64) bool {
	if score < 0 || score > 5 {
		return false
	}
	doubled := score * 2
	return doubled == float64(int(doubled))
}

// DateRange bounds an appointment query. Both ends are inclusive.
type DateRange struct {
	From timeutil.Date
	To   timeutil.Date
}

// WeekRange covers Monday through Friday of w.
func WeekRange(w timeutil.Week) DateRange {
	return DateRange{From: w.Start, To: w.Start.AddDays(len(timeutil.Workdays) - 1)}
}

// ByID indexes appointments by id; later entries win.
func ByID(list []Appointment) map[string]Appointment {
	out := make(map[string]Appointment, len(list))
	for _, a := range list {
		out[a.ID] = a
	}
	return out
}

// Dedupe keeps the first occurrence of each id, preserving order.
func Dedupe(lists ...[]Appointment) []Appointment {
	seen := make(map[string]struct{})
	var out []Appointment
	for _, list := range lists {
		for _, a := range list {
			if _, ok := seen[a.ID]; ok {
				continue
			}
			seen[a.ID] = struct{}{}
			out = append(out, a)
		}
	}
	return out
}
