package appointment

import (
	"errors"
	"fmt"
	"time"
)

const (
	// SessionLength is the fixed length of a consultation.
	SessionLength = 60 * time.Minute
	// StartLead is how early a session may be started.
	StartLead = 10 * time.Minute
)

// ErrNotEligible is returned when an action's time window or status rule is not met.
var ErrNotEligible = errors.New("action not permitted now")

// Action is a consultant action on an appointment.
type Action string

const (
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
	ActionStatus   Action = "status"
)

// Eligibility says which actions are enabled at a given instant.
type Eligibility struct {
	Display      Status
	MinutesUntil int
	CanStart     bool
	CanComplete  bool
	CanCancel    bool
}

// Allows reports whether act is enabled.
func (e Eligibility) Allows(act Action) bool {
	switch act {
	case ActionStart:
		return e.CanStart
	case ActionComplete:
		return e.CanComplete
	case ActionCancel:
		return e.CanCancel
	default:
		return false
	}
}

// MinutesUntil is the whole minutes from now to start, truncated toward zero.
// It is negative once the start has passed by a full minute.
func MinutesUntil(start, now time.Time) int {
	return int(start.Sub(now) / time.Minute)
}

// DerivedStatus returns StatusOngoing for a CONFIRMED appointment when
// now is in [start, start+SessionLength), otherwise status unchanged.
func DerivedStatus(status Status, start, now time.Time) Status {
	if status != StatusConfirmed {
		return status
	}
	if !now.Before(start) && now.Before(start.Add(SessionLength)) {
		return StatusOngoing
	}
	return status
}

// Evaluate computes the display status and enabled actions for a at now.
// Registered slots without a booking never enable an action.
func Evaluate(a Appointment, now time.Time, loc *time.Location) Eligibility {
	start := a.StartsAt(loc)
	minutes := MinutesUntil(start, now)
	status := a.Status
	if a.IsRegisteredSlot {
		return Eligibility{Display: status, MinutesUntil: minutes}
	}

	return Eligibility{
		Display:      DerivedStatus(status, start, now),
		MinutesUntil: minutes,
		CanStart:     status == StatusConfirmed && minutes <= int(StartLead/time.Minute),
		CanComplete:  status == StatusConfirmed && !now.Before(start),
		CanCancel:    (status == StatusConfirmed || status == StatusPending) && minutes > 0,
	}
}

// Check returns ErrNotEligible when act is disabled for a at now.
func Check(a Appointment, act Action, now time.Time, loc *time.Location) error {
	if a.IsRegisteredSlot {
		return fmt.Errorf("%w: %s on an unbooked slot", ErrNotEligible, act)
	}
	e := Evaluate(a, now, loc)
	if e.Allows(act) {
		return nil
	}
	return fmt.Errorf("%w: %s on %s appointment %s (%d min to start)", ErrNotEligible, act, e.Display, a.ID, e.MinutesUntil)
}
