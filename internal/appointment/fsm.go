package appointment

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when the status machine forbids a move.
var ErrInvalidTransition = errors.New("invalid status transition")

// Machine holds the allowed persisted status transitions.
// PENDING -> CONFIRMED happens in the booking flow outside this package but is still legal here.
type Machine struct {
	transitions map[Status][]Status
}

// NewMachine creates a machine with the appointment lifecycle.
func NewMachine() *Machine {
	return &Machine{
		transitions: map[Status][]Status{
			StatusPending:   {StatusConfirmed, StatusCancelled},
			StatusConfirmed: {StatusCompleted, StatusCancelled},
			StatusCompleted: nil,
			StatusCancelled: nil,
		},
	}
}

var lifecycle = NewMachine()

// CanTransition checks if transition is allowed. The derived ongoing status behaves as CONFIRMED.
func (m *Machine) CanTransition(from, to Status) bool {
	if from == StatusOngoing {
		from = StatusConfirmed
	}
	for _, s := range m.transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition moves a to the new status if allowed.
func (m *Machine) Transition(a *Appointment, to Status) error {
	if !m.CanTransition(a.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, to)
	}
	a.Status = to
	return nil
}

// Next lists the statuses reachable from s.
func (m *Machine) Next(s Status) []Status {
	if s == StatusOngoing {
		s = StatusConfirmed
	}
	return append([]Status(nil), m.transitions[s]...)
}

// CanTransition uses the default lifecycle.
func CanTransition(from, to Status) bool {
	return lifecycle.CanTransition(from, to)
}
