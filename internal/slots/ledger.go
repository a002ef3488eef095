// Package slots tracks the time slots a consultant has registered as available
// and lays them out with booked appointments on the weekly grid.
package slots

import (
	"sort"

	"counselportal/internal/appointment"
	"counselportal/internal/timeutil"
)

// Slot is a registered availability window. It carries no customer data.
type Slot struct {
	ID             string
	Date           timeutil.Date
	Start          timeutil.Clock
	End            timeutil.Clock
	ConsultantName string
}

// IsSlotRegistered reports whether any slot sits on date with the given start hour.
func IsSlotRegistered(date timeutil.Date, startHour int, slots []Slot) bool {
	for _, s := range slots {
		if s.Date.Equal(date) && s.Start.Hour == startHour {
			return true
		}
	}
	return false
}

// occupies reports whether a blocks its cell. Cancelled appointments free the cell.
func occupies(a appointment.Appointment) bool {
	return !a.IsRegisteredSlot && a.Status != appointment.StatusCancelled
}

// MergeSlotsAndAppointments returns the appointments plus one placeholder per
// registered slot whose cell holds no live appointment.
func MergeSlotsAndAppointments(appts []appointment.Appointment, slots []Slot) []appointment.Appointment {
	merged := append([]appointment.Appointment(nil), appts...)
	seen := make(map[string]struct{})

	for _, s := range slots {
		key := s.Date.String() + "|" + s.Start.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		booked := false
		for _, a := range appts {
			if occupies(a) && a.SameCell(s.Date, s.Start.Hour) {
				booked = true
				break
			}
		}
		if booked {
			continue
		}
		merged = append(merged, Placeholder(s))
	}
	return merged
}

// Placeholder converts a slot into an appointment-like grid entry.
func Placeholder(s Slot) appointment.Appointment {
	return appointment.Appointment{
		ID:               "slot-" + s.ID,
		SlotID:           s.ID,
		Date:             s.Date,
		Time:             s.Start,
		Status:           appointment.StatusConfirmed,
		IsRegisteredSlot: true,
	}
}

// CellKind orders what a grid cell shows; higher wins.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellCancelled
	CellRegistered
	CellBooked
)

func (k CellKind) String() string {
	switch k {
	case CellCancelled:
		return "cancelled"
	case CellRegistered:
		return "registered"
	case CellBooked:
		return "booked"
	default:
		return "empty"
	}
}

// Cell is one (day, slot) position of the week grid.
type Cell struct {
	Date        timeutil.Date
	Slot        timeutil.TimeSlot
	Kind        CellKind
	Appointment *appointment.Appointment
}

// Grid is the Monday-Friday by catalog-slot layout of a week.
// Cells are indexed [slot][day].
type Grid struct {
	Week  timeutil.Week
	Days  []timeutil.Date
	Slots []timeutil.TimeSlot
	Cells [][]Cell
}

// BuildGrid places merged entries into the week grid. Entries outside the
// week or the catalog are ignored.
func BuildGrid(week timeutil.Week, entries []appointment.Appointment) Grid {
	g := Grid{
		Week:  week,
		Days:  week.Workdays(),
		Slots: timeutil.DailySlots(),
	}
	g.Cells = make([][]Cell, len(g.Slots))
	for si, slot := range g.Slots {
		g.Cells[si] = make([]Cell, len(g.Days))
		for di, day := range g.Days {
			g.Cells[si][di] = Cell{Date: day, Slot: slot}
		}
	}

	sorted := append([]appointment.Appointment(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	for i := range sorted {
		a := sorted[i]
		day := a.Date.DaysSince(week.Start)
		si := timeutil.SlotIndex(a.Time.Hour)
		if day < 0 || day >= len(g.Days) || si < 0 {
			continue
		}
		kind := kindOf(a)
		cell := &g.Cells[si][day]
		if kind > cell.Kind {
			cell.Kind = kind
			cell.Appointment = &a
		}
	}
	return g
}

func kindOf(a appointment.Appointment) CellKind {
	switch {
	case a.IsRegisteredSlot:
		return CellRegistered
	case a.Status == appointment.StatusCancelled:
		return CellCancelled
	default:
		return CellBooked
	}
}

// Count returns how many cells have the given kind.
func (g Grid) Count(kind CellKind) int {
	n := 0
	for _, row := range g.Cells {
		for _, c := range row {
			if c.Kind == kind {
				n++
			}
		}
	}
	return n
}
