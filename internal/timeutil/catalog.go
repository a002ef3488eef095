package timeutil

import "time"

// TimeSlot is one window of the fixed daily catalog.
type TimeSlot struct {
	ID    int
	Start Clock
	End   Clock
}

// Label renders "HH:mm - HH:mm".
func (s TimeSlot) Label() string {
	return s.Start.String() + " - " + s.End.String()
}

// Duration of the slot.
func (s TimeSlot) Duration() time.Duration {
	return time.Duration(s.End.Minutes()-s.Start.Minutes()) * time.Minute
}

// dayPlan describes the working day the catalog is cut from.
type dayPlan struct {
	Start      Clock
	End        Clock
	LunchStart Clock
	LunchEnd   Clock
	SlotLength time.Duration
}

var workingDay = dayPlan{
	Start:      Clock{Hour: 8},
	End:        Clock{Hour: 17},
	LunchStart: Clock{Hour: 12},
	LunchEnd:   Clock{Hour: 13},
	SlotLength: time.Hour,
}

var catalog = buildCatalog(workingDay)

// Workdays are the weekdays slots can be registered on, Monday first.
var Workdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

func buildCatalog(p dayPlan) []TimeSlot {
	step := int(p.SlotLength / time.Minute)
	lunchStart, lunchEnd := p.LunchStart.Minutes(), p.LunchEnd.Minutes()

	var out []TimeSlot
	for cursor := p.Start.Minutes(); cursor+step <= p.End.Minutes(); cursor += step {
		end := cursor + step
		// Skip lunch break
		if cursor < lunchEnd && lunchStart < end {
			continue
		}
		out = append(out, TimeSlot{
			ID:    len(out) + 1,
			Start: ClockFromMinutes(cursor),
			End:   ClockFromMinutes(end),
		})
	}
	return out
}

// DailySlots returns the catalog: 08:00-12:00 and 13:00-17:00 in one-hour windows.
func DailySlots() []TimeSlot {
	out := make([]TimeSlot, len(catalog))
	copy(out, catalog)
	return out
}

// SlotStartingAt looks up the catalog slot that starts at hour:00.
func SlotStartingAt(hour int) (TimeSlot, bool) {
	for _, s := range catalog {
		if s.Start.Hour == hour && s.Start.Minute == 0 {
			return s, true
		}
	}
	return TimeSlot{}, false
}

// SlotIndex returns the catalog position of the slot starting at hour, or -1.
func SlotIndex(hour int) int {
	for i, s := range catalog {
		if s.Start.Hour == hour {
			return i
		}
	}
	return -1
}

// IsWorkday reports whether wd is Monday through Friday.
func IsWorkday(wd time.Weekday) bool {
	return wd >= time.Monday && wd <= time.Friday
}
