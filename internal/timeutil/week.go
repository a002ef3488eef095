package timeutil

import (
	"fmt"
	"time"
)

// Week is one entry of the year's week selector.
type Week struct {
	Number int // ISO week number
	Year   int // ISO year
	Start  Date
	End    Date
	Label  string
}

// Contains reports whether d falls within the week.
func (w Week) Contains(d Date) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

// Workdays returns Monday through Friday of the week.
func (w Week) Workdays() []Date {
	days := make([]Date, len(Workdays))
	for i := range Workdays {
		days[i] = w.Start.AddDays(i)
	}
	return days
}

// StartOfWeek returns midnight of the Monday at or before t, in t's location.
func StartOfWeek(t time.Time) time.Time {
	d := StartOfWeekDate(DateOf(t))
	return d.In(t.Location())
}

// StartOfWeekDate returns the Monday at or before d.
func StartOfWeekDate(d Date) Date {
	wd := d.Weekday()
	if wd == time.Sunday {
		return d.AddDays(-6)
	}
	return d.AddDays(-(int(wd) - 1))
}

// WeekOf builds the week descriptor for the week containing d.
func WeekOf(d Date) Week {
	return weekIn(StartOfWeekDate(d), d.Year())
}

// weekIn labels the week starting at start as listed for calendar year.
// A week whose ISO year differs from year names that ISO year in its label.
func weekIn(start Date, year int) Week {
	end := start.AddDays(6)
	isoYear, number := start.ISOWeek()
	name := fmt.Sprintf("Week %d", number)
	if isoYear != year {
		name = fmt.Sprintf("Week %d/%d", number, isoYear)
	}
	return Week{
		Number: number,
		Year:   isoYear,
		Start:  start,
		End:    end,
		Label:  fmt.Sprintf("%s: %s - %s", name, start.DayMonth(), end.DayMonth()),
	}
}

// WeeksInYear lists the Monday-based weeks covering Jan 1 through Dec 31 of year.
// The first entry may start in December of the previous year.
func WeeksInYear(year int) []Week {
	first := StartOfWeekDate(NewDate(year, time.January, 1))
	last := NewDate(year, time.December, 31)

	var weeks []Week
	for start := first; !start.After(last); start = start.AddDays(7) {
		weeks = append(weeks, weekIn(start, year))
	}
	return weeks
}

// FindWeek returns the index of the week containing d, or -1.
func FindWeek(weeks []Week, d Date) int {
	for i, w := range weeks {
		if w.Contains(d) {
			return i
		}
	}
	return -1
}
