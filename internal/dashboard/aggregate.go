// Package dashboard reduces a consultant's appointments into chart buckets,
// a status tally and the upcoming list.
package dashboard

import (
	"sort"

	"counselportal/internal/appointment"
	"counselportal/internal/timeutil"
)

// WeekdayLabels name the weekly buckets, Monday first.
var WeekdayLabels = [7]string{"T2", "T3", "T4", "T5", "T6", "T7", "CN"}

// MonthWeekLabels name the monthly buckets.
var MonthWeekLabels = [4]string{"Tuần 1", "Tuần 2", "Tuần 3", "Tuần 4"}

// Tally counts appointments by status. Pending comes from the unassigned queue.
type Tally struct {
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

func counted(a appointment.Appointment) bool {
	return a.Status == appointment.StatusConfirmed || a.Status == appointment.StatusCompleted
}

// WeeklyCounts buckets confirmed and completed appointments of the week
// containing today, Monday through Sunday.
func WeeklyCounts(list []appointment.Appointment, today timeutil.Date) [7]int {
	var out [7]int
	start := timeutil.StartOfWeekDate(today)
	for _, a := range list {
		if !counted(a) {
			continue
		}
		idx := a.Date.DaysSince(start)
		if idx < 0 || idx >= 7 {
			continue
		}
		out[idx]++
	}
	return out
}

// MonthlyCounts buckets confirmed and completed appointments of today's month
// by week of month. Days 29 and later fall into the fourth bucket.
func MonthlyCounts(list []appointment.Appointment, today timeutil.Date) [4]int {
	var out [4]int
	for _, a := range list {
		if !counted(a) || a.Date.Year() != today.Year() || a.Date.Month() != today.Month() {
			continue
		}
		idx := (a.Date.Day() - 1) / 7
		if idx > 3 {
			idx = 3
		}
		out[idx]++
	}
	return out
}

// CountStatuses tallies list. The cancelled count includes both spellings
// because ParseStatus already folded them.
func CountStatuses(list []appointment.Appointment, pending int) Tally {
	t := Tally{Pending: pending}
	for _, a := range list {
		switch a.Status {
		case appointment.StatusConfirmed:
			t.Confirmed++
		case appointment.StatusCompleted:
			t.Completed++
		case appointment.StatusCancelled:
			t.Cancelled++
		}
	}
	return t
}

// Upcoming returns the confirmed appointments ordered by date and time.
func Upcoming(list []appointment.Appointment) []appointment.Appointment {
	var out []appointment.Appointment
	for _, a := range list {
		if a.Status == appointment.StatusConfirmed && !a.IsRegisteredSlot {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
