package timeutil

import "time"

// DefaultSessionLength is the length of one consultation.
const DefaultSessionLength = 60 * time.Minute

// FormatTimeRange renders "HH:mm - HH:mm" starting at hour:minute.
// A non-positive duration means DefaultSessionLength.
func FormatTimeRange(hour, minute int, duration time.Duration) string {
	if duration <= 0 {
		duration = DefaultSessionLength
	}
	start := ClockFromMinutes(hour*60 + minute)
	return start.String() + " - " + start.Add(duration).String()
}
