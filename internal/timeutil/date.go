package timeutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDate is returned for calendar dates that cannot be normalized.
var ErrInvalidDate = errors.New("invalid date")

const (
	// WireDateLayout is the DD/MM/YYYY form the API speaks.
	WireDateLayout = "02/01/2006"
	isoDateLayout  = "2006-01-02"
)

// Date is a calendar day without time or zone.
type Date struct {
	year  int
	month time.Month
	day   int
}

// NewDate builds a Date, normalizing overflow the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf takes the calendar day of t in its own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{year: y, month: m, day: d}
}

func (d Date) Year() int             { return d.year }
func (d Date) Month() time.Month     { return d.month }
func (d Date) Day() int              { return d.day }
func (d Date) IsZero() bool          { return d.year == 0 && d.month == 0 && d.day == 0 }
func (d Date) Weekday() time.Weekday { return d.utc().Weekday() }

// In returns midnight of the day in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, loc)
}

// At combines the day with a time of day in loc.
func (d Date) At(c Clock, loc *time.Location) time.Time {
	return time.Date(d.year, d.month, d.day, c.Hour, c.Minute, 0, 0, loc)
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.utc().AddDate(0, 0, n))
}

// Compare returns -1, 0 or 1.
func (d Date) Compare(o Date) int {
	switch {
	case d.year != o.year:
		return sign(d.year - o.year)
	case d.month != o.month:
		return sign(int(d.month) - int(o.month))
	default:
		return sign(d.day - o.day)
	}
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }
func (d Date) Equal(o Date) bool  { return d.Compare(o) == 0 }

// DaysSince returns the number of days from o to d.
func (d Date) DaysSince(o Date) int {
	return int(d.utc().Sub(o.utc()).Hours() / 24)
}

// ISOWeek returns the ISO 8601 year and week number of the day.
func (d Date) ISOWeek() (int, int) {
	return d.utc().ISOWeek()
}

// String renders the wire form DD/MM/YYYY.
func (d Date) String() string {
	return d.utc().Format(WireDateLayout)
}

// ISO renders YYYY-MM-DD.
func (d Date) ISO() string {
	return d.utc().Format(isoDateLayout)
}

// DayMonth renders DD/MM.
func (d Date) DayMonth() string {
	return d.utc().Format("02/01")
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	parsed, err := ParseFlexibleDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) utc() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

// ParseFlexibleDate accepts DD/MM/YYYY, YYYY-MM-DD or a full ISO timestamp.
// For timestamps the calendar day is taken as written, without zone conversion.
func ParseFlexibleDate(value string) (Date, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return Date{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}

	if strings.Contains(s, "/") {
		parts := strings.Split(s, "/")
		if len(parts) != 3 {
			return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
		}
		day, err1 := atoiDigits(parts[0], 2)
		month, err2 := atoiDigits(parts[1], 2)
		year, err3 := atoiDigits(parts[2], 4)
		if err1 != nil || err2 != nil || err3 != nil || len(parts[2]) != 4 {
			return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
		}
		return strictDate(year, time.Month(month), day, value)
	}

	if len(s) < len(isoDateLayout) {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	t, err := time.Parse(isoDateLayout, s[:len(isoDateLayout)])
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	if rest := s[len(isoDateLayout):]; rest != "" {
		if rest[0] != 'T' && rest[0] != ' ' {
			return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
		}
		if _, err := parseISOTimestamp(s); err != nil {
			return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
		}
	}
	return DateOf(t), nil
}

// ParseTimestamp reads server timestamps: "DD/MM/YYYY HH:mm:ss" or ISO 8601 with or without zone.
func ParseTimestamp(value string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(value)
	if t, err := time.ParseInLocation(WireDateLayout+" 15:04:05", s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05.999999999", "2006-01-02T15:04", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: timestamp %q", ErrInvalidDate, value)
}

func parseISOTimestamp(s string) (time.Time, error) {
	return ParseTimestamp(strings.Replace(s, " ", "T", 1), time.UTC)
}

func strictDate(year int, month time.Month, day int, raw string) (Date, error) {
	d := NewDate(year, month, day)
	if d.year != year || d.month != month || d.day != day {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return d, nil
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
