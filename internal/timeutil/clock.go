package timeutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTime is returned for time-of-day values that cannot be normalized.
var ErrInvalidTime = errors.New("invalid time of day")

// Clock is a wall-clock time of day with minute precision.
type Clock struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// NewClock validates hour and minute.
func NewClock(hour, minute int) (Clock, error) {
	c := Clock{Hour: hour, Minute: minute}
	if !c.Valid() {
		return Clock{}, fmt.Errorf("%w: %02d:%02d", ErrInvalidTime, hour, minute)
	}
	return c, nil
}

// ClockFromMinutes builds a Clock from minutes since midnight, wrapping at 24h.
func ClockFromMinutes(total int) Clock {
	total %= 24 * 60
	if total < 0 {
		total += 24 * 60
	}
	return Clock{Hour: total / 60, Minute: total % 60}
}

func (c Clock) Valid() bool {
	return c.Hour >= 0 && c.Hour < 24 && c.Minute >= 0 && c.Minute < 60
}

// Minutes returns minutes since midnight.
func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

// Add shifts the clock by d, wrapping around midnight.
func (c Clock) Add(d time.Duration) Clock {
	return ClockFromMinutes(c.Minutes() + int(d/time.Minute))
}

func (c Clock) Before(o Clock) bool {
	return c.Minutes() < o.Minutes()
}

// String renders "HH:mm".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts "HH:mm", "HH:mm:ss[.ffffff]" or {"hour":H,"minute":M}.
func (c *Clock) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidTime, err)
		}
		parsed, err := ParseTimeString(s)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	case '{':
		var raw struct {
			Hour   *int `json:"hour"`
			Minute *int `json:"minute"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidTime, err)
		}
		if raw.Hour == nil {
			return fmt.Errorf("%w: missing hour", ErrInvalidTime)
		}
		minute := 0
		if raw.Minute != nil {
			minute = *raw.Minute
		}
		parsed, err := NewClock(*raw.Hour, minute)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInvalidTime, string(data))
	}
}

// ParseTimeString parses "HH:mm" and "HH:mm:ss[.fraction]". Seconds are validated and dropped.
func ParseTimeString(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}

	hour, err := atoiDigits(parts[0], 2)
	if err != nil {
		return Clock{}, fmt.Errorf("%w: hour in %q", ErrInvalidTime, s)
	}
	minute, err := atoiDigits(parts[1], 2)
	if err != nil {
		return Clock{}, fmt.Errorf("%w: minute in %q", ErrInvalidTime, s)
	}
	if len(parts) == 3 {
		sec, err := strconv.ParseFloat(parts[2], 64)
		if err != nil || sec < 0 || sec >= 60 || strings.ContainsAny(parts[2], "eE+-") {
			return Clock{}, fmt.Errorf("%w: seconds in %q", ErrInvalidTime, s)
		}
	}
	return NewClock(hour, minute)
}

// ParseFlexibleTime normalizes the representations the API uses for a time of day:
// a string, a Clock, a decoded JSON object with hour/minute keys, or raw JSON.
func ParseFlexibleTime(v any) (Clock, error) {
	switch t := v.(type) {
	case string:
		return ParseTimeString(t)
	case Clock:
		return NewClock(t.Hour, t.Minute)
	case *Clock:
		if t == nil {
			return Clock{}, fmt.Errorf("%w: nil", ErrInvalidTime)
		}
		return NewClock(t.Hour, t.Minute)
	case map[string]any:
		hour, ok := toInt(t["hour"])
		if !ok {
			return Clock{}, fmt.Errorf("%w: missing hour", ErrInvalidTime)
		}
		minute, _ := toInt(t["minute"])
		return NewClock(hour, minute)
	case json.RawMessage:
		return clockFromJSON(t)
	case []byte:
		return clockFromJSON(t)
	default:
		return Clock{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidTime, v)
	}
}

func clockFromJSON(data []byte) (Clock, error) {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return Clock{}, fmt.Errorf("%w: empty", ErrInvalidTime)
	}
	var c Clock
	if err := c.UnmarshalJSON(data); err != nil {
		return Clock{}, err
	}
	return c, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}

func atoiDigits(s string, maxLen int) (int, error) {
	if s == "" || len(s) > maxLen {
		return 0, strconv.ErrSyntax
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}
