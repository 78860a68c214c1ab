package data

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

// clockRegex requires a non-digit or the string edge on both sides of the time.
var clockRegex = regexp.MustCompile(`(?:^|\D)(2[0-3]|[01]?\d):([0-5]\d)(?::[0-5]\d)?(?:\D|$)`)

// TimeValue is a wall-clock time of day with minute precision.
type TimeValue struct {
	Hour   int
	Minute int
}

func NewTimeValue(hour, minute int) (TimeValue, error) {
	if hour < 0 || hour > 23 {
		return TimeValue{}, fmt.Errorf("hour %d out of range 0-23", hour)
	}
	if minute < 0 || minute > 59 {
		return TimeValue{}, fmt.Errorf("minute %d out of range 0-59", minute)
	}
	return TimeValue{Hour: hour, Minute: minute}, nil
}

// MustTime panics on invalid input; for tests and constants.
func MustTime(hour, minute int) TimeValue {
	tv, err := NewTimeValue(hour, minute)
	if err != nil {
		panic(err)
	}
	return tv
}

func (t TimeValue) MinuteOfDay() int {
	return t.Hour*60 + t.Minute
}

func (t TimeValue) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeValue) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("time value must be a string: %w", err)
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseClock reads an explicitly separated clock string such as "14:37",
// "9:05:12" or "2024-05-01 14:37". Seconds are ignored.
func ParseClock(s string) (TimeValue, error) {
	m := clockRegex.FindStringSubmatch(s)
	if m == nil {
		return TimeValue{}, fmt.Errorf("no HH:MM time in %q", s)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	return NewTimeValue(hour, minute)
}

// FormatOptional renders nil as the empty string.
func FormatOptional(t *TimeValue) string {
	if t == nil {
		return ""
	}
	return t.String()
}
