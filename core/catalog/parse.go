package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Clock is a time of day, in minutes since midnight.
type Clock int

func NewClock(hour, min int) Clock { return Clock(hour*60 + min) }

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

// String formats the clock as 24h "15:04".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// Sub returns c - o as a duration.
func (c Clock) Sub(o Clock) time.Duration {
	return time.Duration(c-o) * time.Minute
}

// On returns the instant the clock points to on `day` in `loc`.
func (c Clock) On(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour(), c.Minute(), 0, 0, loc)
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

var errInvalidClock = errors.New("invalid time of day")

// ParseClock parses the catalog times ("10:10AM", "1:25PM") as well as 24h "13:25".
func ParseClock(s string) (Clock, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, errors.Wrap(errInvalidClock, "empty")
	}
	for _, layout := range []string{"3:04PM", "03:04PM", "3:04 PM", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewClock(t.Hour(), t.Minute()), nil
		}
	}
	return 0, errors.Wrap(errInvalidClock, s)
}

// ParsePattern converts a meeting pattern into weekdays. M T W R(Thursday) F S(Saturday) Su(Sunday).
// TBA, empty or unrecognized patterns have no days.
func ParsePattern(pattern string) []time.Weekday {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || strings.EqualFold(pattern, "TBA") {
		return nil
	}

	days := make([]time.Weekday, 0, len(pattern))
	seen := make(map[time.Weekday]bool, 7)
	add := func(d time.Weekday) {
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case 'M':
			add(time.Monday)
		case 'T':
			add(time.Tuesday)
		case 'W':
			add(time.Wednesday)
		case 'R':
			add(time.Thursday)
		case 'F':
			add(time.Friday)
		case 'S':
			if i+1 < len(pattern) && pattern[i+1] == 'u' {
				add(time.Sunday)
				i++
			} else {
				add(time.Saturday)
			}
		default:
			return nil
		}
	}
	return days
}

// ParseDate parses the catalog dates (MM/DD/YYYY). Empty dates are zero.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("01/02/2006", s)
	return t, errors.Wrap(err, "parsing date")
}
