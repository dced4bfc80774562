package class

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is an upper-case day name as stored on leads and classes.
type Weekday string

const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
	Saturday  Weekday = "SATURDAY"
	Sunday    Weekday = "SUNDAY"
)

var fromTimeWeekday = map[time.Weekday]Weekday{
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Saturday,
	time.Sunday:    Sunday,
}

// WeekdayOf returns the Weekday of t.
func WeekdayOf(t time.Time) Weekday {
	return fromTimeWeekday[t.Weekday()]
}

// ParseWeekday accepts any casing and surrounding whitespace.
func ParseWeekday(s string) (Weekday, error) {
	d := Weekday(strings.ToUpper(strings.TrimSpace(s)))
	switch d {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return d, nil
	default:
		return "", fmt.Errorf("unknown weekday: %q", s)
	}
}

// Schedule is the recurring slot of a class.
type Schedule struct {
	DaysOfWeek []Weekday
	TimeSlot   string // e.g. "17:00"
}

// Includes reports whether date falls on a scheduled day. A schedule with no
// configured days runs every day.
func (s Schedule) Includes(date time.Time) bool {
	if len(s.DaysOfWeek) == 0 {
		return true
	}
	wd := WeekdayOf(date)
	for _, d := range s.DaysOfWeek {
		if d == wd {
			return true
		}
	}
	return false
}

const dateLayout = "2006-01-02"

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return DateOnly(t), nil
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
