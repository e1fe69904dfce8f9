package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// DateLayout is the wire format for calendar dates ("YYYY-MM-DD").
const DateLayout = "2006-01-02"

// Date is a calendar day with no time-of-day component.
type Date struct {
	civil.Date
}

// NewDate builds a Date from its parts.
func NewDate(year int, month time.Month, day int) Date {
	return Date{civil.Date{Year: year, Month: month, Day: day}}
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	return Date{civil.DateOf(t)}
}

// ParseDate accepts "YYYY-MM-DD" and, for older records, full RFC 3339
// timestamps, of which only the date part is kept.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{d}, nil
}

// MustParseDate is ParseDate for literals; it panics on bad input.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Date.String()
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return Date{d.Date.AddDays(n)}
}

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool { return d.Date.Before(o.Date) }

// After reports whether d is strictly after o.
func (d Date) After(o Date) bool { return d.Date.After(o.Date) }

// DaysSince returns the signed number of days from o to d.
func (d Date) DaysSince(o Date) int { return d.Date.DaysSince(o.Date) }

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.Date.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
