// Package availability derives which dates a listing can still be offered for.
package availability

import (
	"sort"

	"rentathing/models"
)

// Interval is a closed range of calendar days.
type Interval struct {
	Start models.Date `json:"start"`
	End   models.Date `json:"end"`
}

func (i Interval) overlaps(o Interval) bool {
	return !i.End.Before(o.Start) && !o.End.Before(i.Start)
}

// Window is the listing's outer availability bound. A zero side is unbounded.
type Window struct {
	From  models.Date `json:"availableFrom"`
	Until models.Date `json:"availableUntil"`
}

// WindowOf reads the window off a listing.
func WindowOf(l *models.Listing) Window {
	from, until := l.Window()
	return Window{From: from, Until: until}
}

// Calendar answers range checks for new offers on one listing.
type Calendar struct {
	window  Window
	blocked []Interval
}

// LocksTerms reports whether a booking's dates are taken for good.
func LocksTerms(b models.Booking) bool {
	return b.Status == models.StatusAccepted || b.Status == models.StatusCompleted
}

// NewCalendar builds the blocked set from every booking whose terms are locked in.
// The result does not depend on the order of bookings.
func NewCalendar(w Window, bookings []models.Booking) *Calendar {
	ivs := make([]Interval, 0, len(bookings))
	for _, b := range bookings {
		if !LocksTerms(b) || b.StartDate.IsZero() || b.EndDate.IsZero() {
			continue
		}
		iv := Interval{Start: b.StartDate, End: b.EndDate}
		if iv.End.Before(iv.Start) {
			iv.Start, iv.End = iv.End, iv.Start
		}
		ivs = append(ivs, iv)
	}
	return &Calendar{window: w, blocked: merge(ivs)}
}

// merge sorts and coalesces overlapping or adjacent intervals.
func merge(ivs []Interval) []Interval {
	if len(ivs) == 0 {
		return nil
	}
	sort.Slice(ivs, func(i, j int) bool {
		if ivs[i].Start == ivs[j].Start {
			return ivs[i].End.Before(ivs[j].End)
		}
		return ivs[i].Start.Before(ivs[j].Start)
	})
	out := []Interval{ivs[0]}
	for _, iv := range ivs[1:] {
		last := &out[len(out)-1]
		if !iv.Start.After(last.End.AddDays(1)) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// Window returns the listing's outer bound.
func (c *Calendar) Window() Window { return c.window }

// Blocked returns the merged blocked intervals in ascending order.
func (c *Calendar) Blocked() []Interval {
	out := make([]Interval, len(c.blocked))
	copy(out, c.blocked)
	return out
}

// BlockedDates enumerates every blocked day, for date pickers.
func (c *Calendar) BlockedDates() []models.Date {
	var out []models.Date
	for _, iv := range c.blocked {
		for d := iv.Start; !d.After(iv.End); d = d.AddDays(1) {
			out = append(out, d)
		}
	}
	return out
}

// IsRangeValid reports whether [start, end] lies inside the window and
// touches no blocked day. A single-day range (start == end) is valid.
func (c *Calendar) IsRangeValid(start, end models.Date) bool {
	return c.Check(start, end) == nil
}

// Check is IsRangeValid with a reason.
func (c *Calendar) Check(start, end models.Date) error {
	if start.IsZero() {
		return models.NewValidationError("startDate", "is required")
	}
	if end.IsZero() {
		return models.NewValidationError("endDate", "is required")
	}
	if end.Before(start) {
		return models.NewValidationError("endDate", "must not be before the start date")
	}
	if !c.window.From.IsZero() && start.Before(c.window.From) {
		return models.NewValidationError("startDate", "is before the listing is available ("+c.window.From.String()+")")
	}
	if !c.window.Until.IsZero() && end.After(c.window.Until) {
		return models.NewValidationError("endDate", "is after the listing is available ("+c.window.Until.String()+")")
	}
	candidate := Interval{Start: start, End: end}
	for _, iv := range c.blocked {
		if iv.Start.After(end) {
			break
		}
		if candidate.overlaps(iv) {
			return models.NewValidationError("startDate", "range overlaps an existing booking ("+iv.Start.String()+" to "+iv.End.String()+")")
		}
	}
	return nil
}
