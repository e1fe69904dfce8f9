package models

import "time"

// Owner identifies the user who listed an item.
type Owner struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Listing is the subset of a listing the negotiation needs.
type Listing struct {
	ID             string   `json:"listingId"`
	Title          string   `json:"title"`
	Owner          Owner    `json:"user"`
	AvailableFrom  int64    `json:"availableFrom"`
	AvailableUntil int64    `json:"availableUntil"`
	Images         []string `json:"images,omitempty"`
}

// Window converts the unix-second bounds into calendar days (UTC).
func (l *Listing) Window() (from, until Date) {
	if l.AvailableFrom > 0 {
		from = DateOf(time.Unix(l.AvailableFrom, 0).UTC())
	}
	if l.AvailableUntil > 0 {
		until = DateOf(time.Unix(l.AvailableUntil, 0).UTC())
	}
	return from, until
}
