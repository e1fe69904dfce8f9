package models

import (
	"encoding/json"
	"strings"
	"time"
)

// BookingStatus is the lifecycle state of a booking record.
type BookingStatus string

const (
	StatusPending   BookingStatus = "Pending"
	StatusAccepted  BookingStatus = "Accepted"
	StatusCompleted BookingStatus = "Completed"
	StatusCancelled BookingStatus = "Cancelled"
	// StatusUnknown stands in for a status this service does not recognise.
	// Nothing may be done to such a booking.
	StatusUnknown BookingStatus = "Unknown"

	// legacyConfirmed is what older revisions wrote after payment.
	legacyConfirmed = "Confirmed"
)

// PaymentStatus tracks payment within the Accepted state.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "Unpaid"
	PaymentPaid   PaymentStatus = "Paid"
)

// IsActive reports whether the status still blocks a new offer from the same rentee.
func (s BookingStatus) IsActive() bool {
	return s == StatusPending || s == StatusAccepted
}

// IsTerminal reports whether no further transitions are possible.
func (s BookingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Terms is a proposed set of rental terms.
type Terms struct {
	StartDate   Date    `json:"startDate"`
	EndDate     Date    `json:"endDate"`
	PricePerDay float64 `json:"pricePerDay"`
}

// Days is the inclusive number of rental days.
func (t Terms) Days() int {
	return t.EndDate.DaysSince(t.StartDate) + 1
}

// Total is the price for the whole range.
func (t Terms) Total() float64 {
	return float64(t.Days()) * t.PricePerDay
}

// Booking is the authoritative record of the current terms and status.
type Booking struct {
	ID            string        `json:"bookingId"`
	ListingID     string        `json:"listingId"`
	RenteeEmail   string        `json:"renteeEmail"`
	StartDate     Date          `json:"startDate"`
	EndDate       Date          `json:"endDate"`
	PricePerDay   float64       `json:"pricePerDay"`
	TotalPrice    float64       `json:"totalPrice"`
	Status        BookingStatus `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus,omitempty"`
	CreatedAt     time.Time     `json:"createdAt,omitempty"`
	UpdatedAt     time.Time     `json:"updatedAt,omitempty"`
}

// Terms returns the booking's current terms.
func (b *Booking) Terms() Terms {
	return Terms{StartDate: b.StartDate, EndDate: b.EndDate, PricePerDay: b.PricePerDay}
}

// Paid reports whether payment was recorded for the booking.
func (b *Booking) Paid() bool {
	return b.PaymentStatus == PaymentPaid
}

// Amount is the total to charge, derived from the terms when the record has none.
func (b *Booking) Amount() float64 {
	if b.TotalPrice > 0 {
		return b.TotalPrice
	}
	return b.Terms().Total()
}

// bookingWire mirrors the remote record, which nests the rentee on some revisions.
type bookingWire struct {
	ID            string    `json:"bookingId"`
	LegacyID      string    `json:"id"`
	ListingID     string    `json:"listingId"`
	RenteeEmail   string    `json:"renteeEmail"`
	StartDate     Date      `json:"startDate"`
	EndDate       Date      `json:"endDate"`
	PricePerDay   float64   `json:"pricePerDay"`
	TotalPrice    float64   `json:"totalPrice"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"paymentStatus"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	Rentee        *struct {
		Email string `json:"email"`
	} `json:"rentee"`
	Listing *struct {
		ListingID string `json:"listingId"`
	} `json:"listing"`
}

// UnmarshalJSON normalizes legacy shapes: nested rentee/listing and the
// "Confirmed" status, which maps to Accepted with payment recorded.
func (b *Booking) UnmarshalJSON(data []byte) error {
	var w bookingWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*b = Booking{
		ID:          w.ID,
		ListingID:   w.ListingID,
		RenteeEmail: w.RenteeEmail,
		StartDate:   w.StartDate,
		EndDate:     w.EndDate,
		PricePerDay: w.PricePerDay,
		TotalPrice:  w.TotalPrice,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
	if b.ID == "" {
		b.ID = w.LegacyID
	}
	if b.RenteeEmail == "" && w.Rentee != nil {
		b.RenteeEmail = w.Rentee.Email
	}
	if b.ListingID == "" && w.Listing != nil {
		b.ListingID = w.Listing.ListingID
	}
	b.Status, b.PaymentStatus = NormalizeStatus(w.Status, w.PaymentStatus)
	return nil
}

// NormalizeStatus maps remote status strings onto the canonical lifecycle.
func NormalizeStatus(status, payment string) (BookingStatus, PaymentStatus) {
	pay := PaymentUnpaid
	if strings.EqualFold(payment, string(PaymentPaid)) || strings.EqualFold(payment, "Completed") {
		pay = PaymentPaid
	}
	switch {
	case strings.EqualFold(status, legacyConfirmed):
		return StatusAccepted, PaymentPaid
	case strings.EqualFold(status, string(StatusAccepted)):
		return StatusAccepted, pay
	case strings.EqualFold(status, string(StatusCompleted)):
		return StatusCompleted, PaymentPaid
	case strings.EqualFold(status, string(StatusCancelled)):
		return StatusCancelled, pay
	case status == "" || strings.EqualFold(status, string(StatusPending)):
		return StatusPending, pay
	default:
		return StatusUnknown, pay
	}
}
