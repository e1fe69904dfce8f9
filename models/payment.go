package models

import "time"

// PaymentRequest is what the rentee submits to pay an accepted booking.
type PaymentRequest struct {
	BookingID     string  `json:"bookingId"`
	Amount        float64 `json:"amount"`
	Method        string  `json:"paymentMethod"`
	Status        string  `json:"status"`
	Currency      string  `json:"-"`
	PaymentMethod string  `json:"-"` // gateway-specific payment method reference
	Idempotency   string  `json:"-"`
}

// Payment is the recorded payment returned by the payment API.
type Payment struct {
	PaymentID string    `json:"paymentId"`
	BookingID string    `json:"bookingId"`
	Amount    float64   `json:"amount"`
	Method    string    `json:"paymentMethod"`
	Status    string    `json:"status"`
	Reference string    `json:"reference,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}
