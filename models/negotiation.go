package models

// Role is the viewer's side of a negotiation.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleRentee Role = "rentee"
)

// NegotiationView is the reconciled, UI-facing negotiation state.
type NegotiationView struct {
	Role          Role          `json:"role"`
	RenteeEmail   string        `json:"renteeEmail,omitempty"`
	ActiveOffer   *Message      `json:"activeOfferMessage,omitempty"`
	Booking       *Booking      `json:"booking,omitempty"`
	BookingStatus BookingStatus `json:"bookingStatus,omitempty"`
	Paid          bool          `json:"paid"`
	CanMakeOffer  bool          `json:"canMakeOffer"`
	CanEdit       bool          `json:"canEdit"`
	CanCancel     bool          `json:"canCancel"`
	CanAccept     bool          `json:"canAccept"`
	CanPay        bool          `json:"canPay"`
	CanComplete   bool          `json:"canComplete"`
	CanReview     bool          `json:"canReview"`
	// Error is set when the booking record could not be fetched or carries
	// a status this service does not know. No action is offered with it.
	Error string `json:"error,omitempty"`
}
