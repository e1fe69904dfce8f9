package negotiation

import (
	"context"

	"rentathing/models"
	"rentathing/services/availability"
)

// Listings fetches listing details.
type Listings interface {
	Get(ctx context.Context, s models.Session, listingID string) (*models.Listing, error)
}

// Calendars loads the availability calendar of a listing.
type Calendars interface {
	Load(ctx context.Context, s models.Session, listing *models.Listing) *availability.Calendar
}

// Payments records a payment for an accepted booking.
type Payments interface {
	Pay(ctx context.Context, s models.Session, req models.PaymentRequest) (*models.Payment, error)
}

// Reviews submits a review after completion.
type Reviews interface {
	Create(ctx context.Context, s models.Session, req models.ReviewRequest) (*models.Review, error)
}

// ActionLog is the durable ledger of dispatched actions.
type ActionLog interface {
	Record(ctx context.Context, rec *models.NegotiationRecord) error
	HasReviewed(ctx context.Context, bookingID, reviewerID string) (bool, error)
	ListByConversation(ctx context.Context, conversationID string, limit int64) ([]models.NegotiationRecord, error)
}

// Redeliverer retries a chat append that failed after its booking step committed.
type Redeliverer interface {
	EnqueueRedelivery(ctx context.Context, conversationID string, m models.Message) error
}

// Notifier pushes a notification to a conversation's participants.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// OfferInput is the raw offer form as submitted by the rentee.
type OfferInput struct {
	StartDate   string  `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate     string  `json:"endDate" validate:"required,datetime=2006-01-02"`
	PricePerDay float64 `json:"pricePerDay" validate:"gt=0"`
}

// PayInput selects the payment method.
type PayInput struct {
	Method string `json:"paymentMethod"`
	// PaymentMethod is a gateway token, used when charging through a card gateway.
	PaymentMethod string `json:"paymentMethodId"`
}

// ReviewInput is the review dialog.
type ReviewInput struct {
	Rating int    `json:"rating" validate:"min=1,max=5"`
	Text   string `json:"reviewText" validate:"max=2000"`
}

// MessageInput is a plain chat message.
type MessageInput struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// StartInput opens (or reopens) the conversation about a listing.
type StartInput struct {
	ListingID string `json:"listingId" validate:"required"`
}

// Result is what a dispatched action produced.
type Result struct {
	Booking *models.Booking        `json:"booking,omitempty"`
	Message *models.Message        `json:"message,omitempty"`
	Payment *models.Payment        `json:"payment,omitempty"`
	Review  *models.Review         `json:"review,omitempty"`
	View    models.NegotiationView `json:"view"`
}
