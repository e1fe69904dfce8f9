package models

import "time"

// Action names a negotiation action dispatched by a participant.
type Action string

const (
	ActionOffer    Action = "offer"
	ActionEdit     Action = "edit"
	ActionCancel   Action = "cancel"
	ActionAccept   Action = "accept"
	ActionPay      Action = "pay"
	ActionComplete Action = "complete"
	ActionReview   Action = "review"
)

// Outcome classifies how a dispatched action ended.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomePartial Outcome = "partial"
	OutcomeFailed  Outcome = "failed"
)

// NegotiationRecord is one entry of the action ledger.
type NegotiationRecord struct {
	ID             string    `bson:"id" json:"id"`
	ConversationID string    `bson:"conversationId" json:"conversationId"`
	ListingID      string    `bson:"listingId" json:"listingId"`
	BookingID      string    `bson:"bookingId" json:"bookingId"`
	ActorID        string    `bson:"actorId" json:"actorId"`
	Action         Action    `bson:"action" json:"action"`
	Outcome        Outcome   `bson:"outcome" json:"outcome"`
	Detail         string    `bson:"detail,omitempty" json:"detail,omitempty"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
}
