package models

import "time"

// MessageKind tags how a chat message participates in the negotiation.
type MessageKind string

const (
	KindPlain MessageKind = "plain"
	KindOffer MessageKind = "offer"
	KindInfo  MessageKind = "info"
)

// InfoEvent names the negotiation event an info message announces.
type InfoEvent string

const (
	EventUpdated   InfoEvent = "updated"
	EventAccepted  InfoEvent = "accepted"
	EventCancelled InfoEvent = "cancelled"
	EventPaid      InfoEvent = "paid"
	EventCompleted InfoEvent = "completed"
	// EventUnknown marks legacy info messages written without an event field.
	EventUnknown InfoEvent = "unknown"
)

// Message is an immutable entry in a conversation's feed.
type Message struct {
	ID          string      `json:"id"`
	Sender      string      `json:"sender"`
	Text        string      `json:"text"`
	CreatedAt   time.Time   `json:"createdAt"`
	Kind        MessageKind `json:"type,omitempty"`
	BookingID   string      `json:"bookingId,omitempty"`
	Event       InfoEvent   `json:"event,omitempty"`
	StartDate   *Date       `json:"startDate,omitempty"`
	EndDate     *Date       `json:"endDate,omitempty"`
	PricePerDay *float64    `json:"pricePerDay,omitempty"`
	RenteeEmail string      `json:"renteeEmail,omitempty"`
}

// Conversation links a listing owner and a prospective rentee.
type Conversation struct {
	ID           string    `json:"id"`
	ListingID    string    `json:"listingId"`
	ListingTitle string    `json:"listingTitle"`
	RenterID     string    `json:"renterId"`
	RenterEmail  string    `json:"renterEmail,omitempty"`
	RenteeID     string    `json:"renteeId"`
	RenteeEmail  string    `json:"renteeEmail,omitempty"`
	Participants []string  `json:"participants"`
	LastMessage  string    `json:"lastMessage"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasParticipant reports whether the session belongs to the conversation.
func (c *Conversation) HasParticipant(s Session) bool {
	for _, p := range c.Participants {
		if p != "" && (p == s.UserID || p == s.Email) {
			return true
		}
	}
	return false
}

// Party identifies one side of a conversation.
type Party struct {
	UserID string `json:"userId" binding:"required"`
	Email  string `json:"email"`
}
