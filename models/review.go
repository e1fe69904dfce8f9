package models

// ReviewRequest is a review left by one party for the other after completion.
type ReviewRequest struct {
	ListingID   string `json:"listingId" validate:"required"`
	ReviewerID  string `json:"reviewerId" validate:"required"`
	RecipientID string `json:"recipientId" validate:"required"`
	Rating      int    `json:"rating" validate:"min=1,max=5"`
	Text        string `json:"reviewText" validate:"max=2000"`
	BookingID   string `json:"bookingId" validate:"required"`
	Idempotency string `json:"-"`
}

// Review is the stored review as returned by the review API.
type Review struct {
	ReviewID string `json:"reviewId"`
	ReviewRequest
}
