// Package negotiation derives the in-chat booking negotiation state and
// dispatches negotiation actions.
package negotiation

import (
	"strings"

	"rentathing/models"
	"rentathing/services/offer"
)

// Input is everything the reconciler looks at. It is recomputed from scratch
// whenever the message history or the booking record changes.
type Input struct {
	Messages     []models.Message
	Session      models.Session
	Listing      *models.Listing
	Conversation *models.Conversation
	// Booking is the latest record between the listing and the rentee; nil
	// means none exists.
	Booking  *models.Booking
	FetchErr error
	// Reviewed is true when the viewer already reviewed Booking.
	Reviewed bool
}

// RoleOf reports which side of the listing the session is on.
func RoleOf(listing *models.Listing, s models.Session) models.Role {
	if listing != nil && s.Is(listing.Owner.UserID, listing.Owner.Email) {
		return models.RoleOwner
	}
	return models.RoleRentee
}

// RenteeFor resolves whose booking the viewer is looking at. A rentee sees
// their own; an owner sees the sender of the most recent offer, falling back
// to the conversation's rentee.
func RenteeFor(role models.Role, s models.Session, msgs []models.Message, conv *models.Conversation) string {
	if role == models.RoleRentee {
		return s.Email
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Kind == models.KindOffer && msgs[i].Sender != "" {
			return msgs[i].Sender
		}
	}
	if conv != nil {
		return conv.RenteeEmail
	}
	return ""
}

// Reconcile computes the negotiation view. It never performs I/O.
func Reconcile(in Input) models.NegotiationView {
	role := RoleOf(in.Listing, in.Session)
	v := models.NegotiationView{
		Role:        role,
		RenteeEmail: RenteeFor(role, in.Session, in.Messages, in.Conversation),
	}

	if in.FetchErr != nil {
		v.Error = "booking status unavailable, please retry: " + in.FetchErr.Error()
		return v
	}

	b := in.Booking
	if b == nil {
		v.CanMakeOffer = role == models.RoleRentee
		return v
	}

	v.Booking = b
	v.BookingStatus = b.Status
	v.Paid = b.Paid()
	v.ActiveOffer = activeOffer(in.Messages, b.ID)
	if b.Status == models.StatusUnknown {
		v.Error = "booking " + b.ID + " has an unrecognised status"
		return v
	}

	switch role {
	case models.RoleRentee:
		switch b.Status {
		case models.StatusPending:
			v.CanEdit, v.CanCancel = true, true
		case models.StatusAccepted:
			if !v.Paid {
				v.CanPay, v.CanCancel = true, true
			}
		case models.StatusCompleted:
			v.CanMakeOffer = true
			v.CanReview = !in.Reviewed
		case models.StatusCancelled:
			v.CanMakeOffer = true
		}
	case models.RoleOwner:
		switch b.Status {
		case models.StatusPending:
			v.CanAccept = true
		case models.StatusAccepted:
			v.CanComplete = v.Paid
		case models.StatusCompleted:
			v.CanReview = !in.Reviewed
		}
	}
	return v
}

// activeOffer returns the most recent offer referencing bookingID. Offers
// decoded from legacy bodies carry no booking id and never qualify.
func activeOffer(msgs []models.Message, bookingID string) *models.Message {
	if bookingID == "" {
		return nil
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		d := offer.Decode(msgs[i])
		if d.Kind == models.KindOffer && strings.EqualFold(d.BookingID, bookingID) {
			m := msgs[i]
			return &m
		}
	}
	return nil
}
