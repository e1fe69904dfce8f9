package negotiation

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentathing/models"
	"rentathing/services/offer"
)

var (
	ownerSess  = models.Session{UserID: "u-owner", Email: "owner@example.com", Token: "t-owner"}
	renteeSess = models.Session{UserID: "u-rentee", Email: "rentee@example.com", Token: "t-rentee"}

	kayak = &models.Listing{
		ID:             "l-1",
		Title:          "Kayak",
		Owner:          models.Owner{UserID: "u-owner", Email: "owner@example.com"},
		AvailableFrom:  time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC).Unix(),
		AvailableUntil: time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC).Unix(),
	}
	kayakConv = &models.Conversation{
		ID: "c-1", ListingID: "l-1",
		RenterID: "u-owner", RenterEmail: "owner@example.com",
		RenteeID: "u-rentee", RenteeEmail: "rentee@example.com",
		Participants: []string{"u-owner", "u-rentee", "owner@example.com", "rentee@example.com"},
	}
)

func julyTerms() models.Terms {
	return models.Terms{
		StartDate:   models.MustParseDate("2024-07-01"),
		EndDate:     models.MustParseDate("2024-07-03"),
		PricePerDay: 20,
	}
}

func bookingIn(status models.BookingStatus, paid bool) *models.Booking {
	t := julyTerms()
	b := &models.Booking{
		ID: "bk-1", ListingID: "l-1", RenteeEmail: renteeSess.Email,
		StartDate: t.StartDate, EndDate: t.EndDate, PricePerDay: t.PricePerDay,
		Status: status, PaymentStatus: models.PaymentUnpaid,
	}
	if paid {
		b.PaymentStatus = models.PaymentPaid
	}
	return b
}

func anyAction(v models.NegotiationView) bool {
	return v.CanMakeOffer || v.CanEdit || v.CanCancel || v.CanAccept ||
		v.CanPay || v.CanComplete || v.CanReview
}

func input(sess models.Session, b *models.Booking, msgs ...models.Message) Input {
	return Input{Messages: msgs, Session: sess, Listing: kayak, Conversation: kayakConv, Booking: b}
}

func TestRoleFromListingOwner(t *testing.T) {
	assert.Equal(t, models.RoleOwner, RoleOf(kayak, ownerSess))
	assert.Equal(t, models.RoleRentee, RoleOf(kayak, renteeSess))
	assert.Equal(t, models.RoleOwner, RoleOf(kayak, models.Session{Email: "OWNER@example.com"}))
}

func TestNoBookingRenteeMayOffer(t *testing.T) {
	v := Reconcile(input(renteeSess, nil))
	assert.True(t, v.CanMakeOffer)
	assert.False(t, v.CanEdit || v.CanCancel || v.CanAccept || v.CanPay || v.CanComplete || v.CanReview)

	v = Reconcile(input(ownerSess, nil))
	assert.False(t, anyAction(v), "owner never makes offers")
}

func TestPendingBookingBlocksNewOffer(t *testing.T) {
	msg := offer.EncodeOffer(renteeSess.Email, "bk-1", julyTerms())
	v := Reconcile(input(renteeSess, bookingIn(models.StatusPending, false), msg))

	assert.False(t, v.CanMakeOffer)
	assert.True(t, v.CanEdit)
	assert.True(t, v.CanCancel)
	require.NotNil(t, v.ActiveOffer)
	assert.Equal(t, "bk-1", v.ActiveOffer.BookingID)
	assert.Equal(t, models.StatusPending, v.BookingStatus)

	owner := Reconcile(input(ownerSess, bookingIn(models.StatusPending, false), msg))
	assert.True(t, owner.CanAccept)
	assert.Equal(t, renteeSess.Email, owner.RenteeEmail)
}

func TestAcceptedBookingEnablesPay(t *testing.T) {
	b := bookingIn(models.StatusAccepted, false)
	rentee := Reconcile(input(renteeSess, b))
	assert.True(t, rentee.CanPay)
	assert.True(t, rentee.CanCancel)
	assert.False(t, rentee.CanAccept)

	owner := Reconcile(input(ownerSess, b))
	assert.False(t, owner.CanAccept)
	assert.False(t, owner.CanComplete, "owner waits for payment")
}

func TestPaidAcceptedLetsOwnerComplete(t *testing.T) {
	b := bookingIn(models.StatusAccepted, true)
	owner := Reconcile(input(ownerSess, b))
	assert.True(t, owner.CanComplete)
	assert.True(t, owner.Paid)

	rentee := Reconcile(input(renteeSess, b))
	assert.False(t, anyAction(rentee))
}

func TestCancelledBookingAllowsNewOffer(t *testing.T) {
	v := Reconcile(input(renteeSess, bookingIn(models.StatusCancelled, false)))
	assert.True(t, v.CanMakeOffer)
	assert.False(t, v.CanEdit || v.CanCancel)
}

func TestFetchErrorDisablesEverything(t *testing.T) {
	for _, sess := range []models.Session{ownerSess, renteeSess} {
		in := input(sess, bookingIn(models.StatusPending, false))
		in.FetchErr = &models.NetworkError{Op: "fetch latest booking", Err: errors.New("timeout")}
		v := Reconcile(in)
		assert.False(t, anyAction(v))
		assert.NotEmpty(t, v.Error)
	}
}

func TestUnrecognisedStatusOffersNothing(t *testing.T) {
	for _, sess := range []models.Session{ownerSess, renteeSess} {
		for _, paid := range []bool{false, true} {
			v := Reconcile(input(sess, bookingIn(models.StatusUnknown, paid)))
			assert.False(t, anyAction(v), "%s paid=%v", RoleOf(kayak, sess), paid)
			assert.NotEmpty(t, v.Error)
			assert.Equal(t, models.StatusUnknown, v.BookingStatus)
		}
	}
}

func TestCompletedReviewOnce(t *testing.T) {
	b := bookingIn(models.StatusCompleted, true)
	for _, sess := range []models.Session{ownerSess, renteeSess} {
		in := input(sess, b)
		assert.True(t, Reconcile(in).CanReview)
		in.Reviewed = true
		assert.False(t, Reconcile(in).CanReview)
	}
	assert.True(t, Reconcile(input(renteeSess, b)).CanMakeOffer)
}

func TestExactlyOneExclusiveAction(t *testing.T) {
	statuses := []models.BookingStatus{models.StatusPending, models.StatusAccepted, models.StatusCompleted, models.StatusCancelled}
	for _, sess := range []models.Session{ownerSess, renteeSess} {
		for _, st := range statuses {
			for _, paid := range []bool{false, true} {
				for _, reviewed := range []bool{false, true} {
					name := fmt.Sprintf("%s/%s/paid=%v/reviewed=%v", RoleOf(kayak, sess), st, paid, reviewed)
					in := input(sess, bookingIn(st, paid))
					in.Reviewed = reviewed
					v := Reconcile(in)
					n := 0
					for _, f := range []bool{v.CanAccept, v.CanPay, v.CanComplete, v.CanReview} {
						if f {
							n++
						}
					}
					assert.LessOrEqual(t, n, 1, name)
				}
			}
		}
	}
}

func TestActiveOfferIsMostRecentForBooking(t *testing.T) {
	older := offer.EncodeOffer(renteeSess.Email, "bk-0", julyTerms())
	first := offer.EncodeOffer(renteeSess.Email, "bk-1", julyTerms())
	first.ID = "m-1"
	edited := julyTerms()
	edited.PricePerDay = 25
	second := offer.EncodeOffer(renteeSess.Email, "bk-1", edited)
	second.ID = "m-2"
	chatter := models.Message{ID: "m-3", Sender: ownerSess.Email, Text: "sounds good"}

	v := Reconcile(input(renteeSess, bookingIn(models.StatusPending, false), older, first, second, chatter))
	require.NotNil(t, v.ActiveOffer)
	assert.Equal(t, "m-2", v.ActiveOffer.ID)

	v = Reconcile(input(renteeSess, bookingIn(models.StatusPending, false), older))
	assert.Nil(t, v.ActiveOffer, "offers for other bookings are history")
}

func TestRenteeForOwnerFallsBackToConversation(t *testing.T) {
	assert.Equal(t, "rentee@example.com", RenteeFor(models.RoleOwner, ownerSess, nil, kayakConv))

	msg := offer.EncodeOffer("someone@example.com", "bk-9", julyTerms())
	assert.Equal(t, "someone@example.com", RenteeFor(models.RoleOwner, ownerSess, []models.Message{msg}, kayakConv))

	assert.Equal(t, renteeSess.Email, RenteeFor(models.RoleRentee, renteeSess, []models.Message{msg}, kayakConv))
}
