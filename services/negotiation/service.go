package negotiation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rentathing/models"
	"rentathing/services/booking"
	"rentathing/services/chat"
	"rentathing/services/offer"
	"rentathing/utils"
)

var (
	errNoLedger      = errors.New("no action ledger configured")
	errNoRenteeEmail = models.NewValidationError("email", "session carries no email, bookings cannot be resolved")
)

const (
	defaultPaymentMethod = "Credit Card"
	redeliveryTimeout    = 5 * time.Second
)

// Deps are the collaborators of the negotiation service. Ledger, Redeliver
// and Notifier are optional.
type Deps struct {
	Bookings  booking.Client
	Chats     chat.Store
	Listings  Listings
	Calendars Calendars
	Payments  Payments
	Reviews   Reviews
	Ledger    ActionLog
	Redeliver Redeliverer
	Notifier  Notifier
}

// Service dispatches negotiation actions. Every action is validated, then
// gated on a freshly reconciled view, then executed as a booking record
// call followed by a chat append.
type Service struct {
	Deps
	logger *zap.Logger
	now    func() time.Time
}

// NewService builds the negotiation service.
func NewService(deps Deps, logger *zap.Logger) *Service {
	return &Service{Deps: deps, logger: logger, now: time.Now}
}

type state struct {
	conv     *models.Conversation
	listing  *models.Listing
	messages []models.Message
	input    Input
	view     models.NegotiationView
}

func (s *Service) conversation(ctx context.Context, sess models.Session, convID string) (*models.Conversation, error) {
	conv, err := s.Chats.Get(ctx, convID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(sess) {
		return nil, models.ErrNotParticipant
	}
	return conv, nil
}

func (s *Service) open(ctx context.Context, sess models.Session, convID string) (*models.Conversation, *models.Listing, error) {
	conv, err := s.conversation(ctx, sess, convID)
	if err != nil {
		return nil, nil, err
	}
	listing, err := s.Listings.Get(ctx, sess, conv.ListingID)
	if err != nil {
		return nil, nil, err
	}
	return conv, listing, nil
}

// evaluate fetches the booking record the viewer is negotiating over and
// assembles the reconciler input. Fetch failures end up in FetchErr.
func (s *Service) evaluate(ctx context.Context, sess models.Session, conv *models.Conversation, listing *models.Listing, msgs []models.Message) Input {
	in := Input{Messages: msgs, Session: sess, Listing: listing, Conversation: conv}
	role := RoleOf(listing, sess)
	rentee := RenteeFor(role, sess, msgs, conv)
	if rentee == "" {
		// Without an email the rentee's bookings cannot be looked up, so
		// nothing may be offered to them.
		if role == models.RoleRentee {
			in.FetchErr = errNoRenteeEmail
		}
		return in
	}
	b, err := s.Bookings.Latest(ctx, sess, listing.ID, rentee)
	if err != nil {
		s.logger.Warn("negotiation: booking fetch failed",
			zap.String("conversationID", conv.ID), zap.String("listingID", listing.ID), zap.Error(err))
		in.FetchErr = err
		return in
	}
	in.Booking = b
	if b != nil && b.Status == models.StatusUnknown {
		s.logger.Warn("negotiation: booking has an unrecognised status",
			zap.String("conversationID", conv.ID), zap.String("bookingID", b.ID))
	}
	if b != nil && b.Status == models.StatusCompleted {
		in.Reviewed = s.reviewed(ctx, b.ID, sess)
	}
	return in
}

// reviewed hides the review action when the ledger cannot be read.
func (s *Service) reviewed(ctx context.Context, bookingID string, sess models.Session) bool {
	if s.Ledger == nil {
		return false
	}
	done, err := s.Ledger.HasReviewed(ctx, bookingID, sess.UserID)
	if err != nil {
		s.logger.Warn("negotiation: review ledger unavailable", zap.String("bookingID", bookingID), zap.Error(err))
		return true
	}
	return done
}

func (s *Service) load(ctx context.Context, sess models.Session, convID string) (*state, error) {
	conv, listing, err := s.open(ctx, sess, convID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.Chats.List(ctx, convID)
	if err != nil {
		return nil, err
	}
	in := s.evaluate(ctx, sess, conv, listing, msgs)
	return &state{conv: conv, listing: listing, messages: msgs, input: in, view: Reconcile(in)}, nil
}

// View returns the reconciled negotiation state of a conversation.
func (s *Service) View(ctx context.Context, sess models.Session, convID string) (models.NegotiationView, error) {
	st, err := s.load(ctx, sess, convID)
	if err != nil {
		return models.NegotiationView{}, err
	}
	return st.view, nil
}

// Conversation returns a conversation the caller takes part in.
func (s *Service) Conversation(ctx context.Context, sess models.Session, convID string) (*models.Conversation, error) {
	return s.conversation(ctx, sess, convID)
}

// Messages returns the ordered history of a conversation.
func (s *Service) Messages(ctx context.Context, sess models.Session, convID string) ([]models.Message, error) {
	if _, err := s.conversation(ctx, sess, convID); err != nil {
		return nil, err
	}
	return s.Chats.List(ctx, convID)
}

// SendMessage appends a plain chat message.
func (s *Service) SendMessage(ctx context.Context, sess models.Session, convID string, in MessageInput) (*models.Message, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	conv, err := s.conversation(ctx, sess, convID)
	if err != nil {
		return nil, err
	}
	m, err := s.Chats.Append(ctx, conv.ID, models.Message{Sender: sess.Email, Text: in.Text, Kind: models.KindPlain})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, conv, "New message", m, nil)
	return &m, nil
}

// StartConversation opens the caller's conversation with a listing's owner.
func (s *Service) StartConversation(ctx context.Context, sess models.Session, in StartInput) (*models.Conversation, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	listing, err := s.Listings.Get(ctx, sess, in.ListingID)
	if err != nil {
		return nil, err
	}
	if RoleOf(listing, sess) == models.RoleOwner {
		return nil, models.NewValidationError("listingId", "cannot start a conversation about your own listing")
	}
	renter := models.Party{UserID: listing.Owner.UserID, Email: listing.Owner.Email}
	rentee := models.Party{UserID: sess.UserID, Email: sess.Email}
	return s.Chats.CreateOrGet(ctx, listing.ID, listing.Title, renter, rentee)
}

// Conversations lists the caller's conversations, most recently active first.
func (s *Service) Conversations(ctx context.Context, sess models.Session) ([]models.Conversation, error) {
	return s.Chats.ListForUser(ctx, sess.UserID)
}

// Booking returns a booking record, provided it belongs to the
// conversation's listing.
func (s *Service) Booking(ctx context.Context, sess models.Session, convID, bookingID string) (*models.Booking, error) {
	conv, err := s.conversation(ctx, sess, convID)
	if err != nil {
		return nil, err
	}
	b, err := s.Bookings.Get(ctx, sess, bookingID)
	if err != nil {
		return nil, err
	}
	if b == nil || b.ListingID != conv.ListingID {
		return nil, models.ErrNotFound
	}
	return b, nil
}

// Activity lists the most recent ledger entries of a conversation, newest first.
func (s *Service) Activity(ctx context.Context, sess models.Session, convID string, limit int64) ([]models.NegotiationRecord, error) {
	if _, err := s.conversation(ctx, sess, convID); err != nil {
		return nil, err
	}
	if s.Ledger == nil {
		return []models.NegotiationRecord{}, nil
	}
	return s.Ledger.ListByConversation(ctx, convID, limit)
}

// MakeOffer creates a Pending booking and posts the offer message.
func (s *Service) MakeOffer(ctx context.Context, sess models.Session, convID string, in OfferInput) (*Result, error) {
	terms, err := parseTerms(in)
	if err != nil {
		return nil, err
	}
	st, err := s.load(ctx, sess, convID)
	if err != nil {
		return nil, err
	}
	if err := gate(st, models.ActionOffer, st.view.CanMakeOffer, ""); err != nil {
		return nil, err
	}
	if err := s.Calendars.Load(ctx, sess, st.listing).Check(terms.StartDate, terms.EndDate); err != nil {
		return nil, err
	}

	b, err := s.Bookings.Create(ctx, sess, st.listing.ID, sess.Email, terms)
	if err != nil {
		s.record(ctx, sess, st, models.ActionOffer, "", models.OutcomeFailed, err.Error())
		return nil, err
	}
	return s.announce(ctx, sess, st, models.ActionOffer, b, offer.EncodeOffer(sess.Email, b.ID, terms))
}

// EditOffer replaces the terms of the Pending booking in place.
func (s *Service) EditOffer(ctx context.Context, sess models.Session, convID, bookingID string, in OfferInput) (*Result, error) {
	terms, err := parseTerms(in)
	if err != nil {
		return nil, err
	}
	st, err := s.load(ctx, sess, convID)
	if err != nil {
		return nil, err
	}
	if err := gate(st, models.ActionEdit, st.view.CanEdit, bookingID); err != nil {
		return nil, err
	}
	if err := s.Calendars.Load(ctx, sess, st.listing).Check(terms.StartDate, terms.EndDate); err != nil {
		return nil, err
	}

	b, err := s.Bookings.Update(ctx, sess, st.view.Booking, booking.Patch{Terms: &terms})
	if err != nil {
		s.record(ctx, sess, st, models.ActionEdit, bookingID, models.OutcomeFailed, err.Error())
		return nil, err
	}
	msg := offer.EncodeInfo(sess.Email, offer.Info{Event: models.EventUpdated, BookingID: b.ID, Terms: &terms})
	return s.announce(ctx, sess, st, models.ActionEdit, b, msg)
}

// CancelOffer withdraws the rentee's booking.
func (s *Service) CancelOffer(ctx context.Context, sess models.Session, convID, bookingID string) (*Result, error) {
	return s.transition(ctx, sess, convID, bookingID, models.ActionCancel, models.StatusCancelled, models.EventCancelled,
		func(v models.NegotiationView) bool { return v.CanCancel })
}

// CompleteBooking marks a paid booking as completed.
func (s *Service) CompleteBooking(ctx context.Context, sess models.Session, convID, bookingID string) (*Result, error) {
	return s.transition(ctx, sess, convID, bookingID, models.ActionComplete, models.StatusCompleted, models.EventCompleted,
		func(v models.NegotiationView) bool { return v.CanComplete })
}

func (s *Service) transition(ctx context.Context, sess models.Session, convID, bookingID string, action models.Action,
	to models.BookingStatus, event models.InfoEvent, allowed func(models.NegotiationView) bool) (*Result, error) {
	st, err := s.load(ctx, sess, convID)
	if err != nil {
		return nil, err
	}
	if err := gate(st, action, allowed(st.view), bookingID); err != nil {
		return nil, err
	}
	b, err := s.Bookings.Update(ctx, sess, st.view.Booking, booking.StatusPatch(to))
	if err != nil {
		s.record(ctx, sess, st, action, bookingID, models.OutcomeFailed, err.Error())
		return nil, err
	}
	return s.announce(ctx, sess, st, action, b, offer.EncodeInfo(sess.Email, offer.Info{Event: event, BookingID: b.ID}))
}

// AcceptOffer is the owner accepting the Pending booking.
func (s *Service) AcceptOffer(ctx context.Context, sess models.Session, convID, bookingID string) (*Result, error) {
	st, err := s.load(ctx, sess, convID)
	if err != nil {
		return nil, err
	}
	if err := gate(st, models.ActionAccept, st.view.CanAccept, bookingID); err != nil {
		return nil, err
	}
	b, err := s.Bookings.Accept(ctx, sess, st.view.Booking)
	if err != nil {
		s.record(ctx, sess, st, models.ActionAccept, bookingID, models.OutcomeFailed, err.Error())
		return nil, err
	}
	terms := b.Terms()
	msg := offer.EncodeInfo(sess.Email, offer.Info{
		Event:       models.EventAccepted,
		BookingID:   b.ID,
		Terms:       &terms,
		RenteeEmail: b.RenteeEmail,
	})
	return s.announce(ctx, sess, st, models.ActionAccept, b, msg)
}

// Pay charges the accepted booking through the payment API.
func (s *Service) Pay(ctx context.Context, sess models.Session, convID, bookingID string, in PayInput) (*Result, error) {
	st, err := s.load(ctx, sess, convID)
	if err != nil {
		return nil, err
	}
	if err := gate(st, models.ActionPay, st.view.CanPay, bookingID); err != nil {
		return nil, err
	}
	current := st.view.Booking
	method := in.Method
	if method == "" {
		method = defaultPaymentMethod
	}
	payment, err := s.Payments.Pay(ctx, sess, models.PaymentRequest{
		BookingID:     current.ID,
		Amount:        current.Amount(),
		Method:        method,
		Status:        "Completed",
		PaymentMethod: in.PaymentMethod,
		Idempotency:   "pay-" + current.ID + "-" + uuid.New().String(),
	})
	if err != nil {
		s.record(ctx, sess, st, models.ActionPay, bookingID, models.OutcomeFailed, err.Error())
		return nil, err
	}

	paid := *current
	paid.PaymentStatus = models.PaymentPaid
	msg := offer.EncodeInfo(sess.Email, offer.Info{Event: models.EventPaid, BookingID: paid.ID, Amount: payment.Amount})
	res, err := s.announce(ctx, sess, st, models.ActionPay, &paid, msg)
	res.Payment = payment
	return res, err
}

// Review submits the viewer's review of the other party. Allowed once per
// booking and viewer.
func (s *Service) Review(ctx context.Context, sess models.Session, convID, bookingID string, in ReviewInput) (*Result, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	st, err := s.load(ctx, sess, convID)
	if err != nil {
		return nil, err
	}
	if err := gate(st, models.ActionReview, st.view.CanReview, bookingID); err != nil {
		return nil, err
	}

	recipient := st.listing.Owner.UserID
	if st.view.Role == models.RoleOwner {
		recipient = st.conv.RenteeID
	}
	req := models.ReviewRequest{
		ListingID:   st.listing.ID,
		ReviewerID:  sess.UserID,
		RecipientID: recipient,
		Rating:      in.Rating,
		Text:        in.Text,
		BookingID:   bookingID,
		Idempotency: "review-" + bookingID + "-" + sess.UserID,
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	review, err := s.Reviews.Create(ctx, sess, req)
	if err != nil {
		s.record(ctx, sess, st, models.ActionReview, bookingID, models.OutcomeFailed, err.Error())
		return nil, err
	}
	if err := s.record(ctx, sess, st, models.ActionReview, bookingID, models.OutcomeOK, ""); err != nil {
		// The ledger is what hides the review action; the review API's
		// idempotency key is all that stops a second submission now.
		s.logger.Error("negotiation: review created but not recorded",
			zap.String("bookingID", bookingID), zap.String("reviewerID", sess.UserID), zap.Error(err))
	}

	after := st.input
	after.Reviewed = true
	return &Result{Booking: st.view.Booking, Review: review, View: Reconcile(after)}, nil
}

// announce appends the chat message for a committed booking change. The
// booking change is not rolled back if the append fails: the message is
// queued for redelivery and a PartialFailureError is returned together with
// the result.
func (s *Service) announce(ctx context.Context, sess models.Session, st *state, action models.Action, b *models.Booking, msg models.Message) (*Result, error) {
	res := &Result{Booking: b}
	appended, err := s.Chats.Append(ctx, st.conv.ID, msg)
	if err != nil {
		s.logger.Warn("negotiation: booking committed but chat append failed",
			zap.String("action", string(action)),
			zap.String("conversationID", st.conv.ID),
			zap.String("bookingID", b.ID),
			zap.Error(err))
		s.record(ctx, sess, st, action, b.ID, models.OutcomePartial, err.Error())
		s.requeue(st.conv.ID, msg)
		res.View = s.after(st, b, nil)
		return res, &models.PartialFailureError{Action: string(action), BookingID: b.ID, Err: err}
	}

	s.record(ctx, sess, st, action, b.ID, models.OutcomeOK, "")
	s.notify(ctx, st.conv, notificationTitle(action), appended, b)
	res.Message = &appended
	res.View = s.after(st, b, &appended)
	return res, nil
}

// after reconciles against the committed booking without another round trip.
func (s *Service) after(st *state, b *models.Booking, appended *models.Message) models.NegotiationView {
	in := st.input
	in.FetchErr = nil
	in.Booking = b
	if appended != nil {
		in.Messages = append(append([]models.Message(nil), st.messages...), *appended)
	}
	return Reconcile(in)
}

func (s *Service) requeue(convID string, msg models.Message) {
	if s.Redeliver == nil {
		return
	}
	// The request context may already be gone; the booking change is not.
	ctx, cancel := context.WithTimeout(context.Background(), redeliveryTimeout)
	defer cancel()
	if err := s.Redeliver.EnqueueRedelivery(ctx, convID, msg); err != nil {
		s.logger.Error("negotiation: failed to enqueue chat redelivery",
			zap.String("conversationID", convID), zap.String("bookingID", msg.BookingID), zap.Error(err))
	}
}

func (s *Service) record(ctx context.Context, sess models.Session, st *state, action models.Action, bookingID string, outcome models.Outcome, detail string) error {
	if s.Ledger == nil {
		return errNoLedger
	}
	rec := &models.NegotiationRecord{
		ID:             uuid.New().String(),
		ConversationID: st.conv.ID,
		ListingID:      st.listing.ID,
		BookingID:      bookingID,
		ActorID:        sess.UserID,
		Action:         action,
		Outcome:        outcome,
		Detail:         detail,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.Ledger.Record(ctx, rec); err != nil {
		s.logger.Warn("negotiation: failed to write action ledger",
			zap.String("action", string(action)), zap.String("bookingID", bookingID), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) notify(ctx context.Context, conv *models.Conversation, title string, m models.Message, b *models.Booking) {
	if s.Notifier == nil {
		return
	}
	data := map[string]string{
		"conversationId": conv.ID,
		"listingId":      conv.ListingID,
		"sender":         m.Sender,
	}
	if m.Event != "" {
		data["event"] = string(m.Event)
	}
	if b != nil {
		data["bookingId"] = b.ID
		data["status"] = string(b.Status)
	}
	n := models.Notification{ConversationID: conv.ID, Title: title, Body: m.Text, Data: data}
	if err := s.Notifier.Notify(ctx, n); err != nil {
		s.logger.Warn("negotiation: push notification failed", zap.String("conversationID", conv.ID), zap.Error(err))
	}
}

func notificationTitle(a models.Action) string {
	switch a {
	case models.ActionOffer:
		return "New booking offer"
	case models.ActionEdit:
		return "Booking request updated"
	case models.ActionCancel:
		return "Booking cancelled"
	case models.ActionAccept:
		return "Offer accepted"
	case models.ActionPay:
		return "Payment received"
	case models.ActionComplete:
		return "Rental completed"
	default:
		return "Booking update"
	}
}

// gate refuses an action the reconciled view does not offer. A failed
// booking fetch is returned as is so the caller can retry.
func gate(st *state, action models.Action, allowed bool, bookingID string) error {
	if st.input.FetchErr != nil {
		return st.input.FetchErr
	}
	if !allowed {
		return &models.StateConflictError{Action: string(action), Status: st.view.BookingStatus, Reason: "action is not available in the current negotiation state"}
	}
	if bookingID != "" && (st.view.Booking == nil || st.view.Booking.ID != bookingID) {
		return &models.StateConflictError{Action: string(action), Status: st.view.BookingStatus, Reason: "booking " + bookingID + " is not the active booking"}
	}
	return nil
}

func parseTerms(in OfferInput) (models.Terms, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return models.Terms{}, err
	}
	start, err := models.ParseDate(in.StartDate)
	if err != nil {
		return models.Terms{}, models.NewValidationError("startDate", err.Error())
	}
	end, err := models.ParseDate(in.EndDate)
	if err != nil {
		return models.Terms{}, models.NewValidationError("endDate", err.Error())
	}
	if end.Before(start) {
		return models.Terms{}, models.NewValidationError("endDate", "must not be before the start date")
	}
	return models.Terms{StartDate: start, EndDate: end, PricePerDay: in.PricePerDay}, nil
}
