package negotiation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"rentathing/models"
	"rentathing/services/booking"
	"rentathing/services/chat"
)

// fakeBookings is an in-memory booking record API keyed by rentee email.
type fakeBookings struct {
	mu        sync.Mutex
	latest    map[string]*models.Booking
	confirmed []models.Booking
	latestErr error
	calls     int
	nextID    int
}

func newFakeBookings() *fakeBookings {
	return &fakeBookings{latest: make(map[string]*models.Booking)}
}

func (f *fakeBookings) put(b *models.Booking) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *b
	f.latest[b.RenteeEmail] = &cp
}

func (f *fakeBookings) Create(_ context.Context, _ models.Session, listingID, renteeEmail string, t models.Terms) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.nextID++
	b := &models.Booking{
		ID: fmt.Sprintf("bk-new-%d", f.nextID), ListingID: listingID, RenteeEmail: renteeEmail,
		StartDate: t.StartDate, EndDate: t.EndDate, PricePerDay: t.PricePerDay,
		Status: models.StatusPending, PaymentStatus: models.PaymentUnpaid,
	}
	cp := *b
	f.latest[renteeEmail] = &cp
	return b, nil
}

func (f *fakeBookings) Update(_ context.Context, _ models.Session, current *models.Booking, patch booking.Patch) (*models.Booking, error) {
	if err := booking.ValidatePatch(current, patch); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	b := *current
	if patch.Terms != nil {
		b.StartDate, b.EndDate, b.PricePerDay = patch.Terms.StartDate, patch.Terms.EndDate, patch.Terms.PricePerDay
	}
	if patch.Status != nil {
		b.Status = *patch.Status
	}
	cp := b
	f.latest[b.RenteeEmail] = &cp
	return &b, nil
}

func (f *fakeBookings) Accept(ctx context.Context, s models.Session, current *models.Booking) (*models.Booking, error) {
	return f.Update(ctx, s, current, booking.StatusPatch(models.StatusAccepted))
}

func (f *fakeBookings) Latest(_ context.Context, _ models.Session, _, renteeEmail string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	b, ok := f.latest[renteeEmail]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookings) Confirmed(context.Context, models.Session, string) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Booking(nil), f.confirmed...), nil
}

func (f *fakeBookings) Get(_ context.Context, _ models.Session, id string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.latest {
		if b.ID == id {
			cp := *b
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

type fakeListings struct{ listing *models.Listing }

func (f fakeListings) Get(_ context.Context, _ models.Session, id string) (*models.Listing, error) {
	if f.listing == nil || f.listing.ID != id {
		return nil, models.ErrNotFound
	}
	cp := *f.listing
	return &cp, nil
}

type fakePayments struct {
	reqs []models.PaymentRequest
	err  error
}

func (f *fakePayments) Pay(_ context.Context, _ models.Session, req models.PaymentRequest) (*models.Payment, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Payment{PaymentID: "p-1", BookingID: req.BookingID, Amount: req.Amount, Method: req.Method, Status: req.Status}, nil
}

type fakeReviews struct{ reqs []models.ReviewRequest }

func (f *fakeReviews) Create(_ context.Context, _ models.Session, req models.ReviewRequest) (*models.Review, error) {
	f.reqs = append(f.reqs, req)
	return &models.Review{ReviewID: "r-1", ReviewRequest: req}, nil
}

type fakeLedger struct {
	mu      sync.Mutex
	records []models.NegotiationRecord
	err     error
}

func (f *fakeLedger) Record(_ context.Context, rec *models.NegotiationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeLedger) HasReviewed(_ context.Context, bookingID, reviewerID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.Action == models.ActionReview && r.Outcome == models.OutcomeOK && r.BookingID == bookingID && r.ActorID == reviewerID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedger) ListByConversation(_ context.Context, convID string, limit int64) ([]models.NegotiationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.NegotiationRecord
	for i := len(f.records) - 1; i >= 0; i-- {
		if f.records[i].ConversationID == convID {
			out = append(out, f.records[i])
		}
		if limit > 0 && int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeLedger) outcomes() []models.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Outcome, 0, len(f.records))
	for _, r := range f.records {
		out = append(out, r.Outcome)
	}
	return out
}

type fakeRedeliver struct {
	convIDs  []string
	messages []models.Message
}

func (f *fakeRedeliver) EnqueueRedelivery(_ context.Context, convID string, m models.Message) error {
	f.convIDs = append(f.convIDs, convID)
	f.messages = append(f.messages, m)
	return nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (f *fakeNotifier) Notify(_ context.Context, n models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return nil
}

// flakyStore fails appends while failAppend is set.
type flakyStore struct {
	*chat.MemoryStore
	failAppend bool
}

var errFeedDown = errors.New("feed unavailable")

func (f *flakyStore) Append(ctx context.Context, convID string, m models.Message) (models.Message, error) {
	if f.failAppend {
		return models.Message{}, &models.NetworkError{Op: "append message", Err: errFeedDown}
	}
	return f.MemoryStore.Append(ctx, convID, m)
}
