package availability

import (
	"context"

	"go.uber.org/zap"

	"rentathing/models"
)

// BookingLister fetches the bookings that lock dates on a listing.
type BookingLister interface {
	Confirmed(ctx context.Context, s models.Session, listingID string) ([]models.Booking, error)
}

// Service loads calendars for listings.
type Service struct {
	Bookings BookingLister
	Logger   *zap.Logger
}

// NewService wires the availability loader.
func NewService(bookings BookingLister, logger *zap.Logger) *Service {
	return &Service{Bookings: bookings, Logger: logger}
}

// Load builds the listing's calendar. If the booking list cannot be fetched
// the calendar has no blocked dates; a transient error must not make the
// listing unbookable.
func (s *Service) Load(ctx context.Context, sess models.Session, listing *models.Listing) *Calendar {
	w := WindowOf(listing)
	bookings, err := s.Bookings.Confirmed(ctx, sess, listing.ID)
	if err != nil {
		s.Logger.Warn("availability: confirmed bookings unavailable, assuming no blocked dates",
			zap.String("listingID", listing.ID), zap.Error(err))
		return NewCalendar(w, nil)
	}
	return NewCalendar(w, bookings)
}
