package booking

import (
	"context"

	"rentathing/models"
)

// Client is a typed wrapper over the remote booking record API.
type Client interface {
	Create(ctx context.Context, s models.Session, listingID, renteeEmail string, t models.Terms) (*models.Booking, error)
	Update(ctx context.Context, s models.Session, current *models.Booking, patch Patch) (*models.Booking, error)
	Accept(ctx context.Context, s models.Session, current *models.Booking) (*models.Booking, error)
	Latest(ctx context.Context, s models.Session, listingID, renteeEmail string) (*models.Booking, error)
	Confirmed(ctx context.Context, s models.Session, listingID string) ([]models.Booking, error)
	Get(ctx context.Context, s models.Session, bookingID string) (*models.Booking, error)
}

// Patch is a partial update of a booking's terms and/or status.
type Patch struct {
	Terms  *models.Terms
	Status *models.BookingStatus
}

// StatusPatch is a Patch that only changes the status.
func StatusPatch(s models.BookingStatus) Patch {
	return Patch{Status: &s}
}
