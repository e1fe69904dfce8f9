package booking

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"rentathing/models"
	"rentathing/utils"
)

// HTTPClient implements Client against the marketplace REST backend.
type HTTPClient struct {
	api    *utils.RESTClient
	logger *zap.Logger
}

// NewHTTPClient builds a booking client rooted at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{api: utils.NewRESTClient(baseURL, timeout), logger: logger}
}

type createRequest struct {
	ListingID   string      `json:"listingId"`
	StartDate   models.Date `json:"startDate"`
	EndDate     models.Date `json:"endDate"`
	PricePerDay float64     `json:"pricePerDay"`
	RenteeEmail string      `json:"renteeEmail"`
}

type updateRequest struct {
	StartDate   *models.Date          `json:"startDate,omitempty"`
	EndDate     *models.Date          `json:"endDate,omitempty"`
	PricePerDay *float64              `json:"pricePerDay,omitempty"`
	Status      *models.BookingStatus `json:"status,omitempty"`
}

func (c *HTTPClient) Create(ctx context.Context, s models.Session, listingID, renteeEmail string, t models.Terms) (*models.Booking, error) {
	req := createRequest{
		ListingID:   listingID,
		StartDate:   t.StartDate,
		EndDate:     t.EndDate,
		PricePerDay: t.PricePerDay,
		RenteeEmail: renteeEmail,
	}
	var out models.Booking
	if err := c.api.Do(ctx, "create booking", http.MethodPost, "/bookings", s.Token, nil, req, &out); err != nil {
		return nil, err
	}
	// Some backend revisions only echo the id.
	if out.StartDate.IsZero() {
		out.StartDate, out.EndDate, out.PricePerDay = t.StartDate, t.EndDate, t.PricePerDay
	}
	if out.ListingID == "" {
		out.ListingID = listingID
	}
	if out.RenteeEmail == "" {
		out.RenteeEmail = renteeEmail
	}
	c.logger.Debug("booking created", zap.String("bookingID", out.ID), zap.String("listingID", listingID))
	return &out, nil
}

func (c *HTTPClient) Update(ctx context.Context, s models.Session, current *models.Booking, patch Patch) (*models.Booking, error) {
	if err := ValidatePatch(current, patch); err != nil {
		return nil, err
	}
	req := updateRequest{Status: patch.Status}
	if patch.Terms != nil {
		start, end, price := patch.Terms.StartDate, patch.Terms.EndDate, patch.Terms.PricePerDay
		req.StartDate, req.EndDate, req.PricePerDay = &start, &end, &price
	}

	var out models.Booking
	if err := c.api.Do(ctx, "update booking", http.MethodPatch, "/bookings/"+url.PathEscape(current.ID), s.Token, nil, req, &out); err != nil {
		return nil, err
	}
	return mergeEcho(current, patch, &out), nil
}

func (c *HTTPClient) Accept(ctx context.Context, s models.Session, current *models.Booking) (*models.Booking, error) {
	if err := ValidateTransition(current.Status, models.StatusAccepted); err != nil {
		return nil, err
	}
	var out models.Booking
	if err := c.api.Do(ctx, "accept booking", http.MethodPatch, "/bookings/"+url.PathEscape(current.ID)+"/accept", s.Token, nil, nil, &out); err != nil {
		return nil, err
	}
	return mergeEcho(current, StatusPatch(models.StatusAccepted), &out), nil
}

func (c *HTTPClient) Latest(ctx context.Context, s models.Session, listingID, renteeEmail string) (*models.Booking, error) {
	q := url.Values{}
	q.Set("listingId", listingID)
	q.Set("renteeEmail", renteeEmail)

	var out *models.Booking
	err := c.api.Do(ctx, "fetch latest booking", http.MethodGet, "/bookings/latest", s.Token, q, nil, &out)
	if utils.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if out == nil || out.ID == "" {
		return nil, nil
	}
	return out, nil
}

func (c *HTTPClient) Confirmed(ctx context.Context, s models.Session, listingID string) ([]models.Booking, error) {
	q := url.Values{}
	q.Set("listingId", listingID)
	q.Set("status", "Confirmed")

	var out []models.Booking
	if err := c.api.Do(ctx, "fetch confirmed bookings", http.MethodGet, "/bookings", s.Token, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Get(ctx context.Context, s models.Session, bookingID string) (*models.Booking, error) {
	var out models.Booking
	err := c.api.Do(ctx, "fetch booking", http.MethodGet, "/bookings/"+url.PathEscape(bookingID), s.Token, nil, nil, &out)
	if utils.IsNotFound(err) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// mergeEcho fills fields the backend left out of its response from the
// record we patched, so callers always get a complete booking.
func mergeEcho(current *models.Booking, patch Patch, out *models.Booking) *models.Booking {
	merged := *current
	if patch.Terms != nil {
		merged.StartDate, merged.EndDate, merged.PricePerDay = patch.Terms.StartDate, patch.Terms.EndDate, patch.Terms.PricePerDay
		merged.TotalPrice = 0
	}
	if patch.Status != nil {
		merged.Status = *patch.Status
	}
	// A response without terms is an acknowledgement, not a full record.
	if out.ID == "" || out.StartDate.IsZero() {
		return &merged
	}
	if out.ListingID == "" {
		out.ListingID = merged.ListingID
	}
	if out.RenteeEmail == "" {
		out.RenteeEmail = merged.RenteeEmail
	}
	if merged.Paid() {
		out.PaymentStatus = models.PaymentPaid
	}
	return out
}
