// Package review submits post-rental reviews.
package review

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"rentathing/models"
	"rentathing/utils"
)

// Client posts reviews to the marketplace API.
type Client struct {
	api    *utils.RESTClient
	logger *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{api: utils.NewRESTClient(baseURL, timeout), logger: logger}
}

// Create validates and submits a review.
func (c *Client) Create(ctx context.Context, s models.Session, req models.ReviewRequest) (*models.Review, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	var out models.Review
	key := req.Idempotency
	if key == "" {
		key = "review-" + req.BookingID + "-" + req.ReviewerID
	}
	if err := c.api.DoIdempotent(ctx, "create review", http.MethodPost, "/reviews", s.Token, key, req, &out); err != nil {
		return nil, err
	}
	out.ReviewRequest = req
	c.logger.Debug("review submitted", zap.String("bookingID", req.BookingID), zap.Int("rating", req.Rating))
	return &out, nil
}
