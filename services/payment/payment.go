// Package payment records booking payments with the marketplace payment
// API, optionally charging a card through Stripe first.
package payment

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"go.uber.org/zap"

	"rentathing/models"
	"rentathing/utils"
)

// APIClient records payments through POST /payments.
type APIClient struct {
	api    *utils.RESTClient
	logger *zap.Logger
}

// NewAPIClient builds the payment API client.
func NewAPIClient(baseURL string, timeout time.Duration, logger *zap.Logger) *APIClient {
	return &APIClient{api: utils.NewRESTClient(baseURL, timeout), logger: logger}
}

type paymentBody struct {
	BookingID     string  `json:"bookingId"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"paymentMethod"`
	Status        string  `json:"status"`
	Reference     string  `json:"reference,omitempty"`
}

// Pay records the payment as given.
func (c *APIClient) Pay(ctx context.Context, s models.Session, req models.PaymentRequest) (*models.Payment, error) {
	return c.record(ctx, s, req, "")
}

func (c *APIClient) record(ctx context.Context, s models.Session, req models.PaymentRequest, reference string) (*models.Payment, error) {
	if req.Amount <= 0 {
		return nil, models.NewValidationError("amount", "must be greater than 0")
	}
	body := paymentBody{
		BookingID:     req.BookingID,
		Amount:        req.Amount,
		PaymentMethod: req.Method,
		Status:        req.Status,
		Reference:     reference,
	}
	var out models.Payment
	if err := c.api.DoIdempotent(ctx, "create payment", http.MethodPost, "/payments", s.Token, req.Idempotency, body, &out); err != nil {
		return nil, err
	}
	if out.BookingID == "" {
		out.BookingID, out.Amount, out.Method, out.Status = req.BookingID, req.Amount, req.Method, req.Status
	}
	if out.Reference == "" {
		out.Reference = reference
	}
	c.logger.Info("payment recorded", zap.String("bookingID", req.BookingID), zap.Float64("amount", req.Amount))
	return &out, nil
}

type intentCreator func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)

// StripeGateway confirms a card PaymentIntent and then records the payment
// with the marketplace API, referencing the intent.
type StripeGateway struct {
	recorder *APIClient
	currency string
	create   intentCreator
	logger   *zap.Logger
}

// NewStripeGateway builds a Stripe-backed gateway. stripe.Key must be set.
func NewStripeGateway(recorder *APIClient, currency string, logger *zap.Logger) *StripeGateway {
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	return &StripeGateway{recorder: recorder, currency: currency, create: paymentintent.New, logger: logger}
}

// Pay charges the card and records the payment.
func (g *StripeGateway) Pay(ctx context.Context, s models.Session, req models.PaymentRequest) (*models.Payment, error) {
	if req.PaymentMethod == "" {
		return nil, models.NewValidationError("paymentMethodId", "is required for card payments")
	}
	cents := int64(math.Round(req.Amount * 100))
	if cents <= 0 {
		return nil, models.NewValidationError("amount", "must be greater than 0")
	}

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(cents),
		Currency:           stripe.String(g.currency),
		PaymentMethod:      stripe.String(req.PaymentMethod),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Confirm:            stripe.Bool(true),
	}
	params.Context = ctx
	params.AddMetadata("bookingId", req.BookingID)
	if req.Idempotency != "" {
		params.SetIdempotencyKey(req.Idempotency)
	}

	pi, err := g.create(params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) {
			return nil, &models.RequestError{Op: "charge card", StatusCode: se.HTTPStatusCode, Message: se.Msg}
		}
		return nil, &models.NetworkError{Op: "charge card", Err: err}
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		g.logger.Warn("payment: intent not settled", zap.String("bookingID", req.BookingID),
			zap.String("intentID", pi.ID), zap.String("status", string(pi.Status)))
		return nil, &models.RequestError{Op: "charge card", StatusCode: http.StatusPaymentRequired,
			Message: "payment was not completed (" + string(pi.Status) + ")"}
	}

	p, err := g.recorder.record(ctx, s, req, pi.ID)
	if err != nil {
		// The card was charged; the intent id lets support reconcile it.
		g.logger.Error("payment: charge succeeded but recording failed",
			zap.String("bookingID", req.BookingID), zap.String("intentID", pi.ID), zap.Error(err))
		return nil, err
	}
	return p, nil
}
