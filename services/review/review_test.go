package review

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rentathing/models"
)

func validReview() models.ReviewRequest {
	return models.ReviewRequest{
		ListingID: "l-1", ReviewerID: "u-rentee", RecipientID: "u-owner",
		Rating: 5, Text: "Great kayak", BookingID: "bk-1",
	}
}

func TestCreatePostsReview(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reviews", r.URL.Path)
		assert.Equal(t, "review-bk-1-u-rentee", r.Header.Get("Idempotency-Key"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Great kayak", body["reviewText"])
		assert.Equal(t, 5.0, body["rating"])
		assert.Equal(t, "bk-1", body["bookingId"])
		_, _ = w.Write([]byte(`{"reviewId":"r-1"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, zap.NewNop())
	r, err := c.Create(context.Background(), models.Session{Token: "tok"}, validReview())
	require.NoError(t, err)
	assert.Equal(t, "r-1", r.ReviewID)
	assert.Equal(t, "u-owner", r.RecipientID)
}

func TestCreateForwardsCallerIdempotencyKey(t *testing.T) {
	var key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = r.Header.Get("Idempotency-Key")
		_, _ = w.Write([]byte(`{"reviewId":"r-2"}`))
	}))
	defer srv.Close()

	req := validReview()
	req.Idempotency = "review-custom"
	_, err := NewClient(srv.URL, time.Second, zap.NewNop()).Create(context.Background(), models.Session{Token: "tok"}, req)
	require.NoError(t, err)
	assert.Equal(t, "review-custom", key)
}

func TestCreateRejectsRatingOutOfRange(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, time.Second, zap.NewNop())

	for _, rating := range []int{0, 6} {
		req := validReview()
		req.Rating = rating
		_, err := c.Create(context.Background(), models.Session{}, req)
		var ve *models.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "rating", ve.Field)
	}
	assert.Zero(t, atomic.LoadInt32(&calls))
}
