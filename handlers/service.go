package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"rentathing/middleware"
	"rentathing/models"
	"rentathing/services/negotiation"
	"rentathing/utils"
)

// NegotiationService is what the chat and negotiation endpoints need from
// negotiation.Service.
type NegotiationService interface {
	Conversations(ctx context.Context, sess models.Session) ([]models.Conversation, error)
	Conversation(ctx context.Context, sess models.Session, convID string) (*models.Conversation, error)
	StartConversation(ctx context.Context, sess models.Session, in negotiation.StartInput) (*models.Conversation, error)
	Messages(ctx context.Context, sess models.Session, convID string) ([]models.Message, error)
	SendMessage(ctx context.Context, sess models.Session, convID string, in negotiation.MessageInput) (*models.Message, error)

	View(ctx context.Context, sess models.Session, convID string) (models.NegotiationView, error)
	Track(ctx context.Context, sess models.Session, convID string, onView func(models.NegotiationView)) (*negotiation.Tracker, error)
	Activity(ctx context.Context, sess models.Session, convID string, limit int64) ([]models.NegotiationRecord, error)
	Booking(ctx context.Context, sess models.Session, convID, bookingID string) (*models.Booking, error)

	MakeOffer(ctx context.Context, sess models.Session, convID string, in negotiation.OfferInput) (*negotiation.Result, error)
	EditOffer(ctx context.Context, sess models.Session, convID, bookingID string, in negotiation.OfferInput) (*negotiation.Result, error)
	CancelOffer(ctx context.Context, sess models.Session, convID, bookingID string) (*negotiation.Result, error)
	AcceptOffer(ctx context.Context, sess models.Session, convID, bookingID string) (*negotiation.Result, error)
	Pay(ctx context.Context, sess models.Session, convID, bookingID string, in negotiation.PayInput) (*negotiation.Result, error)
	CompleteBooking(ctx context.Context, sess models.Session, convID, bookingID string) (*negotiation.Result, error)
	Review(ctx context.Context, sess models.Session, convID, bookingID string, in negotiation.ReviewInput) (*negotiation.Result, error)
}

// sessionOrAbort fetches the caller's session placed by the auth middleware.
func sessionOrAbort(c *gin.Context) (models.Session, bool) {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "User not authenticated", "")
		return models.Session{}, false
	}
	return sess, true
}

// bindJSON decodes the request body; an empty body leaves dst untouched.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return false
	}
	return true
}
