package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rentathing/models"
	"rentathing/services/negotiation"
	"rentathing/utils"
)

const defaultActivityLimit = 50

// NegotiationHandler serves the booking negotiation endpoints of a conversation.
type NegotiationHandler struct {
	Service NegotiationService
}

func NewNegotiationHandler(svc NegotiationService) *NegotiationHandler {
	return &NegotiationHandler{Service: svc}
}

// GetNegotiationHandler returns the reconciled view for the caller.
func (h *NegotiationHandler) GetNegotiationHandler(c *gin.Context) {
	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	view, err := h.Service.View(c.Request.Context(), sess, c.Param("chatId"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"negotiation": view})
}

// StreamNegotiationHandler pushes a "view" server-sent event every time the
// conversation's reconciled state changes, until the client disconnects.
func (h *NegotiationHandler) StreamNegotiationHandler(c *gin.Context) {
	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	// Only the newest view matters; a slow client skips intermediate ones.
	views := make(chan models.NegotiationView, 1)
	tracker, err := h.Service.Track(ctx, sess, c.Param("chatId"), func(v models.NegotiationView) {
		select {
		case views <- v:
		default:
			select {
			case <-views:
			default:
			}
			views <- v
		}
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	defer tracker.Close()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case v := <-views:
			c.SSEvent("view", v)
			return true
		}
	})
}

// GetActivityHandler lists the conversation's action ledger, newest first.
func (h *NegotiationHandler) GetActivityHandler(c *gin.Context) {
	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	limit := int64(defaultActivityLimit)
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			utils.JSONError(c, http.StatusBadRequest, "Invalid limit", "limit must be a positive integer")
			return
		}
		limit = n
	}
	records, err := h.Service.Activity(c.Request.Context(), sess, c.Param("chatId"), limit)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": records})
}

// GetOfferHandler returns one booking record of the conversation's listing.
func (h *NegotiationHandler) GetOfferHandler(c *gin.Context) {
	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	b, err := h.Service.Booking(c.Request.Context(), sess, c.Param("chatId"), c.Param("bookingId"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

func (h *NegotiationHandler) MakeOfferHandler(c *gin.Context) {
	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	var in negotiation.OfferInput
	if !bindJSON(c, &in) {
		return
	}
	res, err := h.Service.MakeOffer(c.Request.Context(), sess, c.Param("chatId"), in)
	respondResult(c, http.StatusCreated, res, err)
}

func (h *NegotiationHandler) EditOfferHandler(c *gin.Context) {
	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	var in negotiation.OfferInput
	if !bindJSON(c, &in) {
		return
	}
	res, err := h.Service.EditOffer(c.Request.Context(), sess, c.Param("chatId"), c.Param("bookingId"), in)
	respondResult(c, http.StatusOK, res, err)
}

func (h *NegotiationHandler) CancelOfferHandler(c *gin.Context) {
	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	res, err := h.Service.CancelOffer(c.Request.Context(), sess, c.Param("chatId"), c.Param("bookingId"))
	respondResult(c, http.StatusOK, res, err)
}

func (h *NegotiationHandler) AcceptOfferHandler(c *gin.Context) {
	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	res, err := h.Service.AcceptOffer(c.Request.Context(), sess, c.Param("chatId"), c.Param("bookingId"))
	respondResult(c, http.StatusOK, res, err)
}

func (h *NegotiationHandler) PayHandler(c *gin.Context) {
	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	var in negotiation.PayInput
	if !bindJSON(c, &in) {
		return
	}
	res, err := h.Service.Pay(c.Request.Context(), sess, c.Param("chatId"), c.Param("bookingId"), in)
	respondResult(c, http.StatusOK, res, err)
}

func (h *NegotiationHandler) CompleteHandler(c *gin.Context) {
	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	res, err := h.Service.CompleteBooking(c.Request.Context(), sess, c.Param("chatId"), c.Param("bookingId"))
	respondResult(c, http.StatusOK, res, err)
}

func (h *NegotiationHandler) ReviewHandler(c *gin.Context) {
	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	var in negotiation.ReviewInput
	if !bindJSON(c, &in) {
		return
	}
	res, err := h.Service.Review(c.Request.Context(), sess, c.Param("chatId"), c.Param("bookingId"), in)
	respondResult(c, http.StatusCreated, res, err)
}

// respondResult writes an action result. A partial failure still carries the
// committed booking, so it is answered with 202 and a warning instead of an
// error body.
func respondResult(c *gin.Context, status int, res *negotiation.Result, err error) {
	var partial *models.PartialFailureError
	if errors.As(err, &partial) && res != nil {
		utils.GetLogger().Warn("Action committed without chat update",
			zap.String("action", partial.Action), zap.String("bookingID", partial.BookingID), zap.Error(err))
		c.JSON(http.StatusAccepted, gin.H{"result": res, "warning": partial.Error()})
		return
	}
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(status, gin.H{"result": res})
}
