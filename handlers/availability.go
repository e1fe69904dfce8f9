package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rentathing/models"
	"rentathing/services/negotiation"
	"rentathing/utils"
)

// AvailabilityHandler exposes a listing's bookable window and blocked dates
// for the offer date picker.
type AvailabilityHandler struct {
	Listings  negotiation.Listings
	Calendars negotiation.Calendars
}

func NewAvailabilityHandler(listings negotiation.Listings, calendars negotiation.Calendars) *AvailabilityHandler {
	return &AvailabilityHandler{Listings: listings, Calendars: calendars}
}

// GetAvailabilityHandler answers GET /api/listings/:listingId/availability.
// With both start and end query parameters it also checks that range.
func (h *AvailabilityHandler) GetAvailabilityHandler(c *gin.Context) {
	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	startRaw, endRaw := c.Query("start"), c.Query("end")
	if (startRaw == "") != (endRaw == "") {
		utils.JSONError(c, http.StatusBadRequest, "Invalid input", "start and end must be given together")
		return
	}

	listing, err := h.Listings.Get(c.Request.Context(), sess, c.Param("listingId"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	cal := h.Calendars.Load(c.Request.Context(), sess, listing)

	resp := gin.H{
		"listingId":    listing.ID,
		"window":       cal.Window(),
		"blocked":      cal.Blocked(),
		"blockedDates": cal.BlockedDates(),
	}
	if startRaw != "" {
		start, err := models.ParseDate(startRaw)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Invalid input", err.Error())
			return
		}
		end, err := models.ParseDate(endRaw)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Invalid input", err.Error())
			return
		}
		resp["valid"] = true
		if err := cal.Check(start, end); err != nil {
			resp["valid"] = false
			resp["reason"] = err.Error()
		}
	}
	c.JSON(http.StatusOK, resp)
}
