package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentathing/models"
)

func TestStatusFor(t *testing.T) {
	cases := map[int]error{
		http.StatusBadRequest:          models.NewValidationError("startDate", "is required"),
		http.StatusForbidden:           models.ErrNotParticipant,
		http.StatusNotFound:            fmt.Errorf("fetch listing: %w", models.ErrNotFound),
		http.StatusConflict:            &models.StateConflictError{Action: "accept", Status: models.StatusAccepted},
		http.StatusBadGateway:          &models.RequestError{Op: "create booking", StatusCode: 422, Message: "bad"},
		http.StatusServiceUnavailable:  &models.NetworkError{Op: "append", Err: errors.New("eof")},
		http.StatusAccepted:            &models.PartialFailureError{Action: "cancel", BookingID: "bk-1", Err: &models.NetworkError{Op: "append", Err: errors.New("eof")}},
		http.StatusInternalServerError: errors.New("boom"),
	}
	for want, err := range cases {
		got, _ := StatusFor(err)
		assert.Equal(t, want, got, err.Error())
	}
}

func TestRespondErrorBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondError(c, models.NewValidationError("endDate", "must not be before the start date"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Invalid input", body.Message)
	assert.Equal(t, "endDate: must not be before the start date", body.Details)
}
