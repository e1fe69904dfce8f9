package utils

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rentathing/models"
)

// ErrorResponse defines the structure of error responses
type ErrorResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ErrorHandler is a middleware to catch panics and return structured errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				Logger := GetLogger()
				Logger.Error("Unhandled panic", zap.Any("error", err))

				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Message: "Internal Server Error",
					Details: "An unexpected error occurred. Please try again later.",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// JSONError sends a standardized JSON error response
func JSONError(c *gin.Context, status int, message string, details string) {
	Logger := GetLogger()
	Logger.Warn(message, zap.String("details", details), zap.Int("status", status), zap.String("path", c.FullPath()))
	c.JSON(status, ErrorResponse{Message: message, Details: details})
}

// StatusFor maps the error taxonomy onto an HTTP status and a short message.
func StatusFor(err error) (int, string) {
	var (
		validation *models.ValidationError
		conflict   *models.StateConflictError
		remote     *models.RequestError
		network    *models.NetworkError
		partial    *models.PartialFailureError
	)
	switch {
	case errors.As(err, &partial):
		return http.StatusAccepted, "Action saved, chat update pending"
	case errors.As(err, &validation):
		return http.StatusBadRequest, "Invalid input"
	case errors.Is(err, models.ErrNotParticipant):
		return http.StatusForbidden, "Not a participant of this conversation"
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.As(err, &conflict):
		return http.StatusConflict, "Action not allowed in the current state"
	case errors.As(err, &remote):
		return http.StatusBadGateway, "Upstream service rejected the request"
	case errors.As(err, &network):
		return http.StatusServiceUnavailable, "Upstream service unavailable, please retry"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Upstream service timed out"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}

// RespondError writes err as a standardized JSON error.
func RespondError(c *gin.Context, err error) {
	status, message := StatusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		GetLogger().Error(message, zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, ErrorResponse{Message: message, Details: err.Error()})
		return
	}
	JSONError(c, status, message, err.Error())
}
