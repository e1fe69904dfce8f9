package models

import (
	"errors"
	"fmt"
)

// ErrNotParticipant is returned when the caller is not part of a conversation.
var ErrNotParticipant = errors.New("caller is not a participant of this conversation")

// ErrNotFound is returned when a remote resource does not exist.
var ErrNotFound = errors.New("not found")

// NetworkError reports that a remote service could not be reached.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError reports bad input caught before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// StateConflictError reports an action the current negotiation state forbids.
type StateConflictError struct {
	Action string
	Status BookingStatus
	Reason string
}

func (e *StateConflictError) Error() string {
	if e.Status == "" {
		return fmt.Sprintf("cannot %s: %s", e.Action, e.Reason)
	}
	return fmt.Sprintf("cannot %s booking in status %s: %s", e.Action, e.Status, e.Reason)
}

// RequestError is a non-2xx response from a remote API.
type RequestError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: remote returned %d: %s", e.Op, e.StatusCode, e.Message)
}

// PartialFailureError reports that the first step of a two-step action
// committed but the follow-up chat message could not be appended.
type PartialFailureError struct {
	Action    string
	BookingID string
	Err       error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s committed for booking %s but chat update failed: %v", e.Action, e.BookingID, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }
