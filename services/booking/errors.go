package booking

import (
	"fmt"

	"rentathing/models"
)

var transitions = map[models.BookingStatus][]models.BookingStatus{
	models.StatusPending:  {models.StatusPending, models.StatusAccepted, models.StatusCancelled},
	models.StatusAccepted: {models.StatusCompleted, models.StatusCancelled},
}

// ValidateTransition checks a status change against the booking lifecycle.
func ValidateTransition(from, to models.BookingStatus) error {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	return &models.StateConflictError{
		Action: fmt.Sprintf("move to %s", to),
		Status: from,
		Reason: "transition not allowed",
	}
}

// ValidatePatch checks a patch against the current record. Terms may only
// change while the booking is Pending, and completion requires payment.
func ValidatePatch(current *models.Booking, patch Patch) error {
	if patch.Terms == nil && patch.Status == nil {
		return models.NewValidationError("patch", "nothing to update")
	}
	if patch.Terms != nil && current.Status != models.StatusPending {
		return &models.StateConflictError{Action: "edit", Status: current.Status, Reason: "terms are locked"}
	}
	if patch.Status == nil {
		return nil
	}
	if err := ValidateTransition(current.Status, *patch.Status); err != nil {
		return err
	}
	if *patch.Status == models.StatusCompleted && !current.Paid() {
		return &models.StateConflictError{Action: "complete", Status: current.Status, Reason: "payment has not been recorded"}
	}
	return nil
}
