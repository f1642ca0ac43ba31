package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"

	"match-ticketing/internal/status"
)

// toAPIError converts the service error taxonomy into user-facing API
// errors. Storage failures are logged with detail but surfaced
// generically: no raw driver error ever reaches the client.
func toAPIError(err error) error {
	switch {
	case errors.Is(err, status.ErrIdentityUnavailable):
		return apis.NewBadRequestError("Your session could not be established. Please try again.", err)
	case errors.Is(err, status.ErrNotAuthorized):
		return apis.NewForbiddenError("You are not in the queue for this match.", err)
	case errors.Is(err, status.ErrInvalidState):
		return apis.NewBadRequestError("Your queue status does not allow this action.", err)
	case errors.Is(err, status.ErrSessionExpired):
		return apis.NewBadRequestError("Your booking session has expired. Please rejoin the queue.", err)
	case errors.Is(err, status.ErrBookingClosed):
		return apis.NewBadRequestError("Booking has not opened for this match yet.", err)
	case errors.Is(err, status.ErrMatchNotFound):
		return apis.NewNotFoundError("Match not found.", err)
	case errors.Is(err, status.ErrStandNotFound), errors.Is(err, status.ErrStandMismatch):
		return apis.NewNotFoundError("Stand not found for this match.", err)
	case errors.Is(err, status.ErrInvalidQuantity):
		return apis.NewBadRequestError("Please select between 1 and 2 tickets.", err)
	case errors.Is(err, status.ErrInsufficientTickets):
		return apis.NewBadRequestError("Not enough tickets available. Please select a different stand or quantity.", err)
	default:
		slog.Error("request failed", "error", err)
		return apis.NewApiError(http.StatusInternalServerError,
			"An error occurred while processing your request. Please try again.", nil)
	}
}
