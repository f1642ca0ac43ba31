package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"match-ticketing/internal/identity"
	"match-ticketing/internal/services"
)

type BookingHandler struct {
	app            *pocketbase.PocketBase
	bookingService *services.BookingService
}

func NewBookingHandler(app *pocketbase.PocketBase, bookingService *services.BookingService) *BookingHandler {
	return &BookingHandler{
		app:            app,
		bookingService: bookingService,
	}
}

// Confirm books tickets against a stand for a caller holding the
// booking window.
func (h *BookingHandler) Confirm(e *core.RequestEvent) error {
	userID, err := identity.FromEvent(e)
	if err != nil {
		return toAPIError(err)
	}

	var req struct {
		MatchID  string `json:"match_id"`
		StandID  string `json:"stand_id"`
		Quantity int    `json:"quantity"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.MatchID == "" || req.StandID == "" {
		return apis.NewBadRequestError("Match ID and stand ID required", nil)
	}

	result, err := h.bookingService.ConfirmBooking(e.Request.Context(), userID, req.MatchID, req.StandID, req.Quantity)
	if err != nil {
		return toAPIError(err)
	}

	return e.JSON(http.StatusOK, result)
}
