package handlers

import (
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"match-ticketing/config"
	"match-ticketing/internal/identity"
	"match-ticketing/internal/services"
	"match-ticketing/models"
)

type QueueHandler struct {
	app          *pocketbase.PocketBase
	queueService *services.QueueService
	config       *config.Config
}

func NewQueueHandler(app *pocketbase.PocketBase, queueService *services.QueueService, cfg *config.Config) *QueueHandler {
	return &QueueHandler{
		app:          app,
		queueService: queueService,
		config:       cfg,
	}
}

// Join enters the caller into the waiting queue for a match. Joining is
// idempotent: a caller already holding an active entry gets it back.
func (h *QueueHandler) Join(e *core.RequestEvent) error {
	userID, err := identity.FromEvent(e)
	if err != nil {
		return toAPIError(err)
	}

	var req struct {
		MatchID string `json:"match_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.MatchID == "" {
		return apis.NewBadRequestError("Match ID required", nil)
	}

	entry, err := h.queueService.JoinQueue(e.Request.Context(), userID, req.MatchID)
	if err != nil {
		return toAPIError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"message":               "Successfully joined queue",
		"entry_id":              entry.ID,
		"status":                entry.Status,
		"poll_interval_seconds": int(h.config.PollInterval.Seconds()),
	})
}

// Position reports how many waiting users are ahead of the caller.
// Advisory only: the count can change between polls.
func (h *QueueHandler) Position(e *core.RequestEvent) error {
	userID, err := identity.FromEvent(e)
	if err != nil {
		return toAPIError(err)
	}

	matchID := e.Request.URL.Query().Get("match_id")
	if matchID == "" {
		return apis.NewBadRequestError("Match ID required", nil)
	}

	position, err := h.queueService.Position(e.Request.Context(), userID, matchID)
	if err != nil {
		return toAPIError(err)
	}
	if position == nil {
		return e.JSON(http.StatusOK, map[string]any{
			"in_queue": false,
			"position": nil,
		})
	}

	return e.JSON(http.StatusOK, map[string]any{
		"in_queue": true,
		"position": *position,
	})
}

// CheckTurn promotes the caller when they are at the head of the line.
// Clients call this on their poll tick; a false response just means
// "keep waiting".
func (h *QueueHandler) CheckTurn(e *core.RequestEvent) error {
	userID, err := identity.FromEvent(e)
	if err != nil {
		return toAPIError(err)
	}

	var req struct {
		MatchID string `json:"match_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.MatchID == "" {
		return apis.NewBadRequestError("Match ID required", nil)
	}

	promoted, err := h.queueService.CheckAndPromote(e.Request.Context(), req.MatchID, userID)
	if err != nil {
		return toAPIError(err)
	}

	resp := map[string]any{"your_turn": promoted}
	if promoted {
		resp["booking_window_seconds"] = int(h.config.BookingWindow.Seconds())
	}
	return e.JSON(http.StatusOK, resp)
}

// Status returns the caller's entry state so the client can route to
// the matching page (waiting, booking, confirmation, or back to start).
func (h *QueueHandler) Status(e *core.RequestEvent) error {
	userID, err := identity.FromEvent(e)
	if err != nil {
		return toAPIError(err)
	}

	matchID := e.Request.URL.Query().Get("match_id")
	if matchID == "" {
		return apis.NewBadRequestError("Match ID required", nil)
	}

	entry, err := h.queueService.Status(e.Request.Context(), userID, matchID)
	if err != nil {
		return toAPIError(err)
	}
	if entry == nil {
		return apis.NewForbiddenError("You are not in the queue for this match.", nil)
	}

	resp := map[string]any{
		"status":    entry.Status,
		"joined_at": entry.JoinedAt,
	}
	if entry.Status == models.StatusProcessing {
		deadline := entry.WindowDeadline(h.config.BookingWindow)
		remaining := int(time.Until(deadline).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		resp["window_remaining_seconds"] = remaining
	}
	return e.JSON(http.StatusOK, resp)
}

// Leave abandons the caller's active entry.
func (h *QueueHandler) Leave(e *core.RequestEvent) error {
	userID, err := identity.FromEvent(e)
	if err != nil {
		return toAPIError(err)
	}

	var req struct {
		MatchID string `json:"match_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.MatchID == "" {
		return apis.NewBadRequestError("Match ID required", nil)
	}

	if err := h.queueService.LeaveQueue(e.Request.Context(), userID, req.MatchID); err != nil {
		return toAPIError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"message": "Successfully left queue"})
}
