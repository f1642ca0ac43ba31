package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"match-ticketing/internal/services"
	"match-ticketing/internal/status"
	"match-ticketing/internal/store"
	"match-ticketing/models"
)

type AdminHandler struct {
	app          *pocketbase.PocketBase
	store        store.Store
	queueService *services.QueueService
	notifier     *services.Notifier
}

func NewAdminHandler(app *pocketbase.PocketBase, st store.Store, queueService *services.QueueService, notifier *services.Notifier) *AdminHandler {
	return &AdminHandler{
		app:          app,
		store:        st,
		queueService: queueService,
		notifier:     notifier,
	}
}

// Dashboard reports queue depth per match and status.
func (h *AdminHandler) Dashboard(e *core.RequestEvent) error {
	ctx := e.Request.Context()

	matches, err := h.store.ListMatches(ctx)
	if err != nil {
		return toAPIError(err)
	}

	statuses := []models.QueueStatus{
		models.StatusWaiting,
		models.StatusProcessing,
		models.StatusCompleted,
		models.StatusExpired,
	}

	out := make([]map[string]any, 0, len(matches))
	for _, match := range matches {
		counts := make(map[string]int, len(statuses))
		for _, st := range statuses {
			count, err := h.store.CountByStatus(ctx, match.ID, st)
			if err != nil {
				return toAPIError(err)
			}
			counts[string(st)] = count
		}
		out = append(out, map[string]any{
			"match_id":   match.ID,
			"match_name": match.MatchName,
			"queue":      counts,
		})
	}

	return e.JSON(http.StatusOK, map[string]any{"dashboard": out})
}

// ExpireEntry force-expires a user's active entry: the "explicit
// administrative action" side of the waiting/processing -> expired
// transition.
func (h *AdminHandler) ExpireEntry(e *core.RequestEvent) error {
	var req struct {
		MatchID string `json:"match_id"`
		UserID  string `json:"user_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.MatchID == "" || req.UserID == "" {
		return apis.NewBadRequestError("Match ID and user ID required", nil)
	}

	if err := h.queueService.LeaveQueue(e.Request.Context(), req.UserID, req.MatchID); err != nil {
		if errors.Is(err, status.ErrNotAuthorized) {
			return apis.NewNotFoundError("No active queue entry for that user and match.", err)
		}
		return toAPIError(err)
	}

	h.notifier.NotifyExpired(req.UserID, req.MatchID)
	return e.JSON(http.StatusOK, map[string]any{"message": "Queue entry expired"})
}
