package handlers

import (
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"match-ticketing/internal/store"
	"match-ticketing/models"
)

// MatchHandler serves the read-only browse surface: match listings and
// stand availability. No queue state is touched here.
type MatchHandler struct {
	app   *pocketbase.PocketBase
	store store.Store
}

func NewMatchHandler(app *pocketbase.PocketBase, st store.Store) *MatchHandler {
	return &MatchHandler{
		app:   app,
		store: st,
	}
}

func (h *MatchHandler) List(e *core.RequestEvent) error {
	matches, err := h.store.ListMatches(e.Request.Context())
	if err != nil {
		return toAPIError(err)
	}

	now := time.Now()
	out := make([]map[string]any, 0, len(matches))
	for _, match := range matches {
		out = append(out, matchJSON(match, now))
	}
	return e.JSON(http.StatusOK, map[string]any{"matches": out})
}

func (h *MatchHandler) Get(e *core.RequestEvent) error {
	matchID := e.Request.PathValue("matchId")

	match, err := h.store.FindMatch(e.Request.Context(), matchID)
	if err != nil {
		return toAPIError(err)
	}
	return e.JSON(http.StatusOK, matchJSON(match, time.Now()))
}

func (h *MatchHandler) Stands(e *core.RequestEvent) error {
	matchID := e.Request.PathValue("matchId")

	// 404 for unknown matches rather than an empty stand list.
	if _, err := h.store.FindMatch(e.Request.Context(), matchID); err != nil {
		return toAPIError(err)
	}

	stands, err := h.store.ListStands(e.Request.Context(), matchID)
	if err != nil {
		return toAPIError(err)
	}

	out := make([]map[string]any, 0, len(stands))
	for _, stand := range stands {
		out = append(out, map[string]any{
			"id":                stand.ID,
			"stand_name":        stand.StandName,
			"total_tickets":     stand.TotalTickets,
			"available_tickets": stand.AvailableTickets,
			"price":             stand.Price,
			"sold_out":          stand.SoldOut(),
		})
	}
	return e.JSON(http.StatusOK, map[string]any{"stands": out})
}

func matchJSON(match *models.Match, now time.Time) map[string]any {
	return map[string]any{
		"id":               match.ID,
		"match_name":       match.MatchName,
		"venue":            match.Venue,
		"match_datetime":   match.MatchDatetime,
		"booking_opens_at": match.BookingOpensAt,
		"booking_open":     match.BookingOpen(now),
	}
}
