package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"match-ticketing/config"
	"match-ticketing/internal/status"
	"match-ticketing/internal/store"
	"match-ticketing/models"
	"match-ticketing/monitoring"
	"match-ticketing/utils"
)

// BookingService owns the reservation step: the atomic inventory
// decrement and the transition of the caller's queue entry to completed,
// with best-effort compensation when the second write fails.
type BookingService struct {
	store      store.Store
	notifier   *Notifier
	supervisor *TimeoutSupervisor
	monitor    *monitoring.Monitor
	config     *config.Config
}

func NewBookingService(st store.Store, notifier *Notifier, supervisor *TimeoutSupervisor, monitor *monitoring.Monitor, cfg *config.Config) *BookingService {
	return &BookingService{
		store:      st,
		notifier:   notifier,
		supervisor: supervisor,
		monitor:    monitor,
		config:     cfg,
	}
}

type BookingResult struct {
	Message   string          `json:"message"`
	Reference string          `json:"reference"`
	Quantity  int             `json:"quantity"`
	Total     decimal.Decimal `json:"total"`
}

// ConfirmBooking takes quantity tickets from the stand and completes the
// caller's queue entry. The decrement is a single conditional UPDATE
// (available_tickets >= quantity checked in the write itself), so two
// concurrent bookings can never oversell a stand.
func (s *BookingService) ConfirmBooking(ctx context.Context, userID, matchID, standID string, quantity int) (*BookingResult, error) {
	if userID == "" {
		return nil, status.ErrIdentityUnavailable
	}
	if quantity < 1 || quantity > s.config.MaxTicketsPerBuy {
		return nil, status.ErrInvalidQuantity
	}

	entry, err := s.store.FindEntry(ctx, userID, matchID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, status.ErrNotAuthorized
	}
	switch entry.Status {
	case models.StatusProcessing:
		// Holds the booking window, proceed.
	case models.StatusExpired:
		return nil, status.ErrSessionExpired
	default:
		return nil, status.ErrInvalidState
	}

	stand, err := s.store.FindStand(ctx, standID)
	if err != nil {
		return nil, err
	}
	if stand.MatchID != matchID {
		return nil, status.ErrStandMismatch
	}

	taken, err := s.store.DecrementStand(ctx, standID, quantity)
	if err != nil {
		s.monitor.TrackBooking(matchID, "error", 0)
		return nil, err
	}
	if !taken {
		s.monitor.TrackBooking(matchID, "sold_out", 0)
		return nil, status.ErrInsufficientTickets
	}

	completed, err := s.store.CompleteEntry(ctx, entry.ID)
	if err != nil || !completed {
		s.compensate(ctx, standID, quantity)
		if err != nil {
			s.monitor.TrackBooking(matchID, "error", 0)
			return nil, fmt.Errorf("complete queue entry: %w", err)
		}
		// The entry left processing between our status check and the
		// write: the window expired under us.
		s.monitor.TrackBooking(matchID, "expired", 0)
		return nil, status.ErrSessionExpired
	}

	s.supervisor.Cancel(entry.ID)

	reference, err := utils.GenerateCode(4)
	if err != nil {
		reference = entry.ID
	}

	s.monitor.TrackBooking(matchID, "success", quantity)
	s.notifier.NotifyBooked(userID, matchID, quantity, reference)
	slog.Info("booking confirmed",
		"match_id", matchID,
		"stand_id", standID,
		"quantity", quantity,
		"reference", reference,
	)

	return &BookingResult{
		Message:   fmt.Sprintf("Successfully booked %d ticket(s)!", quantity),
		Reference: reference,
		Quantity:  quantity,
		Total:     stand.Price.Mul(decimal.NewFromInt(int64(quantity))),
	}, nil
}

// compensate hands the decremented tickets back after a failed
// completion. Best-effort only: its own failure is logged and swallowed,
// leaving inventory under-counted relative to entries. The primary
// failure is what propagates to the caller.
func (s *BookingService) compensate(ctx context.Context, standID string, quantity int) {
	if err := s.store.RestoreStand(context.WithoutCancel(ctx), standID, quantity); err != nil {
		slog.Error("booking compensation failed, inventory under-counted",
			"stand_id", standID,
			"quantity", quantity,
			"error", err,
		)
	}
}
