package models

import (
	"github.com/shopspring/decimal"
)

type Stand struct {
	ID               string          `json:"id"`
	MatchID          string          `json:"match_id"`
	StandName        string          `json:"stand_name"`
	TotalTickets     int             `json:"total_tickets"`
	AvailableTickets int             `json:"available_tickets"`
	Price            decimal.Decimal `json:"price"`
}

func (s *Stand) SoldOut() bool {
	return s.AvailableTickets <= 0
}
