package models

import (
	"time"
)

type Match struct {
	ID             string    `json:"id"`
	MatchName      string    `json:"match_name"`
	Venue          string    `json:"venue"`
	MatchDatetime  time.Time `json:"match_datetime"`
	BookingOpensAt time.Time `json:"booking_opens_at"`
}

// BookingOpen reports whether the booking window for this match has opened.
func (m *Match) BookingOpen(now time.Time) bool {
	return !now.Before(m.BookingOpensAt)
}
