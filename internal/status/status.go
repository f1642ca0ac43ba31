package status

import "errors"

var (
	ErrIdentityUnavailable = errors.New("identity: no client identity available")
	ErrNotAuthorized       = errors.New("queue: no active entry for caller")
	ErrInvalidState        = errors.New("queue: entry status does not allow this operation")
	ErrSessionExpired      = errors.New("queue: booking window elapsed")
	ErrBookingClosed       = errors.New("queue: booking has not opened for this match")
	ErrMatchNotFound       = errors.New("match: match not found")
	ErrStandNotFound       = errors.New("stand: stand not found")
	ErrStandMismatch       = errors.New("stand: stand does not belong to match")
	ErrInvalidQuantity     = errors.New("booking: quantity must be between 1 and 2")
	ErrInsufficientTickets = errors.New("booking: not enough tickets available")
)
