package models

import (
	"time"
)

type QueueStatus string

const (
	StatusWaiting    QueueStatus = "waiting"
	StatusProcessing QueueStatus = "processing"
	StatusCompleted  QueueStatus = "completed"
	StatusExpired    QueueStatus = "expired"
)

// QueueEntry is one user's claim on a turn to book tickets for one match.
// Entries are never deleted; completed and expired are terminal statuses.
type QueueEntry struct {
	ID           string      `json:"id"`
	UserID       string      `json:"user_id"`
	MatchID      string      `json:"match_id"`
	JoinedAt     time.Time   `json:"joined_at"`
	ProcessingAt *time.Time  `json:"processing_at,omitempty"`
	Status       QueueStatus `json:"status"`
}

// Active reports whether the entry still holds a place in the queue.
func (e *QueueEntry) Active() bool {
	return e.Status == StatusWaiting || e.Status == StatusProcessing
}

// Terminal reports whether the entry can never transition again.
func (e *QueueEntry) Terminal() bool {
	return e.Status == StatusCompleted || e.Status == StatusExpired
}

// WindowDeadline returns the instant the booking window closes for a
// processing entry. The zero time is returned for entries that were
// never promoted.
func (e *QueueEntry) WindowDeadline(window time.Duration) time.Time {
	if e.ProcessingAt == nil {
		return time.Time{}
	}
	return e.ProcessingAt.Add(window)
}
