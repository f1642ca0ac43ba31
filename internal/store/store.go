package store

import (
	"context"
	"time"

	"match-ticketing/models"
)

// Store is the persistence boundary for matches, stands and queue entries.
// Find* methods that look up queue entries return (nil, nil) when no row
// matches, so callers can distinguish "absent" from storage failures.
type Store interface {
	// Matches and stands.
	FindMatch(ctx context.Context, matchID string) (*models.Match, error)
	ListMatches(ctx context.Context) ([]*models.Match, error)
	FindStand(ctx context.Context, standID string) (*models.Stand, error)
	ListStands(ctx context.Context, matchID string) ([]*models.Stand, error)

	// DecrementStand atomically takes qty tickets from the stand, refusing
	// the write when fewer than qty remain. Reports whether a row changed.
	DecrementStand(ctx context.Context, standID string, qty int) (bool, error)

	// RestoreStand returns qty tickets to the stand, capped at the stand's
	// total capacity. Used only as booking compensation.
	RestoreStand(ctx context.Context, standID string, qty int) error

	// Queue entries.
	FindActiveEntry(ctx context.Context, userID, matchID string) (*models.QueueEntry, error)
	FindEntry(ctx context.Context, userID, matchID string) (*models.QueueEntry, error)
	CreateEntry(ctx context.Context, userID, matchID string, joinedAt time.Time) (*models.QueueEntry, error)

	// CountWaitingAhead counts waiting entries ordered strictly before the
	// given (joinedAt, entryID) pair. Ties on joined_at break by id.
	CountWaitingAhead(ctx context.Context, matchID string, joinedAt time.Time, entryID string) (int, error)

	// HeadOfLine returns the waiting entry with the earliest
	// (joined_at, id), or (nil, nil) when nobody is waiting.
	HeadOfLine(ctx context.Context, matchID string) (*models.QueueEntry, error)

	// Conditional status transitions. Each reports whether the row was in
	// the required source status and actually changed.
	PromoteEntry(ctx context.Context, entryID string, promotedAt time.Time) (bool, error)
	CompleteEntry(ctx context.Context, entryID string) (bool, error)
	ExpireEntry(ctx context.Context, entryID string) (bool, error)

	ListProcessing(ctx context.Context) ([]*models.QueueEntry, error)
	CountByStatus(ctx context.Context, matchID string, status models.QueueStatus) (int, error)
}
