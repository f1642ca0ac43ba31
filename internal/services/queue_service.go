package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"match-ticketing/config"
	"match-ticketing/internal/status"
	"match-ticketing/internal/store"
	"match-ticketing/models"
	"match-ticketing/monitoring"
)

// QueueService owns the queue entry lifecycle: joining, position
// computation and the waiting -> processing promotion. Promotion is the
// only admission chokepoint and is serialized per match through a Redis
// advisory lock.
type QueueService struct {
	store      store.Store
	Redis      *redis.Client
	notifier   *Notifier
	supervisor *TimeoutSupervisor
	monitor    *monitoring.Monitor
	config     *config.Config
}

func NewQueueService(st store.Store, redisClient *redis.Client, notifier *Notifier, supervisor *TimeoutSupervisor, monitor *monitoring.Monitor, cfg *config.Config) *QueueService {
	return &QueueService{
		store:      st,
		Redis:      redisClient,
		notifier:   notifier,
		supervisor: supervisor,
		monitor:    monitor,
		config:     cfg,
	}
}

// JoinQueue is idempotent: a caller with an active entry for the match
// gets that entry back unchanged instead of a duplicate.
func (s *QueueService) JoinQueue(ctx context.Context, userID, matchID string) (*models.QueueEntry, error) {
	if userID == "" {
		return nil, status.ErrIdentityUnavailable
	}

	match, err := s.store.FindMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.BookingOpen(time.Now()) {
		return nil, status.ErrBookingClosed
	}

	existing, err := s.store.FindActiveEntry(ctx, userID, matchID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	entry, err := s.store.CreateEntry(ctx, userID, matchID, time.Now().UTC())
	if err != nil {
		s.monitor.TrackQueueOperation("join", matchID, "error")
		return nil, err
	}

	s.monitor.TrackQueueOperation("join", matchID, "success")
	slog.Info("user joined queue", "match_id", matchID, "entry_id", entry.ID)
	return entry, nil
}

// Position returns how many waiting entries are ahead of the caller's,
// or nil when the caller has no entry for the match. The value is a
// point-in-time count, not a reserved rank.
func (s *QueueService) Position(ctx context.Context, userID, matchID string) (*int, error) {
	if userID == "" {
		return nil, status.ErrIdentityUnavailable
	}

	entry, err := s.store.FindEntry(ctx, userID, matchID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}

	count, err := s.store.CountWaitingAhead(ctx, matchID, entry.JoinedAt, entry.ID)
	if err != nil {
		return nil, err
	}
	return &count, nil
}

// CheckAndPromote promotes the caller's entry to processing when it is
// at the head of the waiting line, and arms the booking window. At most
// one entry is promoted per call. Concurrent calls for the same match
// are mutually exclusive: the loser of the lock race simply gets false
// and retries on its next poll tick.
func (s *QueueService) CheckAndPromote(ctx context.Context, matchID, userID string) (bool, error) {
	if userID == "" {
		return false, status.ErrIdentityUnavailable
	}

	lockKey := fmt.Sprintf("lock:promote:%s", matchID)
	acquired, err := s.Redis.SetNX(ctx, lockKey, userID, s.config.PromoteLockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquire promotion lock: %w", err)
	}
	if !acquired {
		return false, nil
	}
	defer s.Redis.Del(ctx, lockKey)

	head, err := s.store.HeadOfLine(ctx, matchID)
	if err != nil {
		return false, err
	}
	if head == nil || head.UserID != userID {
		return false, nil
	}

	now := time.Now().UTC()
	promoted, err := s.store.PromoteEntry(ctx, head.ID, now)
	if err != nil {
		s.monitor.TrackQueueOperation("promote", matchID, "error")
		return false, err
	}
	if !promoted {
		// Head left waiting between the read and the write.
		return false, nil
	}

	s.supervisor.Arm(head.ID, userID, matchID, now)
	s.notifier.NotifyPromoted(userID, matchID)
	s.monitor.TrackPromotion(matchID)
	slog.Info("promoted to processing", "match_id", matchID, "entry_id", head.ID)
	return true, nil
}

// Status returns the caller's newest entry for the match, or nil when
// none exists. Pages use this to route the user to the view matching
// the entry's actual state.
func (s *QueueService) Status(ctx context.Context, userID, matchID string) (*models.QueueEntry, error) {
	if userID == "" {
		return nil, status.ErrIdentityUnavailable
	}
	return s.store.FindEntry(ctx, userID, matchID)
}

// LeaveQueue abandons the caller's active entry. The entry is marked
// expired, never deleted.
func (s *QueueService) LeaveQueue(ctx context.Context, userID, matchID string) error {
	if userID == "" {
		return status.ErrIdentityUnavailable
	}

	entry, err := s.store.FindActiveEntry(ctx, userID, matchID)
	if err != nil {
		return err
	}
	if entry == nil {
		return status.ErrNotAuthorized
	}

	expired, err := s.store.ExpireEntry(ctx, entry.ID)
	if err != nil {
		return err
	}
	if expired {
		s.supervisor.Cancel(entry.ID)
		s.monitor.TrackQueueOperation("leave", matchID, "success")
	}
	return nil
}
