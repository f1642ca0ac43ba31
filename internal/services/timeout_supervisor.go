package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"match-ticketing/config"
	"match-ticketing/internal/store"
	"match-ticketing/models"
	"match-ticketing/monitoring"
)

// TimeoutSupervisor enforces the fixed booking window that starts when an
// entry is promoted to processing. One timer per in-flight entry, plus a
// sweeper that catches timers lost to restarts. Expiry and completion
// both race on the same conditional UPDATE, so the window can never fire
// against an entry that already left processing.
type TimeoutSupervisor struct {
	store    store.Store
	notifier *Notifier
	monitor  *monitoring.Monitor

	window        time.Duration
	sweepInterval time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewTimeoutSupervisor(st store.Store, notifier *Notifier, monitor *monitoring.Monitor, cfg *config.Config) *TimeoutSupervisor {
	return &TimeoutSupervisor{
		store:         st,
		notifier:      notifier,
		monitor:       monitor,
		window:        cfg.BookingWindow,
		sweepInterval: cfg.SweepInterval,
		timers:        make(map[string]*time.Timer),
		stopChan:      make(chan struct{}),
	}
}

// Start re-arms windows for entries that were already processing (server
// restart) and begins the background sweeper.
func (s *TimeoutSupervisor) Start() {
	s.restore()

	s.wg.Add(1)
	go s.sweeper()
}

func (s *TimeoutSupervisor) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

// Arm starts (or restarts) the countdown for a promoted entry. A window
// that is already past its deadline expires immediately.
func (s *TimeoutSupervisor) Arm(entryID, userID, matchID string, promotedAt time.Time) {
	remaining := s.window - time.Since(promotedAt)
	if remaining <= 0 {
		s.expire(entryID, userID, matchID)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.timers[entryID]; ok {
		existing.Stop()
	}
	s.timers[entryID] = time.AfterFunc(remaining, func() {
		s.expire(entryID, userID, matchID)
	})
}

// Cancel drops the countdown for an entry that left processing by other
// means (completed booking, explicit leave).
func (s *TimeoutSupervisor) Cancel(entryID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[entryID]; ok {
		timer.Stop()
		delete(s.timers, entryID)
	}
}

func (s *TimeoutSupervisor) expire(entryID, userID, matchID string) {
	s.Cancel(entryID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	expired, err := s.store.ExpireEntry(ctx, entryID)
	if err != nil {
		slog.Error("expire queue entry", "entry_id", entryID, "error", err)
		return
	}
	if !expired {
		// Entry already completed or expired; nothing to fire.
		return
	}

	slog.Info("booking window elapsed", "entry_id", entryID, "match_id", matchID)
	s.monitor.TrackWindowExpiration(matchID)
	s.notifier.NotifyExpired(userID, matchID)
}

func (s *TimeoutSupervisor) sweeper() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopChan:
			return
		}
	}
}

// sweep expires processing entries whose deadline passed without a timer
// firing. Entries with a live timer are left alone.
func (s *TimeoutSupervisor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entries, err := s.store.ListProcessing(ctx)
	if err != nil {
		slog.Error("sweep processing entries", "error", err)
		return
	}

	for _, entry := range entries {
		if entry.ProcessingAt == nil {
			// Promotion without a timestamp should not happen; expire it
			// rather than let the entry hold a slot forever.
			s.expire(entry.ID, entry.UserID, entry.MatchID)
			continue
		}
		if time.Since(*entry.ProcessingAt) >= s.window {
			s.expire(entry.ID, entry.UserID, entry.MatchID)
		}
	}
}

func (s *TimeoutSupervisor) restore() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entries, err := s.store.ListProcessing(ctx)
	if err != nil {
		slog.Error("restore booking windows", "error", err)
		return
	}

	for _, entry := range entries {
		s.restoreEntry(entry)
	}

	if len(entries) > 0 {
		slog.Info("restored booking windows", "count", len(entries))
	}
}

func (s *TimeoutSupervisor) restoreEntry(entry *models.QueueEntry) {
	if entry.ProcessingAt == nil {
		s.expire(entry.ID, entry.UserID, entry.MatchID)
		return
	}
	s.Arm(entry.ID, entry.UserID, entry.MatchID, *entry.ProcessingAt)
}
