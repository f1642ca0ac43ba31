package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"match-ticketing/internal/status"
	"match-ticketing/models"
)

// fakeStore is an in-memory Store with the same conditional-write
// semantics as the SQL implementation, so the services can be exercised
// without a database.
type fakeStore struct {
	mu      sync.Mutex
	matches map[string]*models.Match
	stands  map[string]*models.Stand
	entries []*models.QueueEntry
	seq     int

	findEntryErr error
	decrementErr error
	completeErr  error
	restoreErr   error

	restoreCalls  int
	completeDenied bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		matches: make(map[string]*models.Match),
		stands:  make(map[string]*models.Stand),
	}
}

func (f *fakeStore) addMatch(match *models.Match) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matches[match.ID] = match
}

func (f *fakeStore) addStand(stand *models.Stand) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stands[stand.ID] = stand
}

func (f *fakeStore) addEntry(entry *models.QueueEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
}

func (f *fakeStore) entryByID(id string) *models.QueueEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, entry := range f.entries {
		if entry.ID == id {
			return entry
		}
	}
	return nil
}

func (f *fakeStore) FindMatch(ctx context.Context, matchID string) (*models.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	match, ok := f.matches[matchID]
	if !ok {
		return nil, status.ErrMatchNotFound
	}
	return match, nil
}

func (f *fakeStore) ListMatches(ctx context.Context) ([]*models.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	matches := make([]*models.Match, 0, len(f.matches))
	for _, match := range f.matches {
		matches = append(matches, match)
	}
	return matches, nil
}

func (f *fakeStore) FindStand(ctx context.Context, standID string) (*models.Stand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stand, ok := f.stands[standID]
	if !ok {
		return nil, status.ErrStandNotFound
	}
	return stand, nil
}

func (f *fakeStore) ListStands(ctx context.Context, matchID string) ([]*models.Stand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var stands []*models.Stand
	for _, stand := range f.stands {
		if stand.MatchID == matchID {
			stands = append(stands, stand)
		}
	}
	return stands, nil
}

func (f *fakeStore) DecrementStand(ctx context.Context, standID string, qty int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.decrementErr != nil {
		return false, f.decrementErr
	}
	stand, ok := f.stands[standID]
	if !ok || stand.AvailableTickets < qty {
		return false, nil
	}
	stand.AvailableTickets -= qty
	return true, nil
}

func (f *fakeStore) RestoreStand(ctx context.Context, standID string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restoreCalls++
	if f.restoreErr != nil {
		return f.restoreErr
	}
	stand, ok := f.stands[standID]
	if !ok {
		return status.ErrStandNotFound
	}
	stand.AvailableTickets += qty
	if stand.AvailableTickets > stand.TotalTickets {
		stand.AvailableTickets = stand.TotalTickets
	}
	return nil
}

func (f *fakeStore) FindActiveEntry(ctx context.Context, userID, matchID string) (*models.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, entry := range f.entries {
		if entry.UserID == userID && entry.MatchID == matchID && entry.Active() {
			return entry, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindEntry(ctx context.Context, userID, matchID string) (*models.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findEntryErr != nil {
		return nil, f.findEntryErr
	}
	var newest *models.QueueEntry
	for _, entry := range f.entries {
		if entry.UserID != userID || entry.MatchID != matchID {
			continue
		}
		if newest == nil || entry.JoinedAt.After(newest.JoinedAt) ||
			(entry.JoinedAt.Equal(newest.JoinedAt) && entry.ID > newest.ID) {
			newest = entry
		}
	}
	return newest, nil
}

func (f *fakeStore) CreateEntry(ctx context.Context, userID, matchID string, joinedAt time.Time) (*models.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	entry := &models.QueueEntry{
		ID:       fmt.Sprintf("entry%03d", f.seq),
		UserID:   userID,
		MatchID:  matchID,
		JoinedAt: joinedAt,
		Status:   models.StatusWaiting,
	}
	f.entries = append(f.entries, entry)
	return entry, nil
}

func (f *fakeStore) CountWaitingAhead(ctx context.Context, matchID string, joinedAt time.Time, entryID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, entry := range f.entries {
		if entry.MatchID != matchID || entry.Status != models.StatusWaiting {
			continue
		}
		if entry.JoinedAt.Before(joinedAt) ||
			(entry.JoinedAt.Equal(joinedAt) && entry.ID < entryID) {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) HeadOfLine(ctx context.Context, matchID string) (*models.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var waiting []*models.QueueEntry
	for _, entry := range f.entries {
		if entry.MatchID == matchID && entry.Status == models.StatusWaiting {
			waiting = append(waiting, entry)
		}
	}
	if len(waiting) == 0 {
		return nil, nil
	}
	sort.Slice(waiting, func(i, j int) bool {
		if !waiting[i].JoinedAt.Equal(waiting[j].JoinedAt) {
			return waiting[i].JoinedAt.Before(waiting[j].JoinedAt)
		}
		return waiting[i].ID < waiting[j].ID
	})
	return waiting[0], nil
}

func (f *fakeStore) PromoteEntry(ctx context.Context, entryID string, promotedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, entry := range f.entries {
		if entry.ID == entryID && entry.Status == models.StatusWaiting {
			entry.Status = models.StatusProcessing
			at := promotedAt
			entry.ProcessingAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CompleteEntry(ctx context.Context, entryID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return false, f.completeErr
	}
	if f.completeDenied {
		return false, nil
	}
	for _, entry := range f.entries {
		if entry.ID == entryID && entry.Status == models.StatusProcessing {
			entry.Status = models.StatusCompleted
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ExpireEntry(ctx context.Context, entryID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, entry := range f.entries {
		if entry.ID == entryID && entry.Active() {
			entry.Status = models.StatusExpired
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ListProcessing(ctx context.Context) ([]*models.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var processing []*models.QueueEntry
	for _, entry := range f.entries {
		if entry.Status == models.StatusProcessing {
			processing = append(processing, entry)
		}
	}
	return processing, nil
}

func (f *fakeStore) CountByStatus(ctx context.Context, matchID string, st models.QueueStatus) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, entry := range f.entries {
		if entry.MatchID == matchID && entry.Status == st {
			count++
		}
	}
	return count, nil
}
