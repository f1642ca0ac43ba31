package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"

	"match-ticketing/internal/status"
	"match-ticketing/models"
)

// PBStore implements Store on top of the PocketBase collections
// (matches, stands, queue). Reads go through the record API; the
// conditional transitions run as raw UPDATEs so the rows-affected count
// can be checked.
type PBStore struct {
	app core.App
}

func New(app core.App) *PBStore {
	return &PBStore{app: app}
}

func (s *PBStore) FindMatch(ctx context.Context, matchID string) (*models.Match, error) {
	record, err := s.app.FindRecordById("matches", matchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrMatchNotFound
		}
		return nil, fmt.Errorf("find match %s: %w", matchID, err)
	}
	return matchFromRecord(record), nil
}

func (s *PBStore) ListMatches(ctx context.Context) ([]*models.Match, error) {
	records, err := s.app.FindRecordsByFilter("matches", "id != ''", "match_datetime", -1, 0)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	matches := make([]*models.Match, 0, len(records))
	for _, record := range records {
		matches = append(matches, matchFromRecord(record))
	}
	return matches, nil
}

func (s *PBStore) FindStand(ctx context.Context, standID string) (*models.Stand, error) {
	record, err := s.app.FindRecordById("stands", standID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrStandNotFound
		}
		return nil, fmt.Errorf("find stand %s: %w", standID, err)
	}
	return standFromRecord(record), nil
}

func (s *PBStore) ListStands(ctx context.Context, matchID string) ([]*models.Stand, error) {
	records, err := s.app.FindRecordsByFilter(
		"stands",
		"match_id = {:matchId}",
		"stand_name",
		-1,
		0,
		dbx.Params{"matchId": matchID},
	)
	if err != nil {
		return nil, fmt.Errorf("list stands for match %s: %w", matchID, err)
	}
	stands := make([]*models.Stand, 0, len(records))
	for _, record := range records {
		stands = append(stands, standFromRecord(record))
	}
	return stands, nil
}

func (s *PBStore) DecrementStand(ctx context.Context, standID string, qty int) (bool, error) {
	result, err := s.app.DB().NewQuery(
		`UPDATE stands SET available_tickets = available_tickets - {:qty}
		 WHERE id = {:id} AND available_tickets >= {:qty}`,
	).Bind(dbx.Params{"id": standID, "qty": qty}).Execute()
	if err != nil {
		return false, fmt.Errorf("decrement stand %s: %w", standID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decrement stand %s: %w", standID, err)
	}
	return affected > 0, nil
}

func (s *PBStore) RestoreStand(ctx context.Context, standID string, qty int) error {
	// Cap at total_tickets so a stray double-compensation can never push
	// availability past capacity.
	_, err := s.app.DB().NewQuery(
		`UPDATE stands SET available_tickets = MIN(total_tickets, available_tickets + {:qty})
		 WHERE id = {:id}`,
	).Bind(dbx.Params{"id": standID, "qty": qty}).Execute()
	if err != nil {
		return fmt.Errorf("restore stand %s: %w", standID, err)
	}
	return nil
}

func (s *PBStore) FindActiveEntry(ctx context.Context, userID, matchID string) (*models.QueueEntry, error) {
	record, err := s.app.FindFirstRecordByFilter(
		"queue",
		"user_id = {:userId} && match_id = {:matchId} && (status = 'waiting' || status = 'processing')",
		dbx.Params{"userId": userID, "matchId": matchID},
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active entry: %w", err)
	}
	return entryFromRecord(record), nil
}

func (s *PBStore) FindEntry(ctx context.Context, userID, matchID string) (*models.QueueEntry, error) {
	// Terminal entries stay in the table, so a user who expired and
	// rejoined has several rows for the pair. The newest one is the one
	// the caller is acting on.
	records, err := s.app.FindRecordsByFilter(
		"queue",
		"user_id = {:userId} && match_id = {:matchId}",
		"-joined_at,-id",
		1,
		0,
		dbx.Params{"userId": userID, "matchId": matchID},
	)
	if err != nil {
		return nil, fmt.Errorf("find entry: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return entryFromRecord(records[0]), nil
}

func (s *PBStore) CreateEntry(ctx context.Context, userID, matchID string, joinedAt time.Time) (*models.QueueEntry, error) {
	collection, err := s.app.FindCollectionByNameOrId("queue")
	if err != nil {
		return nil, fmt.Errorf("find queue collection: %w", err)
	}

	record := core.NewRecord(collection)
	record.Set("user_id", userID)
	record.Set("match_id", matchID)
	record.Set("joined_at", joinedAt)
	record.Set("status", string(models.StatusWaiting))

	if err := s.app.Save(record); err != nil {
		return nil, fmt.Errorf("create queue entry: %w", err)
	}
	return entryFromRecord(record), nil
}

func (s *PBStore) CountWaitingAhead(ctx context.Context, matchID string, joinedAt time.Time, entryID string) (int, error) {
	joined, err := types.ParseDateTime(joinedAt)
	if err != nil {
		return 0, fmt.Errorf("count waiting ahead: %w", err)
	}

	var count int
	err = s.app.DB().NewQuery(
		`SELECT COUNT(*) FROM queue
		 WHERE match_id = {:matchId} AND status = 'waiting'
		   AND (joined_at < {:joinedAt} OR (joined_at = {:joinedAt} AND id < {:entryId}))`,
	).Bind(dbx.Params{
		"matchId":  matchID,
		"joinedAt": joined,
		"entryId":  entryID,
	}).Row(&count)
	if err != nil {
		return 0, fmt.Errorf("count waiting ahead: %w", err)
	}
	return count, nil
}

func (s *PBStore) HeadOfLine(ctx context.Context, matchID string) (*models.QueueEntry, error) {
	records, err := s.app.FindRecordsByFilter(
		"queue",
		"match_id = {:matchId} && status = 'waiting'",
		"joined_at,id",
		1,
		0,
		dbx.Params{"matchId": matchID},
	)
	if err != nil {
		return nil, fmt.Errorf("head of line for match %s: %w", matchID, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return entryFromRecord(records[0]), nil
}

func (s *PBStore) PromoteEntry(ctx context.Context, entryID string, promotedAt time.Time) (bool, error) {
	promoted, err := types.ParseDateTime(promotedAt)
	if err != nil {
		return false, fmt.Errorf("promote entry %s: %w", entryID, err)
	}
	return s.transition(
		`UPDATE queue SET status = 'processing', processing_at = {:at}
		 WHERE id = {:id} AND status = 'waiting'`,
		dbx.Params{"id": entryID, "at": promoted},
	)
}

func (s *PBStore) CompleteEntry(ctx context.Context, entryID string) (bool, error) {
	return s.transition(
		`UPDATE queue SET status = 'completed'
		 WHERE id = {:id} AND status = 'processing'`,
		dbx.Params{"id": entryID},
	)
}

func (s *PBStore) ExpireEntry(ctx context.Context, entryID string) (bool, error) {
	return s.transition(
		`UPDATE queue SET status = 'expired'
		 WHERE id = {:id} AND (status = 'waiting' OR status = 'processing')`,
		dbx.Params{"id": entryID},
	)
}

func (s *PBStore) transition(query string, params dbx.Params) (bool, error) {
	result, err := s.app.DB().NewQuery(query).Bind(params).Execute()
	if err != nil {
		return false, fmt.Errorf("queue transition: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("queue transition: %w", err)
	}
	return affected > 0, nil
}

func (s *PBStore) ListProcessing(ctx context.Context) ([]*models.QueueEntry, error) {
	records, err := s.app.FindRecordsByFilter(
		"queue",
		"status = 'processing'",
		"processing_at",
		-1,
		0,
	)
	if err != nil {
		return nil, fmt.Errorf("list processing entries: %w", err)
	}
	entries := make([]*models.QueueEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, entryFromRecord(record))
	}
	return entries, nil
}

func (s *PBStore) CountByStatus(ctx context.Context, matchID string, st models.QueueStatus) (int, error) {
	var count int
	err := s.app.DB().NewQuery(
		`SELECT COUNT(*) FROM queue WHERE match_id = {:matchId} AND status = {:status}`,
	).Bind(dbx.Params{"matchId": matchID, "status": string(st)}).Row(&count)
	if err != nil {
		return 0, fmt.Errorf("count %s entries for match %s: %w", st, matchID, err)
	}
	return count, nil
}

func matchFromRecord(record *core.Record) *models.Match {
	return &models.Match{
		ID:             record.Id,
		MatchName:      record.GetString("match_name"),
		Venue:          record.GetString("venue"),
		MatchDatetime:  record.GetDateTime("match_datetime").Time(),
		BookingOpensAt: record.GetDateTime("booking_opens_at").Time(),
	}
}

func standFromRecord(record *core.Record) *models.Stand {
	return &models.Stand{
		ID:               record.Id,
		MatchID:          record.GetString("match_id"),
		StandName:        record.GetString("stand_name"),
		TotalTickets:     record.GetInt("total_tickets"),
		AvailableTickets: record.GetInt("available_tickets"),
		Price:            decimal.NewFromFloat(record.GetFloat("price")),
	}
}

func entryFromRecord(record *core.Record) *models.QueueEntry {
	entry := &models.QueueEntry{
		ID:       record.Id,
		UserID:   record.GetString("user_id"),
		MatchID:  record.GetString("match_id"),
		JoinedAt: record.GetDateTime("joined_at").Time(),
		Status:   models.QueueStatus(record.GetString("status")),
	}
	if at := record.GetDateTime("processing_at"); !at.IsZero() {
		t := at.Time()
		entry.ProcessingAt = &t
	}
	return entry
}
