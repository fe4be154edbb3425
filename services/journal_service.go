package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"steppingStonesAPI/internal/journal"
	"steppingStonesAPI/internal/streak"
)

type JournalService struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewJournalService(db *pgxpool.Pool) *JournalService {
	return &JournalService{db: db, now: time.Now}
}

func scanEntry(row pgx.Row) (*journal.Entry, error) {
	e := &journal.Entry{}
	err := row.Scan(&e.ID, &e.UserID, &e.Title, &e.Content, &e.Date, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// UpsertToday writes today's journal entry, overwriting same-day
// content. A missing title defaults to "Entry for {Month DD}".
func (s *JournalService) UpsertToday(ctx context.Context, userID uuid.UUID, req *journal.UpsertRequest) (*journal.Entry, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}

	today := streak.Day(s.now())
	title := req.Title
	if title == "" {
		title = fmt.Sprintf("Entry for %s", today.Format("January 02"))
	}

	e, err := scanEntry(s.db.QueryRow(ctx, `
	INSERT INTO journal_entries (id, user_id, title, content, date, created_at)
	VALUES ($1, $2, $3, $4, $5, NOW())
	ON CONFLICT (user_id, date)
	DO UPDATE SET title = $3, content = $4
	RETURNING id, user_id, title, content, date, created_at`,
		uuid.New(), userID, title, req.Content, today))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert journal entry: %w", err)
	}
	return e, nil
}

// GetByDate returns the entry for a given date, or nil when none
// exists.
func (s *JournalService) GetByDate(ctx context.Context, userID uuid.UUID, date time.Time) (*journal.Entry, error) {
	e, err := scanEntry(s.db.QueryRow(ctx, `
	SELECT id, user_id, title, content, date, created_at
	FROM journal_entries
	WHERE user_id = $1 AND date = $2`, userID, streak.Day(date)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get journal entry: %w", err)
	}
	return e, nil
}

func (s *JournalService) History(ctx context.Context, userID uuid.UUID) ([]*journal.Entry, error) {
	rows, err := s.db.Query(ctx, `
	SELECT id, user_id, title, content, date, created_at
	FROM journal_entries
	WHERE user_id = $1
	ORDER BY date DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch journal history: %w", err)
	}
	defer rows.Close()

	entries := []*journal.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// EditEntry rewrites an older entry. Entries lock 48 hours after
// creation.
func (s *JournalService) EditEntry(ctx context.Context, userID, entryID uuid.UUID, req *journal.EditRequest) (*journal.Entry, error) {
	e, err := scanEntry(s.db.QueryRow(ctx, `
	SELECT id, user_id, title, content, date, created_at
	FROM journal_entries
	WHERE id = $1 AND user_id = $2`, entryID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("journal entry %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get journal entry: %w", err)
	}

	if s.now().Sub(e.CreatedAt) > journal.EditWindow {
		return nil, fmt.Errorf("%w: entries older than 48 hours cannot be edited", ErrEditWindowClosed)
	}

	e.Title = req.Title
	e.Content = req.Content
	_, err = s.db.Exec(ctx, `UPDATE journal_entries SET title = $2, content = $3 WHERE id = $1`, e.ID, e.Title, e.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to edit journal entry: %w", err)
	}
	return e, nil
}
