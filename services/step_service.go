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

	"steppingStonesAPI/internal/calendar"
	"steppingStonesAPI/internal/restday"
	"steppingStonesAPI/internal/step"
	"steppingStonesAPI/internal/streak"
)

type StepService struct {
	db    *pgxpool.Pool
	users *UserService
	now   func() time.Time
}

func NewStepService(db *pgxpool.Pool, users *UserService) *StepService {
	return &StepService{
		db:    db,
		users: users,
		now:   time.Now,
	}
}

const stepColumns = `id, user_id, title, overview_content, category, timeframe, deadline_mode, deadline_date, is_active, share_token, created_at`

func scanStep(row pgx.Row) (*step.Step, error) {
	st := &step.Step{}
	err := row.Scan(
		&st.ID,
		&st.UserID,
		&st.Title,
		&st.OverviewContent,
		&st.Category,
		&st.Timeframe,
		&st.DeadlineMode,
		&st.DeadlineDate,
		&st.IsActive,
		&st.ShareToken,
		&st.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// CreateStep makes a new goal; the deadline is computed once here and
// persisted.
func (s *StepService) CreateStep(ctx context.Context, userID uuid.UUID, req *step.CreateStepRequest) (*step.Step, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	category := req.Category
	if category == "" {
		category = "General"
	}
	timeframe := req.Timeframe
	if timeframe == "" {
		timeframe = step.TimeframeWeekly
	}
	mode := req.DeadlineMode
	if mode == "" {
		mode = step.ModeRolling
	}

	deadline := step.CalculateDeadline(timeframe, mode, s.now())

	query := `
	INSERT INTO steps (id, user_id, title, overview_content, category, timeframe, deadline_mode, deadline_date, is_active, created_at)
	VALUES ($1, $2, $3, '', $4, $5, $6, $7, true, NOW())
	RETURNING ` + stepColumns

	st, err := scanStep(s.db.QueryRow(ctx, query, uuid.New(), userID, title, category, timeframe, mode, deadline))
	if err != nil {
		return nil, fmt.Errorf("failed to create step: %w", err)
	}
	return st, nil
}

// ListSteps filters by active/archived/timeframe and sorts by newest
// or category.
func (s *StepService) ListSteps(ctx context.Context, userID uuid.UUID, filter, sortBy string) ([]*step.Step, error) {
	query := `SELECT ` + stepColumns + ` FROM steps WHERE user_id = $1`

	switch filter {
	case "", "active":
		query += ` AND is_active = true`
	case "archived":
		query += ` AND is_active = false`
	case string(step.TimeframeWeekly), string(step.TimeframeMonthly), string(step.TimeframeYearly):
		query += ` AND is_active = true AND timeframe = '` + filter + `'`
	default:
		return nil, fmt.Errorf("%w: unknown filter %q", ErrInvalidInput, filter)
	}

	if sortBy == "category" {
		query += ` ORDER BY category`
	} else {
		query += ` ORDER BY created_at DESC`
	}

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}
	defer rows.Close()

	steps := []*step.Step{}
	for rows.Next() {
		st, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		steps = append(steps, st)
	}
	return steps, rows.Err()
}

// ListActiveSteps returns up to limit active steps, newest first, for
// the dashboard.
func (s *StepService) ListActiveSteps(ctx context.Context, userID uuid.UUID, limit int) ([]*step.Step, error) {
	rows, err := s.db.Query(ctx, `
	SELECT `+stepColumns+`
	FROM steps
	WHERE user_id = $1 AND is_active = true
	ORDER BY created_at DESC
	LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}
	defer rows.Close()

	steps := []*step.Step{}
	for rows.Next() {
		st, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		steps = append(steps, st)
	}
	return steps, rows.Err()
}

func (s *StepService) getOwnedStep(ctx context.Context, userID, stepID uuid.UUID) (*step.Step, error) {
	st, err := scanStep(s.db.QueryRow(ctx, `SELECT `+stepColumns+` FROM steps WHERE id = $1 AND user_id = $2`, stepID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("step %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get step: %w", err)
	}
	return st, nil
}

// GetStep returns the full step view: today's log, history and subtasks.
func (s *StepService) GetStep(ctx context.Context, userID, stepID uuid.UUID) (*step.Detail, error) {
	st, err := s.getOwnedStep(ctx, userID, stepID)
	if err != nil {
		return nil, err
	}

	history, err := s.stepHistory(ctx, stepID)
	if err != nil {
		return nil, err
	}

	today := streak.Day(s.now())
	var todaysLog *step.Log
	for _, l := range history {
		if streak.Day(l.Date).Equal(today) {
			todaysLog = l
			break
		}
	}

	rows, err := s.db.Query(ctx, `
	SELECT id, step_id, text, is_completed, created_at
	FROM subtasks
	WHERE step_id = $1
	ORDER BY created_at`, stepID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subtasks: %w", err)
	}
	defer rows.Close()

	subtasks := []*step.SubTask{}
	for rows.Next() {
		t := &step.SubTask{}
		if err := rows.Scan(&t.ID, &t.StepID, &t.Text, &t.IsCompleted, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subtask: %w", err)
		}
		subtasks = append(subtasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &step.Detail{
		Step:      st,
		TodaysLog: todaysLog,
		History:   history,
		SubTasks:  subtasks,
	}, nil
}

func (s *StepService) stepHistory(ctx context.Context, stepID uuid.UUID) ([]*step.Log, error) {
	rows, err := s.db.Query(ctx, `
	SELECT id, step_id, user_id, content, date, created_at
	FROM step_logs
	WHERE step_id = $1
	ORDER BY date DESC`, stepID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch logs: %w", err)
	}
	defer rows.Close()

	logs := []*step.Log{}
	for rows.Next() {
		l := &step.Log{}
		if err := rows.Scan(&l.ID, &l.StepID, &l.UserID, &l.Content, &l.Date, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// UpdateStep edits title/category and recomputes the deadline only
// when the timeframe or mode actually changed.
func (s *StepService) UpdateStep(ctx context.Context, userID, stepID uuid.UUID, req *step.UpdateStepRequest) (*step.Step, error) {
	st, err := s.getOwnedStep(ctx, userID, stepID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	st.Title = title
	if req.Category != "" {
		st.Category = req.Category
	}

	if req.Timeframe != st.Timeframe || req.DeadlineMode != st.DeadlineMode {
		st.Timeframe = req.Timeframe
		st.DeadlineMode = req.DeadlineMode
		deadline := step.CalculateDeadline(req.Timeframe, req.DeadlineMode, s.now())
		st.DeadlineDate = &deadline
	}

	_, err = s.db.Exec(ctx, `
	UPDATE steps
	SET title = $2, category = $3, timeframe = $4, deadline_mode = $5, deadline_date = $6
	WHERE id = $1`,
		st.ID, st.Title, st.Category, st.Timeframe, st.DeadlineMode, st.DeadlineDate)
	if err != nil {
		return nil, fmt.Errorf("failed to update step: %w", err)
	}
	return st, nil
}

func (s *StepService) ArchiveStep(ctx context.Context, userID, stepID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `UPDATE steps SET is_active = false WHERE id = $1 AND user_id = $2`, stepID, userID)
	if err != nil {
		return fmt.Errorf("failed to archive step: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("step %w", ErrNotFound)
	}
	return nil
}

// DeleteStep removes the step and, via FK cascade, its logs and
// subtasks.
func (s *StepService) DeleteStep(ctx context.Context, userID, stepID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM steps WHERE id = $1 AND user_id = $2`, stepID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete step: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("step %w", ErrNotFound)
	}
	return nil
}

// UpsertLog writes today's log for a step, overwriting same-day
// content.
func (s *StepService) UpsertLog(ctx context.Context, userID, stepID uuid.UUID, content string) (*step.Log, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if _, err := s.getOwnedStep(ctx, userID, stepID); err != nil {
		return nil, err
	}

	today := streak.Day(s.now())
	l := &step.Log{}
	err := s.db.QueryRow(ctx, `
	INSERT INTO step_logs (id, step_id, user_id, content, date, created_at)
	VALUES ($1, $2, $3, $4, $5, NOW())
	ON CONFLICT (step_id, date)
	DO UPDATE SET content = $4
	RETURNING id, step_id, user_id, content, date, created_at`,
		uuid.New(), stepID, userID, content, today).
		Scan(&l.ID, &l.StepID, &l.UserID, &l.Content, &l.Date, &l.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert log: %w", err)
	}
	return l, nil
}

func (s *StepService) UpdateOverview(ctx context.Context, userID, stepID uuid.UUID, content string) error {
	tag, err := s.db.Exec(ctx, `UPDATE steps SET overview_content = $3 WHERE id = $1 AND user_id = $2`, stepID, userID, content)
	if err != nil {
		return fmt.Errorf("failed to update overview: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("step %w", ErrNotFound)
	}
	return nil
}

func (s *StepService) AddSubTask(ctx context.Context, userID, stepID uuid.UUID, text string) (*step.SubTask, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	if _, err := s.getOwnedStep(ctx, userID, stepID); err != nil {
		return nil, err
	}

	t := &step.SubTask{}
	err := s.db.QueryRow(ctx, `
	INSERT INTO subtasks (id, step_id, text, is_completed, created_at)
	VALUES ($1, $2, $3, false, NOW())
	RETURNING id, step_id, text, is_completed, created_at`,
		uuid.New(), stepID, strings.TrimSpace(text)).
		Scan(&t.ID, &t.StepID, &t.Text, &t.IsCompleted, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add subtask: %w", err)
	}
	return t, nil
}

// ToggleSubTaskResponse reports the flipped subtask plus, when the
// toggle completed it, the streak evaluation that ran in the same
// transaction.
type ToggleSubTaskResponse struct {
	SubTask    *step.SubTask  `json:"subtask"`
	AutoLogged bool           `json:"auto_logged"`
	Streak     *streak.Result `json:"streak,omitempty"`
}

// ToggleSubTask flips completion. Completing a subtask auto-creates
// today's log for its step (if absent) and evaluates the streak; the
// subtask write, the auto-log and the streak fields commit atomically.
func (s *StepService) ToggleSubTask(ctx context.Context, userID, subtaskID uuid.UUID) (*ToggleSubTaskResponse, error) {
	var t step.SubTask
	var ownerID uuid.UUID
	err := s.db.QueryRow(ctx, `
	SELECT st.id, st.step_id, st.text, st.is_completed, st.created_at, s.user_id
	FROM subtasks st
	JOIN steps s ON s.id = st.step_id
	WHERE st.id = $1`, subtaskID).
		Scan(&t.ID, &t.StepID, &t.Text, &t.IsCompleted, &t.CreatedAt, &ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("subtask %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get subtask: %w", err)
	}
	if ownerID != userID {
		return nil, fmt.Errorf("subtask %w", ErrNotFound)
	}

	unlock := s.users.LockUser(userID)
	defer unlock()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	t.IsCompleted = !t.IsCompleted
	_, err = tx.Exec(ctx, `UPDATE subtasks SET is_completed = $2 WHERE id = $1`, t.ID, t.IsCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle subtask: %w", err)
	}

	resp := &ToggleSubTaskResponse{SubTask: &t}

	if t.IsCompleted {
		today := streak.Day(s.now())

		var logExists bool
		err = tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM step_logs WHERE step_id = $1 AND date = $2)`, t.StepID, today).Scan(&logExists)
		if err != nil {
			return nil, fmt.Errorf("failed to check todays log: %w", err)
		}

		if !logExists {
			_, err = tx.Exec(ctx, `
			INSERT INTO step_logs (id, step_id, user_id, content, date, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())`,
				uuid.New(), t.StepID, userID, fmt.Sprintf("Completed subtask: %s", t.Text), today)
			if err != nil {
				return nil, fmt.Errorf("failed to auto-log subtask: %w", err)
			}
			resp.AutoLogged = true
		}

		res, err := s.users.EvaluateStreakInTx(ctx, tx, userID)
		if err != nil {
			return nil, err
		}
		resp.Streak = res
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit subtask toggle: %w", err)
	}
	return resp, nil
}

func (s *StepService) DeleteSubTask(ctx context.Context, userID, subtaskID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
	DELETE FROM subtasks st
	USING steps s
	WHERE st.id = $1 AND s.id = st.step_id AND s.user_id = $2`, subtaskID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete subtask: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("subtask %w", ErrNotFound)
	}
	return nil
}

// EnsureShareToken returns the step's public token, minting a short
// one on first use.
func (s *StepService) EnsureShareToken(ctx context.Context, userID, stepID uuid.UUID) (string, error) {
	st, err := s.getOwnedStep(ctx, userID, stepID)
	if err != nil {
		return "", err
	}
	if st.ShareToken != nil {
		return *st.ShareToken, nil
	}

	token := uuid.NewString()[:8]
	_, err = s.db.Exec(ctx, `UPDATE steps SET share_token = $2 WHERE id = $1`, stepID, token)
	if err != nil {
		return "", fmt.Errorf("failed to save share token: %w", err)
	}
	return token, nil
}

// GetSharedStep is the unauthenticated read-only view behind a share
// token.
func (s *StepService) GetSharedStep(ctx context.Context, token string) (*step.SharedStep, error) {
	st, err := scanStep(s.db.QueryRow(ctx, `SELECT `+stepColumns+` FROM steps WHERE share_token = $1`, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("shared step %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get shared step: %w", err)
	}

	history, err := s.stepHistory(ctx, st.ID)
	if err != nil {
		return nil, err
	}

	return &step.SharedStep{
		Title:        st.Title,
		Category:     st.Category,
		Timeframe:    st.Timeframe,
		DeadlineDate: st.DeadlineDate,
		IsActive:     st.IsActive,
		History:      history,
	}, nil
}

// Heatmap counts logs per date across all the user's steps for the
// contribution graph.
func (s *StepService) Heatmap(ctx context.Context, userID uuid.UUID) (calendar.Heatmap, error) {
	rows, err := s.db.Query(ctx, `
	SELECT date, COUNT(id)
	FROM step_logs
	WHERE user_id = $1
	GROUP BY date`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch heatmap: %w", err)
	}
	defer rows.Close()

	data := calendar.Heatmap{}
	for rows.Next() {
		var date time.Time
		var count int
		if err := rows.Scan(&date, &count); err != nil {
			return nil, fmt.Errorf("failed to scan heatmap row: %w", err)
		}
		data[date.Format(restday.DateLayout)] = count
	}
	return data, rows.Err()
}

// Timeline groups every log by date, newest day first.
func (s *StepService) Timeline(ctx context.Context, userID uuid.UUID) (*calendar.TimelineResponse, error) {
	rows, err := s.db.Query(ctx, `
	SELECT id, step_id, user_id, content, date, created_at
	FROM step_logs
	WHERE user_id = $1
	ORDER BY date DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch timeline: %w", err)
	}
	defer rows.Close()

	resp := &calendar.TimelineResponse{Days: []*calendar.TimelineDay{}}
	var current *calendar.TimelineDay
	for rows.Next() {
		l := &step.Log{}
		if err := rows.Scan(&l.ID, &l.StepID, &l.UserID, &l.Content, &l.Date, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan log: %w", err)
		}
		key := l.Date.Format(restday.DateLayout)
		if current == nil || current.Date != key {
			current = &calendar.TimelineDay{Date: key}
			resp.Days = append(resp.Days, current)
		}
		current.Logs = append(current.Logs, l)
	}
	return resp, rows.Err()
}
