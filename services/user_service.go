package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"steppingStonesAPI/internal/restday"
	"steppingStonesAPI/internal/streak"
	"steppingStonesAPI/internal/user"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicate        = errors.New("already exists")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidPassword  = errors.New("invalid username or password")
	ErrEditWindowClosed = errors.New("edit window closed")
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, letting the
// streak evaluation run inside a caller-owned transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type UserService struct {
	db    *pgxpool.Pool
	now   func() time.Time
	locks *userLocks
}

func NewUserService(db *pgxpool.Pool) *UserService {
	return &UserService{
		db:    db,
		now:   time.Now,
		locks: newUserLocks(),
	}
}

const userColumns = `id, username, password_hash, is_dark_mode, daily_target, current_streak, last_streak_date, streak_freezes, rest_days, created_at, updated_at`

func scanUser(row pgx.Row) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&u.IsDarkMode,
		&u.DailyTarget,
		&u.CurrentStreak,
		&u.LastStreakDate,
		&u.StreakFreezes,
		&u.RestDays,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Register creates an account with the default streak state
// (target 2, 3 freezes) and, when a date of birth is supplied, seeds
// the user's next birthday as a custom rest day.
func (s *UserService) Register(ctx context.Context, req *user.RegisterRequest) (*user.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}

	var birthday *time.Time
	if req.DateOfBirth != "" {
		dob, err := time.Parse(restday.DateLayout, req.DateOfBirth)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid date_of_birth", ErrInvalidInput)
		}
		next := restday.NextBirthday(dob.Month(), dob.Day(), s.now())
		birthday = &next
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("username %w", ErrDuplicate)
	}

	query := `
	INSERT INTO users (id, username, password_hash, is_dark_mode, daily_target, current_streak, streak_freezes, rest_days, created_at, updated_at)
	VALUES ($1, $2, $3, true, 2, 0, 3, '', NOW(), NOW())
	RETURNING ` + userColumns

	u, err := scanUser(tx.QueryRow(ctx, query, uuid.New(), username, string(hash)))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if birthday != nil {
		reason := fmt.Sprintf("%s's Birthday!", username)
		_, err = tx.Exec(ctx, `
		INSERT INTO custom_rest_days (id, user_id, date, reason, created_at)
		VALUES ($1, $2, $3, $4, NOW())`,
			uuid.New(), u.ID, *birthday, reason)
		if err != nil {
			return nil, fmt.Errorf("failed to seed birthday rest day: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit registration: %w", err)
	}

	return u, nil
}

// Authenticate checks the password and returns the user. The error is
// deliberately the same for an unknown username and a wrong password.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	u, err := scanUser(s.db.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidPassword
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidPassword
	}

	return u, nil
}

func (s *UserService) GetUserByID(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(s.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// AdjustDailyTarget bumps the target up or down. The target never
// drops below 1.
func (s *UserService) AdjustDailyTarget(ctx context.Context, userID uuid.UUID, action string) (int, error) {
	var query string
	switch action {
	case "increase":
		query = `UPDATE users SET daily_target = daily_target + 1, updated_at = NOW() WHERE id = $1 RETURNING daily_target`
	case "decrease":
		query = `UPDATE users SET daily_target = GREATEST(daily_target - 1, 1), updated_at = NOW() WHERE id = $1 RETURNING daily_target`
	default:
		return 0, fmt.Errorf("%w: unknown action %q", ErrInvalidInput, action)
	}

	var target int
	if err := s.db.QueryRow(ctx, query, userID).Scan(&target); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("user %w", ErrNotFound)
		}
		return 0, fmt.Errorf("failed to adjust daily target: %w", err)
	}
	return target, nil
}

func (s *UserService) ToggleTheme(ctx context.Context, userID uuid.UUID) (bool, error) {
	var darkMode bool
	err := s.db.QueryRow(ctx, `
	UPDATE users SET is_dark_mode = NOT is_dark_mode, updated_at = NOW()
	WHERE id = $1
	RETURNING is_dark_mode`, userID).Scan(&darkMode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("user %w", ErrNotFound)
		}
		return false, fmt.Errorf("failed to toggle theme: %w", err)
	}
	return darkMode, nil
}

// SetWeeklyRestDays replaces the recurring rest-day pattern. Weekdays
// use Go's convention, Sunday=0 .. Saturday=6.
func (s *UserService) SetWeeklyRestDays(ctx context.Context, userID uuid.UUID, weekdays []int) (string, error) {
	set := make(map[time.Weekday]bool, len(weekdays))
	for _, d := range weekdays {
		if d < 0 || d > 6 {
			return "", fmt.Errorf("%w: weekday out of range: %d", ErrInvalidInput, d)
		}
		set[time.Weekday(d)] = true
	}

	csv := restday.FormatWeekly(set)
	tag, err := s.db.Exec(ctx, `UPDATE users SET rest_days = $2, updated_at = NOW() WHERE id = $1`, userID, csv)
	if err != nil {
		return "", fmt.Errorf("failed to set rest days: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return "", fmt.Errorf("user %w", ErrNotFound)
	}
	return csv, nil
}

func (s *UserService) AddCustomRestDay(ctx context.Context, userID uuid.UUID, req *restday.AddCustomRestDayRequest) (*restday.CustomRestDay, error) {
	if req.Date == "" || strings.TrimSpace(req.Reason) == "" {
		return nil, fmt.Errorf("%w: date and reason are required", ErrInvalidInput)
	}
	date, err := time.Parse(restday.DateLayout, req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date format", ErrInvalidInput)
	}

	var exists bool
	err = s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM custom_rest_days WHERE user_id = $1 AND date = $2)`, userID, date).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check rest day: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("rest day %w", ErrDuplicate)
	}

	day := &restday.CustomRestDay{}
	err = s.db.QueryRow(ctx, `
	INSERT INTO custom_rest_days (id, user_id, date, reason, created_at)
	VALUES ($1, $2, $3, $4, NOW())
	RETURNING id, user_id, date, reason, created_at`,
		uuid.New(), userID, date, strings.TrimSpace(req.Reason)).
		Scan(&day.ID, &day.UserID, &day.Date, &day.Reason, &day.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add rest day: %w", err)
	}
	return day, nil
}

func (s *UserService) ListCustomRestDays(ctx context.Context, userID uuid.UUID) ([]*restday.CustomRestDay, error) {
	rows, err := s.db.Query(ctx, `
	SELECT id, user_id, date, reason, created_at
	FROM custom_rest_days
	WHERE user_id = $1
	ORDER BY date`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rest days: %w", err)
	}
	defer rows.Close()

	days := []*restday.CustomRestDay{}
	for rows.Next() {
		day := &restday.CustomRestDay{}
		if err := rows.Scan(&day.ID, &day.UserID, &day.Date, &day.Reason, &day.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rest day: %w", err)
		}
		days = append(days, day)
	}
	return days, rows.Err()
}

func (s *UserService) DeleteCustomRestDay(ctx context.Context, userID, restDayID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM custom_rest_days WHERE id = $1 AND user_id = $2`, restDayID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete rest day: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rest day %w", ErrNotFound)
	}
	return nil
}

// CustomRestDayMap returns {"2006-01-02": reason} for calendar views.
func (s *UserService) CustomRestDayMap(ctx context.Context, userID uuid.UUID) (map[string]string, error) {
	days, err := s.ListCustomRestDays(ctx, userID)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(days))
	for _, d := range days {
		m[d.Date.Format(restday.DateLayout)] = d.Reason
	}
	return m, nil
}

// RestPolicy loads the user's full rest-day policy (weekly pattern plus
// custom dates) for streak evaluation and calendar annotation.
func (s *UserService) RestPolicy(ctx context.Context, userID uuid.UUID) (restday.Policy, error) {
	return s.restPolicy(ctx, s.db, userID)
}

func (s *UserService) restPolicy(ctx context.Context, q querier, userID uuid.UUID) (restday.Policy, error) {
	var csv string
	err := q.QueryRow(ctx, `SELECT rest_days FROM users WHERE id = $1`, userID).Scan(&csv)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return restday.Policy{}, fmt.Errorf("user %w", ErrNotFound)
		}
		return restday.Policy{}, fmt.Errorf("failed to load rest days: %w", err)
	}

	weekly, err := restday.ParseWeekly(csv)
	if err != nil {
		return restday.Policy{}, fmt.Errorf("corrupt rest_days column: %w", err)
	}

	rows, err := q.Query(ctx, `SELECT date, reason FROM custom_rest_days WHERE user_id = $1`, userID)
	if err != nil {
		return restday.Policy{}, fmt.Errorf("failed to load custom rest days: %w", err)
	}
	defer rows.Close()

	custom := make(map[string]string)
	for rows.Next() {
		var date time.Time
		var reason string
		if err := rows.Scan(&date, &reason); err != nil {
			return restday.Policy{}, fmt.Errorf("failed to scan custom rest day: %w", err)
		}
		custom[date.Format(restday.DateLayout)] = reason
	}
	if err := rows.Err(); err != nil {
		return restday.Policy{}, err
	}

	return restday.Policy{Weekly: weekly, Custom: custom}, nil
}

// LockUser serializes streak mutations for one user. Callers that run
// EvaluateStreakInTx must hold this lock around the whole transaction.
func (s *UserService) LockUser(userID uuid.UUID) func() {
	return s.locks.lock(userID)
}

// EvaluateStreak runs one streak evaluation for today in its own
// transaction. Called on every dashboard load.
func (s *UserService) EvaluateStreak(ctx context.Context, userID uuid.UUID) (*streak.Result, error) {
	unlock := s.LockUser(userID)
	defer unlock()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	res, err := s.EvaluateStreakInTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit streak update: %w", err)
	}
	return res, nil
}

// EvaluateStreakInTx reads the streak fields, counts today's distinct
// step logs and applies the engine, writing back any changed fields in
// the caller's transaction. The caller must hold LockUser.
func (s *UserService) EvaluateStreakInTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*streak.Result, error) {
	today := streak.Day(s.now())

	var st streak.State
	err := tx.QueryRow(ctx, `
	SELECT daily_target, current_streak, last_streak_date, streak_freezes
	FROM users
	WHERE id = $1
	FOR UPDATE`, userID).
		Scan(&st.DailyTarget, &st.CurrentStreak, &st.LastStreakDate, &st.Freezes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load streak state: %w", err)
	}

	policy, err := s.restPolicy(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	// Qualifying unit is the goal: many logs against one step in a day
	// still count once.
	var progress int
	err = tx.QueryRow(ctx, `
	SELECT COUNT(DISTINCT step_id)
	FROM step_logs
	WHERE user_id = $1 AND date = $2`, userID, today).Scan(&progress)
	if err != nil {
		return nil, fmt.Errorf("failed to count todays progress: %w", err)
	}

	res := streak.Evaluate(st, today, policy.IsRestDay, progress)
	if res.Changed {
		_, err = tx.Exec(ctx, `
		UPDATE users
		SET current_streak = $2, last_streak_date = $3, streak_freezes = $4, updated_at = NOW()
		WHERE id = $1`,
			userID, res.State.CurrentStreak, res.State.LastStreakDate, res.State.Freezes)
		if err != nil {
			return nil, fmt.Errorf("failed to persist streak state: %w", err)
		}
	}

	return &res, nil
}
