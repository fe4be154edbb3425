package services

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steppingStonesAPI/internal/restday"
	"steppingStonesAPI/internal/step"
	"steppingStonesAPI/internal/user"
)

// setupTestDB connects to the test database (schema.sql applied) or
// skips the test when none is configured.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	_ = godotenv.Load("../.env")

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL or DATABASE_URL not set; skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx))

	t.Cleanup(pool.Close)
	return pool
}

func registerTestUser(t *testing.T, svc *UserService, dob string) *user.User {
	t.Helper()

	ctx := context.Background()
	u, err := svc.Register(ctx, &user.RegisterRequest{
		Username:    fmt.Sprintf("test_%d", time.Now().UnixNano()),
		Password:    "correct-horse-battery-staple",
		DateOfBirth: dob,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = svc.db.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, u.ID)
	})
	return u
}

func TestRegisterDefaultsAndBirthdaySeed(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserService(db)

	u := registerTestUser(t, users, "1996-02-29")

	assert.Equal(t, 2, u.DailyTarget)
	assert.Equal(t, 0, u.CurrentStreak)
	assert.Nil(t, u.LastStreakDate)
	assert.Equal(t, 3, u.StreakFreezes)

	days, err := users.ListCustomRestDays(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, fmt.Sprintf("%s's Birthday!", u.Username), days[0].Reason)
	expected := restday.NextBirthday(time.February, 29, time.Now())
	assert.Equal(t, expected.Format(restday.DateLayout), days[0].Date.Format(restday.DateLayout))
}

func TestStreakFlow(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserService(db)
	steps := NewStepService(db, users)

	u := registerTestUser(t, users, "")
	ctx := context.Background()

	// No activity yet: evaluation is a no-op.
	res, err := users.EvaluateStreak(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Progress)
	assert.Equal(t, 0, res.State.CurrentStreak)

	// Log against two distinct steps to meet the default target of 2.
	st1, err := steps.CreateStep(ctx, u.ID, &step.CreateStepRequest{Title: "Read daily"})
	require.NoError(t, err)
	st2, err := steps.CreateStep(ctx, u.ID, &step.CreateStepRequest{Title: "Run"})
	require.NoError(t, err)

	_, err = steps.UpsertLog(ctx, u.ID, st1.ID, "chapter 3")
	require.NoError(t, err)
	_, err = steps.UpsertLog(ctx, u.ID, st2.ID, "5k")
	require.NoError(t, err)

	// Two same-day logs on one step still count once.
	_, err = steps.UpsertLog(ctx, u.ID, st1.ID, "chapter 4")
	require.NoError(t, err)

	res, err = users.EvaluateStreak(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Progress)
	assert.True(t, res.Extended)
	assert.Equal(t, 1, res.State.CurrentStreak)

	// Re-evaluating the same day neither double-credits nor spends a
	// freeze.
	res, err = users.EvaluateStreak(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, res.Extended)
	assert.Equal(t, 1, res.State.CurrentStreak)
	assert.Equal(t, 3, res.State.Freezes)
}

func TestToggleSubTaskAutoLogs(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserService(db)
	steps := NewStepService(db, users)

	u := registerTestUser(t, users, "")
	ctx := context.Background()

	st, err := steps.CreateStep(ctx, u.ID, &step.CreateStepRequest{Title: "Ship the feature"})
	require.NoError(t, err)

	task, err := steps.AddSubTask(ctx, u.ID, st.ID, "write the tests")
	require.NoError(t, err)

	resp, err := steps.ToggleSubTask(ctx, u.ID, task.ID)
	require.NoError(t, err)
	assert.True(t, resp.SubTask.IsCompleted)
	assert.True(t, resp.AutoLogged)
	require.NotNil(t, resp.Streak)
	assert.Equal(t, 1, resp.Streak.Progress)

	// Un-completing does not touch the log or the streak.
	resp, err = steps.ToggleSubTask(ctx, u.ID, task.ID)
	require.NoError(t, err)
	assert.False(t, resp.SubTask.IsCompleted)
	assert.False(t, resp.AutoLogged)
	assert.Nil(t, resp.Streak)

	detail, err := steps.GetStep(ctx, u.ID, st.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.TodaysLog)
	assert.Equal(t, "Completed subtask: write the tests", detail.TodaysLog.Content)
}

func TestDeadlinePersistedOnlyOnTimingChange(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserService(db)
	steps := NewStepService(db, users)

	u := registerTestUser(t, users, "")
	ctx := context.Background()

	st, err := steps.CreateStep(ctx, u.ID, &step.CreateStepRequest{
		Title:        "Learn Go",
		Timeframe:    step.TimeframeMonthly,
		DeadlineMode: step.ModeCalendar,
	})
	require.NoError(t, err)
	require.NotNil(t, st.DeadlineDate)
	originalDeadline := *st.DeadlineDate

	// Title-only edit keeps the stored deadline.
	updated, err := steps.UpdateStep(ctx, u.ID, st.ID, &step.UpdateStepRequest{
		Title:        "Learn Go properly",
		Category:     st.Category,
		Timeframe:    st.Timeframe,
		DeadlineMode: st.DeadlineMode,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.DeadlineDate)
	assert.Equal(t, originalDeadline, *updated.DeadlineDate)

	// Switching the mode recomputes it.
	updated, err = steps.UpdateStep(ctx, u.ID, st.ID, &step.UpdateStepRequest{
		Title:        "Learn Go properly",
		Category:     st.Category,
		Timeframe:    step.TimeframeYearly,
		DeadlineMode: step.ModeRolling,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.DeadlineDate)
	expected := step.CalculateDeadline(step.TimeframeYearly, step.ModeRolling, time.Now())
	assert.Equal(t, expected.Format(restday.DateLayout), updated.DeadlineDate.Format(restday.DateLayout))
}
