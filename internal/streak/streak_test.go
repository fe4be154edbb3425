package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func noRest(time.Time) bool { return false }

func TestEvaluateNoHistory(t *testing.T) {
	today := date(2024, time.March, 10)

	t.Run("below target does nothing", func(t *testing.T) {
		res := Evaluate(State{DailyTarget: 2, Freezes: 3}, today, noRest, 1)
		assert.False(t, res.Changed)
		assert.Equal(t, 0, res.State.CurrentStreak)
		assert.Nil(t, res.State.LastStreakDate)
		assert.Nil(t, res.Notice)
	})

	t.Run("meeting target starts the streak", func(t *testing.T) {
		res := Evaluate(State{DailyTarget: 2, Freezes: 3}, today, noRest, 2)
		assert.True(t, res.Changed)
		assert.True(t, res.Extended)
		assert.Equal(t, 1, res.State.CurrentStreak)
		require.NotNil(t, res.State.LastStreakDate)
		assert.Equal(t, today, *res.State.LastStreakDate)
		assert.Equal(t, 3, res.State.Freezes)
	})
}

func TestEvaluateSameDayIsIdempotent(t *testing.T) {
	today := date(2024, time.March, 10)
	s := State{DailyTarget: 2, CurrentStreak: 5, LastStreakDate: &today, Freezes: 3}

	res := Evaluate(s, today, noRest, 4)
	assert.False(t, res.Changed)
	assert.False(t, res.Extended)
	assert.Equal(t, 5, res.State.CurrentStreak)
	assert.Equal(t, 3, res.State.Freezes)
	assert.Nil(t, res.Notice)

	// And again, same answer.
	res2 := Evaluate(res.State, today, noRest, 4)
	assert.Equal(t, res.State, res2.State)
}

func TestEvaluateGapOfOneIsFree(t *testing.T) {
	today := date(2024, time.March, 10)
	s := State{DailyTarget: 2, CurrentStreak: 5, LastStreakDate: datePtr(2024, time.March, 9), Freezes: 3}

	res := Evaluate(s, today, noRest, 0)
	assert.False(t, res.Changed)
	assert.Equal(t, 5, res.State.CurrentStreak)
	assert.Equal(t, 3, res.State.Freezes)
	assert.Nil(t, res.Notice)
}

func TestEvaluateRestDayShieldsGap(t *testing.T) {
	today := date(2024, time.March, 10)
	yesterday := date(2024, time.March, 9)
	s := State{DailyTarget: 2, CurrentStreak: 7, LastStreakDate: datePtr(2024, time.March, 7), Freezes: 1}

	isRest := func(d time.Time) bool { return d.Equal(yesterday) }

	res := Evaluate(s, today, isRest, 0)
	assert.False(t, res.Changed)
	assert.Equal(t, 7, res.State.CurrentStreak)
	assert.Equal(t, 1, res.State.Freezes)
	require.NotNil(t, res.State.LastStreakDate)
	assert.Equal(t, date(2024, time.March, 7), *res.State.LastStreakDate)
	assert.Nil(t, res.Notice)
}

func TestEvaluateFreezeConsumption(t *testing.T) {
	today := date(2024, time.March, 10)
	s := State{DailyTarget: 2, CurrentStreak: 7, LastStreakDate: datePtr(2024, time.March, 8), Freezes: 1}

	res := Evaluate(s, today, noRest, 0)
	assert.True(t, res.Changed)
	require.NotNil(t, res.Notice)
	assert.Equal(t, NoticeFreezeUsed, res.Notice.Kind)
	assert.Equal(t, 0, res.Notice.FreezesRemaining)
	assert.Equal(t, 0, res.State.Freezes)
	assert.Equal(t, 7, res.State.CurrentStreak)
	// Backdated to yesterday, not today: the freeze forgives the gap
	// but is not itself progress.
	require.NotNil(t, res.State.LastStreakDate)
	assert.Equal(t, date(2024, time.March, 9), *res.State.LastStreakDate)
}

func TestEvaluateResetWhenNoFreezesLeft(t *testing.T) {
	today := date(2024, time.March, 12)
	s := State{DailyTarget: 2, CurrentStreak: 7, LastStreakDate: datePtr(2024, time.March, 9), Freezes: 0}

	res := Evaluate(s, today, noRest, 0)
	assert.True(t, res.Changed)
	require.NotNil(t, res.Notice)
	assert.Equal(t, NoticeStreakReset, res.Notice.Kind)
	assert.Equal(t, 0, res.State.CurrentStreak)
	// Last date is untouched by a reset.
	require.NotNil(t, res.State.LastStreakDate)
	assert.Equal(t, date(2024, time.March, 9), *res.State.LastStreakDate)
}

func TestEvaluateFreezeThenSecondMissResets(t *testing.T) {
	// Day 1: miss covered by the only freeze.
	day1 := date(2024, time.March, 10)
	s := State{DailyTarget: 1, CurrentStreak: 4, LastStreakDate: datePtr(2024, time.March, 8), Freezes: 1}

	res := Evaluate(s, day1, noRest, 0)
	require.NotNil(t, res.Notice)
	assert.Equal(t, NoticeFreezeUsed, res.Notice.Kind)
	assert.Equal(t, 0, res.State.Freezes)

	// Two days later with no freezes left: hard reset.
	day2 := date(2024, time.March, 12)
	res2 := Evaluate(res.State, day2, noRest, 0)
	require.NotNil(t, res2.Notice)
	assert.Equal(t, NoticeStreakReset, res2.Notice.Kind)
	assert.Equal(t, 0, res2.State.CurrentStreak)
}

func TestEvaluateFreezeAndExtendInOneCall(t *testing.T) {
	today := date(2024, time.March, 10)
	s := State{DailyTarget: 2, CurrentStreak: 7, LastStreakDate: datePtr(2024, time.March, 8), Freezes: 2}

	res := Evaluate(s, today, noRest, 3)
	require.NotNil(t, res.Notice)
	assert.Equal(t, NoticeFreezeUsed, res.Notice.Kind)
	assert.Equal(t, 1, res.State.Freezes)
	assert.True(t, res.Extended)
	assert.Equal(t, 8, res.State.CurrentStreak)
	assert.Equal(t, today, *res.State.LastStreakDate)
}

func TestEvaluateResetAndRestartInOneCall(t *testing.T) {
	today := date(2024, time.March, 10)
	s := State{DailyTarget: 1, CurrentStreak: 20, LastStreakDate: datePtr(2024, time.March, 1), Freezes: 0}

	res := Evaluate(s, today, noRest, 1)
	require.NotNil(t, res.Notice)
	assert.Equal(t, NoticeStreakReset, res.Notice.Kind)
	assert.True(t, res.Extended)
	assert.Equal(t, 1, res.State.CurrentStreak)
	assert.Equal(t, today, *res.State.LastStreakDate)
}

func TestEvaluateIgnoresTimeOfDay(t *testing.T) {
	lastEvening := time.Date(2024, time.March, 9, 23, 45, 0, 0, time.UTC)
	todayMorning := time.Date(2024, time.March, 10, 0, 5, 0, 0, time.UTC)
	s := State{DailyTarget: 1, CurrentStreak: 3, LastStreakDate: &lastEvening, Freezes: 3}

	res := Evaluate(s, todayMorning, noRest, 1)
	assert.Nil(t, res.Notice)
	assert.Equal(t, 4, res.State.CurrentStreak)
	assert.Equal(t, date(2024, time.March, 10), *res.State.LastStreakDate)
}
