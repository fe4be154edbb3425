package streak

import (
	"time"
)

// State is the subset of the user row that encodes streak progress.
// It is mutated only through Evaluate; callers persist the returned
// copy themselves.
type State struct {
	DailyTarget    int        `json:"daily_target" db:"daily_target"`
	CurrentStreak  int        `json:"current_streak" db:"current_streak"`
	LastStreakDate *time.Time `json:"last_streak_date" db:"last_streak_date"`
	Freezes        int        `json:"streak_freezes" db:"streak_freezes"`
}

type NoticeKind string

const (
	NoticeFreezeUsed  NoticeKind = "freeze_used"
	NoticeStreakReset NoticeKind = "streak_reset"
)

// Notice tells the caller something happened to the streak that the
// user should hear about. Surfacing it (toast, flash, push) is the
// caller's problem.
type Notice struct {
	Kind             NoticeKind `json:"kind"`
	FreezesRemaining int        `json:"freezes_remaining"`
}

type Result struct {
	Progress int     `json:"progress"`
	State    State   `json:"state"`
	Notice   *Notice `json:"notice,omitempty"`
	Extended bool    `json:"extended"`
	Changed  bool    `json:"-"`
}

// Day truncates t to midnight UTC. All streak arithmetic works on
// whole days.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Hours() / 24)
}

// Evaluate runs one streak evaluation for today. isRest reports
// whether a given date is a planned rest day for this user, and
// progress is the count of distinct steps the user logged against
// today. The engine never touches storage: the updated fields come
// back in Result.State and Changed says whether anything moved.
//
// Rules:
//   - a gap of more than one day since the last credited date costs
//     either nothing (yesterday was a rest day), one freeze (the last
//     date is backdated to yesterday), or the whole streak.
//   - the streak extends only when progress meets the daily target and
//     today has not already been credited, so re-evaluating within the
//     same day is a no-op.
func Evaluate(s State, today time.Time, isRest func(time.Time) bool, progress int) Result {
	today = Day(today)
	changed := false
	var notice *Notice

	if s.LastStreakDate != nil {
		gap := daysBetween(*s.LastStreakDate, today)
		if gap > 1 {
			yesterday := today.AddDate(0, 0, -1)
			switch {
			case isRest(yesterday):
				// Planned rest explains the gap; streak is safe.
			case s.Freezes > 0:
				s.Freezes--
				s.LastStreakDate = &yesterday
				notice = &Notice{Kind: NoticeFreezeUsed, FreezesRemaining: s.Freezes}
				changed = true
			default:
				s.CurrentStreak = 0
				notice = &Notice{Kind: NoticeStreakReset}
				changed = true
			}
		}
	}

	extended := false
	if progress >= s.DailyTarget {
		if s.LastStreakDate == nil || !Day(*s.LastStreakDate).Equal(today) {
			s.CurrentStreak++
			s.LastStreakDate = &today
			extended = true
			changed = true
		}
	}

	return Result{
		Progress: progress,
		State:    s,
		Notice:   notice,
		Extended: extended,
		Changed:  changed,
	}
}
