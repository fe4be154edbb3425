package step

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCalculateDeadlineRolling(t *testing.T) {
	today := date(2024, time.February, 15)

	assert.Equal(t, date(2024, time.February, 22), CalculateDeadline(TimeframeWeekly, ModeRolling, today))
	assert.Equal(t, date(2024, time.March, 16), CalculateDeadline(TimeframeMonthly, ModeRolling, today))
	assert.Equal(t, date(2025, time.February, 14), CalculateDeadline(TimeframeYearly, ModeRolling, today))
}

func TestCalculateDeadlineCalendarWeekly(t *testing.T) {
	// 2024-02-15 is a Thursday; the week ends Sunday the 18th.
	assert.Equal(t, date(2024, time.February, 18), CalculateDeadline(TimeframeWeekly, ModeCalendar, date(2024, time.February, 15)))

	// On a Sunday the deadline is that same Sunday.
	sunday := date(2024, time.February, 18)
	assert.Equal(t, sunday, CalculateDeadline(TimeframeWeekly, ModeCalendar, sunday))

	// Monday rolls all the way to the coming Sunday.
	assert.Equal(t, date(2024, time.February, 25), CalculateDeadline(TimeframeWeekly, ModeCalendar, date(2024, time.February, 19)))
}

func TestCalculateDeadlineCalendarMonthly(t *testing.T) {
	// Leap February.
	assert.Equal(t, date(2024, time.February, 29), CalculateDeadline(TimeframeMonthly, ModeCalendar, date(2024, time.February, 15)))
	// Plain February.
	assert.Equal(t, date(2025, time.February, 28), CalculateDeadline(TimeframeMonthly, ModeCalendar, date(2025, time.February, 15)))
	// 31-day month.
	assert.Equal(t, date(2024, time.December, 31), CalculateDeadline(TimeframeMonthly, ModeCalendar, date(2024, time.December, 1)))
}

func TestCalculateDeadlineCalendarYearly(t *testing.T) {
	assert.Equal(t, date(2024, time.December, 31), CalculateDeadline(TimeframeYearly, ModeCalendar, date(2024, time.February, 15)))
	assert.Equal(t, date(2024, time.December, 31), CalculateDeadline(TimeframeYearly, ModeCalendar, date(2024, time.December, 31)))
}

func TestCalculateDeadlineFallback(t *testing.T) {
	today := date(2024, time.February, 15)
	week := date(2024, time.February, 22)

	// Unrecognized inputs degrade to today + 7 days, never an error.
	assert.Equal(t, week, CalculateDeadline(TimeframeWeekly, "bogus", today))
	assert.Equal(t, week, CalculateDeadline("Daily", ModeCalendar, today))
	assert.Equal(t, week, CalculateDeadline("", "", today))
}
