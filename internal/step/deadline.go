package step

import "time"

// CalculateDeadline maps (timeframe, mode, today) to a target date.
//
// Rolling deadlines are fixed offsets from today: +7, +30 or +365 days.
// The 30/365 offsets are deliberately calendar-naive. Calendar
// deadlines pin to the end of the current period: the coming Sunday
// (today if today is Sunday), the last day of the current month, or
// December 31 of the current year.
//
// The function is total: any unrecognized combination falls back to
// today + 7 days instead of failing.
func CalculateDeadline(timeframe Timeframe, mode DeadlineMode, today time.Time) time.Time {
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	switch mode {
	case ModeRolling:
		switch timeframe {
		case TimeframeWeekly:
			return today.AddDate(0, 0, 7)
		case TimeframeMonthly:
			return today.AddDate(0, 0, 30)
		case TimeframeYearly:
			return today.AddDate(0, 0, 365)
		}

	case ModeCalendar:
		switch timeframe {
		case TimeframeWeekly:
			daysAhead := (7 - int(today.Weekday())) % 7
			return today.AddDate(0, 0, daysAhead)
		case TimeframeMonthly:
			// Day 0 of next month is the last day of this one.
			return time.Date(today.Year(), today.Month()+1, 0, 0, 0, 0, 0, time.UTC)
		case TimeframeYearly:
			return time.Date(today.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)
		}
	}

	return today.AddDate(0, 0, 7)
}
