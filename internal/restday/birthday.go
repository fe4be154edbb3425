package restday

import "time"

// NextBirthday returns the next date on or after today carrying the
// given month/day. A February 29 birthday collapses to February 28 in
// non-leap target years rather than rolling over to March 1.
func NextBirthday(month time.Month, day int, today time.Time) time.Time {
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	for year := today.Year(); ; year++ {
		candidate := birthdayInYear(year, month, day)
		if !candidate.Before(today) {
			return candidate
		}
	}
}

func birthdayInYear(year int, month time.Month, day int) time.Time {
	if month == time.February && day == 29 && !isLeapYear(year) {
		day = 28
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
