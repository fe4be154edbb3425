package restday

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPolicyIsRestDay(t *testing.T) {
	policy := Policy{
		Weekly: map[time.Weekday]bool{time.Saturday: true, time.Sunday: true},
		Custom: map[string]string{"2024-04-23": "My Birthday"},
	}

	assert.True(t, policy.IsRestDay(date(2024, time.March, 9)))   // Saturday
	assert.True(t, policy.IsRestDay(date(2024, time.March, 10)))  // Sunday
	assert.False(t, policy.IsRestDay(date(2024, time.March, 11))) // Monday
	assert.True(t, policy.IsRestDay(date(2024, time.April, 23)))  // custom, a Tuesday

	reason, ok := policy.CustomReason(date(2024, time.April, 23))
	require.True(t, ok)
	assert.Equal(t, "My Birthday", reason)

	_, ok = policy.CustomReason(date(2024, time.April, 24))
	assert.False(t, ok)
}

func TestPolicyEmpty(t *testing.T) {
	var policy Policy
	assert.False(t, policy.IsRestDay(date(2024, time.March, 10)))
}

func TestParseWeekly(t *testing.T) {
	set, err := ParseWeekly("0,6")
	require.NoError(t, err)
	assert.True(t, set[time.Sunday])
	assert.True(t, set[time.Saturday])
	assert.False(t, set[time.Monday])

	set, err = ParseWeekly("")
	require.NoError(t, err)
	assert.Empty(t, set)

	_, err = ParseWeekly("0,x")
	assert.Error(t, err)

	_, err = ParseWeekly("7")
	assert.Error(t, err)
}

func TestFormatWeeklyRoundTrip(t *testing.T) {
	in := map[time.Weekday]bool{time.Wednesday: true, time.Sunday: true}
	csv := FormatWeekly(in)
	assert.Equal(t, "0,3", csv)

	out, err := ParseWeekly(csv)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestNextBirthday(t *testing.T) {
	t.Run("later this year", func(t *testing.T) {
		got := NextBirthday(time.April, 23, date(2024, time.January, 15))
		assert.Equal(t, date(2024, time.April, 23), got)
	})

	t.Run("already passed this year", func(t *testing.T) {
		got := NextBirthday(time.April, 23, date(2024, time.May, 1))
		assert.Equal(t, date(2025, time.April, 23), got)
	})

	t.Run("today counts", func(t *testing.T) {
		got := NextBirthday(time.April, 23, date(2024, time.April, 23))
		assert.Equal(t, date(2024, time.April, 23), got)
	})

	t.Run("leap day in a leap year", func(t *testing.T) {
		got := NextBirthday(time.February, 29, date(2024, time.January, 15))
		assert.Equal(t, date(2024, time.February, 29), got)
	})

	t.Run("leap day collapses to Feb 28 in non-leap years", func(t *testing.T) {
		got := NextBirthday(time.February, 29, date(2025, time.March, 1))
		assert.Equal(t, date(2026, time.February, 28), got)
	})

	t.Run("century years are not leap unless divisible by 400", func(t *testing.T) {
		assert.False(t, isLeapYear(2100))
		assert.True(t, isLeapYear(2000))
	})
}
