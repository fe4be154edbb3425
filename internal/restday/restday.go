package restday

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DateLayout = "2006-01-02"

// CustomRestDay is an ad-hoc dated exception (birthday, holiday) that
// shields the streak on one exact date.
type CustomRestDay struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Date      time.Time `json:"date" db:"date"`
	Reason    string    `json:"reason" db:"reason"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type AddCustomRestDayRequest struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

// Policy answers whether a date is a planned rest day: either the
// weekday is in the user's recurring pattern or a custom entry exists
// for that exact date. Pure predicate, no storage access.
type Policy struct {
	Weekly map[time.Weekday]bool
	Custom map[string]string // "2006-01-02" -> reason
}

func (p Policy) IsRestDay(date time.Time) bool {
	if p.Weekly[date.Weekday()] {
		return true
	}
	_, ok := p.Custom[date.Format(DateLayout)]
	return ok
}

// CustomReason returns the reason for a custom rest day on date, if any.
func (p Policy) CustomReason(date time.Time) (string, bool) {
	reason, ok := p.Custom[date.Format(DateLayout)]
	return reason, ok
}

// ParseWeekly decodes the comma-separated weekday list stored on the
// user row ("0,6" = Sunday and Saturday) into a set. Blank input means
// no recurring rest days.
func ParseWeekly(csv string) (map[time.Weekday]bool, error) {
	set := make(map[time.Weekday]bool)
	if strings.TrimSpace(csv) == "" {
		return set, nil
	}
	for _, part := range strings.Split(csv, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid weekday %q: %w", part, err)
		}
		if n < 0 || n > 6 {
			return nil, fmt.Errorf("weekday out of range: %d", n)
		}
		set[time.Weekday(n)] = true
	}
	return set, nil
}

// FormatWeekly is the inverse of ParseWeekly, emitting a stable sorted
// list for storage.
func FormatWeekly(set map[time.Weekday]bool) string {
	days := make([]int, 0, len(set))
	for d, on := range set {
		if on {
			days = append(days, int(d))
		}
	}
	sort.Ints(days)
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}
