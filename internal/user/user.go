package user

import (
	"time"

	"github.com/google/uuid"

	"steppingStonesAPI/internal/streak"
)

type User struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	Username       string     `json:"username" db:"username"`
	PasswordHash   string     `json:"-" db:"password_hash"`
	IsDarkMode     bool       `json:"is_dark_mode" db:"is_dark_mode"`
	DailyTarget    int        `json:"daily_target" db:"daily_target"`
	CurrentStreak  int        `json:"current_streak" db:"current_streak"`
	LastStreakDate *time.Time `json:"last_streak_date" db:"last_streak_date"`
	StreakFreezes  int        `json:"streak_freezes" db:"streak_freezes"`
	RestDays       string     `json:"rest_days" db:"rest_days"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// StreakState extracts the four fields the streak engine operates on.
func (u *User) StreakState() streak.State {
	return streak.State{
		DailyTarget:    u.DailyTarget,
		CurrentStreak:  u.CurrentStreak,
		LastStreakDate: u.LastStreakDate,
		Freezes:        u.StreakFreezes,
	}
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	// Optional, "2006-01-02". When present the next birthday is seeded
	// as a custom rest day.
	DateOfBirth string `json:"date_of_birth,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type SetRestDaysRequest struct {
	// Weekday numbers in Go's convention, Sunday=0 .. Saturday=6.
	Weekdays []int `json:"weekdays"`
}
