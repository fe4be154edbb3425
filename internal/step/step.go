package step

import (
	"time"

	"github.com/google/uuid"
)

type Timeframe string

const (
	TimeframeWeekly  Timeframe = "Weekly"
	TimeframeMonthly Timeframe = "Monthly"
	TimeframeYearly  Timeframe = "Yearly"
)

type DeadlineMode string

const (
	ModeRolling  DeadlineMode = "rolling"
	ModeCalendar DeadlineMode = "calendar"
)

// Step is a goal the user works toward. DeadlineDate is derived once at
// create/edit time and persisted; it is never recomputed implicitly.
type Step struct {
	ID              uuid.UUID    `json:"id" db:"id"`
	UserID          uuid.UUID    `json:"user_id" db:"user_id"`
	Title           string       `json:"title" db:"title"`
	OverviewContent string       `json:"overview_content" db:"overview_content"`
	Category        string       `json:"category" db:"category"`
	Timeframe       Timeframe    `json:"timeframe" db:"timeframe"`
	DeadlineMode    DeadlineMode `json:"deadline_mode" db:"deadline_mode"`
	DeadlineDate    *time.Time   `json:"deadline_date" db:"deadline_date"`
	IsActive        bool         `json:"is_active" db:"is_active"`
	ShareToken      *string      `json:"share_token,omitempty" db:"share_token"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
}

// Log is one unit of daily progress against a step. At most one log
// per (step, date); same-day writes overwrite the content.
type Log struct {
	ID        uuid.UUID `json:"id" db:"id"`
	StepID    uuid.UUID `json:"step_id" db:"step_id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Content   string    `json:"content" db:"content"`
	Date      time.Time `json:"date" db:"date"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type SubTask struct {
	ID          uuid.UUID `json:"id" db:"id"`
	StepID      uuid.UUID `json:"step_id" db:"step_id"`
	Text        string    `json:"text" db:"text"`
	IsCompleted bool      `json:"is_completed" db:"is_completed"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type CreateStepRequest struct {
	Title        string       `json:"title"`
	Category     string       `json:"category"`
	Timeframe    Timeframe    `json:"timeframe"`
	DeadlineMode DeadlineMode `json:"deadline_mode"`
}

type UpdateStepRequest struct {
	Title        string       `json:"title"`
	Category     string       `json:"category"`
	Timeframe    Timeframe    `json:"timeframe"`
	DeadlineMode DeadlineMode `json:"deadline_mode"`
}

type LogRequest struct {
	Content string `json:"content"`
}

type OverviewRequest struct {
	OverviewContent string `json:"overview_content"`
}

type AddSubTaskRequest struct {
	Text string `json:"text"`
}

// Detail is the single-step view: the step plus today's log, full log
// history (newest first) and its subtasks.
type Detail struct {
	Step      *Step      `json:"step"`
	TodaysLog *Log       `json:"todays_log,omitempty"`
	History   []*Log     `json:"history"`
	SubTasks  []*SubTask `json:"subtasks"`
}

// SharedStep is the public, read-only view behind a share token.
type SharedStep struct {
	Title        string     `json:"title"`
	Category     string     `json:"category"`
	Timeframe    Timeframe  `json:"timeframe"`
	DeadlineDate *time.Time `json:"deadline_date"`
	IsActive     bool       `json:"is_active"`
	History      []*Log     `json:"history"`
}
