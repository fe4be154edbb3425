package journal

import (
	"time"

	"github.com/google/uuid"
)

// EditWindow is how long after creation an entry stays editable.
const EditWindow = 48 * time.Hour

// Entry is a global (step-independent) journal entry, one per day.
type Entry struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	Date      time.Time `json:"date" db:"date"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type UpsertRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type EditRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}
