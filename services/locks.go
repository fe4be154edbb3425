package services

import (
	"sync"

	"github.com/google/uuid"
)

// userLocks serializes streak evaluations per user so two concurrent
// requests cannot both read a stale last_streak_date and double-credit
// the same day. Entries are never evicted; one mutex per active user
// is cheap.
type userLocks struct {
	mu sync.Mutex
	m  map[uuid.UUID]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{m: make(map[uuid.UUID]*sync.Mutex)}
}

// lock acquires the per-user mutex and returns its unlock func.
func (l *userLocks) lock(userID uuid.UUID) func() {
	l.mu.Lock()
	m, ok := l.m[userID]
	if !ok {
		m = &sync.Mutex{}
		l.m[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
