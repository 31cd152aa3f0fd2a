package scoreimport

import (
	"fmt"
	"sync"

	"encore/internal/games"
)

// userLock serializes the write phase per (user, game). Two concurrent
// imports for the same user and game would race on session windows and PB
// rebuilds; different users and games proceed in parallel.
type userLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLock() *userLock {
	return &userLock{locks: map[string]*sync.Mutex{}}
}

func (l *userLock) lock(userID int, game games.Game) func() {
	key := fmt.Sprintf("%d|%s", userID, game)

	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
