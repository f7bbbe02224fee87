package session

import (
	"sync"

	"github.com/mcoot/imposter/internal/model"
)

// roomLocks hands out one mutex per room code. Entries are reference counted
// and dropped once nobody holds or waits on them, so the map only ever holds
// rooms with a command in flight.
type roomLocks struct {
	mu    sync.Mutex
	locks map[model.RoomCode]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[model.RoomCode]*roomLock)}
}

// lock blocks until the caller has exclusive access to code and returns the
// matching unlock func
func (l *roomLocks) lock(code model.RoomCode) func() {
	l.mu.Lock()
	rl, ok := l.locks[code]
	if !ok {
		rl = &roomLock{}
		l.locks[code] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()

	return func() {
		rl.mu.Unlock()

		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, code)
		}
		l.mu.Unlock()
	}
}

// size returns the number of live lock entries
func (l *roomLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
