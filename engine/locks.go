package engine

import "sync"

// emailLocks serializes dispatch per email ID. Actions mutate shared
// processing state, so two dispatches for the same email must not
// interleave; different emails run fully in parallel.
type emailLocks struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func newEmailLocks() *emailLocks {
	return &emailLocks{locks: make(map[uint]*sync.Mutex)}
}

func (l *emailLocks) lock(emailID uint) *sync.Mutex {
	l.mu.Lock()
	m, ok := l.locks[emailID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[emailID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m
}
