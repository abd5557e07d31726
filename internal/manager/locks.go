package manager

import "sync"

// deviceLocks hands out one mutex per device ID. Mutations on the same
// device serialize; different devices proceed in parallel. Entries are never
// reaped, which is fine at fleet sizes measured in dozens.
type deviceLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newDeviceLocks() *deviceLocks {
	return &deviceLocks{locks: map[string]*sync.Mutex{}}
}

func (l *deviceLocks) lock(id string) (unlock func()) {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
