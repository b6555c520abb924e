package settlement

import "sync"

// SubjectLocks serializes work per subject within this process. Entries
// are reference counted and dropped when the last holder unlocks.
type SubjectLocks struct {
	locks map[string]*subjectLock
	mu    sync.Mutex
}

type subjectLock struct {
	mu      sync.Mutex
	holders int
}

// NewSubjectLocks creates an empty lock table.
func NewSubjectLocks() *SubjectLocks {
	return &SubjectLocks{locks: make(map[string]*subjectLock)}
}

// Lock blocks until subject is free and returns the matching unlock.
func (l *SubjectLocks) Lock(subject string) func() {
	l.mu.Lock()
	lock, ok := l.locks[subject]
	if !ok {
		lock = &subjectLock{}
		l.locks[subject] = lock
	}
	lock.holders++
	l.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		l.mu.Lock()
		lock.holders--
		if lock.holders == 0 {
			delete(l.locks, subject)
		}
		l.mu.Unlock()
	}
}

// Len reports how many subjects currently hold or await a lock.
func (l *SubjectLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
