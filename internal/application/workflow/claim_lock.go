package workflow

import "sync"

// claimLocks hands out one mutex per claim ID. Entries are dropped once no
// goroutine holds or waits for them.
type claimLocks struct {
	mu    sync.Mutex
	locks map[int64]*claimLock
}

type claimLock struct {
	mu   sync.Mutex
	refs int
}

func newClaimLocks() *claimLocks {
	return &claimLocks{locks: make(map[int64]*claimLock)}
}

// Lock blocks until the claim is free and returns the matching unlock func
func (l *claimLocks) Lock(claimID int64) func() {
	l.mu.Lock()
	cl, ok := l.locks[claimID]
	if !ok {
		cl = &claimLock{}
		l.locks[claimID] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.mu.Lock()

	return func() {
		cl.mu.Unlock()

		l.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(l.locks, claimID)
		}
		l.mu.Unlock()
	}
}

func (l *claimLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
