package sync

import "sync/atomic"

// RunLock is the process-wide single-writer lock for full sync runs. It holds the id of
// the run that owns it, or nothing.
type RunLock struct {
	current atomic.Pointer[string]
}

// TryAcquire claims the lock for id. It returns (true, id) on success and (false, holder)
// when another run already owns it.
func (l *RunLock) TryAcquire(id string) (bool, string) {
	for {
		if l.current.CompareAndSwap(nil, &id) {
			return true, id
		}
		if holder := l.current.Load(); holder != nil {
			return false, *holder
		}
	}
}

// Release frees the lock if id still owns it
func (l *RunLock) Release(id string) {
	holder := l.current.Load()
	if holder != nil && *holder == id {
		l.current.CompareAndSwap(holder, nil)
	}
}

// Current returns the owning run id, if any
func (l *RunLock) Current() (string, bool) {
	if holder := l.current.Load(); holder != nil {
		return *holder, true
	}
	return "", false
}
