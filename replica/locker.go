package replica

import "sync"

// Locker is the process-wide mapping from (family, chunk) to the JobId
// currently holding it. It is the only process-wide mutable state here;
// the Controller owns one and hands it down to jobs rather than exposing
// it as a package singleton.
type Locker struct {
	mu   sync.Mutex
	held map[Chunk]JobId

	// failedLocks counts try_lock misses across the locker's lifetime,
	// surfaced through FailedLocks. The planning loops keep their own
	// per-pass miss counts for restart-on-contention.
	failedLocks int
}

// NewLocker returns an empty Locker.
func NewLocker() *Locker {
	return &Locker{held: map[Chunk]JobId{}}
}

// TryLock attempts to acquire chunk for jobId. It returns true on success;
// false if another job already holds it. Re-locking a chunk already held
// by the same jobId succeeds (idempotent re-entry within one job).
func (l *Locker) TryLock(chunk Chunk, jobId JobId) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if owner, ok := l.held[chunk]; ok && owner != jobId {
		l.failedLocks++
		return false
	}
	l.held[chunk] = jobId
	return true
}

// Release unlocks chunk unconditionally, regardless of who holds it. A job
// calls this only for chunks it believes it owns.
func (l *Locker) Release(chunk Chunk) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, chunk)
}

// ReleaseAll releases every chunk held by jobId -- called on job
// termination or cancellation.
func (l *Locker) ReleaseAll(jobId JobId) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for chunk, owner := range l.held {
		if owner == jobId {
			delete(l.held, chunk)
		}
	}
}

// LockedBy returns a snapshot of every chunk currently held by jobId.
func (l *Locker) LockedBy(jobId JobId) []Chunk {
	l.mu.Lock()
	defer l.mu.Unlock()
	var chunks []Chunk
	for chunk, owner := range l.held {
		if owner == jobId {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// OwnerOf returns the JobId currently holding chunk, if any.
func (l *Locker) OwnerOf(chunk Chunk) (JobId, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	owner, ok := l.held[chunk]
	return owner, ok
}

// FailedLocks returns the running count of TryLock misses.
func (l *Locker) FailedLocks() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failedLocks
}
