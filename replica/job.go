package replica

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Job is the common operational surface every job family exposes: start/cancel/observe state, and a
// typed result accessor the concrete type adds and which is only valid
// once State() == JobFinished.
type Job interface {
	ID() JobId
	ParentID() JobId
	Priority() int
	State() JobState
	ExtendedState() JobExtendedState
	Start(ctx context.Context)
	Cancel()
	Wait()
}

// JobBase is the embeddable state machine every concrete job type builds
// on: CREATED -> IN_PROGRESS -> FINISHED/<extended state>, a lock guarding
// that state plus pending/active bookkeeping, idempotent cancellation, and
// an on-finish callback fired exactly once. Grounded on auth.Audit's
// wrap-and-delegate shape for the callback plumbing and on the
// mutex-guarded-struct texture of driver.Conn.
type JobBase struct {
	mu sync.Mutex

	id       JobId
	parentId JobId
	priority int

	state JobState
	ext   JobExtendedState

	cancelled bool
	cancelFn  context.CancelFunc

	onFinish     func(Job)
	onFinishOnce sync.Once
	done         chan struct{}

	Locker *Locker
	Ctrl   *Controller
	Log    *logrus.Entry
}

// NewJobBase constructs a JobBase. onFinish may be nil.
func NewJobBase(parentId JobId, priority int, locker *Locker, ctrl *Controller, log *logrus.Entry, onFinish func(Job)) JobBase {
	return JobBase{
		id:       NewJobId(),
		parentId: parentId,
		priority: priority,
		state:    JobCreated,
		ext:      JobExtNone,
		onFinish: onFinish,
		done:     make(chan struct{}),
		Locker:   locker,
		Ctrl:     ctrl,
		Log:      log,
	}
}

func (b *JobBase) ID() JobId       { return b.id }
func (b *JobBase) ParentID() JobId { return b.parentId }
func (b *JobBase) Priority() int   { return b.priority }

func (b *JobBase) State() JobState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *JobBase) ExtendedState() JobExtendedState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ext
}

// Wait blocks until the job reaches FINISHED.
func (b *JobBase) Wait() {
	<-b.done
}

// markInProgress transitions CREATED -> IN_PROGRESS under the job lock.
// ctx's cancel function is stashed so Cancel can later stop in-flight
// work.
func (b *JobBase) markInProgress(cancel context.CancelFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = JobInProgress
	b.cancelFn = cancel
}

// transitionToFinished moves the job to FINISHED/ext exactly once,
// returning the stashed cancel function so the caller can invoke it
// outside the lock.
func (b *JobBase) transitionToFinished(ext JobExtendedState) (transitioned bool, cancel context.CancelFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == JobFinished {
		return false, nil
	}
	b.state = JobFinished
	b.ext = ext
	cancel = b.cancelFn
	if ext == JobExtCancelled {
		b.cancelled = true
	}
	return true, cancel
}

// finish transitions the job to FINISHED/ext exactly once, releases every
// chunk it holds, and invokes the on-finish callback outside the lock.
func (b *JobBase) finish(self Job, ext JobExtendedState) {
	transitioned, cancel := b.transitionToFinished(ext)
	if !transitioned {
		return
	}
	if ext == JobExtCancelled && cancel != nil {
		cancel()
	}

	if b.Locker != nil {
		b.Locker.ReleaseAll(b.id)
	}

	b.onFinishOnce.Do(func() {
		close(b.done)
		if b.onFinish != nil {
			b.onFinish(self)
		}
	})
}

// Cancel transitions the job to FINISHED/CANCELLED, then cancels
// outstanding work outside the lock. Idempotent: a job already FINISHED is
// left untouched, and the on-finish callback still fires at most once.
func (b *JobBase) Cancel(self Job) {
	b.finish(self, JobExtCancelled)
}

// Cancelled reports whether Cancel has been called.
func (b *JobBase) Cancelled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancelled
}

// Lock/Unlock expose the job lock to the concrete job type for guarding
// its own pending/active collections and counters.
func (b *JobBase) Lock()   { b.mu.Lock() }
func (b *JobBase) Unlock() { b.mu.Unlock() }
