package replica

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Trackable is the minimum a leaf request type must expose for a Tracker to
// aggregate it: its own extended state at the moment it finished.
type Trackable interface {
	ExtendedState() RequestExtendedState
}

// Tracker is a generic aggregator of monotonic counters {launched,
// finished, success} over one homogeneous leaf-request type, grounded on
// the source's RequestTracker.h (atomic counters, track/reset/
// printErrorReport shape) -- adapted to a mutex owned by the tracker:
// completion callbacks call OnFinish without holding the job lock, and
// this mutex serializes every counter mutation.
type Tracker[T Trackable] struct {
	mu       sync.Mutex
	launched int
	finished int
	success  int
	failed   []T

	log *logrus.Entry
}

// NewTracker returns an empty Tracker. log may be nil to disable progress
// and post-mortem printouts.
func NewTracker[T Trackable](log *logrus.Entry) *Tracker[T] {
	return &Tracker[T]{log: log}
}

// Add records one newly launched request.
func (t *Tracker[T]) Add(req T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.launched++
	if t.log != nil {
		t.log.WithFields(logrus.Fields{"launched": t.launched}).Trace("request launched")
	}
}

// OnFinish records one request's completion, incrementing success iff its
// extended state is SUCCESS.
func (t *Tracker[T]) OnFinish(req T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finished++
	if req.ExtendedState() == ExtSuccess {
		t.success++
	} else {
		t.failed = append(t.failed, req)
	}
	if t.log != nil {
		t.log.WithFields(logrus.Fields{
			"launched": t.launched,
			"finished": t.finished,
			"success":  t.success,
		}).Trace("request finished")
	}
}

// Launched, Finished, Success return the current counter values.
func (t *Tracker[T]) Launched() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.launched
}

func (t *Tracker[T]) Finished() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finished
}

func (t *Tracker[T]) Success() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.success
}

// Done reports whether every launched request has finished.
func (t *Tracker[T]) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finished == t.launched
}

// AllSucceeded reports whether every launched request finished with
// SUCCESS -- the condition a job's own success depends on.
func (t *Tracker[T]) AllSucceeded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.launched > 0 && t.success == t.launched
}

// Failed returns a snapshot of every request that finished without
// SUCCESS, for post-mortem reporting.
func (t *Tracker[T]) Failed() []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]T(nil), t.failed...)
}

// PrintErrorReport logs one entry per failed request, mirroring the
// source's printErrorReport.
func (t *Tracker[T]) PrintErrorReport() {
	if t.log == nil {
		return
	}
	for _, req := range t.Failed() {
		t.log.WithFields(logrus.Fields{"extendedState": req.ExtendedState().String()}).Warn("request failed")
	}
}

// Reset clears all counters. Valid only when finished == launched; any
// other call is a programming error.
func (t *Tracker[T]) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished != t.launched {
		return ErrBadTrackerState.New(t.launched, t.finished)
	}
	t.launched, t.finished, t.success = 0, 0, 0
	t.failed = nil
	return nil
}

// AnyTracker is the type-erased variant of Tracker, accepting heterogeneous
// leaf request types behind the Trackable interface, so create- and
// delete-shaped requests can share one accounting pass. No job in this
// package uses it: RebalanceJob's moves run separate CreateReplica and
// DeleteReplica jobs.
type AnyTracker struct {
	inner *Tracker[Trackable]
}

// NewAnyTracker returns an empty AnyTracker.
func NewAnyTracker(log *logrus.Entry) *AnyTracker {
	return &AnyTracker{inner: NewTracker[Trackable](log)}
}

func (t *AnyTracker) Add(req Trackable)      { t.inner.Add(req) }
func (t *AnyTracker) OnFinish(req Trackable) { t.inner.OnFinish(req) }
func (t *AnyTracker) Launched() int          { return t.inner.Launched() }
func (t *AnyTracker) Finished() int          { return t.inner.Finished() }
func (t *AnyTracker) Success() int           { return t.inner.Success() }
func (t *AnyTracker) Done() bool             { return t.inner.Done() }
func (t *AnyTracker) AllSucceeded() bool     { return t.inner.AllSucceeded() }
func (t *AnyTracker) Reset() error           { return t.inner.Reset() }
