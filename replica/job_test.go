package replica

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubJob is the minimal concrete Job used to exercise JobBase's state
// machine in isolation from any real leaf/composite job logic.
type stubJob struct {
	JobBase
}

func newStubJob(ctrl *Controller, onFinish func(Job)) *stubJob {
	j := &stubJob{}
	j.JobBase = NewJobBase("", 0, ctrl.Locker, ctrl, ctrl.Log, onFinish)
	return j
}

func (j *stubJob) Start(ctx context.Context) {
	_, cancel := context.WithCancel(ctx)
	j.markInProgress(cancel)
}

func (j *stubJob) Cancel() { j.JobBase.Cancel(j) }

func TestJobBase_StartThenFinish_TransitionsToFinished(t *testing.T) {
	ctrl := testController(newFakeRPC(), &fakeNotifier{}, nil)
	j := newStubJob(ctrl, nil)

	assert.Equal(t, JobCreated, j.State())
	j.Start(context.Background())
	assert.Equal(t, JobInProgress, j.State())

	j.finish(j, JobExtSuccess)
	assert.Equal(t, JobFinished, j.State())
	assert.Equal(t, JobExtSuccess, j.ExtendedState())
}

func TestJobBase_OnFinishCallback_FiresExactlyOnce(t *testing.T) {
	ctrl := testController(newFakeRPC(), &fakeNotifier{}, nil)
	var calls int32
	j := newStubJob(ctrl, func(Job) { atomic.AddInt32(&calls, 1) })
	j.Start(context.Background())

	j.finish(j, JobExtSuccess)
	j.finish(j, JobExtSuccess)
	j.Cancel()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestJobBase_Cancel_IsIdempotentAndSetsCancelledExtState(t *testing.T) {
	ctrl := testController(newFakeRPC(), &fakeNotifier{}, nil)
	j := newStubJob(ctrl, nil)
	j.Start(context.Background())

	j.Cancel()
	assert.True(t, j.Cancelled())
	assert.Equal(t, JobExtCancelled, j.ExtendedState())

	j.Cancel()
	assert.Equal(t, JobExtCancelled, j.ExtendedState())
}

func TestJobBase_Cancel_AfterNaturalFinish_DoesNotOverwriteOutcome(t *testing.T) {
	ctrl := testController(newFakeRPC(), &fakeNotifier{}, nil)
	j := newStubJob(ctrl, nil)
	j.Start(context.Background())
	j.finish(j, JobExtSuccess)

	j.Cancel()
	assert.Equal(t, JobExtSuccess, j.ExtendedState())
	assert.False(t, j.Cancelled())
}

func TestJobBase_Finish_ReleasesLocksHeldByJob(t *testing.T) {
	ctrl := testController(newFakeRPC(), &fakeNotifier{}, nil)
	j := newStubJob(ctrl, nil)
	j.Start(context.Background())

	chunk := Chunk{Family: "f", Number: 1}
	require.True(t, ctrl.Locker.TryLock(chunk, j.ID()))

	j.finish(j, JobExtSuccess)

	owner, held := ctrl.Locker.OwnerOf(chunk)
	assert.False(t, held, "lock should be released on finish, got owner %v", owner)
}

func TestJobBase_Wait_UnblocksAfterFinish(t *testing.T) {
	ctrl := testController(newFakeRPC(), &fakeNotifier{}, nil)
	j := newStubJob(ctrl, nil)
	j.Start(context.Background())

	done := make(chan struct{})
	go func() {
		j.Wait()
		close(done)
	}()

	j.finish(j, JobExtSuccess)
	<-done
}
