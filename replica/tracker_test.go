package replica

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRequest struct {
	ext RequestExtendedState
}

func (r fakeRequest) ExtendedState() RequestExtendedState { return r.ext }

func TestTracker_AccountingInvariant(t *testing.T) {
	tr := NewTracker[fakeRequest](nil)

	r1 := fakeRequest{ext: ExtSuccess}
	r2 := fakeRequest{ext: ExtFailed}

	tr.Add(r1)
	tr.Add(r2)
	assert.Equal(t, 2, tr.Launched())
	assert.Equal(t, 0, tr.Finished())
	assert.False(t, tr.Done())

	tr.OnFinish(r1)
	assert.Equal(t, 1, tr.Finished())
	assert.Equal(t, 1, tr.Success())
	assert.False(t, tr.AllSucceeded())

	tr.OnFinish(r2)
	assert.True(t, tr.Done())
	assert.False(t, tr.AllSucceeded())
	assert.Len(t, tr.Failed(), 1)
}

func TestTracker_AllSucceeded_RequiresAtLeastOneRequest(t *testing.T) {
	tr := NewTracker[fakeRequest](nil)
	assert.False(t, tr.AllSucceeded())
}

func TestTracker_AllSucceeded_WhenEveryRequestSucceeds(t *testing.T) {
	tr := NewTracker[fakeRequest](nil)
	for i := 0; i < 3; i++ {
		r := fakeRequest{ext: ExtSuccess}
		tr.Add(r)
		tr.OnFinish(r)
	}
	assert.True(t, tr.AllSucceeded())
}

func TestTracker_Reset_FailsWhileRequestsOutstanding(t *testing.T) {
	tr := NewTracker[fakeRequest](nil)
	r := fakeRequest{ext: ExtSuccess}
	tr.Add(r)

	err := tr.Reset()
	require.Error(t, err)
	assert.True(t, ErrBadTrackerState.Is(err))
}

func TestTracker_Reset_SucceedsWhenDrained(t *testing.T) {
	tr := NewTracker[fakeRequest](nil)
	r := fakeRequest{ext: ExtSuccess}
	tr.Add(r)
	tr.OnFinish(r)

	require.NoError(t, tr.Reset())
	assert.Equal(t, 0, tr.Launched())
	assert.Equal(t, 0, tr.Finished())
}

func TestAnyTracker_AcceptsHeterogeneousRequestTypes(t *testing.T) {
	tr := NewAnyTracker(nil)

	tr.Add(fakeRequest{ext: ExtSuccess})
	tr.Add(otherFakeRequest{ok: false})

	tr.OnFinish(fakeRequest{ext: ExtSuccess})
	tr.OnFinish(otherFakeRequest{ok: false})

	assert.Equal(t, 2, tr.Launched())
	assert.Equal(t, 2, tr.Finished())
	assert.Equal(t, 1, tr.Success())
	assert.False(t, tr.AllSucceeded())
}

type otherFakeRequest struct {
	ok bool
}

func (r otherFakeRequest) ExtendedState() RequestExtendedState {
	if r.ok {
		return ExtSuccess
	}
	return ExtFailed
}
