package replica

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runJobSync(t *testing.T, j Job) {
	t.Helper()
	j.Start(context.Background())
	select {
	case <-waitChan(j):
	case <-time.After(2 * time.Second):
		t.Fatal("job did not finish in time")
	}
}

func waitChan(j Job) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		j.Wait()
		close(ch)
	}()
	return ch
}

func TestFindAllJob_BuildsDispositionFromSeededReplicas(t *testing.T) {
	rpc := newFakeRPC()
	rpc.seed("w1", Replica{Database: "db1", Chunk: 1, Worker: "w1", Status: StatusComplete})
	rpc.seed("w1", Replica{Database: "db2", Chunk: 1, Worker: "w1", Status: StatusComplete})
	rpc.seed("w2", Replica{Database: "db1", Chunk: 1, Worker: "w2", Status: StatusComplete})
	rpc.seed("w2", Replica{Database: "db2", Chunk: 1, Worker: "w2", Status: StatusIncomplete})

	ctrl := testController(rpc, &fakeNotifier{}, nil)
	j := NewFindAllJob("family", []string{"w1", "w2"}, []string{"db1", "db2"}, ctrl.Locker, ctrl, nil)
	runJobSync(t, j)

	require.Equal(t, JobExtSuccess, j.ExtendedState())
	disp := j.Result()

	assert.ElementsMatch(t, []string{"db1", "db2"}, disp.Databases[1])
	assert.True(t, disp.Good[1]["w1"], "w1 holds both databases COMPLETE")
	assert.False(t, disp.Good[1]["w2"], "w2's db2 replica is INCOMPLETE")
	assert.True(t, disp.Colocated[1]["w2"], "w2 holds both databases regardless of status")
	assert.ElementsMatch(t, []string{"w1", "w2"}, disp.goodWorkersFor(1, "db1"))
	assert.ElementsMatch(t, []string{"w1"}, disp.goodWorkersFor(1, "db2"))
}

func TestFindAllJob_WorkerFailure_FinishesFailed(t *testing.T) {
	rpc := newFakeRPC()
	rpc.failWorkers["w1"] = true
	rpc.seed("w2", Replica{Database: "db1", Chunk: 1, Worker: "w2", Status: StatusComplete})

	ctrl := testController(rpc, &fakeNotifier{}, nil)
	j := NewFindAllJob("family", []string{"w1", "w2"}, []string{"db1"}, ctrl.Locker, ctrl, nil)
	runJobSync(t, j)

	assert.Equal(t, JobExtFailed, j.ExtendedState())
}

func TestFindAllJob_NoWorkers_FinishesImmediatelySuccessful(t *testing.T) {
	ctrl := testController(newFakeRPC(), &fakeNotifier{}, nil)
	j := NewFindAllJob("family", nil, []string{"db1"}, ctrl.Locker, ctrl, nil)
	runJobSync(t, j)

	assert.Equal(t, JobExtSuccess, j.ExtendedState())
}
