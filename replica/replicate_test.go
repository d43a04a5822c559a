package replica

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplicateJob_BringsChunkUpToTargetLevel(t *testing.T) {
	rpc := newFakeRPC()
	// Single good copy on w1; target level 3 (from config) needs two more
	// placements on w2/w3/w4 (whichever are least occupied).
	rpc.seed("w1", Replica{Database: "db1", Chunk: 1, Worker: "w1", Status: StatusComplete})

	cfg := testConfigWithThreads(4)
	cfg.ReplicationLevels = map[string]int{"family": 3}

	notifier := &fakeNotifier{}
	ctrl := testController(rpc, notifier, cfg)
	j := NewReplicateJob("family", []string{"w1", "w2", "w3", "w4"}, []string{"db1"}, ctrl.Locker, ctrl, nil)
	runJobSync(t, j)

	require.Equal(t, JobExtSuccess, j.ExtendedState())
	require.Len(t, j.Result().Actions, 2)

	var dsts []string
	for _, a := range j.Result().Actions {
		assert.Equal(t, uint32(1), a.Chunk)
		assert.Equal(t, "w1", a.Src)
		dsts = append(dsts, a.Dst)
	}
	assert.ElementsMatch(t, []string{"w2", "w3"}, dsts)

	require.Len(t, notifier.addCalls, 1)
	assert.Equal(t, uint32(1), notifier.addCalls[0].chunk)
	assert.ElementsMatch(t, []string{"w2", "w3"}, notifier.addCalls[0].workers)
}

func TestReplicateJob_AlreadyAtTargetLevel_PlansNothing(t *testing.T) {
	rpc := newFakeRPC()
	rpc.seed("w1", Replica{Database: "db1", Chunk: 1, Worker: "w1", Status: StatusComplete})

	cfg := testConfigWithThreads(4)
	cfg.ReplicationLevels = map[string]int{"family": 1}

	ctrl := testController(rpc, &fakeNotifier{}, cfg)
	j := NewReplicateJob("family", []string{"w1"}, []string{"db1"}, ctrl.Locker, ctrl, nil)
	runJobSync(t, j)

	require.Equal(t, JobExtSuccess, j.ExtendedState())
	assert.Empty(t, j.Result().Actions)
}
