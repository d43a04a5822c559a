package replica

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJobLog(t *testing.T) *JobLog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobs.bolt")
	log, err := OpenJobLog(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })
	return log
}

func TestJobLog_PutThenGet_RoundTrips(t *testing.T) {
	log := openTestJobLog(t)

	rec := JobRecord{
		JobId:         "job-1",
		Kind:          "FixUp",
		Family:        "family",
		State:         "FINISHED",
		ExtState:      "SUCCESS",
		CreatedChunks: map[string]int{"w1": 2},
		DeletedChunks: map[string]int{"w2": 1},
	}
	require.NoError(t, log.Put(rec))

	got, ok, err := log.Get("job-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec.Kind, got.Kind)
	assert.Equal(t, rec.CreatedChunks, got.CreatedChunks)
}

func TestJobLog_Get_MissingJob_ReturnsNotOK(t *testing.T) {
	log := openTestJobLog(t)

	_, ok, err := log.Get("does-not-exist")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJobLog_WorkerStats_AggregatesAcrossRecords(t *testing.T) {
	log := openTestJobLog(t)

	require.NoError(t, log.Put(JobRecord{JobId: "a", CreatedChunks: map[string]int{"w1": 2}, DeletedChunks: map[string]int{}}))
	require.NoError(t, log.Put(JobRecord{JobId: "b", CreatedChunks: map[string]int{"w1": 1}, DeletedChunks: map[string]int{"w1": 3}}))

	created, deleted, err := log.WorkerStats("w1")
	require.NoError(t, err)
	assert.Equal(t, 3, created)
	assert.Equal(t, 3, deleted)
}

func TestFindAllJob_PersistsRecordWhenJobLogConfigured(t *testing.T) {
	log := openTestJobLog(t)
	rpc := newFakeRPC()
	rpc.seed("w1", Replica{Database: "db1", Chunk: 1, Worker: "w1", Status: StatusComplete})

	ctrl := testController(rpc, &fakeNotifier{}, nil)
	ctrl.JobLog = log

	j := NewFindAllJob("family", []string{"w1"}, []string{"db1"}, ctrl.Locker, ctrl, nil)
	runJobSync(t, j)
	require.Equal(t, JobExtSuccess, j.ExtendedState())

	rec, ok, err := log.Get(j.ID())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "FindAll", rec.Kind)
	assert.Equal(t, "SUCCESS", rec.ExtState)
}
