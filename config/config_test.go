package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FillsDefaultsForOmittedFields(t *testing.T) {
	snap, err := Load([]byte(`
replicationLevels:
  LSST: 3
workerThreads: 16
`))
	require.NoError(t, err)
	assert.Equal(t, 3, snap.ReplicationLevel("LSST"))
	assert.Equal(t, 16, snap.WorkerThreads)
	assert.Equal(t, 8, snap.ControllerThreads)
	assert.True(t, snap.KeepTrackingDefault)
	assert.True(t, snap.AutoNotify)
	assert.Equal(t, 30*time.Second, snap.RequestTimeout)
}

func TestSnapshot_ReplicationLevel_DefaultsToOneForUnknownFamily(t *testing.T) {
	snap := Default()
	assert.Equal(t, 1, snap.ReplicationLevel("unknown"))
}

func TestSnapshot_ReplicationLevel_NilSnapshot(t *testing.T) {
	var snap *Snapshot
	assert.Equal(t, 1, snap.ReplicationLevel("LSST"))
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	_, err := Load([]byte("not: [valid"))
	assert.Error(t, err)
}
