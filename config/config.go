// Package config holds the Controller's resolved configuration snapshot:
// replication level targets, thread-pool sizes, and the keep-tracking
// default leaf requests inherit unless overridden.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Snapshot is an immutable view of the Controller's configuration at the
// time a job family was started. A Controller reloads a fresh Snapshot
// between job families; a job keeps the one it was handed for its entire
// lifetime so a config change mid-run is observable (replica/config_hash.go's
// hashstructure-based change detection) rather than silently applied.
type Snapshot struct {
	// ReplicationLevels maps a database family name to its target
	// replication level (used by ReplicateJob's deficit computation).
	ReplicationLevels map[string]int `yaml:"replicationLevels"`

	// WorkerThreads bounds how many leaf requests may be active at once
	// on a single worker.
	WorkerThreads int `yaml:"workerThreads"`

	// ControllerThreads sizes the Controller's request-completion thread
	// pool that leaf-request on-finish callbacks run on.
	ControllerThreads int `yaml:"controllerThreads"`

	// KeepTrackingDefault is the default value of a leaf request's
	// keep-tracking flag.
	KeepTrackingDefault bool `yaml:"keepTrackingDefault"`

	// AutoNotify enables fire-and-forget (or gated, for delete)
	// notification of Qserv on replica add/remove.
	AutoNotify bool `yaml:"autoNotify"`

	// RequestTimeout bounds how long the Controller waits for a worker
	// to answer a single RPC before treating it as failed.
	RequestTimeout time.Duration `yaml:"requestTimeout"`

	// OverflowChunkNumber is the metadata-reserved chunk number meaning
	// "present on every worker"; it is excluded from Rebalance's chunk
	// counts.
	OverflowChunkNumber uint32 `yaml:"overflowChunkNumber"`
}

// ReplicationLevel returns the target replication level for family, or the
// default of 1 if the family carries no explicit entry.
func (s *Snapshot) ReplicationLevel(family string) int {
	if s == nil {
		return 1
	}
	if level, ok := s.ReplicationLevels[family]; ok && level > 0 {
		return level
	}
	return 1
}

// Default returns a Snapshot with sane defaults for standalone use (tests,
// tools without their own config store).
func Default() *Snapshot {
	return &Snapshot{
		ReplicationLevels:   map[string]int{},
		WorkerThreads:       4,
		ControllerThreads:   8,
		KeepTrackingDefault: true,
		AutoNotify:          true,
		RequestTimeout:      30 * time.Second,
		OverflowChunkNumber: 1234567890,
	}
}

// LoadFile reads and parses a Snapshot from a YAML file on disk
// (gopkg.in/yaml.v2, mirrored in qana/metadata_yaml.go).
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(data)
}

// Load parses a Snapshot from raw YAML bytes, filling in Default()'s
// values for any field the document omits.
func Load(data []byte) (*Snapshot, error) {
	snap := Default()
	if err := yaml.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("config: parsing snapshot: %w", err)
	}
	if snap.ReplicationLevels == nil {
		snap.ReplicationLevels = map[string]int{}
	}
	return snap, nil
}
