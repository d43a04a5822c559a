// Package replica implements chunk-replica orchestration: a process-wide
// chunk locker, a generic leaf-request tracker, the six job types
// (FindAll, CreateReplica, DeleteReplica, FixUp, Replicate, Rebalance), and
// the Controller façade that owns workers' RPC endpoints and the Qserv
// notifier.
package replica

import "gopkg.in/src-d/go-errors.v1"

var (
	// ErrConfig names a leaf job's configuration failure. No code in this
	// package returns it: a job whose configuration fails validation at
	// start finishes FINISHED/CONFIG_ERROR directly.
	ErrConfig = errors.NewKind("replica: config error: %s")

	// ErrRequestFailure is returned by runFindAllSync when a composite
	// job's FindAll sub-job does not finish SUCCESS. Worker RPC failures
	// are wrapped by Controller.Dispatch instead.
	ErrRequestFailure = errors.NewKind("replica: request failed: %s")

	// ErrQservChunkInUse is raised when Qserv reports SERVER_CHUNK_IN_USE
	// for a pending delete.
	ErrQservChunkInUse = errors.NewKind("replica: chunk %d in use by Qserv on worker %s")

	// ErrQservFailure names an outright Qserv notification failure. No
	// code in this package returns it: DeleteReplicaJob finishes
	// QSERV_FAILED on any MarkUnused error other than ErrQservChunkInUse.
	ErrQservFailure = errors.NewKind("replica: qserv notification failed: %s")

	// ErrLockContention names a contended chunk lock. No code in this
	// package returns it: TryLock reports contention as false, and the
	// planning loops count the misses and restart planning.
	ErrLockContention = errors.NewKind("replica: chunk %d already locked by job %s")

	// ErrBadTrackerState is raised by Tracker.Reset when finished !=
	// launched.
	ErrBadTrackerState = errors.NewKind("replica: tracker reset with %d launched, %d finished")
)
