package replica

import (
	"context"
	"sort"

	"github.com/opentracing/opentracing-go"
)

// DeleteReplicaJob removes every database's replica of one chunk from one
// worker, optionally gated on a Qserv mark-unused notification. Grounded on core/modules/replica/DeleteReplicaJob.cc.
type DeleteReplicaJob struct {
	JobBase

	Family string
	Chunk  uint32
	Worker string

	tracker *Tracker[*Request]
}

// NewDeleteReplicaJob builds a DeleteReplicaJob.
func NewDeleteReplicaJob(family string, chunk uint32, worker string, locker *Locker, ctrl *Controller, onFinish func(Job)) *DeleteReplicaJob {
	j := &DeleteReplicaJob{Family: family, Chunk: chunk, Worker: worker}
	j.JobBase = NewJobBase("", 0, locker, ctrl, ctrl.Log.WithField("job", "DeleteReplica"), onFinish)
	j.tracker = NewTracker[*Request](j.Log)
	return j
}

func (j *DeleteReplicaJob) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	j.markInProgress(cancel)
	span := j.Ctrl.StartJobSpan("DeleteReplicaJob", j.ID())

	if j.Worker == "" {
		span.Finish()
		j.finish(j, JobExtConfigError)
		return
	}

	replicas, err := j.Ctrl.DB.Replicas(j.Worker, j.Chunk)
	if err != nil || len(replicas) == 0 {
		span.Finish()
		j.finish(j, JobExtConfigError)
		return
	}
	var databases []string
	for _, r := range replicas {
		databases = append(databases, r.Database)
	}
	sort.Strings(databases)

	if j.Ctrl.Cfg.AutoNotify && j.Ctrl.Notifier != nil {
		if err := j.Ctrl.Notifier.MarkUnused(ctx, j.Worker, j.Chunk, true); err != nil {
			span.Finish()
			if ErrQservChunkInUse.Is(err) {
				j.finish(j, JobExtQservChunkInUse)
			} else {
				j.finish(j, JobExtQservFailed)
			}
			return
		}
	}

	reqs := make([]*Request, len(databases))
	for i, db := range databases {
		req := NewRequest(RequestDelete, j.Worker, db, j.Chunk, j.Ctrl.Cfg.KeepTrackingDefault)
		j.tracker.Add(req)
		reqs[i] = req
	}

	// Every request is added to the tracker before any is dispatched, so
	// a fast completion can never observe Done() while siblings are still
	// unlaunched.
	for _, req := range reqs {
		j.dispatchOne(ctx, span, req)
	}
}

func (j *DeleteReplicaJob) dispatchOne(ctx context.Context, parentSpan opentracing.Span, req *Request) {
	reqSpan := j.Ctrl.StartRequestSpan(parentSpan, "delete_replica")
	j.Ctrl.Dispatch(ctx, reqSpan, func(ctx context.Context) (RequestExtendedState, error) {
		if err := j.Ctrl.RPC.DeleteReplica(ctx, req.Worker, req.Database, req.Chunk); err != nil {
			return ExtFailed, err
		}
		return ExtSuccess, nil
	}, func(ext RequestExtendedState, err error) {
		req.Finish(ext, err)
		j.tracker.OnFinish(req)
		if j.tracker.Done() {
			j.finishFromTracker(parentSpan)
		}
	})
}

func (j *DeleteReplicaJob) finishFromTracker(span opentracing.Span) {
	defer span.Finish()
	ext := JobExtSuccess
	if !j.tracker.AllSucceeded() {
		j.tracker.PrintErrorReport()
		ext = JobExtFailed
	}
	persistJob(j.Ctrl, JobRecord{
		JobId:         string(j.ID()),
		Kind:          "DeleteReplica",
		Family:        j.Family,
		Chunk:         j.Chunk,
		Worker:        j.Worker,
		State:         JobFinished.String(),
		ExtState:      ext.String(),
		DeletedChunks: map[string]int{j.Worker: 1},
	})
	j.finish(j, ext)
}

// Cancel cancels the job's context, aborting any in-flight Dispatch
// goroutine.
func (j *DeleteReplicaJob) Cancel() { j.JobBase.Cancel(j) }
