package replica

import (
	"context"
	"sort"

	"github.com/opentracing/opentracing-go"
)

// CreateReplicaJob copies every database of one chunk from a source
// worker to a destination worker. Grounded on
// core/modules/replica/CreateReplicaJob.{h,cc}.
type CreateReplicaJob struct {
	JobBase

	Family string
	Chunk  uint32
	Src    string
	Dst    string

	// SkipNotify suppresses this job's own Qserv add_replica
	// notification -- set by a composite parent (ReplicateJob,
	// RebalanceJob) that consolidates notifications for several
	// sub-jobs into one call.
	SkipNotify bool

	tracker *Tracker[*Request]
}

// NewCreateReplicaJob validates nothing itself; Start performs the
// configuration validation and finishes CONFIG_ERROR on failure.
func NewCreateReplicaJob(family string, chunk uint32, src, dst string, locker *Locker, ctrl *Controller, onFinish func(Job)) *CreateReplicaJob {
	j := &CreateReplicaJob{Family: family, Chunk: chunk, Src: src, Dst: dst}
	j.JobBase = NewJobBase("", 0, locker, ctrl, ctrl.Log.WithField("job", "CreateReplica"), onFinish)
	j.tracker = NewTracker[*Request](j.Log)
	return j
}

func (j *CreateReplicaJob) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	j.markInProgress(cancel)
	span := j.Ctrl.StartJobSpan("CreateReplicaJob", j.ID())

	if j.Src == j.Dst || j.Src == "" || j.Dst == "" {
		span.Finish()
		j.finish(j, JobExtConfigError)
		return
	}

	dstReplicas, err := j.Ctrl.DB.Replicas(j.Dst, j.Chunk)
	if err != nil || len(dstReplicas) > 0 {
		span.Finish()
		j.finish(j, JobExtConfigError)
		return
	}

	srcReplicas, err := j.Ctrl.DB.Replicas(j.Src, j.Chunk)
	if err != nil || len(srcReplicas) == 0 {
		span.Finish()
		j.finish(j, JobExtConfigError)
		return
	}

	var databases []string
	for _, r := range srcReplicas {
		databases = append(databases, r.Database)
	}
	sort.Strings(databases)

	reqs := make([]*Request, len(databases))
	for i, db := range databases {
		req := NewRequest(RequestReplicate, j.Dst, db, j.Chunk, j.Ctrl.Cfg.KeepTrackingDefault)
		req.SrcWorker = j.Src
		j.tracker.Add(req)
		reqs[i] = req
	}

	// Every request is added to the tracker before any is dispatched, so
	// a fast completion can never observe Done() while siblings are still
	// unlaunched.
	for _, req := range reqs {
		j.dispatchOne(ctx, span, req, databases)
	}
}

func (j *CreateReplicaJob) dispatchOne(ctx context.Context, parentSpan opentracing.Span, req *Request, databases []string) {
	reqSpan := j.Ctrl.StartRequestSpan(parentSpan, "create_replica")
	j.Ctrl.Dispatch(ctx, reqSpan, func(ctx context.Context) (RequestExtendedState, error) {
		if err := j.Ctrl.RPC.CreateReplica(ctx, req.Worker, req.Database, req.Chunk, req.SrcWorker); err != nil {
			return ExtFailed, err
		}
		return ExtSuccess, nil
	}, func(ext RequestExtendedState, err error) {
		req.Finish(ext, err)
		j.tracker.OnFinish(req)
		if j.tracker.Done() {
			j.finishFromTracker(parentSpan, databases)
		}
	})
}

func (j *CreateReplicaJob) finishFromTracker(span opentracing.Span, databases []string) {
	defer span.Finish()
	if !j.tracker.AllSucceeded() {
		j.tracker.PrintErrorReport()
		j.persistAndFinish(JobExtFailed)
		return
	}
	if !j.SkipNotify && j.Ctrl.Cfg.AutoNotify && j.Ctrl.Notifier != nil {
		_ = j.Ctrl.Notifier.AddReplica(context.Background(), databases, j.Chunk, []string{j.Dst})
	}
	j.persistAndFinish(JobExtSuccess)
}

func (j *CreateReplicaJob) persistAndFinish(ext JobExtendedState) {
	persistJob(j.Ctrl, JobRecord{
		JobId:         string(j.ID()),
		Kind:          "CreateReplica",
		Family:        j.Family,
		Chunk:         j.Chunk,
		Worker:        j.Dst,
		State:         JobFinished.String(),
		ExtState:      ext.String(),
		CreatedChunks: map[string]int{j.Dst: 1},
	})
	j.finish(j, ext)
}

// Cancel cancels the job's context, which aborts any in-flight Dispatch
// goroutine; a per-request stop RPC is not modeled since the WorkerRPC
// boundary has no stop primitive.
func (j *CreateReplicaJob) Cancel() { j.JobBase.Cancel(j) }
