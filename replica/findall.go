package replica

import (
	"context"
	"sort"

	"github.com/opentracing/opentracing-go"
)

// FindAllJob fires one find_all_replicas request per (enabled worker x
// database of the family) and aggregates the results into a Disposition
//. Grounded on
// core/modules/replica/FindAllJob.cc's per-worker fan-out and the
// disposition tables it builds.
type FindAllJob struct {
	JobBase

	Family    string
	Workers   []string
	Databases []string

	tracker *Tracker[*Request]
	result  *Disposition
}

// NewFindAllJob builds a FindAllJob for family across workers, one of
// which may have failed to register; databases lists every database
// participating in the family.
func NewFindAllJob(family string, workers, databases []string, locker *Locker, ctrl *Controller, onFinish func(Job)) *FindAllJob {
	j := &FindAllJob{
		Family:    family,
		Workers:   append([]string(nil), workers...),
		Databases: append([]string(nil), databases...),
	}
	j.JobBase = NewJobBase("", 0, locker, ctrl, ctrl.Log.WithField("job", "FindAll"), onFinish)
	j.tracker = NewTracker[*Request](j.Log)
	return j
}

// Result returns the computed Disposition. Only valid once State() ==
// JobFinished.
func (j *FindAllJob) Result() *Disposition {
	j.Lock()
	defer j.Unlock()
	return j.result
}

// Start launches one request per (worker, database) pair and blocks until
// every request has been dispatched; completion is asynchronous and
// delivered to the Controller's thread pool.
func (j *FindAllJob) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	j.markInProgress(cancel)
	span := j.Ctrl.StartJobSpan("FindAllJob", j.ID())

	disp := newDisposition()
	j.Lock()
	j.result = disp
	j.Unlock()

	var pending int
	for _, worker := range j.Workers {
		for _, db := range j.Databases {
			pending++
			req := NewRequest(RequestFindAllReplicas, worker, db, 0, j.Ctrl.Cfg.KeepTrackingDefault)
			j.tracker.Add(req)
			j.dispatchOne(ctx, span, req)
		}
	}
	if pending == 0 {
		j.finishFromTracker(span)
	}
}

func (j *FindAllJob) dispatchOne(ctx context.Context, parentSpan opentracing.Span, req *Request) {
	reqSpan := j.Ctrl.StartRequestSpan(parentSpan, "find_all_replicas")
	j.Ctrl.Dispatch(ctx, reqSpan, func(ctx context.Context) (RequestExtendedState, error) {
		replicas, err := j.Ctrl.RPC.FindAllReplicas(ctx, req.Worker, j.Family)
		if err != nil {
			return ExtFailed, err
		}
		j.Lock()
		j.result.Reported[req.Worker] = true
		for _, r := range replicas {
			// Each (worker, database) request keeps only its own
			// database's replicas, so no replica is recorded twice.
			if r.Database != req.Database {
				continue
			}
			j.result.Replicas[r.Chunk] = append(j.result.Replicas[r.Chunk], r)
		}
		j.Unlock()
		return ExtSuccess, nil
	}, func(ext RequestExtendedState, err error) {
		req.Finish(ext, err)
		j.tracker.OnFinish(req)
		if j.tracker.Done() {
			j.finalize()
			j.finishFromTracker(span)
		}
	})
}

// finalize computes the derived Disposition fields once every request has
// finished.
func (j *FindAllJob) finalize() {
	j.Lock()
	defer j.Unlock()
	disp := j.result

	for chunk, replicas := range disp.Replicas {
		dbSet := map[string]bool{}
		for _, r := range replicas {
			dbSet[r.Database] = true
		}
		var dbs []string
		for db := range dbSet {
			dbs = append(dbs, db)
		}
		sort.Strings(dbs)
		disp.Databases[chunk] = dbs

		complete := map[string][]string{}
		for _, r := range replicas {
			if r.Status == StatusComplete {
				complete[r.Database] = append(complete[r.Database], r.Worker)
			}
		}
		for db := range complete {
			sort.Strings(complete[db])
		}
		disp.Complete[chunk] = complete

		workerDBs := map[string]map[string]ReplicaStatus{}
		for _, r := range replicas {
			if workerDBs[r.Worker] == nil {
				workerDBs[r.Worker] = map[string]ReplicaStatus{}
			}
			workerDBs[r.Worker][r.Database] = r.Status
		}
		colocated := map[string]bool{}
		good := map[string]bool{}
		for worker, held := range workerDBs {
			isColocated := true
			isGood := true
			for _, db := range dbs {
				status, ok := held[db]
				if !ok {
					isColocated = false
					isGood = false
					break
				}
				if status != StatusComplete {
					isGood = false
				}
			}
			colocated[worker] = isColocated
			good[worker] = isGood
		}
		disp.Colocated[chunk] = colocated
		disp.Good[chunk] = good
	}
}

// Cancel cancels the job's context, aborting any in-flight Dispatch
// goroutine.
func (j *FindAllJob) Cancel() { j.JobBase.Cancel(j) }

func (j *FindAllJob) finishFromTracker(span opentracing.Span) {
	defer span.Finish()
	ext := JobExtSuccess
	if !j.tracker.AllSucceeded() {
		j.tracker.PrintErrorReport()
		ext = JobExtFailed
	}
	persistJob(j.Ctrl, JobRecord{
		JobId:  string(j.ID()),
		Kind:   "FindAll",
		Family: j.Family,
		State:  JobFinished.String(),
		ExtState: ext.String(),
	})
	j.finish(j, ext)
}
