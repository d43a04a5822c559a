package replica

import (
	"context"
	"sort"
)

// FixUpJob finds every (chunk, worker) pair where the worker is missing a
// database the rest of the family already holds COMPLETE somewhere, and
// replicates it in. It restarts its planning pass whenever a chunk lock
// was contended during the last wave. Grounded on
// core/modules/replica/FixUpJob.cc.
//
// Unlike the leaf jobs, FixUpJob's Start runs its planning loop to
// completion before returning -- callers that want asynchronous dispatch
// run Start in their own goroutine.
type FixUpJob struct {
	JobBase

	Family    string
	Workers   []string
	Databases []string

	result *JobResult
}

// NewFixUpJob builds a FixUpJob over family's enabled workers and
// participating databases.
func NewFixUpJob(family string, workers, databases []string, locker *Locker, ctrl *Controller, onFinish func(Job)) *FixUpJob {
	j := &FixUpJob{Family: family, Workers: append([]string(nil), workers...), Databases: append([]string(nil), databases...)}
	j.JobBase = NewJobBase("", 0, locker, ctrl, ctrl.Log.WithField("job", "FixUp"), onFinish)
	return j
}

// Result returns the job's plan/counters. Only valid once State() ==
// JobFinished.
func (j *FixUpJob) Result() *JobResult {
	j.Lock()
	defer j.Unlock()
	return j.result
}

// Cancel cancels the job's context; the planning loop checks for
// cancellation at the start of each pass.
func (j *FixUpJob) Cancel() { j.JobBase.Cancel(j) }

func (j *FixUpJob) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	j.markInProgress(cancel)
	span := j.Ctrl.StartJobSpan("FixUpJob", j.ID())
	defer span.Finish()

	result := newJobResult()
	tracker := NewTracker[*Request](j.Log)
	baseline, _ := configFingerprint(j.Ctrl.Cfg)

	for {
		if j.Cancelled() {
			j.finish(j, JobExtCancelled)
			return
		}

		if changed, err := configChanged(baseline, j.Ctrl.Cfg); err == nil && changed {
			j.Lock()
			j.result = result
			j.Unlock()
			j.finish(j, JobExtConfigError)
			return
		}

		disp, err := runFindAllSync(ctx, j.Family, j.Workers, j.Databases, j.Ctrl)
		if err != nil {
			j.Lock()
			j.result = result
			j.Unlock()
			j.finish(j, JobExtFailed)
			return
		}

		var reqs []*Request
		var lockedChunks []Chunk
		failedLocks := 0

		for _, chunk := range sortedChunks(disp) {
			heldDBs := databasesHeldByWorker(disp, chunk)
			for _, worker := range sortedReportedWorkers(disp) {
				if disp.Colocated[chunk][worker] {
					continue
				}
				lock := Chunk{Family: j.Family, Number: chunk}
				if !j.Locker.TryLock(lock, j.ID()) {
					failedLocks++
					continue
				}
				lockedChunks = append(lockedChunks, lock)

				for _, db := range disp.Databases[chunk] {
					if heldDBs[worker][db] {
						continue
					}
					sources := disp.goodWorkersFor(chunk, db)
					src := pickSourceOtherThan(sources, worker)
					if src == "" {
						continue
					}
					req := NewRequest(RequestReplicate, worker, db, chunk, j.Ctrl.Cfg.KeepTrackingDefault)
					req.SrcWorker = src
					tracker.Add(req)
					reqs = append(reqs, req)
					result.Actions = append(result.Actions, PlanAction{Chunk: chunk, Src: src, Dst: worker})
				}
			}
		}

		if len(reqs) > 0 {
			j.Ctrl.DispatchWave(ctx, span, reqs, func(ctx context.Context, req *Request) (RequestExtendedState, error) {
				if err := j.Ctrl.RPC.CreateReplica(ctx, req.Worker, req.Database, req.Chunk, req.SrcWorker); err != nil {
					return ExtFailed, err
				}
				return ExtSuccess, nil
			})
			for _, req := range reqs {
				tracker.OnFinish(req)
				if req.ExtendedState() == ExtSuccess {
					result.CreatedChunks[req.Worker]++
				}
			}
		}

		for _, lock := range lockedChunks {
			j.Locker.Release(lock)
		}

		if failedLocks == 0 {
			break
		}
	}

	j.Lock()
	j.result = result
	j.Unlock()

	ext := JobExtSuccess
	if !(tracker.Done() && (tracker.Launched() == 0 || tracker.AllSucceeded())) {
		tracker.PrintErrorReport()
		ext = JobExtFailed
	}
	persistJob(j.Ctrl, JobRecord{
		JobId:         string(j.ID()),
		Kind:          "FixUp",
		Family:        j.Family,
		TargetLevel:   j.Ctrl.Cfg.ReplicationLevel(j.Family),
		State:         JobFinished.String(),
		ExtState:      ext.String(),
		CreatedChunks: result.CreatedChunks,
		DeletedChunks: result.DeletedChunks,
	})
	j.finish(j, ext)
}

// runFindAllSync runs a FindAllJob to completion and returns its
// Disposition, blocking the caller -- the planning passes of FixUp,
// Replicate and Rebalance are synchronous with respect to their own
// driving loop even though the leaf requests they launch are not.
func runFindAllSync(ctx context.Context, family string, workers, databases []string, ctrl *Controller) (*Disposition, error) {
	done := make(chan struct{})
	fa := NewFindAllJob(family, workers, databases, ctrl.Locker, ctrl, func(Job) { close(done) })
	fa.Start(ctx)
	<-done
	if fa.ExtendedState() != JobExtSuccess {
		return nil, ErrRequestFailure.New("find_all_replicas")
	}
	return fa.Result(), nil
}

func sortedChunks(disp *Disposition) []uint32 {
	chunks := make([]uint32, 0, len(disp.Databases))
	for c := range disp.Databases {
		chunks = append(chunks, c)
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i] < chunks[j] })
	return chunks
}

func sortedReportedWorkers(disp *Disposition) []string {
	var workers []string
	for w, ok := range disp.Reported {
		if ok {
			workers = append(workers, w)
		}
	}
	sort.Strings(workers)
	return workers
}

func databasesHeldByWorker(disp *Disposition, chunk uint32) map[string]map[string]bool {
	held := map[string]map[string]bool{}
	for _, r := range disp.Replicas[chunk] {
		if held[r.Worker] == nil {
			held[r.Worker] = map[string]bool{}
		}
		held[r.Worker][r.Database] = true
	}
	return held
}

func pickSourceOtherThan(sources []string, exclude string) string {
	for _, s := range sources {
		if s != exclude {
			return s
		}
	}
	return ""
}
