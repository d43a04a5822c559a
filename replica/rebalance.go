package replica

import (
	"context"
	"sort"
	"sync"
)

// RebalanceJob computes a chunk-move plan that brings every worker's good-
// chunk count toward the family average, then (unless Estimate is set)
// executes the plan one MoveReplica (create + purge-source) per entry
//. Grounded on core/modules/replica_core/RebalanceJob.cc
// and src/replica/jobs/RebalanceJob.cc.
type RebalanceJob struct {
	JobBase

	Family    string
	Workers   []string
	Databases []string

	// Estimate, when true, stops the job after computing the plan: no
	// MoveReplica sub-jobs are launched.
	Estimate bool

	result *JobResult
}

// NewRebalanceJob builds a RebalanceJob over family's enabled workers and
// participating databases.
func NewRebalanceJob(family string, workers, databases []string, estimate bool, locker *Locker, ctrl *Controller, onFinish func(Job)) *RebalanceJob {
	j := &RebalanceJob{Family: family, Workers: append([]string(nil), workers...), Databases: append([]string(nil), databases...), Estimate: estimate}
	j.JobBase = NewJobBase("", 0, locker, ctrl, ctrl.Log.WithField("job", "Rebalance"), onFinish)
	return j
}

// Result returns the computed plan/counters. Only valid once State() ==
// JobFinished.
func (j *RebalanceJob) Result() *JobResult {
	j.Lock()
	defer j.Unlock()
	return j.result
}

// Cancel cancels the job's context.
func (j *RebalanceJob) Cancel() { j.JobBase.Cancel(j) }

func (j *RebalanceJob) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	j.markInProgress(cancel)
	span := j.Ctrl.StartJobSpan("RebalanceJob", j.ID())
	defer span.Finish()

	overflow := j.Ctrl.Cfg.OverflowChunkNumber
	result := newJobResult()
	anyFailure := false
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

		goodChunksByWorker, totalGood := goodChunkCounts(disp, overflow)
		totalWorkers := len(sortedReportedWorkers(disp))
		if totalWorkers == 0 {
			j.Lock()
			j.result = result
			j.Unlock()
			j.finish(j, JobExtSuccess)
			return
		}
		avg := totalGood / totalWorkers

		plan := planRebalance(disp, goodChunksByWorker, avg, overflow)

		var lockedChunks []Chunk
		var moves []rebalanceMove
		failedLocks := 0
		for _, m := range plan {
			lock := Chunk{Family: j.Family, Number: m.chunk}
			if !j.Locker.TryLock(lock, j.ID()) {
				failedLocks++
				continue
			}
			lockedChunks = append(lockedChunks, lock)
			moves = append(moves, m)
			result.Actions = append(result.Actions, PlanAction{Chunk: m.chunk, Src: m.src, Dst: m.dst})
		}

		if j.Estimate {
			for _, lock := range lockedChunks {
				j.Locker.Release(lock)
			}
			j.Lock()
			j.result = result
			j.Unlock()
			j.finish(j, JobExtSuccess)
			return
		}

		if len(moves) > 0 {
			var wg sync.WaitGroup
			var mu sync.Mutex
			for _, m := range moves {
				wg.Add(1)
				m := m
				go func() {
					defer wg.Done()
					ok := j.runMove(ctx, m)
					mu.Lock()
					if ok {
						result.CreatedChunks[m.dst]++
						result.DeletedChunks[m.src]++
					} else {
						anyFailure = true
					}
					mu.Unlock()
				}()
			}
			wg.Wait()
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
	if anyFailure {
		ext = JobExtFailed
	}
	persistJob(j.Ctrl, JobRecord{
		JobId:         string(j.ID()),
		Kind:          "Rebalance",
		Family:        j.Family,
		State:         JobFinished.String(),
		ExtState:      ext.String(),
		CreatedChunks: result.CreatedChunks,
		DeletedChunks: result.DeletedChunks,
	})
	j.finish(j, ext)
}

// runMove executes one MoveReplica plan entry: create the chunk on dst,
// notify Qserv, then purge it from src, only once the create has fully
// succeeded.
func (j *RebalanceJob) runMove(ctx context.Context, m rebalanceMove) bool {
	createDone := make(chan struct{})
	create := NewCreateReplicaJob(j.Family, m.chunk, m.src, m.dst, j.Locker, j.Ctrl, func(Job) { close(createDone) })
	create.SkipNotify = true
	create.Start(ctx)
	<-createDone
	if create.ExtendedState() != JobExtSuccess {
		return false
	}

	if j.Ctrl.Cfg.AutoNotify && j.Ctrl.Notifier != nil {
		_ = j.Ctrl.Notifier.AddReplica(context.Background(), j.Databases, m.chunk, []string{m.dst})
	}

	deleteDone := make(chan struct{})
	del := NewDeleteReplicaJob(j.Family, m.chunk, m.src, j.Locker, j.Ctrl, func(Job) { close(deleteDone) })
	del.Start(ctx)
	<-deleteDone
	return del.ExtendedState() == JobExtSuccess
}

type rebalanceMove struct {
	chunk uint32
	src   string
	dst   string
}

// goodChunkCounts returns, per worker, the number of non-overflow chunks
// it holds good, and the grand total across all workers.
func goodChunkCounts(disp *Disposition, overflow uint32) (map[string]int, int) {
	counts := map[string]int{}
	total := 0
	for chunk, byWorker := range disp.Good {
		if chunk == overflow {
			continue
		}
		for worker, good := range byWorker {
			if good {
				counts[worker]++
				total++
			}
		}
	}
	return counts, total
}

// planRebalance greedily assigns over-average workers' good chunks to
// under-average workers, never moving more than count(src) - avg chunks
// out of any one source, and never
// planning a destination that already holds the chunk ("Plan
// monotonicity"). It does not itself touch the chunk locker -- the caller
// locks each planned chunk before executing it and drops any move whose
// lock is contended.
func planRebalance(disp *Disposition, counts map[string]int, avg int, overflow uint32) []rebalanceMove {
	var sources []string
	need := map[string]int{}
	for _, w := range sortedReportedWorkers(disp) {
		if counts[w] > avg {
			sources = append(sources, w)
		} else if counts[w] < avg {
			need[w] = avg - counts[w]
		}
	}
	sort.Slice(sources, func(i, j int) bool {
		if counts[sources[i]] != counts[sources[j]] {
			return counts[sources[i]] > counts[sources[j]]
		}
		return sources[i] < sources[j]
	})

	assigned := map[string]int{}
	var moves []rebalanceMove

	for _, src := range sources {
		remaining := counts[src] - avg
		if remaining <= 0 {
			continue
		}
		for _, chunk := range sortedGoodChunksOf(disp, src, overflow) {
			if remaining <= 0 {
				break
			}
			dst := pickRebalanceDestination(need, assigned, disp, chunk, src)
			if dst == "" {
				continue
			}
			moves = append(moves, rebalanceMove{chunk: chunk, src: src, dst: dst})
			assigned[dst]++
			need[dst]--
			if need[dst] <= 0 {
				delete(need, dst)
			}
			remaining--
		}
	}
	return moves
}

func sortedGoodChunksOf(disp *Disposition, worker string, overflow uint32) []uint32 {
	var chunks []uint32
	for chunk, byWorker := range disp.Good {
		if chunk == overflow {
			continue
		}
		if byWorker[worker] {
			chunks = append(chunks, chunk)
		}
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i] < chunks[j] })
	return chunks
}

func pickRebalanceDestination(need map[string]int, assigned map[string]int, disp *Disposition, chunk uint32, src string) string {
	var candidates []string
	for w := range need {
		if w == src || disp.hasReplica(chunk, w) {
			continue
		}
		candidates = append(candidates, w)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if assigned[candidates[i]] != assigned[candidates[j]] {
			return assigned[candidates[i]] < assigned[candidates[j]]
		}
		return candidates[i] < candidates[j]
	})
	if len(candidates) == 0 {
		return ""
	}
	return candidates[0]
}
