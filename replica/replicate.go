package replica

import (
	"context"
	"sort"
	"sync"
)

// ReplicateJob brings every chunk in a family up to its configured
// replication level by launching one CreateReplicaJob sub-job per
// (chunk, destination) pair, choosing destinations by current occupancy
// and sources from each chunk's COMPLETE-worker list.
// Grounded on core/modules/replica/ReplicateJob.cc.
type ReplicateJob struct {
	JobBase

	Family    string
	Workers   []string
	Databases []string

	result *JobResult
}

// NewReplicateJob builds a ReplicateJob over family's enabled workers and
// participating databases; the target replication level is read from the
// Controller's config snapshot.
func NewReplicateJob(family string, workers, databases []string, locker *Locker, ctrl *Controller, onFinish func(Job)) *ReplicateJob {
	j := &ReplicateJob{Family: family, Workers: append([]string(nil), workers...), Databases: append([]string(nil), databases...)}
	j.JobBase = NewJobBase("", 0, locker, ctrl, ctrl.Log.WithField("job", "Replicate"), onFinish)
	return j
}

// Result returns the job's plan/counters. Only valid once State() ==
// JobFinished.
func (j *ReplicateJob) Result() *JobResult {
	j.Lock()
	defer j.Unlock()
	return j.result
}

// Cancel cancels the job's context; the planning loop checks for
// cancellation at the start of each pass.
func (j *ReplicateJob) Cancel() { j.JobBase.Cancel(j) }

func (j *ReplicateJob) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	j.markInProgress(cancel)
	span := j.Ctrl.StartJobSpan("ReplicateJob", j.ID())
	defer span.Finish()

	target := j.Ctrl.Cfg.ReplicationLevel(j.Family)
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

		occupancy := disp.occupancy()
		reportedWorkers := sortedReportedWorkers(disp)

		type placement struct {
			chunk uint32
			src   string
			dst   string
		}
		var placements []placement
		var lockedChunks []Chunk
		failedLocks := 0

		for _, chunk := range sortedChunks(disp) {
			deficit := target - countGood(disp, chunk)
			if deficit <= 0 {
				continue
			}
			src := bestSource(disp, chunk)
			if src == "" {
				continue
			}
			lock := Chunk{Family: j.Family, Number: chunk}
			if !j.Locker.TryLock(lock, j.ID()) {
				failedLocks++
				continue
			}
			lockedChunks = append(lockedChunks, lock)

			for n := 0; n < deficit; n++ {
				dst := pickDestination(reportedWorkers, occupancy, func(w string) bool {
					return !disp.hasReplica(chunk, w) && w != src
				})
				if dst == "" {
					break
				}
				occupancy[dst]++
				placements = append(placements, placement{chunk: chunk, src: src, dst: dst})
			}
		}

		byChunk := map[uint32][]placement{}
		for _, p := range placements {
			byChunk[p.chunk] = append(byChunk[p.chunk], p)
		}

		var chunksWithWork []uint32
		for chunk := range byChunk {
			chunksWithWork = append(chunksWithWork, chunk)
		}
		sort.Slice(chunksWithWork, func(i, j int) bool { return chunksWithWork[i] < chunksWithWork[j] })

		subJobsByChunk := map[uint32][]*CreateReplicaJob{}
		var wg sync.WaitGroup
		for _, chunk := range chunksWithWork {
			ps := byChunk[chunk]
			src := ps[0].src
			for _, p := range ps {
				wg.Add(1)
				sub := NewCreateReplicaJob(j.Family, chunk, src, p.dst, j.Locker, j.Ctrl, func(Job) { wg.Done() })
				sub.SkipNotify = true
				subJobsByChunk[chunk] = append(subJobsByChunk[chunk], sub)
				result.Actions = append(result.Actions, PlanAction{Chunk: chunk, Src: src, Dst: p.dst})
			}
		}
		for _, subs := range subJobsByChunk {
			for _, sub := range subs {
				sub.Start(ctx)
			}
		}
		wg.Wait()

		// One consolidated Qserv notification per chunk covering every
		// destination that succeeded.
		for _, chunk := range chunksWithWork {
			var succeededDsts []string
			for _, sub := range subJobsByChunk[chunk] {
				if sub.ExtendedState() == JobExtSuccess {
					result.CreatedChunks[sub.Dst]++
					succeededDsts = append(succeededDsts, sub.Dst)
				} else {
					anyFailure = true
				}
			}
			if len(succeededDsts) > 0 && j.Ctrl.Cfg.AutoNotify && j.Ctrl.Notifier != nil {
				sort.Strings(succeededDsts)
				_ = j.Ctrl.Notifier.AddReplica(context.Background(), j.Databases, chunk, succeededDsts)
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
	if anyFailure {
		ext = JobExtFailed
	}
	persistJob(j.Ctrl, JobRecord{
		JobId:         string(j.ID()),
		Kind:          "Replicate",
		Family:        j.Family,
		TargetLevel:   target,
		State:         JobFinished.String(),
		ExtState:      ext.String(),
		CreatedChunks: result.CreatedChunks,
		DeletedChunks: result.DeletedChunks,
	})
	j.finish(j, ext)
}

func countGood(disp *Disposition, chunk uint32) int {
	n := 0
	for _, good := range disp.Good[chunk] {
		if good {
			n++
		}
	}
	return n
}

// bestSource returns a worker holding chunk COMPLETE for every
// participating database -- a "good" worker, the simplest valid
// replication source.
func bestSource(disp *Disposition, chunk uint32) string {
	var goodWorkers []string
	for w, good := range disp.Good[chunk] {
		if good {
			goodWorkers = append(goodWorkers, w)
		}
	}
	sort.Strings(goodWorkers)
	if len(goodWorkers) > 0 {
		return goodWorkers[0]
	}
	return ""
}

// pickDestination returns the eligible worker (per ok) with the lowest
// current occupancy, breaking ties alphabetically.
func pickDestination(workers []string, occupancy map[string]int, ok func(string) bool) string {
	best := ""
	bestCount := -1
	for _, w := range workers {
		if !ok(w) {
			continue
		}
		count := occupancy[w]
		if bestCount == -1 || count < bestCount || (count == bestCount && w < best) {
			best = w
			bestCount = count
		}
	}
	return best
}
