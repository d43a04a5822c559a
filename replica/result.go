package replica

// PlanAction is one planned (or executed) chunk move: a database's replica
// of Chunk is copied from Src to Dst.
type PlanAction struct {
	Chunk uint32
	Src   string
	Dst   string
}

// JobResult is the shared result shape for FixUp and Rebalance (DESIGN.md
// Open Question #1: FixUpJobResult mirrors Rebalance's result struct,
// which survived in the pack in two versions -- a per-chunk/worker action
// list plus a per-worker created/deleted chunk counter map).
type JobResult struct {
	Actions       []PlanAction
	CreatedChunks map[string]int
	DeletedChunks map[string]int
}

func newJobResult() *JobResult {
	return &JobResult{CreatedChunks: map[string]int{}, DeletedChunks: map[string]int{}}
}
