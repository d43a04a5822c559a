package replica

import (
	"sort"

	uuid "github.com/satori/go.uuid"
)

// JobId identifies one job instance. RequestId identifies one leaf request.
// Both are random UUIDs.
type JobId string
type RequestId string

// NewJobId and NewRequestId mint fresh identifiers. They panic only if the
// system's random source is broken, matching satori/go.uuid's own NewV4
// contract.
func NewJobId() JobId {
	return JobId(mustUUID().String())
}

func NewRequestId() RequestId {
	return RequestId(mustUUID().String())
}

func mustUUID() uuid.UUID {
	id, err := uuid.NewV4()
	if err != nil {
		panic("replica: failed to generate uuid: " + err.Error())
	}
	return id
}

// ReplicaStatus is the status of one replica as last reported by a worker.
type ReplicaStatus int

const (
	StatusIncomplete ReplicaStatus = iota
	StatusComplete
)

func (s ReplicaStatus) String() string {
	if s == StatusComplete {
		return "COMPLETE"
	}
	return "INCOMPLETE"
}

// Replica is one (database, chunk, worker) triple as reported by a worker.
// Equality across workers uses (Chunk, Database, Worker).
type Replica struct {
	Database string
	Chunk    uint32
	Worker   string
	Status   ReplicaStatus
}

// Equal compares two replicas by (chunk, database, worker) identity,
// ignoring Status.
func (r Replica) Equal(other Replica) bool {
	return r.Chunk == other.Chunk && r.Database == other.Database && r.Worker == other.Worker
}

// Chunk identifies one horizontal partition within a family. The locker
// maps Chunks to the JobId currently holding them.
type Chunk struct {
	Family string
	Number uint32
}

// RequestState is a leaf request's coarse lifecycle state.
type RequestState int

const (
	RequestCreated RequestState = iota
	RequestInProgress
	RequestFinished
)

// RequestExtendedState refines RequestFinished with an outcome.
type RequestExtendedState int

const (
	ExtNone RequestExtendedState = iota
	ExtSuccess
	ExtFailed
)

func (s RequestExtendedState) String() string {
	switch s {
	case ExtSuccess:
		return "SUCCESS"
	case ExtFailed:
		return "FAILED"
	default:
		return "NONE"
	}
}

// JobState is a job's coarse lifecycle state.
type JobState int

const (
	JobCreated JobState = iota
	JobInProgress
	JobFinished
)

func (s JobState) String() string {
	switch s {
	case JobInProgress:
		return "IN_PROGRESS"
	case JobFinished:
		return "FINISHED"
	default:
		return "CREATED"
	}
}

// JobExtendedState refines JobFinished with the reason a job finished.
type JobExtendedState int

const (
	JobExtNone JobExtendedState = iota
	JobExtSuccess
	JobExtFailed
	JobExtCancelled
	JobExtConfigError
	JobExtQservChunkInUse
	JobExtQservFailed
)

func (s JobExtendedState) String() string {
	switch s {
	case JobExtSuccess:
		return "SUCCESS"
	case JobExtFailed:
		return "FAILED"
	case JobExtCancelled:
		return "CANCELLED"
	case JobExtConfigError:
		return "CONFIG_ERROR"
	case JobExtQservChunkInUse:
		return "QSERV_CHUNK_IN_USE"
	case JobExtQservFailed:
		return "QSERV_FAILED"
	default:
		return "NONE"
	}
}

// Disposition is the output of a FindAll job: the full replica picture
// across one family's chunks and workers.
type Disposition struct {
	// Replicas lists every (database, worker, replica) tuple reported
	// for each chunk.
	Replicas map[uint32][]Replica

	// Reported records which workers answered their find_all_replicas
	// request; an absent or false entry means the worker failed to
	// respond and its chunks are absent from Replicas.
	Reported map[string]bool

	// Databases is the sorted set of databases participating in a chunk.
	Databases map[uint32][]string

	// Complete maps chunk -> database -> workers holding a COMPLETE
	// replica of that (chunk, database).
	Complete map[uint32]map[string][]string

	// Colocated[chunk][worker] is true iff worker holds a replica (any
	// status) for every database in Databases[chunk].
	Colocated map[uint32]map[string]bool

	// Good[chunk][worker] is true iff Colocated and every such replica
	// is COMPLETE (GLOSSARY "Good chunk").
	Good map[uint32]map[string]bool
}

func newDisposition() *Disposition {
	return &Disposition{
		Replicas:  map[uint32][]Replica{},
		Reported:  map[string]bool{},
		Databases: map[uint32][]string{},
		Complete:  map[uint32]map[string][]string{},
		Colocated: map[uint32]map[string]bool{},
		Good:      map[uint32]map[string]bool{},
	}
}

// goodWorkersFor returns the sorted set of workers holding a COMPLETE
// replica of (chunk, database) across the whole family -- used by jobs
// picking a replication source.
func (d *Disposition) goodWorkersFor(chunk uint32, database string) []string {
	workers := append([]string(nil), d.Complete[chunk][database]...)
	sort.Strings(workers)
	return workers
}

// occupancy returns, for a worker, the number of replicas of any status it
// currently holds across every chunk in the disposition -- the metric
// Replicate uses to order destination candidates.
func (d *Disposition) occupancy() map[string]int {
	counts := map[string]int{}
	for _, replicas := range d.Replicas {
		for _, r := range replicas {
			counts[r.Worker]++
		}
	}
	return counts
}

// hasReplica reports whether worker already holds any replica of chunk.
func (d *Disposition) hasReplica(chunk uint32, worker string) bool {
	for _, r := range d.Replicas[chunk] {
		if r.Worker == worker {
			return true
		}
	}
	return false
}
