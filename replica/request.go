package replica

// RequestKind distinguishes the three leaf-request shapes a job can
// launch.
type RequestKind int

const (
	RequestFindAllReplicas RequestKind = iota
	RequestReplicate
	RequestDelete
)

func (k RequestKind) String() string {
	switch k {
	case RequestFindAllReplicas:
		return "FIND_ALL_REPLICAS"
	case RequestReplicate:
		return "REPLICATE"
	case RequestDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// Request is one worker-targeted leaf operation: replicate one database's
// chunk, delete one, or enumerate everything a worker holds. It carries its own state machine {CREATED, IN_PROGRESS, FINISHED}
// plus an extended state; *Request implements Trackable so a
// Tracker[*Request] can aggregate it.
type Request struct {
	Id       RequestId
	Kind     RequestKind
	Worker   string
	Database string
	Chunk    uint32

	// SrcWorker is set for RequestReplicate: the worker a chunk's
	// database is being copied from.
	SrcWorker string

	// KeepTracking mirrors the Controller's keep-tracking default unless
	// the caller overrides it per request.
	KeepTracking bool

	State RequestExtendedStateHolder
}

// RequestExtendedStateHolder separates the coarse lifecycle state from the
// outcome so a zero-value Request starts CREATED/NONE without any
// constructor.
type RequestExtendedStateHolder struct {
	Coarse RequestState
	Ext    RequestExtendedState
	Err    error
}

// ExtendedState implements Trackable.
func (r *Request) ExtendedState() RequestExtendedState { return r.State.Ext }

// Start transitions CREATED -> IN_PROGRESS.
func (r *Request) Start() { r.State.Coarse = RequestInProgress }

// Finish transitions IN_PROGRESS -> FINISHED with the given outcome.
func (r *Request) Finish(ext RequestExtendedState, err error) {
	r.State.Coarse = RequestFinished
	r.State.Ext = ext
	r.State.Err = err
}

// NewRequest builds a Request in its CREATED state.
func NewRequest(kind RequestKind, worker, database string, chunk uint32, keepTracking bool) *Request {
	return &Request{
		Id:           NewRequestId(),
		Kind:         kind,
		Worker:       worker,
		Database:     database,
		Chunk:        chunk,
		KeepTracking: keepTracking,
	}
}
