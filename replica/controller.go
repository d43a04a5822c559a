package replica

import (
	"context"
	"sync"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/lsst-qserv/qserv-core/config"
)

// WorkerRPC is the boundary interface to a storage worker's replica
// management surface. It is deliberately left abstract: the concrete
// wire transport is out of scope for this package.
type WorkerRPC interface {
	// FindAllReplicas enumerates every replica of family's chunks held by
	// worker.
	FindAllReplicas(ctx context.Context, worker, family string) ([]Replica, error)
	// CreateReplica instructs worker to pull one database's chunk.
	CreateReplica(ctx context.Context, worker, database string, chunk uint32, srcWorker string) error
	// DeleteReplica instructs worker to drop one database's chunk.
	DeleteReplica(ctx context.Context, worker, database string, chunk uint32) error
}

// DatabaseServices is the boundary interface to the Controller's local
// metadata store, used by CreateReplica/DeleteReplica to validate the
// source and destination's existing replicas before launching any leaf
// request.
type DatabaseServices interface {
	// Replicas returns every replica of chunk across all databases held
	// by worker.
	Replicas(worker string, chunk uint32) ([]Replica, error)
}

// QservNotifier is the boundary interface to Qserv's chunk-usage
// management RPC.
type QservNotifier interface {
	// AddReplica is fire-and-forget: its outcome never affects a job's
	// result. It notifies Qserv, in one call, that every
	// worker in workers now holds a replica of chunk for every database
	// in databases.
	AddReplica(ctx context.Context, databases []string, chunk uint32, workers []string) error
	// MarkUnused asks Qserv to stop using chunk on worker before it is
	// deleted. Its result gates the delete path: on QSERV_CHUNK_IN_USE
	// the caller must not issue the delete.
	MarkUnused(ctx context.Context, worker string, chunk uint32, force bool) error
}

// Controller is a thin façade owning workers' RPC endpoints, a
// database-services handle, a config snapshot, and the chunk locker, and
// it runs leaf-request on-finish callbacks on a bounded request-completion
// thread pool. Grounded on driver.Conn's newContextWithQuery
// (dolthub-go-mysql-server's driver/conn.go): wrap every dispatched call
// in a context carrying request-scoped tracing, the way Conn wraps every
// query in a *sql.Context.
type Controller struct {
	Cfg      *config.Snapshot
	Locker   *Locker
	RPC      WorkerRPC
	DB       DatabaseServices
	Notifier QservNotifier
	Tracer   opentracing.Tracer
	Log      *logrus.Entry

	// JobLog, if set, receives one JobRecord per finished job.
	// Nil by default: persistence is opt-in, wired by the caller that opens
	// a JobLog with OpenJobLog.
	JobLog *JobLog

	pool chan struct{}
	wg   sync.WaitGroup
}

// NewController wires a Controller from its boundary interfaces. tracer
// and log may be nil, in which case a no-op tracer and a discarding
// logger are used.
func NewController(cfg *config.Snapshot, locker *Locker, rpc WorkerRPC, db DatabaseServices, notifier QservNotifier, tracer opentracing.Tracer, log *logrus.Entry) *Controller {
	if tracer == nil {
		tracer = opentracing.NoopTracer{}
	}
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	threads := 8
	if cfg != nil && cfg.ControllerThreads > 0 {
		threads = cfg.ControllerThreads
	}
	return &Controller{
		Cfg:      cfg,
		Locker:   locker,
		RPC:      rpc,
		DB:       db,
		Notifier: notifier,
		Tracer:   tracer,
		Log:      log,
		pool:     make(chan struct{}, threads),
	}
}

// StartJobSpan opens a span for one job family.
func (c *Controller) StartJobSpan(name string, jobId JobId) opentracing.Span {
	span := c.Tracer.StartSpan(name)
	span.SetTag("job.id", string(jobId))
	return span
}

// StartRequestSpan opens a child span of parent for one leaf request
// dispatch; the returned span is finished by Dispatch once the request
// completes.
func (c *Controller) StartRequestSpan(parent opentracing.Span, name string) opentracing.Span {
	return c.Tracer.StartSpan(name, opentracing.ChildOf(parent.Context()))
}

// Dispatch runs do on the Controller's bounded request-completion thread
// pool and invokes onDone with its outcome once it returns. The job lock
// is never held across this call: a job submits work here without holding
// its own lock, and the do and onDone callbacks take it only around the
// job state they touch.
func (c *Controller) Dispatch(ctx context.Context, span opentracing.Span, do func(ctx context.Context) (RequestExtendedState, error), onDone func(RequestExtendedState, error)) {
	c.wg.Add(1)
	c.pool <- struct{}{}
	go func() {
		defer c.wg.Done()
		defer func() { <-c.pool }()
		defer span.Finish()

		ext, err := do(ctx)
		if err != nil {
			err = errors.Wrap(err, "replica: leaf request failed")
		}
		onDone(ext, err)
	}()
}

// DispatchWave runs exec for every req concurrently on the Controller's
// thread pool and blocks until all of them have finished, for composite
// jobs (FixUp, Replicate, Rebalance) whose planning loop must wait out one
// batch before deciding whether to restart.
func (c *Controller) DispatchWave(ctx context.Context, span opentracing.Span, reqs []*Request, exec func(ctx context.Context, req *Request) (RequestExtendedState, error)) {
	var wg sync.WaitGroup
	for _, req := range reqs {
		wg.Add(1)
		req := req
		reqSpan := c.StartRequestSpan(span, req.Kind.String())
		c.Dispatch(ctx, reqSpan, func(ctx context.Context) (RequestExtendedState, error) {
			return exec(ctx, req)
		}, func(ext RequestExtendedState, err error) {
			req.Finish(ext, err)
			wg.Done()
		})
	}
	wg.Wait()
}

// Wait blocks until every request ever submitted through Dispatch has
// returned. Intended for tests and graceful shutdown, not for job logic.
func (c *Controller) Wait() {
	c.wg.Wait()
}
