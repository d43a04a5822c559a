package replica

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/lsst-qserv/qserv-core/config"
)

// fakeRPC is an in-memory WorkerRPC: chunk->database->worker->status,
// mutated by CreateReplica/DeleteReplica and read back by
// FindAllReplicas. failWorkers/failChunks force an error from any call
// touching that worker/chunk, for exercising failure paths.
type fakeRPC struct {
	mu sync.Mutex

	// byWorker[worker][chunk] = list of replicas currently held.
	byWorker map[string]map[uint32][]Replica

	failWorkers map[string]bool
	failChunks  map[uint32]bool
}

func newFakeRPC() *fakeRPC {
	return &fakeRPC{
		byWorker:    map[string]map[uint32][]Replica{},
		failWorkers: map[string]bool{},
		failChunks:  map[uint32]bool{},
	}
}

func (f *fakeRPC) seed(worker string, r Replica) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byWorker[worker] == nil {
		f.byWorker[worker] = map[uint32][]Replica{}
	}
	f.byWorker[worker][r.Chunk] = append(f.byWorker[worker][r.Chunk], r)
}

func (f *fakeRPC) FindAllReplicas(ctx context.Context, worker, family string) ([]Replica, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWorkers[worker] {
		return nil, fmt.Errorf("fakeRPC: worker %s unreachable", worker)
	}
	var out []Replica
	for _, replicas := range f.byWorker[worker] {
		out = append(out, replicas...)
	}
	return out, nil
}

func (f *fakeRPC) CreateReplica(ctx context.Context, worker, database string, chunk uint32, srcWorker string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWorkers[worker] || f.failChunks[chunk] {
		return fmt.Errorf("fakeRPC: create replica failed on %s", worker)
	}
	if f.byWorker[worker] == nil {
		f.byWorker[worker] = map[uint32][]Replica{}
	}
	f.byWorker[worker][chunk] = append(f.byWorker[worker][chunk], Replica{
		Database: database, Chunk: chunk, Worker: worker, Status: StatusComplete,
	})
	return nil
}

func (f *fakeRPC) DeleteReplica(ctx context.Context, worker, database string, chunk uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWorkers[worker] || f.failChunks[chunk] {
		return fmt.Errorf("fakeRPC: delete replica failed on %s", worker)
	}
	replicas := f.byWorker[worker][chunk]
	kept := replicas[:0]
	for _, r := range replicas {
		if r.Database != database {
			kept = append(kept, r)
		}
	}
	f.byWorker[worker][chunk] = kept
	return nil
}

// fakeDB answers Replicas(worker, chunk) from the same seeded state as
// fakeRPC, so CreateReplica/DeleteReplica's config validation sees a
// consistent view.
type fakeDB struct {
	rpc *fakeRPC
}

func (d *fakeDB) Replicas(worker string, chunk uint32) ([]Replica, error) {
	d.rpc.mu.Lock()
	defer d.rpc.mu.Unlock()
	return append([]Replica(nil), d.rpc.byWorker[worker][chunk]...), nil
}

// fakeNotifier records every AddReplica/MarkUnused call it receives.
type fakeNotifier struct {
	mu sync.Mutex

	addCalls  []addReplicaCall
	markCalls []markUnusedCall

	markUnusedErr error
}

type addReplicaCall struct {
	databases []string
	chunk     uint32
	workers   []string
}

type markUnusedCall struct {
	worker string
	chunk  uint32
	force  bool
}

func (n *fakeNotifier) AddReplica(ctx context.Context, databases []string, chunk uint32, workers []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.addCalls = append(n.addCalls, addReplicaCall{databases: databases, chunk: chunk, workers: workers})
	return nil
}

func (n *fakeNotifier) MarkUnused(ctx context.Context, worker string, chunk uint32, force bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.markCalls = append(n.markCalls, markUnusedCall{worker: worker, chunk: chunk, force: force})
	return n.markUnusedErr
}

func testConfigWithThreads(n int) *config.Snapshot {
	cfg := config.Default()
	cfg.ControllerThreads = n
	return cfg
}

func testController(rpc *fakeRPC, notifier QservNotifier, cfg *config.Snapshot) *Controller {
	if cfg == nil {
		cfg = config.Default()
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	log := logrus.NewEntry(logger)
	return NewController(cfg, NewLocker(), rpc, &fakeDB{rpc: rpc}, notifier, nil, log)
}
