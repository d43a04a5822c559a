package replica

import (
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
	"gopkg.in/vmihailenco/msgpack.v2"
)

var jobsBucket = []byte("jobs")

// JobRecord is the persisted log entry for one job's terminal state.
// It is written once, when a job finishes with the aggregate outcome of
// its requests; early exits (CONFIG_ERROR, CANCELLED, the QSERV_* states,
// a composite job's failed FindAll pass, Rebalance's estimate-mode and
// no-worker exits) write no record.
type JobRecord struct {
	JobId       string
	ParentId    string
	Kind        string
	Family      string
	Chunk       uint32
	Worker      string
	TargetLevel int
	State       string
	ExtState    string
	FinishedAt  time.Time

	// CreatedChunks/DeletedChunks carry the per-worker counters:
	// "created-chunks=" / "deleted-chunks=".
	CreatedChunks map[string]int
	DeletedChunks map[string]int
}

// JobLog is a bolt-backed store of JobRecords keyed by JobId,
// msgpack-encoded; a second Put for the same JobId overwrites the first. Grounded on the boltStore shape in
// dolthub-dolt/go/performance/kvbench's benchmark harness (bolt.Open, one
// bucket, Put/Get/ForEach under Update/View).
type JobLog struct {
	db *bolt.DB
}

// OpenJobLog opens (creating if necessary) a bolt-backed job log at path.
func OpenJobLog(path string) (*JobLog, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "replica: opening job log")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(jobsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "replica: initializing job log bucket")
	}
	return &JobLog{db: db}, nil
}

// Close releases the underlying bolt database handle.
func (l *JobLog) Close() error {
	return l.db.Close()
}

// Put writes (or overwrites) one job's record.
func (l *JobLog) Put(rec JobRecord) error {
	data, err := msgpack.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "replica: encoding job record")
	}
	return l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(jobsBucket).Put([]byte(rec.JobId), data)
	})
}

// Get returns the record for jobId, or ok=false if no record exists.
func (l *JobLog) Get(jobId JobId) (rec JobRecord, ok bool, err error) {
	err = l.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(jobsBucket).Get([]byte(jobId))
		if data == nil {
			return nil
		}
		ok = true
		return msgpack.Unmarshal(data, &rec)
	})
	if err != nil {
		return JobRecord{}, false, errors.Wrap(err, "replica: decoding job record")
	}
	return rec, ok, nil
}

// All returns every persisted record, ordered by the bolt bucket's natural
// (JobId byte-lexical) key order.
func (l *JobLog) All() ([]JobRecord, error) {
	var recs []JobRecord
	err := l.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(jobsBucket).ForEach(func(_, v []byte) error {
			var rec JobRecord
			if err := msgpack.Unmarshal(v, &rec); err != nil {
				return err
			}
			recs = append(recs, rec)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "replica: scanning job log")
	}
	return recs, nil
}

// WorkerStats aggregates created/deleted chunk counts across every
// persisted record for worker.
func (l *JobLog) WorkerStats(worker string) (created, deleted int, err error) {
	recs, err := l.All()
	if err != nil {
		return 0, 0, err
	}
	for _, rec := range recs {
		created += rec.CreatedChunks[worker]
		deleted += rec.DeletedChunks[worker]
	}
	return created, deleted, nil
}

// persistJob writes rec to ctrl's JobLog, stamping FinishedAt. A nil
// Controller or JobLog makes this a no-op: persistence is opt-in.
func persistJob(ctrl *Controller, rec JobRecord) {
	if ctrl == nil || ctrl.JobLog == nil {
		return
	}
	rec.FinishedAt = time.Now()
	if err := ctrl.JobLog.Put(rec); err != nil {
		ctrl.Log.WithError(err).WithField("job", rec.JobId).Warn("replica: failed to persist job record")
	}
}
