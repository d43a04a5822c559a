package replica

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// StatusServer is a read-only HTTP view over a JobLog: an operational
// surface for inspecting finished jobs and per-worker counters outside
// of the process that ran them.
type StatusServer struct {
	log    *JobLog
	router *mux.Router
}

// NewStatusServer builds a StatusServer backed by log.
func NewStatusServer(log *JobLog) *StatusServer {
	s := &StatusServer{log: log, router: mux.NewRouter()}
	s.router.HandleFunc("/jobs", s.handleListJobs).Methods(http.MethodGet)
	s.router.HandleFunc("/jobs/{id}", s.handleGetJob).Methods(http.MethodGet)
	s.router.HandleFunc("/workers/{id}/stats", s.handleWorkerStats).Methods(http.MethodGet)
	return s
}

// ServeHTTP makes StatusServer an http.Handler.
func (s *StatusServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *StatusServer) handleListJobs(w http.ResponseWriter, r *http.Request) {
	recs, err := s.log.All()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, recs)
}

func (s *StatusServer) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rec, ok, err := s.log.Get(JobId(id))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "no such job", http.StatusNotFound)
		return
	}
	writeJSON(w, rec)
}

func (s *StatusServer) handleWorkerStats(w http.ResponseWriter, r *http.Request) {
	worker := mux.Vars(r)["id"]
	created, deleted, err := s.log.WorkerStats(worker)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, struct {
		Worker        string `json:"worker"`
		CreatedChunks int    `json:"created_chunks"`
		DeletedChunks int    `json:"deleted_chunks"`
	}{worker, created, deleted})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
