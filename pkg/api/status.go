// Package api exposes a supervised process over HTTP: JSON state at
// /status, Prometheus metrics at /metrics and a liveness probe at /healthz.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/psantana5/supervise/pkg/logging"
	"github.com/psantana5/supervise/pkg/metrics"
	"github.com/psantana5/supervise/pkg/supervise"
)

// StatusServer serves read-only observability endpoints for one
// supervised process.
type StatusServer struct {
	proc      *supervise.SupervisedProcess
	collector *metrics.Collector
	log       *logging.Logger
}

// NewStatusServer creates a status server. The collector may be nil, in
// which case /metrics is not registered.
func NewStatusServer(proc *supervise.SupervisedProcess, collector *metrics.Collector, log *logging.Logger) *StatusServer {
	return &StatusServer{
		proc:      proc,
		collector: collector,
		log:       log,
	}
}

// StatusResponse is the JSON body served at /status.
type StatusResponse struct {
	Name       string            `json:"name"`
	State      string            `json:"state"`
	Running    bool              `json:"running"`
	Pid        int               `json:"pid,omitempty"`
	Returncode int               `json:"returncode"`
	CPUPercent float64           `json:"cpu_percent,omitempty"`
	MemoryRSS  uint64            `json:"memory_rss_bytes,omitempty"`
	Events     []supervise.Event `json:"events"`
}

// Routes builds the router with all endpoints registered.
func (s *StatusServer) Routes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/status", s.handleStatus).Methods("GET")
	router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	if s.collector != nil {
		router.Handle("/metrics", s.collector.Handler()).Methods("GET")
	}
	return router
}

// ListenAndServe runs the status server until it fails or is shut down.
func (s *StatusServer) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.Info("status server listening", map[string]interface{}{"addr": addr})
	return srv.ListenAndServe()
}

func (s *StatusServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	running := s.proc.Running()

	resp := StatusResponse{
		Name:       s.proc.Name(),
		State:      string(s.proc.State()),
		Running:    running,
		Returncode: s.proc.Returncode(),
		Events:     s.proc.Events(),
	}

	if running {
		resp.Pid = s.proc.Pid()
		s.enrichResourceUsage(&resp)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Error("failed to encode status response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// enrichResourceUsage fills CPU and memory figures for the live child.
// Best effort: the pid can vanish between the running check and the probe.
func (s *StatusServer) enrichResourceUsage(resp *StatusResponse) {
	proc, err := process.NewProcess(int32(resp.Pid))
	if err != nil {
		return
	}

	if cpu, err := proc.CPUPercent(); err == nil {
		resp.CPUPercent = cpu
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		resp.MemoryRSS = mem.RSS
	}
}

func (s *StatusServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
