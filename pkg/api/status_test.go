package api

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/psantana5/supervise/pkg/logging"
	"github.com/psantana5/supervise/pkg/metrics"
	"github.com/psantana5/supervise/pkg/supervise"
)

func quietLogger() *logging.Logger {
	log := logging.NewLogger(logging.ERROR, false)
	log.SetOutput(io.Discard)
	return log
}

func TestStatusNotStarted(t *testing.T) {
	proc := supervise.New("idle", []string{"/bin/sh", "-c", "sleep 10"},
		supervise.WithLogger(quietLogger()))
	server := NewStatusServer(proc, nil, quietLogger())

	req := httptest.NewRequest("GET", "/status", nil)
	rr := httptest.NewRecorder()
	server.Routes().ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Fatalf("GET /status status = %d, want 200", rr.Code)
	}

	var resp StatusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshaling response: %v", err)
	}
	if resp.Name != "idle" {
		t.Errorf("Name = %q, want %q", resp.Name, "idle")
	}
	if resp.State != string(supervise.StateNotStarted) {
		t.Errorf("State = %q, want %q", resp.State, supervise.StateNotStarted)
	}
	if resp.Running {
		t.Error("Running = true, want false")
	}
	if resp.Pid != 0 {
		t.Errorf("Pid = %d, want 0 while not running", resp.Pid)
	}
}

func TestStatusRunning(t *testing.T) {
	proc := supervise.New("sleeper", []string{"/bin/sh", "-c", "sleep 10"},
		supervise.WithLogger(quietLogger()))
	if err := proc.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer proc.Kill()

	server := NewStatusServer(proc, nil, quietLogger())

	req := httptest.NewRequest("GET", "/status", nil)
	rr := httptest.NewRecorder()
	server.Routes().ServeHTTP(rr, req)

	var resp StatusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshaling response: %v", err)
	}
	if !resp.Running {
		t.Error("Running = false, want true")
	}
	if resp.Pid <= 0 {
		t.Errorf("Pid = %d, want positive", resp.Pid)
	}
	if len(resp.Events) == 0 {
		t.Error("Events should record the start transition")
	}
}

func TestStatusAfterExit(t *testing.T) {
	proc := supervise.New("oneshot", []string{"/bin/sh", "-c", "exit 7"},
		supervise.WithLogger(quietLogger()))
	if err := proc.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	time.Sleep(300 * time.Millisecond)

	server := NewStatusServer(proc, nil, quietLogger())

	req := httptest.NewRequest("GET", "/status", nil)
	rr := httptest.NewRecorder()
	server.Routes().ServeHTTP(rr, req)

	var resp StatusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshaling response: %v", err)
	}
	if resp.Running {
		t.Error("Running = true, want false")
	}
	if resp.State != string(supervise.StateExited) {
		t.Errorf("State = %q, want %q", resp.State, supervise.StateExited)
	}
	if resp.Returncode != 7 {
		t.Errorf("Returncode = %d, want 7", resp.Returncode)
	}
}

func TestHealthz(t *testing.T) {
	proc := supervise.New("x", nil, supervise.WithLogger(quietLogger()))
	server := NewStatusServer(proc, nil, quietLogger())

	req := httptest.NewRequest("GET", "/healthz", nil)
	rr := httptest.NewRecorder()
	server.Routes().ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Errorf("GET /healthz status = %d, want 200", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	collector := metrics.NewCollector()
	collector.RecordSpawn("x")

	proc := supervise.New("x", nil, supervise.WithLogger(quietLogger()))
	server := NewStatusServer(proc, collector, quietLogger())

	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	server.Routes().ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Fatalf("GET /metrics status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "supervise_spawns_total") {
		t.Error("metrics endpoint missing spawn counter")
	}
}

func TestMetricsEndpointAbsentWithoutCollector(t *testing.T) {
	proc := supervise.New("x", nil, supervise.WithLogger(quietLogger()))
	server := NewStatusServer(proc, nil, quietLogger())

	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	server.Routes().ServeHTTP(rr, req)

	if rr.Code == 200 {
		t.Error("GET /metrics should not be served without a collector")
	}
}
