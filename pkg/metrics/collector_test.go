package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCollectorExport(t *testing.T) {
	c := NewCollector()

	c.RecordSpawn("web")
	c.RecordSpawn("web")
	c.RecordRestart("web")
	c.RecordExit("web", "error")
	c.RecordSignal("web", "SIGTERM")
	c.SetRunning("web", true)

	out, err := c.Export()
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	expected := []string{
		`supervise_spawns_total{process="web"} 2`,
		`supervise_restarts_total{process="web"} 1`,
		`supervise_exits_total{process="web",reason="error"} 1`,
		`supervise_signals_sent_total{process="web",signal="SIGTERM"} 1`,
		`supervise_running{process="web"} 1`,
	}
	for _, want := range expected {
		if !strings.Contains(out, want) {
			t.Errorf("Export() missing %q\ngot:\n%s", want, out)
		}
	}
}

func TestCollectorRunningGauge(t *testing.T) {
	c := NewCollector()

	c.SetRunning("job", true)
	c.SetRunning("job", false)

	out, err := c.Export()
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !strings.Contains(out, `supervise_running{process="job"} 0`) {
		t.Errorf("running gauge not reset to 0:\n%s", out)
	}
}

func TestCollectorHandler(t *testing.T) {
	c := NewCollector()
	c.RecordSpawn("api")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Fatalf("GET /metrics status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "supervise_spawns_total") {
		t.Errorf("handler response missing spawn counter:\n%s", rr.Body.String())
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector

	// None of these may panic
	c.RecordSpawn("x")
	c.RecordRestart("x")
	c.RecordExit("x", "success")
	c.RecordSignal("x", "SIGKILL")
	c.SetRunning("x", true)
}

func TestIndependentRegistries(t *testing.T) {
	a := NewCollector()
	b := NewCollector()

	a.RecordSpawn("only-a")

	out, err := b.Export()
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if strings.Contains(out, "only-a") {
		t.Error("collectors share a registry")
	}
}
