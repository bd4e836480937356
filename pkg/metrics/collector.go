package metrics

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// Collector aggregates supervision counters on a private registry so
// independent supervisors (and tests) never collide on metric names.
// All record methods are safe to call on a nil Collector.
type Collector struct {
	registry *prometheus.Registry

	spawnsTotal   *prometheus.CounterVec
	restartsTotal *prometheus.CounterVec
	exitsTotal    *prometheus.CounterVec
	signalsTotal  *prometheus.CounterVec
	running       *prometheus.GaugeVec
}

// NewCollector creates a collector with all supervision metrics registered.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		spawnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "supervise_spawns_total",
			Help: "Total child processes spawned, including restarts",
		}, []string{"process"}),
		restartsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "supervise_restarts_total",
			Help: "Total automatic relaunches after a child exited",
		}, []string{"process"}),
		exitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "supervise_exits_total",
			Help: "Total observed child exits by reason",
		}, []string{"process", "reason"}),
		signalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "supervise_signals_sent_total",
			Help: "Total termination signals delivered to children",
		}, []string{"process", "signal"}),
		running: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "supervise_running",
			Help: "Whether the supervised process is currently running",
		}, []string{"process"}),
	}

	c.registry.MustRegister(
		c.spawnsTotal,
		c.restartsTotal,
		c.exitsTotal,
		c.signalsTotal,
		c.running,
	)

	return c
}

// RecordSpawn counts one child spawn (initial start or restart).
func (c *Collector) RecordSpawn(process string) {
	if c == nil {
		return
	}
	c.spawnsTotal.WithLabelValues(process).Inc()
}

// RecordRestart counts one automatic relaunch.
func (c *Collector) RecordRestart(process string) {
	if c == nil {
		return
	}
	c.restartsTotal.WithLabelValues(process).Inc()
}

// RecordExit counts one observed child exit. Reason is one of
// success, error or signal.
func (c *Collector) RecordExit(process, reason string) {
	if c == nil {
		return
	}
	c.exitsTotal.WithLabelValues(process, reason).Inc()
}

// RecordSignal counts one termination signal sent to the child.
func (c *Collector) RecordSignal(process, signal string) {
	if c == nil {
		return
	}
	c.signalsTotal.WithLabelValues(process, signal).Inc()
}

// SetRunning updates the running gauge for a process.
func (c *Collector) SetRunning(process string, running bool) {
	if c == nil {
		return
	}
	value := 0.0
	if running {
		value = 1.0
	}
	c.running.WithLabelValues(process).Set(value)
}

// Handler returns an HTTP handler serving the registry at /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Export renders the current metric families in Prometheus text exposition
// format, for callers that want a snapshot without an HTTP round trip.
func (c *Collector) Export() (string, error) {
	families, err := c.registry.Gather()
	if err != nil {
		return "", fmt.Errorf("gathering metrics: %w", err)
	}

	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range families {
		if err := encoder.Encode(family); err != nil {
			return "", fmt.Errorf("encoding metric family %s: %w", family.GetName(), err)
		}
	}

	return buf.String(), nil
}
