// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Run metrics exported in the Prometheus text format.
// The engine keeps plain counters in its hot loop; results are folded into
// the registry once per run.

package control

import (
	"sync"

	"github.com/momentics/hioload-pipe/api"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hioload_pipe"

var runLabels = []string{"role", "primitive", "strategy"}

// MetricsRegistry holds the collectors of one process.
type MetricsRegistry struct {
	reg *prometheus.Registry

	bytes      *prometheus.CounterVec
	calls      *prometheus.CounterVec
	wouldBlock *prometheus.CounterVec
	waits      *prometheus.CounterVec
	passes     *prometheus.CounterVec
	faults     *prometheus.GaugeVec
	throughput *prometheus.GaugeVec

	mu   sync.RWMutex
	last map[string]any
}

// NewMetricsRegistry creates a registry with all collectors registered.
func NewMetricsRegistry() *MetricsRegistry {
	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: name, Help: help,
		}, runLabels)
	}
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: name, Help: help,
		}, runLabels)
	}
	mr := &MetricsRegistry{
		reg:        prometheus.NewRegistry(),
		bytes:      counter("bytes_total", "Bytes moved through the pipe."),
		calls:      counter("calls_total", "Successful transfer calls."),
		wouldBlock: counter("would_block_total", "Transfer calls retried after EAGAIN."),
		waits:      counter("readiness_waits_total", "poll(2) calls issued before transfers."),
		passes:     counter("passes_total", "Completed buffer passes."),
		faults:     gauge("page_faults", "Page faults counted during the last run."),
		throughput: gauge("throughput_bytes_per_second", "Throughput of the last run."),
		last:       make(map[string]any),
	}
	mr.reg.MustRegister(mr.bytes, mr.calls, mr.wouldBlock, mr.waits, mr.passes, mr.faults, mr.throughput)
	return mr
}

// Registry exposes the underlying Prometheus registry.
func (mr *MetricsRegistry) Registry() *prometheus.Registry { return mr.reg }

// Observe folds the result of one run into the collectors.
func (mr *MetricsRegistry) Observe(st api.TransferStats) {
	lv := []string{st.Role.String(), st.Primitive.String(), st.Strategy}
	mr.bytes.WithLabelValues(lv...).Add(float64(st.Bytes))
	mr.calls.WithLabelValues(lv...).Add(float64(st.Calls))
	mr.wouldBlock.WithLabelValues(lv...).Add(float64(st.WouldBlock))
	mr.waits.WithLabelValues(lv...).Add(float64(st.ReadinessWaits))
	mr.passes.WithLabelValues(lv...).Add(float64(st.Passes))
	if st.FaultsCounted {
		mr.faults.WithLabelValues(lv...).Set(float64(st.PageFaults))
	}
	mr.throughput.WithLabelValues(lv...).Set(st.Throughput())

	mr.mu.Lock()
	mr.last = map[string]any{
		"role":        st.Role.String(),
		"outcome":     st.Outcome.String(),
		"bytes":       st.Bytes,
		"calls":       st.Calls,
		"would_block": st.WouldBlock,
		"passes":      st.Passes,
		"elapsed":     st.Elapsed,
	}
	mr.mu.Unlock()
}

// GetSnapshot returns the fields of the last observed run.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.last))
	for k, v := range mr.last {
		out[k] = v
	}
	return out
}

// WriteFile writes the text exposition atomically to path.
func (mr *MetricsRegistry) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, mr.reg)
}
