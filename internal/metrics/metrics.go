// Package metrics exposes Prometheus metrics for propagation passes.
package metrics

import (
	"fmt"
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	"github.com/roach88/slotgraph/internal/ir"
)

// Pass status label values.
const (
	StatusOK      = "ok"
	StatusAborted = "aborted"
)

// Registry holds the pass metrics and the Prometheus registry they are
// registered with.
type Registry struct {
	PassesTotal     *prometheus.CounterVec
	PassDirtied     *prometheus.HistogramVec
	SetsTotal       prometheus.Counter
	ViolationsTotal *prometheus.CounterVec
	LastSeq         prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.Mutex
}

// NewRegistry creates a registry with all metrics initialized.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{registry: reg}

	r.PassesTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotgraph_passes_total",
			Help: "Total number of propagation passes",
		},
		[]string{"kind", "status"},
	)

	r.PassDirtied = promauto.With(reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slotgraph_pass_dirtied_slots",
			Help:    "Number of slots dirtied per propagation pass",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 500},
		},
		[]string{"kind"},
	)

	r.SetsTotal = promauto.With(reg).NewCounter(
		prometheus.CounterOpts{
			Name: "slotgraph_set_notifications_total",
			Help: "Total number of set notifications delivered",
		},
	)

	r.ViolationsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotgraph_pass_errors_total",
			Help: "Aborted passes by error code",
		},
		[]string{"code"},
	)

	r.LastSeq = promauto.With(reg).NewGauge(
		prometheus.GaugeOpts{
			Name: "slotgraph_last_seq",
			Help: "Logical clock value of the most recent pass",
		},
	)

	return r
}

// Prometheus returns the underlying Prometheus registry.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.registry
}

// RecordPass records one finished or aborted pass. Its signature matches
// engine.PassFunc so it can be subscribed directly with OnPass.
func (r *Registry) RecordPass(rec ir.PassRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := StatusOK
	if rec.Aborted() {
		status = StatusAborted
		r.ViolationsTotal.WithLabelValues(rec.ErrorCode).Inc()
	}
	kind := string(rec.Kind)
	r.PassesTotal.WithLabelValues(kind, status).Inc()
	r.PassDirtied.WithLabelValues(kind).Observe(float64(len(rec.Dirtied)))
	r.SetsTotal.Add(float64(len(rec.Set)))
	r.LastSeq.Set(float64(rec.Seq))
}

// WriteText writes all metrics in the Prometheus text exposition format.
func (r *Registry) WriteText(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
