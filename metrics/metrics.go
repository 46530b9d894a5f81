// Package metrics exports Prometheus metrics about runs.
package metrics

import (
	"github.com/NicValentine/LoFi-Cafe/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts what schedulers do.  One Metrics can observe any
// number of models.
type Metrics struct {
	Ticks             *prometheus.CounterVec
	Firings           *prometheus.CounterVec
	RetrievalFailures *prometheus.CounterVec
	Lines             *prometheus.CounterVec
	Errors            *prometheus.CounterVec
	Walks             *prometheus.CounterVec
	WalkLength        *prometheus.HistogramVec
}

// New registers the metrics with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Ticks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lofi_ticks_total",
			Help: "Ticks that fired a production, including boot",
		}, []string{"model"}),

		Firings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lofi_firings_total",
			Help: "Productions fired by name",
		}, []string{"model", "production"}),

		RetrievalFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lofi_retrieval_failures_total",
			Help: "Memory requests that matched nothing",
		}, []string{"model", "memory"}),

		Lines: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lofi_lines_total",
			Help: "Emitted lines by kind",
		}, []string{"model", "kind"}),

		Errors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lofi_errors_total",
			Help: "Failed actions, retrievals, phases, and sinks",
		}, []string{"model"}),

		Walks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lofi_walks_total",
			Help: "Walks by stop reason",
		}, []string{"model", "stopped"}),

		WalkLength: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lofi_walk_strides",
			Help:    "Strides per walk",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 1000},
		}, []string{"model"}),
	}
}

// Observe counts one stride.
func (m *Metrics) Observe(model string, s *core.Stride) {
	if s == nil {
		return
	}
	if s.Fired != "" {
		m.Ticks.WithLabelValues(model).Inc()
		m.Firings.WithLabelValues(model, s.Fired).Inc()
	}
	for _, r := range s.Failures() {
		m.RetrievalFailures.WithLabelValues(model, r.Request.Memory).Inc()
	}
	if 0 < len(s.Errors) {
		m.Errors.WithLabelValues(model).Add(float64(len(s.Errors)))
	}
	if s.Events != nil {
		for _, l := range s.Lines() {
			m.Lines.WithLabelValues(model, l.Kind).Inc()
		}
	}
}

// ObserveWalk counts every stride in the walk and the walk itself.
func (m *Metrics) ObserveWalk(model string, w *core.Walked) {
	if w == nil {
		return
	}
	for _, s := range w.Strides {
		m.Observe(model, s)
	}
	m.Walks.WithLabelValues(model, w.StoppedBecause.String()).Inc()
	m.WalkLength.WithLabelValues(model).Observe(float64(len(w.Strides)))
}
