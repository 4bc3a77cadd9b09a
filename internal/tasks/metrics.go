package tasks

import (
	"github.com/desertthunder/mustx/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type pipelineMetrics struct {
	entries *prometheus.CounterVec
	runs    *prometheus.CounterVec
}

func newPipelineMetrics(reg prometheus.Registerer) *pipelineMetrics {
	factory := promauto.With(reg)
	return &pipelineMetrics{
		entries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mustx_fetch_entries_total",
			Help: "List entries fetched by list.",
		}, []string{"list"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mustx_fetch_runs_total",
			Help: "Pipeline runs by result (ok, private, error).",
		}, []string{"result"}),
	}
}

func (m *pipelineMetrics) fetched(key models.ListKey, n int) {
	m.entries.WithLabelValues(string(key)).Add(float64(n))
}

func (m *pipelineMetrics) run(result string) {
	m.runs.WithLabelValues(result).Inc()
}
