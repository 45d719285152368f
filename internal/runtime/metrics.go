package runtime

import (
	"time"

	"github.com/aretw0/authtree/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the executor's prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	nodeExecutions *prometheus.CounterVec
	nodeDuration   *prometheus.HistogramVec
	treeResults    *prometheus.CounterVec
}

// NewMetrics creates and registers the executor metrics with reg.
// A nil reg uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		nodeExecutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authtree",
			Name:      "node_executions_total",
			Help:      "Total number of node executions by node type and result.",
		}, []string{"type", "result"}),
		nodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "authtree",
			Name:      "node_duration_seconds",
			Help:      "Duration of node processing in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
		treeResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authtree",
			Name:      "tree_results_total",
			Help:      "Total number of completed tree evaluations by tree and result.",
		}, []string{"tree", "result"}),
	}
}

func (m *Metrics) observeNode(nodeType string, action domain.Action, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "outcome"
	switch {
	case err != nil:
		result = "error"
	case action.IsSuspend():
		result = "need_input"
	}
	m.nodeExecutions.WithLabelValues(nodeType, result).Inc()
	m.nodeDuration.WithLabelValues(nodeType).Observe(elapsed.Seconds())
}

func (m *Metrics) observeTree(tree string, kind domain.ResultKind) {
	if m == nil {
		return
	}
	m.treeResults.WithLabelValues(tree, string(kind)).Inc()
}
