package metrics

import "github.com/prometheus/client_golang/prometheus"

// Routing and retrieval Prometheus metrics.
var (
	RoutingDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dory",
			Name:      "routing_decisions_total",
			Help:      "Routing decisions by mode and domain",
		},
		[]string{"mode", "domain"},
	)

	GovernanceVerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dory",
			Name:      "governance_verdicts_total",
			Help:      "Governance verdicts applied to assembled results",
		},
		[]string{"verdict"},
	)

	FAQLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dory",
			Name:      "faq_lookups_total",
			Help:      "Fuzzy FAQ lookups by result",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	RetrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dory",
			Name:      "retrieval_duration_seconds",
			Help:      "Corpus similarity scan duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
		[]string{"domain"},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers routing/retrieval metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(RoutingDecisionsTotal)
	prometheus.MustRegister(GovernanceVerdictsTotal)
	prometheus.MustRegister(FAQLookupsTotal)
	prometheus.MustRegister(RetrievalDuration)
	pipelineMetricsRegistered = true
}
